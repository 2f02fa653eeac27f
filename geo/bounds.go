package geo

import (
	"fmt"
	"math"
)

// BoundingVolume is the culling and distance interface shared by the
// oriented box and the sphere fallback.
type BoundingVolume interface {
	Center() Vec3
	// DistanceTo returns the distance from a point to the nearest point of
	// the volume, zero if the point is inside.
	DistanceTo(pt Vec3) float64
	// IntersectsFrustum reports whether the volume is at least partially
	// inside the frustum. The test is conservative: it may report an
	// intersection for a volume that is fully outside, never the reverse.
	IntersectsFrustum(f *Frustum) bool
	// Radius returns the radius of a sphere containing the volume.
	Radius() float64
}

// BoundingBox is an oriented box described by its center and three mutually
// orthogonal half-axis vectors r, s, t (longest first).
type BoundingBox struct {
	center  Vec3
	r, s, t Vec3
}

// BoxFromPoints computes the oriented bounding box of a packed point list.
// The box axes come from the eigensystem of the points' covariance matrix,
// its extents from projecting the points onto those axes. Returns
// ErrInvalidArgument for fewer than one full stride of data or stride < 3;
// callers typically degrade to SphereFromPoints when the point set is too
// thin for a stable eigensystem.
func BoxFromPoints(points []float64, stride int) (*BoundingBox, error) {
	var cov Matrix
	if err := cov.SetToCovarianceOfPoints(points, stride); err != nil {
		return nil, err
	}

	var eigen [3]Vec3
	if err := cov.EigensystemFromSymmetricMatrix(eigen[:]); err != nil {
		return nil, err
	}

	r := eigen[0].Normalize()
	s := eigen[1].Normalize()
	t := eigen[2].Normalize()
	if r.Length() == 0 || s.Length() == 0 || t.Length() == 0 {
		return nil, fmt.Errorf("degenerate eigenvectors: %w", ErrInvalidArgument)
	}

	// Project all points onto the principal axes to find the box extents.
	minR, maxR := math.Inf(1), math.Inf(-1)
	minS, maxS := math.Inf(1), math.Inf(-1)
	minT, maxT := math.Inf(1), math.Inf(-1)
	count := len(points) / stride
	for i := 0; i < count; i++ {
		p := Vec3{points[i*stride], points[i*stride+1], points[i*stride+2]}
		pr := p.Dot(r)
		ps := p.Dot(s)
		pt := p.Dot(t)
		minR = min(minR, pr)
		maxR = max(maxR, pr)
		minS = min(minS, ps)
		maxS = max(maxS, ps)
		minT = min(minT, pt)
		maxT = max(maxT, pt)
	}

	center := r.Scale((minR + maxR) / 2).
		Add(s.Scale((minS + maxS) / 2)).
		Add(t.Scale((minT + maxT) / 2))

	return &BoundingBox{
		center: center,
		r:      r.Scale((maxR - minR) / 2),
		s:      s.Scale((maxS - minS) / 2),
		t:      t.Scale((maxT - minT) / 2),
	}, nil
}

func (b *BoundingBox) Center() Vec3 {
	return b.center
}

func (b *BoundingBox) Radius() float64 {
	return b.r.Add(b.s).Add(b.t).Length()
}

// DistanceTo returns the distance from a point to the nearest point on the
// box, zero if the point is inside.
func (b *BoundingBox) DistanceTo(pt Vec3) float64 {
	d := pt.Subtract(b.center)

	// Clamp the point into the box's local coordinates; the residual is the
	// separation vector.
	sep := Vec3{}
	for _, axis := range []Vec3{b.r, b.s, b.t} {
		halfLen := axis.Length()
		if halfLen == 0 {
			continue
		}
		unit := axis.Scale(1 / halfLen)
		proj := d.Dot(unit)
		if proj > halfLen {
			sep = sep.Add(unit.Scale(proj - halfLen))
		} else if proj < -halfLen {
			sep = sep.Add(unit.Scale(proj + halfLen))
		}
	}
	return sep.Length()
}

// IntersectsFrustum tests the box against all six planes using its effective
// radius along each plane normal.
func (b *BoundingBox) IntersectsFrustum(f *Frustum) bool {
	for i := range f.Planes {
		n := f.Planes[i].Normal
		effective := math.Abs(b.r.Dot(n)) + math.Abs(b.s.Dot(n)) + math.Abs(b.t.Dot(n))
		if f.Planes[i].DistanceTo(b.center) < -effective {
			return false
		}
	}
	return true
}

// BoundingSphere is the coarse fallback volume used when a tile's point set
// is too degenerate for an oriented box.
type BoundingSphere struct {
	center Vec3
	radius float64
}

// SphereFromPoints computes a bounding sphere about the points' mean.
func SphereFromPoints(points []float64, stride int) (*BoundingSphere, error) {
	mean, err := AverageOfPoints(points, stride)
	if err != nil {
		return nil, err
	}

	radius := 0.0
	count := len(points) / stride
	for i := 0; i < count; i++ {
		p := Vec3{points[i*stride], points[i*stride+1], points[i*stride+2]}
		radius = max(radius, p.DistanceTo(mean))
	}
	return &BoundingSphere{center: mean, radius: radius}, nil
}

// NewBoundingSphere returns a sphere with the given center and radius.
func NewBoundingSphere(center Vec3, radius float64) *BoundingSphere {
	return &BoundingSphere{center: center, radius: radius}
}

func (b *BoundingSphere) Center() Vec3 {
	return b.center
}

func (b *BoundingSphere) Radius() float64 {
	return b.radius
}

func (b *BoundingSphere) DistanceTo(pt Vec3) float64 {
	return max(0, pt.DistanceTo(b.center)-b.radius)
}

func (b *BoundingSphere) IntersectsFrustum(f *Frustum) bool {
	return f.IntersectsSphere(b.center, b.radius)
}
