package geo

// Plane is a half-space ax + by + cz + d = 0 with the normal pointing into
// the inside of the frustum.
type Plane struct {
	Normal Vec3
	D      float64
}

// DistanceTo returns the signed distance from a point to the plane; positive
// means inside (same side as the normal).
func (p Plane) DistanceTo(pt Vec3) float64 {
	return p.Normal.Dot(pt) + p.D
}

// Frustum holds the six clip planes of a view volume in the order left,
// right, bottom, top, near, far.
type Frustum struct {
	Planes [6]Plane
}

// FrustumFromMatrix extracts the six frustum planes from a row-major
// view-projection matrix using the Gribb/Hartmann method. The planes are
// normalized so DistanceTo returns true distances in model units.
func FrustumFromMatrix(vp *Matrix) Frustum {
	r0 := [4]float64{vp[0], vp[1], vp[2], vp[3]}
	r1 := [4]float64{vp[4], vp[5], vp[6], vp[7]}
	r2 := [4]float64{vp[8], vp[9], vp[10], vp[11]}
	r3 := [4]float64{vp[12], vp[13], vp[14], vp[15]}

	var f Frustum
	f.Planes[0] = normalizePlane(r3[0]+r0[0], r3[1]+r0[1], r3[2]+r0[2], r3[3]+r0[3]) // left
	f.Planes[1] = normalizePlane(r3[0]-r0[0], r3[1]-r0[1], r3[2]-r0[2], r3[3]-r0[3]) // right
	f.Planes[2] = normalizePlane(r3[0]+r1[0], r3[1]+r1[1], r3[2]+r1[2], r3[3]+r1[3]) // bottom
	f.Planes[3] = normalizePlane(r3[0]-r1[0], r3[1]-r1[1], r3[2]-r1[2], r3[3]-r1[3]) // top
	f.Planes[4] = normalizePlane(r3[0]+r2[0], r3[1]+r2[1], r3[2]+r2[2], r3[3]+r2[3]) // near
	f.Planes[5] = normalizePlane(r3[0]-r2[0], r3[1]-r2[1], r3[2]-r2[2], r3[3]-r2[3]) // far
	return f
}

func normalizePlane(a, b, c, d float64) Plane {
	l := Vec3{a, b, c}.Length()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: Vec3{a / l, b / l, c / l}, D: d / l}
}

// ContainsPoint reports whether the point is inside or on all six planes.
func (f *Frustum) ContainsPoint(pt Vec3) bool {
	for i := range f.Planes {
		if f.Planes[i].DistanceTo(pt) < 0 {
			return false
		}
	}
	return true
}

// IntersectsSphere reports whether a sphere is at least partially inside the
// frustum.
func (f *Frustum) IntersectsSphere(center Vec3, radius float64) bool {
	for i := range f.Planes {
		if f.Planes[i].DistanceTo(center) < -radius {
			return false
		}
	}
	return true
}
