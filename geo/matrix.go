// Package geo holds the spatial math the tessellation engine is built on:
// vectors, row-major 4x4 matrices, geographic sectors, view frustums and
// bounding volumes. All types are plain values with no hidden state; angles
// are degrees and are converted to radians internally.
package geo

import (
	"fmt"
	"math"
)

// Numerical guards. These values are load-bearing for compatibility and must
// not be tuned: inversion treats a determinant magnitude below
// nearZeroThreshold as singular, the LU factorization substitutes tinyPivot
// for an exactly zero pivot, and the Jacobi eigensystem iterates until the
// off-diagonal terms fall below jacobiEpsilon or jacobiMaxSweeps is reached.
const (
	nearZeroThreshold = 1.0e-8
	tinyPivot         = 1.0e-20
	jacobiEpsilon     = 1.0e-10
	jacobiMaxSweeps   = 32
)

// Matrix is a 4 x 4 matrix stored in row-major order.
//
// Mutating methods write into the receiver and return it so calls can be
// chained. Equality is exact floating-point comparison of all sixteen
// components (the zero tolerance is deliberate; callers requiring an epsilon
// must wrap it themselves).
type Matrix [16]float64

// identityValues is the shared immutable identity. Reset operations copy
// from it, they never hand out a reference to it.
var identityValues = Matrix{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// Identity returns a new identity matrix.
func Identity() Matrix {
	return identityValues
}

// Set sets all sixteen components in row-major order.
func (m *Matrix) Set(
	m11, m12, m13, m14,
	m21, m22, m23, m24,
	m31, m32, m33, m34,
	m41, m42, m43, m44 float64) *Matrix {
	m[0], m[1], m[2], m[3] = m11, m12, m13, m14
	m[4], m[5], m[6], m[7] = m21, m22, m23, m24
	m[8], m[9], m[10], m[11] = m31, m32, m33, m34
	m[12], m[13], m[14], m[15] = m41, m42, m43, m44
	return m
}

// SetToIdentity copies the identity values into m.
func (m *Matrix) SetToIdentity() *Matrix {
	*m = identityValues
	return m
}

// SetTranslation sets only the translation column, leaving the rest of m
// unmodified.
func (m *Matrix) SetTranslation(x, y, z float64) *Matrix {
	m[3] = x
	m[7] = y
	m[11] = z
	return m
}

// SetRotation sets the upper 3x3 to a rotation about the axis (x, y, z) by
// angleDegrees, leaving all other components unmodified. Positive angles are
// counter-clockwise about the axis.
func (m *Matrix) SetRotation(x, y, z, angleDegrees float64) *Matrix {
	rad := angleDegrees * math.Pi / 180
	c := math.Cos(rad)
	s := math.Sin(rad)

	m[0] = c + (1-c)*x*x
	m[1] = (1-c)*x*y - s*z
	m[2] = (1-c)*x*z + s*y

	m[4] = (1-c)*x*y + s*z
	m[5] = c + (1-c)*y*y
	m[6] = (1-c)*y*z - s*x

	m[8] = (1-c)*x*z - s*y
	m[9] = (1-c)*y*z + s*x
	m[10] = c + (1-c)*z*z

	return m
}

// SetScale sets only the diagonal scale components, leaving the rest of m
// unmodified.
func (m *Matrix) SetScale(xScale, yScale, zScale float64) *Matrix {
	m[0] = xScale
	m[5] = yScale
	m[10] = zScale
	return m
}

// SetToTranslation sets m to a pure translation matrix.
func (m *Matrix) SetToTranslation(x, y, z float64) *Matrix {
	m.SetToIdentity()
	return m.SetTranslation(x, y, z)
}

// SetToRotation sets m to a pure rotation about the axis (x, y, z) by
// angleDegrees.
func (m *Matrix) SetToRotation(x, y, z, angleDegrees float64) *Matrix {
	m.SetToIdentity()
	return m.SetRotation(x, y, z, angleDegrees)
}

// SetToScale sets m to a pure scale matrix.
func (m *Matrix) SetToScale(xScale, yScale, zScale float64) *Matrix {
	m.SetToIdentity()
	return m.SetScale(xScale, yScale, zScale)
}

// SetToMultiply sets m to the product a x b. Either operand may alias the
// receiver.
func (m *Matrix) SetToMultiply(a, b *Matrix) *Matrix {
	ma := *a
	mb := *b

	m[0] = ma[0]*mb[0] + ma[1]*mb[4] + ma[2]*mb[8] + ma[3]*mb[12]
	m[1] = ma[0]*mb[1] + ma[1]*mb[5] + ma[2]*mb[9] + ma[3]*mb[13]
	m[2] = ma[0]*mb[2] + ma[1]*mb[6] + ma[2]*mb[10] + ma[3]*mb[14]
	m[3] = ma[0]*mb[3] + ma[1]*mb[7] + ma[2]*mb[11] + ma[3]*mb[15]

	m[4] = ma[4]*mb[0] + ma[5]*mb[4] + ma[6]*mb[8] + ma[7]*mb[12]
	m[5] = ma[4]*mb[1] + ma[5]*mb[5] + ma[6]*mb[9] + ma[7]*mb[13]
	m[6] = ma[4]*mb[2] + ma[5]*mb[6] + ma[6]*mb[10] + ma[7]*mb[14]
	m[7] = ma[4]*mb[3] + ma[5]*mb[7] + ma[6]*mb[11] + ma[7]*mb[15]

	m[8] = ma[8]*mb[0] + ma[9]*mb[4] + ma[10]*mb[8] + ma[11]*mb[12]
	m[9] = ma[8]*mb[1] + ma[9]*mb[5] + ma[10]*mb[9] + ma[11]*mb[13]
	m[10] = ma[8]*mb[2] + ma[9]*mb[6] + ma[10]*mb[10] + ma[11]*mb[14]
	m[11] = ma[8]*mb[3] + ma[9]*mb[7] + ma[10]*mb[11] + ma[11]*mb[15]

	m[12] = ma[12]*mb[0] + ma[13]*mb[4] + ma[14]*mb[8] + ma[15]*mb[12]
	m[13] = ma[12]*mb[1] + ma[13]*mb[5] + ma[14]*mb[9] + ma[15]*mb[13]
	m[14] = ma[12]*mb[2] + ma[13]*mb[6] + ma[14]*mb[10] + ma[15]*mb[14]
	m[15] = ma[12]*mb[3] + ma[13]*mb[7] + ma[14]*mb[11] + ma[15]*mb[15]

	return m
}

// Multiply sets m to the product m x b in place. b may alias the receiver.
func (m *Matrix) Multiply(b *Matrix) *Matrix {
	return m.SetToMultiply(m, b)
}

// MultiplyByTranslation multiplies m by a translation matrix built from the
// specified components.
func (m *Matrix) MultiplyByTranslation(x, y, z float64) *Matrix {
	t := Matrix{}
	t.SetToTranslation(x, y, z)
	return m.Multiply(&t)
}

// MultiplyByRotation multiplies m by a rotation matrix about the axis
// (x, y, z) by angleDegrees.
func (m *Matrix) MultiplyByRotation(x, y, z, angleDegrees float64) *Matrix {
	r := Matrix{}
	r.SetToRotation(x, y, z, angleDegrees)
	return m.Multiply(&r)
}

// MultiplyByScale multiplies m by a scale matrix with the specified values.
func (m *Matrix) MultiplyByScale(xScale, yScale, zScale float64) *Matrix {
	s := Matrix{}
	s.SetToScale(xScale, yScale, zScale)
	return m.Multiply(&s)
}

// Transpose transposes m in place.
func (m *Matrix) Transpose() *Matrix {
	m[1], m[4] = m[4], m[1]
	m[2], m[8] = m[8], m[2]
	m[3], m[12] = m[12], m[3]
	m[6], m[9] = m[9], m[6]
	m[7], m[13] = m[13], m[7]
	m[11], m[14] = m[14], m[11]
	return m
}

// TransposeMatrix sets m to the transpose of src. src may alias the receiver.
func (m *Matrix) TransposeMatrix(src *Matrix) *Matrix {
	*m = *src
	return m.Transpose()
}

// MultiplyPoint transforms p as a position (w = 1) and performs the
// perspective divide.
func (m *Matrix) MultiplyPoint(p Vec3) Vec3 {
	x := m[0]*p.X + m[1]*p.Y + m[2]*p.Z + m[3]
	y := m[4]*p.X + m[5]*p.Y + m[6]*p.Z + m[7]
	z := m[8]*p.X + m[9]*p.Y + m[10]*p.Z + m[11]
	w := m[12]*p.X + m[13]*p.Y + m[14]*p.Z + m[15]
	if w != 0 && w != 1 {
		return Vec3{x / w, y / w, z / w}
	}
	return Vec3{x, y, z}
}

// Invert inverts m in place using LU decomposition with partial pivoting.
// Returns ErrSingularMatrix when the magnitude of the computed determinant is
// below the near-zero threshold; m is left unmodified in that case.
func (m *Matrix) Invert() error {
	return m.InvertMatrix(m)
}

// InvertMatrix sets m to the inverse of src. src may alias the receiver.
// Returns ErrSingularMatrix when src is not invertible; m is left unmodified
// in that case.
func (m *Matrix) InvertMatrix(src *Matrix) error {
	var a [4][4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			a[i][j] = src[i*4+j]
		}
	}

	var index [4]int
	d := ludcmp(&a, &index)

	// The determinant is the product of the permutation sign and the
	// diagonal of the factored matrix.
	for i := 0; i < 4; i++ {
		d *= a[i][i]
	}
	if math.Abs(d) < nearZeroThreshold {
		return fmt.Errorf("determinant %v below %v: %w", d, nearZeroThreshold, ErrSingularMatrix)
	}

	var inv [4][4]float64
	var col [4]float64
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			col[i] = 0
		}
		col[j] = 1
		lubksb(&a, &index, &col)
		for i := 0; i < 4; i++ {
			inv[i][j] = col[i]
		}
	}

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			m[i*4+j] = inv[i][j]
		}
	}
	return nil
}

// InvertOrthonormal inverts m in place assuming it is an orthonormal
// transform (rotation and translation only). The upper 3x3 is transposed and
// the translation is transformed by the transposed 3x3 and negated, making
// this O(1) versus the general inversion's factorization.
//
// The result is undefined if m is not actually orthonormal; that precondition
// is the caller's responsibility and is not checked.
func (m *Matrix) InvertOrthonormal() *Matrix {
	m[1], m[4] = m[4], m[1]
	m[2], m[8] = m[8], m[2]
	m[6], m[9] = m[9], m[6]

	x, y, z := m[3], m[7], m[11]
	m[3] = -(m[0]*x + m[1]*y + m[2]*z)
	m[7] = -(m[4]*x + m[5]*y + m[6]*z)
	m[11] = -(m[8]*x + m[9]*y + m[10]*z)

	m[12] = 0
	m[13] = 0
	m[14] = 0
	m[15] = 1

	return m
}

// InvertOrthonormalMatrix sets m to the inverse of the orthonormal transform
// src. src may alias the receiver. The result is undefined if src is not
// orthonormal (documented precondition, not checked).
func (m *Matrix) InvertOrthonormalMatrix(src *Matrix) *Matrix {
	*m = *src
	return m.InvertOrthonormal()
}

// SetToPerspectiveProjection sets m to a perspective frustum matrix for the
// specified viewport dimensions, vertical field of view in degrees and clip
// distances. Returns ErrInvalidArgument if width or height is not positive,
// fovY is outside (0, 180), either clip distance is not positive, or the clip
// distances are equal.
func (m *Matrix) SetToPerspectiveProjection(viewportWidth, viewportHeight, fovYDegrees, nearDistance, farDistance float64) error {
	if viewportWidth <= 0 || viewportHeight <= 0 {
		return fmt.Errorf("viewport %vx%v not positive: %w", viewportWidth, viewportHeight, ErrInvalidArgument)
	}
	if fovYDegrees <= 0 || fovYDegrees >= 180 {
		return fmt.Errorf("field of view %v outside (0, 180): %w", fovYDegrees, ErrInvalidArgument)
	}
	if nearDistance <= 0 || farDistance <= 0 {
		return fmt.Errorf("clip distances %v, %v not positive: %w", nearDistance, farDistance, ErrInvalidArgument)
	}
	if nearDistance == farDistance {
		return fmt.Errorf("equal clip distances %v: %w", nearDistance, ErrInvalidArgument)
	}

	// Dimensions of the near rectangle implied by the viewport and field of
	// view. Mathematics for 3D Game Programming and Computer Graphics,
	// Second Edition, equation 4.52.
	aspect := viewportWidth / viewportHeight
	tanFovY := math.Tan(fovYDegrees * 0.5 * math.Pi / 180)
	height := nearDistance * tanFovY
	width := height * aspect
	near, far := nearDistance, farDistance

	m[0] = (2 * near) / width
	m[1] = 0
	m[2] = 0
	m[3] = 0

	m[4] = 0
	m[5] = (2 * near) / height
	m[6] = 0
	m[7] = 0

	m[8] = 0
	m[9] = 0
	m[10] = -(far + near) / (far - near)
	m[11] = -(2 * near * far) / (far - near)

	m[12] = 0
	m[13] = 0
	m[14] = -1
	m[15] = 0

	return nil
}

// SetToScreenProjection sets m to an orthographic projection that interprets
// model coordinates as literal screen XY plus a depth in [0, 1]. The depth
// value passes through to window coordinates unmodified: the third row maps
// z in [0, 1] to [-1, 1], which the viewport transform maps back to [0, 1].
// Returns ErrInvalidArgument if width or height is not positive.
func (m *Matrix) SetToScreenProjection(viewportWidth, viewportHeight float64) error {
	if viewportWidth <= 0 || viewportHeight <= 0 {
		return fmt.Errorf("viewport %vx%v not positive: %w", viewportWidth, viewportHeight, ErrInvalidArgument)
	}

	m[0] = 2 / viewportWidth
	m[1] = 0
	m[2] = 0
	m[3] = -1

	m[4] = 0
	m[5] = 2 / viewportHeight
	m[6] = 0
	m[7] = -1

	m[8] = 0
	m[9] = 0
	m[10] = 2
	m[11] = -1

	m[12] = 0
	m[13] = 0
	m[14] = 0
	m[15] = 1

	return nil
}

// OffsetProjectionDepth applies a depth offset to this projection matrix.
// Negative offsets bring depth values closer to the eye. The result is
// undefined if m is not a projection matrix.
func (m *Matrix) OffsetProjectionDepth(depthOffset float64) *Matrix {
	m[10] *= 1 + depthOffset
	return m
}

// ExtractEyePoint returns the eye point of a viewing matrix: the origin
// transformed by the matrix's inverse. The result is undefined if m is not a
// viewing matrix.
func (m *Matrix) ExtractEyePoint() Vec3 {
	// Equivalent to transforming the negated translation column by the
	// transpose of the upper 3x3.
	return Vec3{
		X: -(m[0]*m[3] + m[4]*m[7] + m[8]*m[11]),
		Y: -(m[1]*m[3] + m[5]*m[7] + m[9]*m[11]),
		Z: -(m[2]*m[3] + m[6]*m[7] + m[10]*m[11]),
	}
}

// ExtractForwardVector returns the forward (negative Z) direction of a
// viewing matrix. The result is undefined if m is not a viewing matrix.
func (m *Matrix) ExtractForwardVector() Vec3 {
	return Vec3{X: -m[8], Y: -m[9], Z: -m[10]}
}

// SetToCovarianceOfPoints sets m to the symmetric covariance matrix of a
// packed point list about its arithmetic mean. The upper-left 3x3 holds
// C(i, j) for each pair of x, y and z coordinates; the remaining components
// are zero. stride is the number of coordinates between the first coordinate
// of adjacent points and must be at least 3; at least one full stride of data
// must be supplied.
func (m *Matrix) SetToCovarianceOfPoints(points []float64, stride int) error {
	mean, err := AverageOfPoints(points, stride)
	if err != nil {
		return err
	}

	var c11, c22, c33, c12, c13, c23 float64
	count := len(points) / stride
	for i := 0; i < count; i++ {
		dx := points[i*stride] - mean.X
		dy := points[i*stride+1] - mean.Y
		dz := points[i*stride+2] - mean.Z

		c11 += dx * dx
		c22 += dy * dy
		c33 += dz * dz
		c12 += dx * dy // c12 = c21
		c13 += dx * dz // c13 = c31
		c23 += dy * dz // c23 = c32
	}

	n := float64(count)
	m.Set(
		c11/n, c12/n, c13/n, 0,
		c12/n, c22/n, c23/n, 0,
		c13/n, c23/n, c33/n, 0,
		0, 0, 0, 0)
	return nil
}

// EigensystemFromSymmetricMatrix computes the eigenvectors of m's upper-left
// 3x3, which must be symmetric. The result slice must have room for three
// vectors; they are written sorted by descending eigenvalue magnitude, each
// scaled to length equal to its eigenvalue.
//
// The computation is a cyclic Jacobi rotation that stops once the three
// off-diagonal terms fall below 1e-10 or after 32 sweeps; the sweep limit is
// a best-effort convergence bound, not a failure.
func (m *Matrix) EigensystemFromSymmetricMatrix(result []Vec3) error {
	if len(result) < 3 {
		return fmt.Errorf("result has %d slots, need 3: %w", len(result), ErrInvalidArgument)
	}
	if m[1] != m[4] || m[2] != m[8] || m[6] != m[9] {
		return fmt.Errorf("off-diagonal pairs differ: %w", ErrNotSymmetric)
	}

	// Mathematics for 3D Game Programming and Computer Graphics, Second
	// Edition, listing 14.6. Symmetry lets us track just the upper triangle.
	m11 := m[0]
	m12 := m[1]
	m13 := m[2]
	m22 := m[5]
	m23 := m[6]
	m33 := m[10]

	var r [3][3]float64
	r[0][0], r[1][1], r[2][2] = 1, 1, 1

	for sweep := 0; sweep < jacobiMaxSweeps; sweep++ {
		if math.Abs(m12) < jacobiEpsilon && math.Abs(m13) < jacobiEpsilon && math.Abs(m23) < jacobiEpsilon {
			break
		}

		// Annihilate the (1,2) entry.
		if m12 != 0 {
			u := (m22 - m11) * 0.5 / m12
			u2 := u * u
			u2p1 := u2 + 1
			t := 0.5 / u
			if u2p1 != u2 {
				sign := 1.0
				if u < 0 {
					sign = -1
				}
				t = sign * (math.Sqrt(u2p1) - math.Abs(u))
			}
			c := 1 / math.Sqrt(t*t+1)
			s := c * t

			m11 -= t * m12
			m22 += t * m12
			m12 = 0

			tmp := c*m13 - s*m23
			m23 = s*m13 + c*m23
			m13 = tmp

			for i := 0; i < 3; i++ {
				tmp = c*r[i][0] - s*r[i][1]
				r[i][1] = s*r[i][0] + c*r[i][1]
				r[i][0] = tmp
			}
		}

		// Annihilate the (1,3) entry.
		if m13 != 0 {
			u := (m33 - m11) * 0.5 / m13
			u2 := u * u
			u2p1 := u2 + 1
			t := 0.5 / u
			if u2p1 != u2 {
				sign := 1.0
				if u < 0 {
					sign = -1
				}
				t = sign * (math.Sqrt(u2p1) - math.Abs(u))
			}
			c := 1 / math.Sqrt(t*t+1)
			s := c * t

			m11 -= t * m13
			m33 += t * m13
			m13 = 0

			tmp := c*m12 - s*m23
			m23 = s*m12 + c*m23
			m12 = tmp

			for i := 0; i < 3; i++ {
				tmp = c*r[i][0] - s*r[i][2]
				r[i][2] = s*r[i][0] + c*r[i][2]
				r[i][0] = tmp
			}
		}

		// Annihilate the (2,3) entry.
		if m23 != 0 {
			u := (m33 - m22) * 0.5 / m23
			u2 := u * u
			u2p1 := u2 + 1
			t := 0.5 / u
			if u2p1 != u2 {
				sign := 1.0
				if u < 0 {
					sign = -1
				}
				t = sign * (math.Sqrt(u2p1) - math.Abs(u))
			}
			c := 1 / math.Sqrt(t*t+1)
			s := c * t

			m22 -= t * m23
			m33 += t * m23
			m23 = 0

			tmp := c*m12 - s*m13
			m13 = s*m12 + c*m13
			m12 = tmp

			for i := 0; i < 3; i++ {
				tmp = c*r[i][1] - s*r[i][2]
				r[i][2] = s*r[i][1] + c*r[i][2]
				r[i][1] = tmp
			}
		}
	}

	// Sort by descending eigenvalue.
	i1, i2, i3 := 0, 1, 2
	if m11 < m22 {
		m11, m22 = m22, m11
		i1, i2 = i2, i1
	}
	if m22 < m33 {
		m22, m33 = m33, m22
		i2, i3 = i3, i2
	}
	if m11 < m22 {
		m11, m22 = m22, m11
		i1, i2 = i2, i1
	}

	result[0] = Vec3{r[0][i1], r[1][i1], r[2][i1]}.Normalize().Scale(m11)
	result[1] = Vec3{r[0][i2], r[1][i2], r[2][i2]}.Normalize().Scale(m22)
	result[2] = Vec3{r[0][i3], r[1][i3], r[2][i3]}.Normalize().Scale(m33)

	return nil
}

// ludcmp performs an LU factorization with partial pivoting, recording row
// permutations in index and returning the permutation sign (zero when a row
// is entirely zero). Algorithm derived from Numerical Recipes in C, Press et
// al., 1988.
func ludcmp(a *[4][4]float64, index *[4]int) float64 {
	var vv [4]float64
	d := 1.0

	for i := 0; i < 4; i++ {
		big := 0.0
		for j := 0; j < 4; j++ {
			if tmp := math.Abs(a[i][j]); tmp > big {
				big = tmp
			}
		}
		if big == 0 {
			return 0
		}
		vv[i] = 1 / big
	}

	for j := 0; j < 4; j++ {
		for i := 0; i < j; i++ {
			sum := a[i][j]
			for k := 0; k < i; k++ {
				sum -= a[i][k] * a[k][j]
			}
			a[i][j] = sum
		}

		big := 0.0
		imax := -1
		for i := j; i < 4; i++ {
			sum := a[i][j]
			for k := 0; k < j; k++ {
				sum -= a[i][k] * a[k][j]
			}
			a[i][j] = sum

			if dum := vv[i] * math.Abs(sum); dum >= big {
				big = dum
				imax = i
			}
		}

		if j != imax {
			a[imax], a[j] = a[j], a[imax]
			d = -d
			vv[imax] = vv[j]
		}

		index[j] = imax
		if a[j][j] == 0 {
			a[j][j] = tinyPivot
		}

		if j != 3 {
			dum := 1 / a[j][j]
			for i := j + 1; i < 4; i++ {
				a[i][j] *= dum
			}
		}
	}

	return d
}

// lubksb solves Ax = b for an LU-factored A with permutation vector index,
// writing the solution into b. Algorithm derived from Numerical Recipes in C,
// Press et al., 1988.
func lubksb(a *[4][4]float64, index *[4]int, b *[4]float64) {
	ii := -1

	for i := 0; i < 4; i++ {
		ip := index[i]
		sum := b[ip]
		b[ip] = b[i]

		if ii != -1 {
			for j := ii; j <= i-1; j++ {
				sum -= a[i][j] * b[j]
			}
		} else if sum != 0 {
			ii = i
		}

		b[i] = sum
	}

	for i := 3; i >= 0; i-- {
		sum := b[i]
		for j := i + 1; j < 4; j++ {
			sum -= a[i][j] * b[j]
		}
		b[i] = sum / a[i][i]
	}
}
