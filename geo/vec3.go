package geo

import (
	"fmt"
	"math"
)

// Vec3 is a three-component vector in Cartesian model coordinates.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Subtract(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns the unit vector in v's direction.
// The zero vector is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

func (v Vec3) DistanceTo(o Vec3) float64 {
	return v.Subtract(o).Length()
}

// AverageOfPoints computes the arithmetic mean of a packed point list.
// The points are laid out as consecutive coordinate tuples; stride is the
// number of coordinates between the first coordinate of adjacent points and
// must be at least 3. Coordinates beyond the first three of each tuple are
// ignored.
func AverageOfPoints(points []float64, stride int) (Vec3, error) {
	if stride < 3 {
		return Vec3{}, fmt.Errorf("stride %d is less than 3: %w", stride, ErrInvalidArgument)
	}
	if len(points) < stride {
		return Vec3{}, fmt.Errorf("fewer than one point supplied: %w", ErrInvalidArgument)
	}

	var sum Vec3
	count := len(points) / stride
	for i := 0; i < count; i++ {
		sum.X += points[i*stride]
		sum.Y += points[i*stride+1]
		sum.Z += points[i*stride+2]
	}
	return sum.Scale(1 / float64(count)), nil
}
