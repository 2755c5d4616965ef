package math

import "fmt"

// Vec3i is an integer block position.
type Vec3i struct {
	X, Y, Z int
}

// Add returns v + other.
func (v Vec3i) Add(other Vec3i) Vec3i {
	return Vec3i{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3i) Sub(other Vec3i) Vec3i {
	return Vec3i{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Vec3 converts to floating point coordinates (the cell's minimum corner).
func (v Vec3i) Vec3() Vec3 {
	return Vec3{float64(v.X), float64(v.Y), float64(v.Z)}
}

// Component returns the coordinate on axis a.
func (v Vec3i) Component(a Axis) int {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// WithComponent returns a copy of v with the coordinate on axis a replaced.
func (v Vec3i) WithComponent(a Axis, c int) Vec3i {
	switch a {
	case AxisX:
		v.X = c
	case AxisY:
		v.Y = c
	default:
		v.Z = c
	}
	return v
}

func (v Vec3i) String() string {
	return fmt.Sprintf("%d %d %d", v.X, v.Y, v.Z)
}
