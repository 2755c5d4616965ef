// Package math provides the vector types used by the resize tool geometry.
//
// All types are plain values: every operation returns a new value and never
// modifies its receiver or arguments.
package math

import (
	"fmt"
	"math"
)

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float64
}

// Splat returns a vector with s on every axis.
func Splat(s float64) Vec3 {
	return Vec3{s, s, s}
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Mul returns the component-wise product.
func (v Vec3) Mul(other Vec3) Vec3 {
	return Vec3{v.X * other.X, v.Y * other.Y, v.Z * other.Z}
}

// Div returns the component-wise quotient. Zero components in other are not guarded.
func (v Vec3) Div(other Vec3) Vec3 {
	return Vec3{v.X / other.X, v.Y / other.Y, v.Z / other.Z}
}

// Mod returns the component-wise floating point remainder (sign of v).
func (v Vec3) Mod(other Vec3) Vec3 {
	return Vec3{math.Mod(v.X, other.X), math.Mod(v.Y, other.Y), math.Mod(v.Z, other.Z)}
}

// AddScalar adds s to every component.
func (v Vec3) AddScalar(s float64) Vec3 {
	return v.Add(Splat(s))
}

// SubScalar subtracts s from every component.
func (v Vec3) SubScalar(s float64) Vec3 {
	return v.Sub(Splat(s))
}

// Scale returns v * scalar.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// DivScalar returns v / s.
func (v Vec3) DivScalar(s float64) Vec3 {
	return Vec3{v.X / s, v.Y / s, v.Z / s}
}

// ModScalar returns the remainder of every component divided by s.
func (v Vec3) ModScalar(s float64) Vec3 {
	return v.Mod(Splat(s))
}

// Dot returns the dot product.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// Length returns the magnitude.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize returns a unit vector.
// The zero vector has no direction; callers must check Length first if that matters.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.DivScalar(l)
}

// Distance returns the distance to another point.
func (v Vec3) Distance(other Vec3) float64 {
	return v.Sub(other).Length()
}

// Floor rounds every component down.
func (v Vec3) Floor() Vec3 {
	return v.Map(math.Floor)
}

// Ceil rounds every component up.
func (v Vec3) Ceil() Vec3 {
	return v.Map(math.Ceil)
}

// Round rounds every component half away from zero.
func (v Vec3) Round() Vec3 {
	return v.Map(math.Round)
}

// Trunc drops the fractional part of every component.
func (v Vec3) Trunc() Vec3 {
	return v.Map(math.Trunc)
}

// Abs returns the component-wise absolute value.
func (v Vec3) Abs() Vec3 {
	return v.Map(math.Abs)
}

// Map applies fn to every component.
func (v Vec3) Map(fn func(float64) float64) Vec3 {
	return Vec3{fn(v.X), fn(v.Y), fn(v.Z)}
}

// Min returns the component-wise minimum.
func (v Vec3) Min(other Vec3) Vec3 {
	return Vec3{math.Min(v.X, other.X), math.Min(v.Y, other.Y), math.Min(v.Z, other.Z)}
}

// Max returns the component-wise maximum.
func (v Vec3) Max(other Vec3) Vec3 {
	return Vec3{math.Max(v.X, other.X), math.Max(v.Y, other.Y), math.Max(v.Z, other.Z)}
}

// Equal reports exact equality. No epsilon is applied.
func (v Vec3) Equal(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vec3) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Component returns the coordinate on axis a.
func (v Vec3) Component(a Axis) float64 {
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
func (v Vec3) WithComponent(a Axis, c float64) Vec3 {
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

// Vec3i converts v to integer coordinates by truncation. Callers floor or ceil first.
func (v Vec3) Vec3i() Vec3i {
	return Vec3i{int(v.X), int(v.Y), int(v.Z)}
}

// String formats v as space separated values, the form shown to players.
func (v Vec3) String() string {
	return fmt.Sprintf("%g %g %g", v.X, v.Y, v.Z)
}
