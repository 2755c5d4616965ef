package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rotation is an intrinsic yaw -> pitch -> roll rotation in radians.
//
// Yaw turns about the vertical axis as seen in the XZ projection used by the
// selection planes, pitch about the lateral axis.
type Rotation struct {
	Yaw, Pitch, Roll float64
}

// RotationDeg builds a Rotation from angles in degrees.
func RotationDeg(yaw, pitch, roll float64) Rotation {
	return Rotation{
		Yaw:   mgl64.DegToRad(yaw),
		Pitch: mgl64.DegToRad(pitch),
		Roll:  mgl64.DegToRad(roll),
	}
}

// Negate returns the rotation with every angle negated.
// For single-angle rotations (all face presets) this is the exact inverse.
func (r Rotation) Negate() Rotation {
	return Rotation{Yaw: -r.Yaw, Pitch: -r.Pitch, Roll: -r.Roll}
}

// Matrix returns the rotation matrix:
//
//	x' = x(cy·cp) + y(sy·cp) − z·sp
//	y' = x(cy·sp·sr − sy·cr) + y(sy·sp·sr + cy·cr) + z(cp·sr)
//	z' = x(cy·sp·cr + sy·sr) + y(sy·sp·cr − cy·sr) + z(cp·cr)
func (r Rotation) Matrix() mgl64.Mat3 {
	sy, cy := math.Sincos(r.Yaw)
	sp, cp := math.Sincos(r.Pitch)
	sr, cr := math.Sincos(r.Roll)

	return mgl64.Mat3FromRows(
		mgl64.Vec3{cy * cp, sy * cp, -sp},
		mgl64.Vec3{cy*sp*sr - sy*cr, sy*sp*sr + cy*cr, cp * sr},
		mgl64.Vec3{cy*sp*cr + sy*sr, sy*sp*cr - cy*sr, cp * cr},
	)
}

// Rotate applies r to v.
func (v Vec3) Rotate(r Rotation) Vec3 {
	out := r.Matrix().Mul3x1(mgl64.Vec3{v.X, v.Y, v.Z})
	return Vec3{out[0], out[1], out[2]}
}
