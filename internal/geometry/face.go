// Package geometry turns a player's view ray into a selection box.
//
// A drag starts on a block face. The face fixes one axis and a selection plane
// through the point where the drag began; every tick the view ray is
// intersected with that plane and the hit point, together with the anchor
// block, is resolved into an integer-aligned box.
package geometry

import (
	"fmt"
	"strings"

	"github.com/Faultbox/resizer/pkg/math"
)

// Face identifies which side of a cell was targeted.
type Face uint8

const (
	FaceDown Face = iota
	FaceUp
	FaceNorth
	FaceSouth
	FaceWest
	FaceEast
)

// Faces lists every face in declaration order.
var Faces = [...]Face{FaceDown, FaceUp, FaceNorth, FaceSouth, FaceWest, FaceEast}

var faceNames = [...]string{"Down", "Up", "North", "South", "West", "East"}

func (f Face) String() string {
	if int(f) < len(faceNames) {
		return faceNames[f]
	}
	return fmt.Sprintf("Face(%d)", uint8(f))
}

// ParseFace accepts the host's face names, case-insensitively.
func ParseFace(s string) (Face, error) {
	for i, name := range faceNames {
		if strings.EqualFold(s, name) {
			return Face(i), nil
		}
	}
	return 0, fmt.Errorf("unknown face %q", s)
}

// Orientation is the yaw/pitch (degrees) that carries a selection plane's
// local frame into world space.
type Orientation struct {
	Yaw   float64
	Pitch float64
}

// Rotation returns the orientation as a rotation with zero roll.
func (o Orientation) Rotation() math.Rotation {
	return math.RotationDeg(o.Yaw, o.Pitch, 0)
}

// Inverse returns the rotation taking world-relative vectors into the plane's
// local frame, where the plane normal is the local x axis.
func (o Orientation) Inverse() math.Rotation {
	return o.Rotation().Negate()
}

type facePreset struct {
	axis        math.Axis
	orientation Orientation
	normal      math.Vec3i
}

// presets is total over Faces.
var presets = [...]facePreset{
	FaceDown:  {math.AxisY, Orientation{Yaw: 90}, math.Vec3i{Y: -1}},
	FaceUp:    {math.AxisY, Orientation{Yaw: 90}, math.Vec3i{Y: 1}},
	FaceNorth: {math.AxisZ, Orientation{Pitch: 270}, math.Vec3i{Z: -1}},
	FaceSouth: {math.AxisZ, Orientation{Pitch: 270}, math.Vec3i{Z: 1}},
	FaceWest:  {math.AxisX, Orientation{}, math.Vec3i{X: -1}},
	FaceEast:  {math.AxisX, Orientation{}, math.Vec3i{X: 1}},
}

// Axis is the coordinate held fixed on this face's selection plane.
func (f Face) Axis() math.Axis { return presets[f].axis }

// Orientation is the plane orientation preset for this face.
func (f Face) Orientation() Orientation { return presets[f].orientation }

// Normal is the outward unit normal.
func (f Face) Normal() math.Vec3i { return presets[f].normal }

// FarSide reports whether the face lies on the maximum boundary of its cell
// (Up, South, East).
func (f Face) FarSide() bool {
	return f == FaceUp || f == FaceSouth || f == FaceEast
}

// FaceFor returns the face along axis on the minimum or maximum side of a cell.
func FaceFor(axis math.Axis, far bool) Face {
	switch axis {
	case math.AxisX:
		if far {
			return FaceEast
		}
		return FaceWest
	case math.AxisY:
		if far {
			return FaceUp
		}
		return FaceDown
	default:
		if far {
			return FaceSouth
		}
		return FaceNorth
	}
}

// Valid reports whether f is one of the six faces.
func (f Face) Valid() bool { return int(f) < len(presets) }
