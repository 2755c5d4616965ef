package geometry

import (
	"errors"
	gomath "math"

	"github.com/Faultbox/resizer/pkg/math"
)

var (
	// ErrDegenerate is matched by every geometry failure below.
	ErrDegenerate = errors.New("geometry: degenerate selection")

	ErrZeroDirection   = degenerate("zero-length view direction")
	ErrRayParallel     = degenerate("view ray parallel to selection plane")
	ErrNonFinite       = degenerate("non-finite intersection")
	ErrCoordinateRange = degenerate("coordinate outside representable range")
)

type degenerateError string

func degenerate(msg string) error { return degenerateError(msg) }

func (e degenerateError) Error() string        { return "geometry: " + string(e) }
func (e degenerateError) Is(target error) bool { return target == ErrDegenerate }

const (
	// headModelSize is the head model edge in model pixels (32 per block).
	headModelSize = 8
	// eyeCalibration moves the head anchor down to where the eyes render.
	eyeCalibration = 0.022

	// parallelEpsilon bounds the normal component of a unit direction below
	// which the ray is treated as parallel to the plane.
	parallelEpsilon = 1e-9
)

// EyeOffset is added to the head anchor to get the eye position.
var EyeOffset = math.Vec3{Y: float64(headModelSize)/32/2 - eyeCalibration}

// EyeLocation returns the eye position for a head anchor location.
func EyeLocation(head math.Vec3) math.Vec3 {
	return head.Add(EyeOffset)
}

// Ray represents a ray in 3D space with origin and direction.
// Direction does not need to be normalized.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3
}

// Plane is a selection plane: it passes through Origin and is perpendicular
// to Face's axis.
type Plane struct {
	Origin math.Vec3
	Face   Face
}

// Axis is the coordinate held fixed on the plane.
func (p Plane) Axis() math.Axis { return p.Face.Axis() }

// Local intersects r with the plane and returns the hit point in the plane's
// 2D local frame (relative to Origin).
//
// Both the ray origin and direction are moved into a frame relative to Origin
// and rotated by the inverse of the face orientation. In that frame the plane
// is local x = 0 and the hit is solved for the remaining (y, z) coordinates.
func (p Plane) Local(r Ray) (math.Vec2, error) {
	inv := p.Face.Orientation().Inverse()

	eye := r.Origin.Sub(p.Origin).Rotate(inv)
	dir := r.Direction.Rotate(inv)
	if l := dir.Length(); l == 0 || gomath.IsNaN(l) {
		return math.Vec2{}, ErrZeroDirection
	}
	dir = dir.Normalize()
	if gomath.Abs(dir.X) < parallelEpsilon {
		return math.Vec2{}, ErrRayParallel
	}

	t := -eye.X / dir.X
	hit := math.Vec2{X: eye.Y + t*dir.Y, Y: eye.Z + t*dir.Z}
	if !hit.IsFinite() {
		return math.Vec2{}, ErrNonFinite
	}
	return hit, nil
}

// Embed maps a local 2D hit back into a 3D offset from Origin with the held
// axis set to 0.
func (p Plane) Embed(hit math.Vec2) math.Vec3 {
	switch p.Axis() {
	case math.AxisX:
		return math.Vec3{X: 0, Y: hit.X, Z: hit.Y}
	case math.AxisY:
		return math.Vec3{X: hit.X, Y: 0, Z: hit.Y}
	default:
		return math.Vec3{X: hit.Y, Y: hit.X, Z: 0}
	}
}

// Intersect returns the world-space point where r crosses the plane.
func (p Plane) Intersect(r Ray) (math.Vec3, error) {
	hit, err := p.Local(r)
	if err != nil {
		return math.Vec3{}, err
	}
	return p.Origin.Add(p.Embed(hit)), nil
}

// EditOrigin returns the drag origin for a face hit: the cell position plus
// the face-local hit point. A far-side face reported with a local coordinate
// of 0 on its axis is moved to 1 so the origin always lies on the face plane.
func EditOrigin(cell math.Vec3i, face Face, local math.Vec3) math.Vec3 {
	axis := face.Axis()
	if face.FarSide() && local.Component(axis) == 0 {
		local = local.WithComponent(axis, 1)
	}
	return cell.Vec3().Add(local)
}
