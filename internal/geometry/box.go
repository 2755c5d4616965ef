package geometry

import (
	gomath "math"

	"github.com/Faultbox/resizer/pkg/math"
)

const (
	// AnchorFaceOffset is subtracted on the active axis from the anchor cell
	// center, putting the reference corner on the cell boundary.
	AnchorFaceOffset = 0.5

	// snapEpsilon is the distance to an integer under which a coordinate is
	// treated as lying on that integer before flooring or ceiling.
	snapEpsilon = 1e-6

	// maxCoordinate bounds box coordinates so they stay representable as int.
	maxCoordinate = 1 << 30
)

// Box is an integer-aligned box covering the half-open range [Min, Max) on
// every axis.
type Box struct {
	Min math.Vec3i
	Max math.Vec3i
}

// Size returns the edge lengths.
func (b Box) Size() math.Vec3i {
	return b.Max.Sub(b.Min)
}

// Volume returns the number of cells in the box, saturating at
// gomath.MaxInt64 when the product does not fit.
func (b Box) Volume() int64 {
	s := b.Size()
	if s.X <= 0 || s.Y <= 0 || s.Z <= 0 {
		return 0
	}
	v := int64(1)
	for _, side := range [...]int64{int64(s.X), int64(s.Y), int64(s.Z)} {
		if v > gomath.MaxInt64/side {
			return gomath.MaxInt64
		}
		v *= side
	}
	return v
}

// Contains reports whether cell p lies inside the box.
func (b Box) Contains(p math.Vec3i) bool {
	return p.X >= b.Min.X && p.X < b.Max.X &&
		p.Y >= b.Min.Y && p.Y < b.Max.Y &&
		p.Z >= b.Min.Z && p.Z < b.Max.Z
}

// Cells calls fn for every cell in x, y, z loop order until fn returns false.
func (b Box) Cells(fn func(p math.Vec3i) bool) {
	for x := b.Min.X; x < b.Max.X; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for z := b.Min.Z; z < b.Max.Z; z++ {
				if !fn(math.Vec3i{X: x, Y: y, Z: z}) {
					return
				}
			}
		}
	}
}

// ReferenceCorner returns the anchor cell's corner the box is spanned from:
// the cell center, moved back by AnchorFaceOffset on the active axis.
func ReferenceCorner(anchor math.Vec3i, axis math.Axis) math.Vec3 {
	c := anchor.Vec3().AddScalar(0.5)
	return c.WithComponent(axis, c.Component(axis)-AnchorFaceOffset)
}

// Resolve turns the anchor cell and the world-space pointer into a box.
func Resolve(anchor math.Vec3i, pointer math.Vec3, axis math.Axis) (Box, error) {
	return Span(ReferenceCorner(anchor, axis), pointer, axis)
}

// Span builds the box between two points. The result does not depend on the
// order of a and b. The maximum is extended by one cell on axis so the box is
// never empty along the drag axis.
func Span(a, b math.Vec3, axis math.Axis) (Box, error) {
	if !a.IsFinite() || !b.IsFinite() {
		return Box{}, ErrNonFinite
	}
	lo := a.Min(b)
	hi := a.Max(b)
	hi = hi.WithComponent(axis, hi.Component(axis)+1)

	lo = lo.Map(snap).Floor()
	hi = hi.Map(snap).Ceil()
	for _, v := range [...]math.Vec3{lo, hi} {
		if gomath.Abs(v.X) > maxCoordinate || gomath.Abs(v.Y) > maxCoordinate || gomath.Abs(v.Z) > maxCoordinate {
			return Box{}, ErrCoordinateRange
		}
	}
	return Box{Min: lo.Vec3i(), Max: hi.Vec3i()}, nil
}

func snap(c float64) float64 {
	if r := gomath.Round(c); gomath.Abs(c-r) < snapEpsilon {
		return r
	}
	return c
}
