package geometry

import "github.com/Faultbox/resizer/pkg/math"

// Band is the closed range of face-local coordinates considered the middle of
// a face.
type Band struct {
	Min, Max float64
}

// DefaultBand excludes the center 0.3–0.7 of a face.
var DefaultBand = Band{Min: 0.3, Max: 0.7}

// Outside reports whether c lies strictly outside the band.
func (b Band) Outside(c float64) bool {
	return c < b.Min || c > b.Max
}

// QualifyingCorner reports whether a face-local hit point lies near an edge or
// corner of the face: at least one of the two in-plane coordinates must be
// outside the band. The held coordinate is ignored.
func (b Band) QualifyingCorner(face Face, local math.Vec3) bool {
	held := face.Axis()
	for _, a := range [...]math.Axis{math.AxisX, math.AxisY, math.AxisZ} {
		if a == held {
			continue
		}
		if b.Outside(local.Component(a)) {
			return true
		}
	}
	return false
}
