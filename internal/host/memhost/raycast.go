package memhost

import (
	gomath "math"

	"github.com/Faultbox/resizer/internal/geometry"
	"github.com/Faultbox/resizer/internal/host"
	"github.com/Faultbox/resizer/pkg/math"
)

var axes = [3]math.Axis{math.AxisX, math.AxisY, math.AxisZ}

// raycast walks the grid cell by cell from origin along dir and returns the
// first solid cell within reach. The cell containing origin is skipped.
// Caller must hold w.mu.
func (w *World) raycast(dim host.Dimension, origin, dir math.Vec3) (host.BlockHit, bool) {
	if !origin.IsFinite() || !dir.IsFinite() || dir.Length() == 0 {
		return host.BlockHit{}, false
	}
	d := dir.Normalize()
	cell := origin.Floor().Vec3i()

	var step [3]int
	var tMax, tDelta [3]float64
	for i, a := range axes {
		c := d.Component(a)
		o := origin.Component(a)
		base := float64(cell.Component(a))
		switch {
		case c > 0:
			step[i] = 1
			tMax[i] = (base + 1 - o) / c
			tDelta[i] = 1 / c
		case c < 0:
			step[i] = -1
			tMax[i] = (o - base) / -c
			tDelta[i] = -1 / c
		default:
			tMax[i] = gomath.Inf(1)
			tDelta[i] = gomath.Inf(1)
		}
	}

	for {
		i := 0
		if tMax[1] < tMax[i] {
			i = 1
		}
		if tMax[2] < tMax[i] {
			i = 2
		}
		t := tMax[i]
		if t > w.opts.Reach {
			return host.BlockHit{}, false
		}
		a := axes[i]
		cell = cell.WithComponent(a, cell.Component(a)+step[i])
		tMax[i] += tDelta[i]

		if _, solid := w.blocks[cellKey{dim, cell}]; !solid {
			continue
		}

		// Moving in +axis enters through the cell's minimum face.
		far := step[i] < 0
		local := origin.Add(d.Scale(t)).Sub(cell.Vec3()).Map(clamp01)
		held := 0.0
		if far {
			held = 1
		}
		return host.BlockHit{
			Block:        cell,
			Face:         geometry.FaceFor(a, far),
			FaceLocation: local.WithComponent(a, held),
		}, true
	}
}

func clamp01(c float64) float64 {
	return gomath.Min(1, gomath.Max(0, c))
}
