// Package render draws selection previews with host particles.
package render

import (
	"fmt"

	"github.com/Faultbox/resizer/internal/host"
	"github.com/Faultbox/resizer/pkg/math"
)

const (
	// ZFightingOffset pushes face particles just outside the box surface.
	ZFightingOffset = 0.01625

	DefaultLineWidth    = 0.05
	DefaultLineLifetime = 0.1
)

// Painter spawns particle primitives through a host.
type Painter struct {
	particles host.Particles

	LineParticle string
	LineWidth    float64
	LineLifetime float64
}

// NewPainter returns a painter drawing lines with lineParticle.
func NewPainter(p host.Particles, lineParticle string) *Painter {
	return &Painter{
		particles:    p,
		LineParticle: lineParticle,
		LineWidth:    DefaultLineWidth,
		LineLifetime: DefaultLineLifetime,
	}
}

// Group holds one particle id per axis, each drawing the faces whose normal
// lies along that axis (index 0 = z faces, 1 = y faces, 2 = x faces).
type Group [3]string

// boxFace is one face of a box, given by its center relative to the box
// origin and the two in-plane extents.
type boxFace struct {
	particle int
	center   func(size math.Vec3) math.Vec3
	extent   func(size math.Vec3) (float64, float64)
}

var boxFaces = [...]boxFace{
	// North / South
	{0, func(s math.Vec3) math.Vec3 { return math.Vec3{X: s.X / 2, Y: s.Y / 2, Z: -ZFightingOffset} },
		func(s math.Vec3) (float64, float64) { return s.X, s.Y }},
	{0, func(s math.Vec3) math.Vec3 { return math.Vec3{X: s.X / 2, Y: s.Y / 2, Z: ZFightingOffset + s.Z} },
		func(s math.Vec3) (float64, float64) { return s.X, s.Y }},
	// Down / Up
	{1, func(s math.Vec3) math.Vec3 { return math.Vec3{X: s.X / 2, Y: -ZFightingOffset, Z: s.Z / 2} },
		func(s math.Vec3) (float64, float64) { return s.X, s.Z }},
	{1, func(s math.Vec3) math.Vec3 { return math.Vec3{X: s.X / 2, Y: ZFightingOffset + s.Y, Z: s.Z / 2} },
		func(s math.Vec3) (float64, float64) { return s.X, s.Z }},
	// West / East
	{2, func(s math.Vec3) math.Vec3 { return math.Vec3{X: -ZFightingOffset, Y: s.Y / 2, Z: s.Z / 2} },
		func(s math.Vec3) (float64, float64) { return s.Z, s.Y }},
	{2, func(s math.Vec3) math.Vec3 { return math.Vec3{X: ZFightingOffset + s.X, Y: s.Y / 2, Z: s.Z / 2} },
		func(s math.Vec3) (float64, float64) { return s.Z, s.Y }},
}

// RenderBox spawns one particle per face of the box at origin with the given
// size. Each face particle receives its half extents as size_x and size_y.
func (p *Painter) RenderBox(dim host.Dimension, origin, size math.Vec3, group Group, color host.Color) error {
	for i, f := range boxFaces {
		sx, sy := f.extent(size)
		vars := host.NewVars().
			SetColor("color", color).
			SetFloat("offset_x", 0).
			SetFloat("offset_y", 0).
			SetFloat("offset_z", 0).
			SetFloat("size_x", 0.5*sx).
			SetFloat("size_y", 0.5*sy).
			SetFloat("t", 0.5)
		if err := p.particles.Spawn(dim, group[f.particle], origin.Add(f.center(size)), vars); err != nil {
			return fmt.Errorf("box face %d: %w", i, err)
		}
	}
	return nil
}

// boxEdges lists the 12 edges of a unit box as a start corner and an offset,
// both scaled by the box size.
var boxEdges = [12][2]math.Vec3{
	// Vertical edges
	{{}, {Y: 1}},
	{{X: 1}, {Y: 1}},
	{{Z: 1}, {Y: 1}},
	{{X: 1, Z: 1}, {Y: 1}},
	// Edges along z
	{{}, {Z: 1}},
	{{X: 1}, {Z: 1}},
	{{Y: 1}, {Z: 1}},
	{{X: 1, Y: 1}, {Z: 1}},
	// Edges along x
	{{}, {X: 1}},
	{{Y: 1}, {X: 1}},
	{{Z: 1}, {X: 1}},
	{{Y: 1, Z: 1}, {X: 1}},
}

// BoxEdgeCount is the number of line particles drawn by RenderLineBox.
const BoxEdgeCount = len(boxEdges)

// RenderLineBox outlines the box at origin with line particles.
func (p *Painter) RenderLineBox(dim host.Dimension, origin, size math.Vec3) error {
	for i, e := range boxEdges {
		start := origin.Add(e[0].Mul(size))
		end := start.Add(e[1].Mul(size))
		if err := p.Line(dim, start, end); err != nil {
			return fmt.Errorf("box edge %d: %w", i, err)
		}
	}
	return nil
}

// Line spawns a single line particle between start and end. The particle sits
// at the midpoint and stretches half the segment length in both directions.
func (p *Painter) Line(dim host.Dimension, start, end math.Vec3) error {
	diff := start.Sub(end)
	middle := diff.DivScalar(2).Add(end)
	dir := diff.Normalize()
	vars := host.NewVars().
		SetFloat("dir_x", dir.X).
		SetFloat("dir_y", dir.Y).
		SetFloat("dir_z", dir.Z).
		SetFloat("width", p.LineWidth).
		SetFloat("length", diff.Length()/2).
		SetFloat("lifetime", p.LineLifetime)
	return p.particles.Spawn(dim, p.LineParticle, middle, vars)
}
