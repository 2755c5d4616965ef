// Package session implements the per-player edit state machine.
//
// A session is created when a player places a block (highlight activation)
// or uses the tool on a block (direct activation). While editing, every tick
// intersects the player's view ray with the selection plane fixed by the
// clicked face and previews the resulting box. Releasing the tool commits the
// box to the world; every other terminal event cancels the session.
package session

import (
	gomath "math"

	"github.com/google/uuid"

	"github.com/Faultbox/resizer/internal/geometry"
	"github.com/Faultbox/resizer/internal/host"
	"github.com/Faultbox/resizer/pkg/math"
)

// Mode is the session state.
type Mode uint8

const (
	ModeIdle Mode = iota
	ModeHighlighting
	ModeEditing
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeHighlighting:
		return "highlighting"
	case ModeEditing:
		return "editing"
	default:
		return "unknown"
	}
}

// Grant remembers what a slot held before the tool was swapped in.
type Grant struct {
	Slot  int
	Prior host.Item
}

// Session is the edit state of one player.
type Session struct {
	ID         uuid.UUID
	Player     host.PlayerID
	Dimension  host.Dimension
	Activation Activation
	Mode       Mode

	// Anchor is the block the edit started from and its material at that time.
	Anchor   math.Vec3i
	Material host.Material

	// Set when editing begins.
	Face       geometry.Face
	EditOrigin math.Vec3

	Grant *Grant

	Created  uint64 // tick the session was created
	LastSeen uint64 // last tick the player aimed at the anchor
}

func newSession(p host.PlayerID, dim host.Dimension, anchor math.Vec3i, mat host.Material, a Activation, tick uint64) *Session {
	return &Session{
		ID:         uuid.New(),
		Player:     p,
		Dimension:  dim,
		Activation: a,
		Mode:       ModeIdle,
		Anchor:     anchor,
		Material:   mat,
		Created:    tick,
		LastSeen:   tick,
	}
}

// Axis is the coordinate held fixed while dragging.
func (s *Session) Axis() math.Axis { return s.Face.Axis() }

// Plane is the selection plane the view ray is intersected with.
func (s *Session) Plane() geometry.Plane {
	return geometry.Plane{Origin: s.EditOrigin, Face: s.Face}
}

// begin switches to editing from a face hit on the anchor block.
func (s *Session) begin(hit host.BlockHit) {
	s.Face = hit.Face
	s.EditOrigin = geometry.EditOrigin(hit.Block, hit.Face, hit.FaceLocation)
	s.Mode = ModeEditing
}

// BoxAnchor is the cell the box is spanned from: the anchor block on the
// in-plane axes and the layer the edit origin lies in on the drag axis.
func (s *Session) BoxAnchor() math.Vec3i {
	axis := s.Axis()
	return s.Anchor.WithComponent(axis, int(gomath.Floor(s.EditOrigin.Component(axis))))
}

// Pointer returns where the player's current view ray crosses the selection
// plane.
func (s *Session) Pointer(v host.Viewer) (math.Vec3, error) {
	head, err := v.HeadLocation(s.Player)
	if err != nil {
		return math.Vec3{}, err
	}
	dir, err := v.ViewDirection(s.Player)
	if err != nil {
		return math.Vec3{}, err
	}
	return s.Plane().Intersect(geometry.Ray{Origin: geometry.EyeLocation(head), Direction: dir})
}

// Box resolves the current selection.
func (s *Session) Box(v host.Viewer) (geometry.Box, error) {
	p, err := s.Pointer(v)
	if err != nil {
		return geometry.Box{}, err
	}
	return geometry.Resolve(s.BoxAnchor(), p, s.Axis())
}
