// Package host defines the game-side capabilities the resizer drives.
//
// A host is whatever owns the voxel world: an in-process simulation, or a
// remote game attached through the bridge. Each capability is a small
// interface so tests can supply only what they exercise.
package host

import (
	"errors"
	"sort"
	"strings"

	"github.com/Faultbox/resizer/internal/geometry"
	"github.com/Faultbox/resizer/pkg/math"
)

var (
	// ErrOutOfRange is returned by writes outside the loaded or valid world.
	ErrOutOfRange = errors.New("host: location out of range")
	// ErrNoPlayer is returned when the player is not connected.
	ErrNoPlayer = errors.New("host: player not found")
	// ErrUnknownBlock is returned when a block cannot be read.
	ErrUnknownBlock = errors.New("host: block not available")
)

// PlayerID is a stable player identifier.
type PlayerID string

// Dimension names a spatial partition of the world.
type Dimension string

// AirID is the block type written when clearing.
const AirID = "minecraft:air"

// Material is a block type together with its state properties.
type Material struct {
	ID     string            `json:"id"`
	States map[string]string `json:"states,omitempty"`
}

// Air is the empty material.
var Air = Material{ID: AirID}

// IsAir reports whether m is empty space.
func (m Material) IsAir() bool { return m.ID == "" || m.ID == AirID }

// Key returns a canonical "id[k=v,...]" string, stable across map ordering.
func (m Material) Key() string {
	if len(m.States) == 0 {
		return m.ID
	}
	keys := make([]string, 0, len(m.States))
	for k := range m.States {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m.States[k])
	}
	return m.ID + "[" + strings.Join(parts, ",") + "]"
}

// Equal compares by canonical key.
func (m Material) Equal(o Material) bool { return m.Key() == o.Key() }

// Item is an inventory stack. The zero value is an empty slot.
type Item struct {
	ID    string `json:"id,omitempty"`
	Count int    `json:"count,omitempty"`
}

// Empty reports whether the slot holds nothing.
func (i Item) Empty() bool { return i.ID == "" || i.Count <= 0 }

// BlockHit is the first block along a player's view ray. FaceLocation is the
// hit point relative to Block, each component in [0, 1].
type BlockHit struct {
	Block        math.Vec3i
	Face         geometry.Face
	FaceLocation math.Vec3
}

// Location returns the world-space hit point.
func (h BlockHit) Location() math.Vec3 {
	return h.Block.Vec3().Add(h.FaceLocation)
}

// Viewer exposes where a player is looking.
type Viewer interface {
	HeadLocation(p PlayerID) (math.Vec3, error)
	ViewDirection(p PlayerID) (math.Vec3, error)
	// BlockFromView returns false when the view ray hits nothing.
	BlockFromView(p PlayerID) (BlockHit, bool, error)
	Dimension(p PlayerID) (Dimension, error)
}

// Blocks reads and writes single cells.
type Blocks interface {
	Material(dim Dimension, at math.Vec3i) (Material, error)
	SetMaterial(dim Dimension, at math.Vec3i, m Material) error
	Clear(dim Dimension, at math.Vec3i) error
}

// BulkWriter is implemented by hosts that can fill a whole box in one call.
type BulkWriter interface {
	Fill(dim Dimension, box geometry.Box, m Material) error
	ClearBox(dim Dimension, box geometry.Box) error
}

// Inventory gives access to a player's hotbar.
type Inventory interface {
	SelectedSlot(p PlayerID) (int, error)
	Item(p PlayerID, slot int) (Item, error)
	SetItem(p PlayerID, slot int, it Item) error
}

// Particles spawns a single particle effect.
type Particles interface {
	Spawn(dim Dimension, id string, at math.Vec3, vars Vars) error
}

// Messenger shows text to a player.
type Messenger interface {
	ActionBar(p PlayerID, text string) error
}

// Host is the full capability set.
type Host interface {
	Viewer
	Blocks
	Inventory
	Particles
	Messenger
}

// Fill writes m into every cell of box, using BulkWriter when h has it.
func Fill(h Blocks, dim Dimension, box geometry.Box, m Material) error {
	if bw, ok := h.(BulkWriter); ok {
		return bw.Fill(dim, box, m)
	}
	var err error
	box.Cells(func(p math.Vec3i) bool {
		err = h.SetMaterial(dim, p, m)
		return err == nil
	})
	return err
}

// ClearBox empties every cell of box, using BulkWriter when h has it.
func ClearBox(h Blocks, dim Dimension, box geometry.Box) error {
	if bw, ok := h.(BulkWriter); ok {
		return bw.ClearBox(dim, box)
	}
	var err error
	box.Cells(func(p math.Vec3i) bool {
		err = h.Clear(dim, p)
		return err == nil
	})
	return err
}
