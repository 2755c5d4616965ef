// Package memhost is an in-memory voxel world implementing host.Host.
//
// It backs the simulate command and the session tests. Blocks live in a
// sparse map; anything not written is air.
package memhost

import (
	"fmt"
	"sync"

	"github.com/Faultbox/resizer/internal/geometry"
	"github.com/Faultbox/resizer/internal/host"
	"github.com/Faultbox/resizer/pkg/math"
)

// HotbarSize is the number of selectable inventory slots.
const HotbarSize = 9

// Options bound the world.
type Options struct {
	MinY          int     // lowest writable layer
	MaxY          int     // first layer above the writable range
	MaxFillVolume int64   // largest box a single bulk write accepts; 0 means no limit
	Reach         float64 // view ray length
}

// DefaultOptions matches an overworld with the default fill limit.
func DefaultOptions() Options {
	return Options{MinY: -64, MaxY: 320, MaxFillVolume: 32768, Reach: 8}
}

// Player is the simulated state of one connected player.
type Player struct {
	Dimension host.Dimension
	Head      math.Vec3
	View      math.Vec3
	Slot      int
	Hotbar    [HotbarSize]host.Item
}

// Spawn is a recorded particle.
type Spawn struct {
	Dimension host.Dimension
	ID        string
	At        math.Vec3
	Vars      host.Vars
}

type cellKey struct {
	dim host.Dimension
	pos math.Vec3i
}

// World is safe for concurrent use.
type World struct {
	opts Options

	mu         sync.Mutex
	blocks     map[cellKey]host.Material
	players    map[host.PlayerID]*Player
	spawns     []Spawn
	actionBars map[host.PlayerID][]string
	writes     int64
}

var (
	_ host.Host       = (*World)(nil)
	_ host.BulkWriter = (*World)(nil)
)

// New creates an empty world.
func New(opts Options) *World {
	if opts.Reach <= 0 {
		opts.Reach = DefaultOptions().Reach
	}
	return &World{
		opts:       opts,
		blocks:     make(map[cellKey]host.Material),
		players:    make(map[host.PlayerID]*Player),
		actionBars: make(map[host.PlayerID][]string),
	}
}

// AddPlayer connects a player in dim with head at head.
func (w *World) AddPlayer(id host.PlayerID, dim host.Dimension, head math.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.players[id] = &Player{Dimension: dim, Head: head, View: math.Vec3{Z: 1}}
}

// RemovePlayer disconnects a player.
func (w *World) RemovePlayer(id host.PlayerID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.players, id)
}

// UpdatePlayer applies fn to a connected player.
func (w *World) UpdatePlayer(id host.PlayerID, fn func(p *Player)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[id]
	if !ok {
		return host.ErrNoPlayer
	}
	fn(p)
	return nil
}

// LookAt points the player's view from their eye toward target.
func (w *World) LookAt(id host.PlayerID, target math.Vec3) error {
	return w.UpdatePlayer(id, func(p *Player) {
		p.View = target.Sub(geometry.EyeLocation(p.Head))
	})
}

// Player returns a copy of a player's state.
func (w *World) Player(id host.PlayerID) (Player, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

func (w *World) player(id host.PlayerID) (*Player, error) {
	p, ok := w.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", host.ErrNoPlayer, id)
	}
	return p, nil
}

// HeadLocation implements host.Viewer.
func (w *World) HeadLocation(id host.PlayerID) (math.Vec3, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.player(id)
	if err != nil {
		return math.Vec3{}, err
	}
	return p.Head, nil
}

// ViewDirection implements host.Viewer.
func (w *World) ViewDirection(id host.PlayerID) (math.Vec3, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.player(id)
	if err != nil {
		return math.Vec3{}, err
	}
	return p.View, nil
}

// Dimension implements host.Viewer.
func (w *World) Dimension(id host.PlayerID) (host.Dimension, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.player(id)
	if err != nil {
		return "", err
	}
	return p.Dimension, nil
}

// BlockFromView implements host.Viewer by walking the voxel grid from the
// player's eye.
func (w *World) BlockFromView(id host.PlayerID) (host.BlockHit, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.player(id)
	if err != nil {
		return host.BlockHit{}, false, err
	}
	hit, ok := w.raycast(p.Dimension, geometry.EyeLocation(p.Head), p.View)
	return hit, ok, nil
}

// Material implements host.Blocks. Unwritten cells are air.
func (w *World) Material(dim host.Dimension, at math.Vec3i) (host.Material, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if m, ok := w.blocks[cellKey{dim, at}]; ok {
		return m, nil
	}
	return host.Air, nil
}

// SetMaterial implements host.Blocks.
func (w *World) SetMaterial(dim host.Dimension, at math.Vec3i, m host.Material) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.inRange(at.Y) {
		return fmt.Errorf("%w: y=%d", host.ErrOutOfRange, at.Y)
	}
	w.set(dim, at, m)
	return nil
}

// Clear implements host.Blocks.
func (w *World) Clear(dim host.Dimension, at math.Vec3i) error {
	return w.SetMaterial(dim, at, host.Air)
}

// Fill implements host.BulkWriter. The whole box is validated before any
// cell is written.
func (w *World) Fill(dim host.Dimension, box geometry.Box, m host.Material) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkBox(box); err != nil {
		return err
	}
	box.Cells(func(p math.Vec3i) bool {
		w.set(dim, p, m)
		return true
	})
	return nil
}

// ClearBox implements host.BulkWriter.
func (w *World) ClearBox(dim host.Dimension, box geometry.Box) error {
	return w.Fill(dim, box, host.Air)
}

func (w *World) checkBox(box geometry.Box) error {
	if v := box.Volume(); w.opts.MaxFillVolume > 0 && v > w.opts.MaxFillVolume {
		return fmt.Errorf("%w: volume %d exceeds %d", host.ErrOutOfRange, v, w.opts.MaxFillVolume)
	}
	if !w.inRange(box.Min.Y) || !w.inRange(box.Max.Y-1) {
		return fmt.Errorf("%w: y=[%d,%d)", host.ErrOutOfRange, box.Min.Y, box.Max.Y)
	}
	return nil
}

func (w *World) inRange(y int) bool {
	return y >= w.opts.MinY && y < w.opts.MaxY
}

func (w *World) set(dim host.Dimension, at math.Vec3i, m host.Material) {
	w.writes++
	if m.IsAir() {
		delete(w.blocks, cellKey{dim, at})
		return
	}
	w.blocks[cellKey{dim, at}] = m
}

// SelectedSlot implements host.Inventory.
func (w *World) SelectedSlot(id host.PlayerID) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.player(id)
	if err != nil {
		return 0, err
	}
	return p.Slot, nil
}

// Item implements host.Inventory.
func (w *World) Item(id host.PlayerID, slot int) (host.Item, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.player(id)
	if err != nil {
		return host.Item{}, err
	}
	if slot < 0 || slot >= HotbarSize {
		return host.Item{}, fmt.Errorf("slot %d out of range", slot)
	}
	return p.Hotbar[slot], nil
}

// SetItem implements host.Inventory.
func (w *World) SetItem(id host.PlayerID, slot int, it host.Item) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.player(id)
	if err != nil {
		return err
	}
	if slot < 0 || slot >= HotbarSize {
		return fmt.Errorf("slot %d out of range", slot)
	}
	p.Hotbar[slot] = it
	return nil
}

// Spawn implements host.Particles by recording the particle.
func (w *World) Spawn(dim host.Dimension, id string, at math.Vec3, vars host.Vars) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.spawns = append(w.spawns, Spawn{Dimension: dim, ID: id, At: at, Vars: vars})
	return nil
}

// ActionBar implements host.Messenger by recording the text.
func (w *World) ActionBar(id host.PlayerID, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.player(id); err != nil {
		return err
	}
	w.actionBars[id] = append(w.actionBars[id], text)
	return nil
}

// Spawns returns and forgets the recorded particles.
func (w *World) Spawns() []Spawn {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.spawns
	w.spawns = nil
	return s
}

// LastActionBar returns the most recent action bar text shown to a player.
func (w *World) LastActionBar(id host.PlayerID) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	msgs := w.actionBars[id]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

// Writes returns the number of cell writes performed so far.
func (w *World) Writes() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

// Count returns the number of non-air cells in box.
func (w *World) Count(dim host.Dimension, box geometry.Box) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	box.Cells(func(p math.Vec3i) bool {
		if _, ok := w.blocks[cellKey{dim, p}]; ok {
			n++
		}
		return true
	})
	return n
}
