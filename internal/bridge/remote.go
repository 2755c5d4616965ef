// Package bridge implements host.Host on top of a remote game host.
//
// The remote host pushes player snapshots and events; reads are answered from
// the latest snapshot and from a cache of block materials the bridge has seen.
// Writes are queued and sent once per tick as a single COMMANDS batch.
package bridge

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/resizer/internal/geometry"
	"github.com/Faultbox/resizer/internal/host"
	"github.com/Faultbox/resizer/internal/protocol"
	"github.com/Faultbox/resizer/pkg/math"
)

// ErrBacklog is returned for cosmetic commands dropped because the outbound
// queue is full. World and inventory writes are never dropped.
var ErrBacklog = errors.New("bridge: command backlog full")

// ErrDetached is returned by writes while no host is attached.
var ErrDetached = errors.New("bridge: no host attached")

const hotbarSize = 9

// Sender delivers an outbound message to the attached host.
type Sender interface {
	Send(v any) error
}

// Options configure a RemoteHost.
type Options struct {
	MaxQueue      int // cosmetic ops accepted per batch
	MaxCachedCell int
}

// DefaultOptions returns the limits used by the server.
func DefaultOptions() Options {
	return Options{MaxQueue: 4096, MaxCachedCell: 1 << 16}
}

type playerState struct {
	dim    host.Dimension
	head   math.Vec3
	view   math.Vec3
	slot   int
	hotbar [hotbarSize]host.Item
	hit    *host.BlockHit
}

type cellKey struct {
	dim host.Dimension
	pos math.Vec3i
}

// RemoteHost is a host.Host backed by a remote game host.
type RemoteHost struct {
	opts Options
	log  *zap.Logger

	mu      sync.Mutex
	sender  Sender
	hostID  string
	bulk    bool
	players map[host.PlayerID]*playerState
	cells   map[cellKey]host.Material
	ops     []protocol.Op
	batch   uint64
	dropped uint64
}

// New creates a detached RemoteHost.
func New(opts Options, log *zap.Logger) *RemoteHost {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxQueue <= 0 {
		opts.MaxQueue = DefaultOptions().MaxQueue
	}
	if opts.MaxCachedCell <= 0 {
		opts.MaxCachedCell = DefaultOptions().MaxCachedCell
	}
	return &RemoteHost{
		opts:    opts,
		log:     log,
		players: make(map[host.PlayerID]*playerState),
		cells:   make(map[cellKey]host.Material),
	}
}

// Attach connects a host. Any previous state is discarded.
func (r *RemoteHost) Attach(s Sender, hello protocol.HelloMsg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
	r.sender = s
	r.hostID = hello.HostID
	r.bulk = hello.Capabilities.BulkFill
	r.log.Info("host attached", zap.String("host", hello.HostID), zap.Bool("bulk_fill", r.bulk))
}

// Detach disconnects the host. Players vanish, so live sessions end on the
// next tick.
func (r *RemoteHost) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sender == nil {
		return
	}
	r.log.Info("host detached", zap.String("host", r.hostID), zap.Int("pending_ops", len(r.ops)))
	r.reset()
}

func (r *RemoteHost) reset() {
	r.sender = nil
	r.hostID = ""
	r.bulk = false
	r.players = make(map[host.PlayerID]*playerState)
	r.cells = make(map[cellKey]host.Material)
	r.ops = nil
}

// Attached reports whether a host is connected.
func (r *RemoteHost) Attached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sender != nil
}

// ApplyState replaces the player snapshots.
func (r *RemoteHost) ApplyState(msg protocol.StateMsg) error {
	players := make(map[host.PlayerID]*playerState, len(msg.Players))
	for _, p := range msg.Players {
		ps, err := r.convertPlayer(p)
		if err != nil {
			return fmt.Errorf("player %s: %w", p.ID, err)
		}
		players[host.PlayerID(p.ID)] = ps
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.players = players
	for _, p := range msg.Players {
		if p.Hit != nil && p.Hit.Material != nil {
			r.cache(host.Dimension(p.Dimension), vec3i(p.Hit.Block), material(*p.Hit.Material))
		}
	}
	return nil
}

func (r *RemoteHost) convertPlayer(p protocol.PlayerState) (*playerState, error) {
	if p.SelectedSlot < 0 || p.SelectedSlot >= hotbarSize {
		return nil, fmt.Errorf("selected slot %d out of range", p.SelectedSlot)
	}
	ps := &playerState{
		dim:  host.Dimension(p.Dimension),
		head: vec3(p.Head),
		view: vec3(p.View),
		slot: p.SelectedSlot,
	}
	for i, it := range p.Hotbar {
		if i >= hotbarSize {
			break
		}
		ps.hotbar[i] = host.Item{ID: it.ID, Count: it.Count}
	}
	if p.Hit != nil {
		face, err := geometry.ParseFace(p.Hit.Face)
		if err != nil {
			return nil, err
		}
		ps.hit = &host.BlockHit{
			Block:        vec3i(p.Hit.Block),
			Face:         face,
			FaceLocation: vec3(p.Hit.FaceLocation),
		}
	}
	return ps, nil
}

// cache records a material; the cache is dropped wholesale when it grows too
// large. Callers hold r.mu.
func (r *RemoteHost) cache(dim host.Dimension, at math.Vec3i, m host.Material) {
	if len(r.cells) >= r.opts.MaxCachedCell {
		r.cells = make(map[cellKey]host.Material)
	}
	r.cells[cellKey{dim, at}] = m
}

func (r *RemoteHost) player(id host.PlayerID) (*playerState, error) {
	p, ok := r.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", host.ErrNoPlayer, id)
	}
	return p, nil
}

func (r *RemoteHost) HeadLocation(id host.PlayerID) (math.Vec3, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.player(id)
	if err != nil {
		return math.Vec3{}, err
	}
	return p.head, nil
}

func (r *RemoteHost) ViewDirection(id host.PlayerID) (math.Vec3, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.player(id)
	if err != nil {
		return math.Vec3{}, err
	}
	return p.view, nil
}

func (r *RemoteHost) Dimension(id host.PlayerID) (host.Dimension, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.player(id)
	if err != nil {
		return "", err
	}
	return p.dim, nil
}

// BlockFromView returns the hit reported in the latest snapshot.
func (r *RemoteHost) BlockFromView(id host.PlayerID) (host.BlockHit, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.player(id)
	if err != nil {
		return host.BlockHit{}, false, err
	}
	if p.hit == nil {
		return host.BlockHit{}, false, nil
	}
	return *p.hit, true, nil
}

// Material returns a cached material. Blocks never seen by the bridge are
// unknown.
func (r *RemoteHost) Material(dim host.Dimension, at math.Vec3i) (host.Material, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.cells[cellKey{dim, at}]
	if !ok {
		return host.Material{}, fmt.Errorf("%w: %s %s", host.ErrUnknownBlock, dim, at)
	}
	return m, nil
}

func (r *RemoteHost) SetMaterial(dim host.Dimension, at math.Vec3i, m host.Material) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sender == nil {
		return ErrDetached
	}
	pos := arr3i(at)
	r.ops = append(r.ops, protocol.Op{Op: protocol.OpSetBlock, Dimension: string(dim), At: &pos, Material: wireMaterial(m)})
	r.cache(dim, at, m)
	return nil
}

func (r *RemoteHost) Clear(dim host.Dimension, at math.Vec3i) error {
	return r.SetMaterial(dim, at, host.Air)
}

// Fill sends one fill op when the host supports bulk writes, and one
// set_block op per cell otherwise.
func (r *RemoteHost) Fill(dim host.Dimension, box geometry.Box, m host.Material) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sender == nil {
		return ErrDetached
	}
	if box.Volume() == 0 {
		return nil
	}
	if r.bulk {
		lo, hi := arr3i(box.Min), arr3i(box.Max)
		op := protocol.Op{Op: protocol.OpFill, Dimension: string(dim), Min: &lo, Max: &hi, Material: wireMaterial(m)}
		if m.IsAir() {
			op = protocol.Op{Op: protocol.OpClear, Dimension: string(dim), Min: &lo, Max: &hi}
		}
		r.ops = append(r.ops, op)
	} else {
		wm := wireMaterial(m)
		box.Cells(func(p math.Vec3i) bool {
			pos := arr3i(p)
			r.ops = append(r.ops, protocol.Op{Op: protocol.OpSetBlock, Dimension: string(dim), At: &pos, Material: wm})
			return true
		})
	}
	for k := range r.cells {
		if k.dim == dim && box.Contains(k.pos) {
			r.cells[k] = m
		}
	}
	return nil
}

func (r *RemoteHost) ClearBox(dim host.Dimension, box geometry.Box) error {
	return r.Fill(dim, box, host.Air)
}

func (r *RemoteHost) SelectedSlot(id host.PlayerID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.player(id)
	if err != nil {
		return 0, err
	}
	return p.slot, nil
}

func (r *RemoteHost) Item(id host.PlayerID, slot int) (host.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.player(id)
	if err != nil {
		return host.Item{}, err
	}
	if slot < 0 || slot >= hotbarSize {
		return host.Item{}, fmt.Errorf("slot %d out of range", slot)
	}
	return p.hotbar[slot], nil
}

// SetItem queues the change and applies it to the snapshot so reads before
// the next STATE see it.
func (r *RemoteHost) SetItem(id host.PlayerID, slot int, it host.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sender == nil {
		return ErrDetached
	}
	if slot < 0 || slot >= hotbarSize {
		return fmt.Errorf("slot %d out of range", slot)
	}
	if p, ok := r.players[id]; ok {
		p.hotbar[slot] = it
	}
	s := slot
	r.ops = append(r.ops, protocol.Op{Op: protocol.OpSetItem, Player: string(id), Slot: &s, Item: &protocol.Item{ID: it.ID, Count: it.Count}})
	return nil
}

func (r *RemoteHost) Spawn(dim host.Dimension, id string, at math.Vec3, vars host.Vars) error {
	pos := [3]float64{at.X, at.Y, at.Z}
	return r.cosmetic(protocol.Op{Op: protocol.OpParticle, Dimension: string(dim), Particle: id, Pos: &pos, Vars: wireVars(vars)})
}

func (r *RemoteHost) ActionBar(id host.PlayerID, text string) error {
	return r.cosmetic(protocol.Op{Op: protocol.OpActionBar, Player: string(id), Text: text})
}

func (r *RemoteHost) cosmetic(op protocol.Op) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sender == nil {
		return ErrDetached
	}
	if len(r.ops) >= r.opts.MaxQueue {
		r.dropped++
		return ErrBacklog
	}
	r.ops = append(r.ops, op)
	return nil
}

// Flush sends the queued ops as one batch. It is meant to run once per tick,
// after the session manager.
func (r *RemoteHost) Flush(tick uint64) {
	r.mu.Lock()
	if r.sender == nil || len(r.ops) == 0 {
		r.mu.Unlock()
		return
	}
	r.batch++
	msg := protocol.CommandsMsg{
		Type:            protocol.TypeCommands,
		ProtocolVersion: protocol.Version,
		BatchID:         r.batch,
		Tick:            tick,
		Ops:             r.ops,
	}
	r.ops = nil
	dropped := r.dropped
	r.dropped = 0
	sender := r.sender
	r.mu.Unlock()

	if dropped > 0 {
		r.log.Warn("cosmetic commands dropped", zap.Uint64("tick", tick), zap.Uint64("count", dropped))
	}
	if err := sender.Send(msg); err != nil {
		r.log.Warn("command batch not sent",
			zap.Uint64("batch", msg.BatchID),
			zap.Int("ops", len(msg.Ops)),
			zap.Error(err))
	}
}

// Ack logs ops the host could not apply.
func (r *RemoteHost) Ack(msg protocol.AckMsg) {
	for _, f := range msg.Failed {
		r.log.Warn("host rejected command",
			zap.Uint64("batch", msg.BatchID),
			zap.Int("index", f.Index),
			zap.String("code", f.Code),
			zap.String("message", f.Message))
	}
}

func vec3(a [3]float64) math.Vec3 { return math.Vec3{X: a[0], Y: a[1], Z: a[2]} }

func vec3i(a [3]int) math.Vec3i { return math.Vec3i{X: a[0], Y: a[1], Z: a[2]} }

func arr3i(v math.Vec3i) [3]int { return [3]int{v.X, v.Y, v.Z} }

func material(m protocol.Material) host.Material {
	return host.Material{ID: m.ID, States: m.States}
}

func wireMaterial(m host.Material) *protocol.Material {
	return &protocol.Material{ID: m.ID, States: m.States}
}

func wireVars(v host.Vars) *protocol.Vars {
	out := &protocol.Vars{Floats: v.Floats}
	if len(v.Colors) > 0 {
		out.Colors = make(map[string]protocol.Color, len(v.Colors))
		for k, c := range v.Colors {
			out.Colors[k] = protocol.Color{R: c.R, G: c.G, B: c.B}
		}
	}
	return out
}
