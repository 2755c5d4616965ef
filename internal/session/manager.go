package session

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/resizer/internal/config"
	"github.com/Faultbox/resizer/internal/geometry"
	"github.com/Faultbox/resizer/internal/host"
	"github.com/Faultbox/resizer/internal/render"
	"github.com/Faultbox/resizer/pkg/math"
)

// OutOfRangeMessage is shown when a commit cannot be written.
const OutOfRangeMessage = "§l§4Out of Range"

// ClearTint colors the volume preview while the clear modifier is held.
var ClearTint = host.Color{R: 1, G: 0.5, B: 0.5}

// Options configure a Manager.
type Options struct {
	ToolItem       string
	LineParticle   string
	HoverParticles render.Group
	EditParticles  render.Group
	LineWidth      float64
	LineLifetime   float64

	Activation     string // config.Activation*
	HighlightEvery uint64
	VolumeEvery    uint64
	IdleTimeout    uint64 // ticks; 0 keeps idle sessions until another event ends them
	Band           geometry.Band

	MinY          int
	MaxY          int
	MaxFillVolume int64
}

// OptionsFrom builds manager options from the loaded config.
func OptionsFrom(cfg *config.Config) Options {
	o := Options{
		ToolItem:       cfg.Tool.Item,
		LineParticle:   cfg.Tool.LineParticle,
		LineWidth:      cfg.Tool.LineWidth,
		LineLifetime:   cfg.Tool.LineLifetime,
		Activation:     cfg.Session.Activation,
		HighlightEvery: uint64(cfg.Session.HighlightEvery),
		VolumeEvery:    uint64(cfg.Session.VolumeEvery),
		IdleTimeout:    cfg.IdleTimeoutTicks(),
		Band:           geometry.DefaultBand,
		MinY:           cfg.World.MinY,
		MaxY:           cfg.World.MaxY,
		MaxFillVolume:  cfg.World.MaxFillVolume,
	}
	copy(o.HoverParticles[:], cfg.Tool.HoverParticles)
	copy(o.EditParticles[:], cfg.Tool.EditParticles)
	if b := cfg.Session.CornerBand; len(b) == 2 {
		o.Band = geometry.Band{Min: b[0], Max: b[1]}
	}
	return o
}

// DefaultOptions returns the options of the default config.
func DefaultOptions() Options {
	return OptionsFrom(config.Default())
}

func (o Options) allowHighlight() bool {
	return o.Activation == config.ActivationHighlight || o.Activation == config.ActivationBoth
}

func (o Options) allowDirect() bool {
	return o.Activation == config.ActivationDirect || o.Activation == config.ActivationBoth
}

// Manager owns every session. It is not safe for concurrent use: one
// goroutine delivers events and ticks.
type Manager struct {
	host    host.Host
	painter *render.Painter
	opts    Options
	log     *zap.Logger
	rec     Recorder
	now     func() time.Time

	sessions  map[host.PlayerID]*Session
	modifiers modifiers
	tick      uint64
}

// NewManager creates a session manager driving h. log and rec may be nil.
func NewManager(h host.Host, opts Options, log *zap.Logger, rec Recorder) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	if opts.HighlightEvery == 0 {
		opts.HighlightEvery = 1
	}
	if opts.VolumeEvery == 0 {
		opts.VolumeEvery = 1
	}
	p := render.NewPainter(h, opts.LineParticle)
	if opts.LineWidth > 0 {
		p.LineWidth = opts.LineWidth
	}
	if opts.LineLifetime > 0 {
		p.LineLifetime = opts.LineLifetime
	}
	return &Manager{
		host:      h,
		painter:   p,
		opts:      opts,
		log:       log,
		rec:       rec,
		now:       time.Now,
		sessions:  make(map[host.PlayerID]*Session),
		modifiers: make(modifiers),
	}
}

// Get returns a player's session, or nil.
func (m *Manager) Get(p host.PlayerID) *Session {
	return m.sessions[p]
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return len(m.sessions)
}

// All returns every live session ordered by player.
func (m *Manager) All() []*Session {
	result := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Player < result[j].Player })
	return result
}

// Ticks returns the number of ticks run so far.
func (m *Manager) Ticks() uint64 {
	return m.tick
}

// Modifier reports whether the player holds the clear modifier.
func (m *Manager) Modifier(p host.PlayerID) bool {
	return m.modifiers[p]
}

// Cancel ends a player's session, restoring any granted item. It reports
// whether a session existed.
func (m *Manager) Cancel(p host.PlayerID, reason string) bool {
	s := m.sessions[p]
	if s == nil {
		return false
	}
	m.cancel(s, reason)
	return true
}

// Shutdown cancels every session.
func (m *Manager) Shutdown() {
	for _, s := range m.All() {
		m.cancel(s, ReasonShutdown)
	}
}

// Handle applies one input event.
func (m *Manager) Handle(ev Event) {
	switch e := ev.(type) {
	case BlockPlaced:
		m.onBlockPlaced(e)
	case ItemStartUse:
		m.onStartUse(e)
	case ItemReleaseUse:
		if e.Item != m.opts.ToolItem {
			return
		}
		if s := m.sessions[e.PlayerID]; s != nil && s.Mode == ModeEditing {
			m.commit(s)
		}
	case SlotChanged:
		m.Cancel(e.PlayerID, ReasonSlotChanged)
	case PlayerLeft:
		m.Cancel(e.PlayerID, ReasonPlayerLeft)
		delete(m.modifiers, e.PlayerID)
	case PlayerSpawned:
		m.Cancel(e.PlayerID, ReasonRespawned)
	case DimensionChanged:
		m.Cancel(e.PlayerID, ReasonDimensionChanged)
	case ButtonInput:
		m.modifiers.apply(e)
	default:
		m.log.Warn("unknown session event", zap.String("type", fmt.Sprintf("%T", ev)))
	}
}

func (m *Manager) onBlockPlaced(e BlockPlaced) {
	if !m.opts.allowHighlight() {
		return
	}
	mat := e.Material
	if mat.ID == "" {
		var err error
		if mat, err = m.host.Material(e.Dimension, e.Block); err != nil {
			m.log.Debug("placed block unreadable", zap.String("player", string(e.PlayerID)), zap.Error(err))
			return
		}
	}
	s := newSession(e.PlayerID, e.Dimension, e.Block, mat, HighlightGated{Band: m.opts.Band}, m.tick)
	m.add(s)
}

func (m *Manager) onStartUse(e ItemStartUse) {
	if e.Item != m.opts.ToolItem {
		return
	}
	s := m.sessions[e.PlayerID]
	if s != nil && s.Mode == ModeEditing {
		return
	}

	hit, ok, err := m.host.BlockFromView(e.PlayerID)
	if err != nil {
		m.log.Debug("start use raycast failed", zap.String("player", string(e.PlayerID)), zap.Error(err))
		return
	}
	if !ok {
		return
	}

	if s != nil && s.Activation.CanBegin(s) {
		if hit.Block != s.Anchor {
			return
		}
		s.begin(hit)
		m.logBegin(s)
		return
	}
	if !m.opts.allowDirect() {
		return
	}

	dim, err := m.host.Dimension(e.PlayerID)
	if err != nil {
		m.log.Debug("start use without dimension", zap.String("player", string(e.PlayerID)), zap.Error(err))
		return
	}
	mat, err := m.host.Material(dim, hit.Block)
	if err != nil {
		m.log.Debug("target block unreadable", zap.String("player", string(e.PlayerID)), zap.Error(err))
		return
	}
	s = newSession(e.PlayerID, dim, hit.Block, mat, Direct{}, m.tick)
	m.add(s)
	s.begin(hit)
	m.logBegin(s)
}

func (m *Manager) logBegin(s *Session) {
	m.log.Debug("edit started",
		zap.String("player", string(s.Player)),
		zap.String("face", s.Face.String()),
		zap.String("axis", s.Axis().String()),
		zap.String("origin", s.EditOrigin.String()))
}

// add registers s, cancelling any session the player already had.
func (m *Manager) add(s *Session) {
	if old := m.sessions[s.Player]; old != nil {
		m.cancel(old, ReasonReplaced)
	}
	m.sessions[s.Player] = s
}

// remove drops s from the registry if it is still the player's session.
func (m *Manager) remove(s *Session) {
	if m.sessions[s.Player] == s {
		delete(m.sessions, s.Player)
	}
}

// Tick advances every session by one tick.
func (m *Manager) Tick() {
	m.tick++
	for _, s := range m.sessions {
		m.update(s)
	}
}

func (m *Manager) update(s *Session) {
	dim, err := m.host.Dimension(s.Player)
	switch {
	case errors.Is(err, host.ErrNoPlayer):
		m.cancel(s, ReasonPlayerLeft)
		return
	case err != nil:
		m.log.Debug("dimension unavailable", zap.String("player", string(s.Player)), zap.Error(err))
		return
	case dim != s.Dimension:
		m.cancel(s, ReasonDimensionChanged)
		return
	}

	if s.Mode == ModeEditing {
		m.renderEdit(s)
		return
	}
	if m.tick%m.opts.HighlightEvery == 0 {
		s.Activation.Watch(m, s)
	}
	if s.Mode == ModeIdle && m.opts.IdleTimeout > 0 && m.tick-s.LastSeen > m.opts.IdleTimeout {
		m.cancel(s, ReasonIdle)
	}
}

func (m *Manager) renderEdit(s *Session) {
	box, err := s.Box(m.host)
	if err != nil {
		m.log.Debug("no selection this tick", zap.String("player", string(s.Player)), zap.Error(err))
		return
	}
	origin := box.Min.Vec3()
	size := box.Size()

	if m.tick%m.opts.VolumeEvery == 0 {
		tint := host.White
		if m.modifiers[s.Player] {
			tint = ClearTint
		}
		if err := m.painter.RenderBox(s.Dimension, origin, size.Vec3(), m.opts.EditParticles, tint); err != nil {
			m.log.Debug("volume preview dropped", zap.Error(err))
		}
	}
	if err := m.painter.RenderLineBox(s.Dimension, origin, size.Vec3()); err != nil {
		m.log.Debug("outline preview dropped", zap.Error(err))
	}
	if err := m.host.ActionBar(s.Player, "§l"+size.String()); err != nil {
		m.log.Debug("size readout dropped", zap.Error(err))
	}
}

func (m *Manager) renderHighlight(s *Session) {
	if err := m.painter.RenderBox(s.Dimension, s.Anchor.Vec3(), math.Splat(1), m.opts.HoverParticles, host.White); err != nil {
		m.log.Debug("highlight dropped", zap.Error(err))
	}
}

// grant swaps the tool into the player's selected slot.
func (m *Manager) grant(s *Session) error {
	slot, err := m.host.SelectedSlot(s.Player)
	if err != nil {
		return err
	}
	prior, err := m.host.Item(s.Player, slot)
	if err != nil {
		return err
	}
	if err := m.host.SetItem(s.Player, slot, host.Item{ID: m.opts.ToolItem, Count: 1}); err != nil {
		return err
	}
	s.Grant = &Grant{Slot: slot, Prior: prior}
	return nil
}

// revoke puts back what the granted slot held. The grant is dropped even if
// the host refuses, so it is restored at most once.
func (m *Manager) revoke(s *Session) {
	g := s.Grant
	if g == nil {
		return
	}
	s.Grant = nil
	if err := m.host.SetItem(s.Player, g.Slot, g.Prior); err != nil {
		m.log.Warn("could not restore slot",
			zap.String("player", string(s.Player)),
			zap.Int("slot", g.Slot),
			zap.Error(err))
	}
}

// checkBox rejects boxes the world cannot hold before anything is written.
func (m *Manager) checkBox(b geometry.Box) error {
	if v := b.Volume(); m.opts.MaxFillVolume > 0 && v > m.opts.MaxFillVolume {
		return fmt.Errorf("%w: volume %d exceeds %d", host.ErrOutOfRange, v, m.opts.MaxFillVolume)
	}
	if m.opts.MinY < m.opts.MaxY && (b.Min.Y < m.opts.MinY || b.Max.Y > m.opts.MaxY) {
		return fmt.Errorf("%w: y=[%d,%d) outside [%d,%d)", host.ErrOutOfRange, b.Min.Y, b.Max.Y, m.opts.MinY, m.opts.MaxY)
	}
	return nil
}

// commit writes the selection and ends the session, whatever the result.
func (m *Manager) commit(s *Session) {
	clearing := m.modifiers[s.Player]
	rec := m.record(s, OutcomeCommitted, ReasonCommit)
	rec.Cleared = clearing

	box, err := s.Box(m.host)
	if err == nil {
		rec.SetBox(box)
		err = m.checkBox(box)
	}
	if err == nil {
		if clearing {
			err = host.ClearBox(m.host, s.Dimension, box)
		} else {
			err = host.Fill(m.host, s.Dimension, box, s.Material)
		}
	}

	if err != nil {
		rec.Outcome = OutcomeRejected
		rec.Error = err.Error()
		if errors.Is(err, geometry.ErrDegenerate) || errors.Is(err, host.ErrOutOfRange) {
			m.log.Info("edit rejected", zap.String("player", string(s.Player)), zap.Error(err))
		} else {
			m.log.Warn("edit failed", zap.String("player", string(s.Player)), zap.Error(err))
		}
		if err := m.host.ActionBar(s.Player, OutOfRangeMessage); err != nil {
			m.log.Debug("failure message dropped", zap.Error(err))
		}
	} else {
		m.log.Info("edit committed",
			zap.String("player", string(s.Player)),
			zap.Bool("cleared", clearing),
			zap.Int64("volume", rec.Volume),
			zap.String("min", box.Min.String()),
			zap.String("max", box.Max.String()))
	}
	m.finish(s, rec)
}

func (m *Manager) cancel(s *Session, reason string) {
	m.log.Debug("edit cancelled", zap.String("player", string(s.Player)), zap.String("reason", reason))
	m.finish(s, m.record(s, OutcomeCancelled, reason))
}

// finish is the single exit of a session.
func (m *Manager) finish(s *Session, rec Record) {
	m.revoke(s)
	m.remove(s)
	m.rec.Record(rec)
}

func (m *Manager) record(s *Session, o Outcome, reason string) Record {
	r := Record{
		ID:         s.ID.String(),
		Player:     string(s.Player),
		Dimension:  string(s.Dimension),
		Activation: s.Activation.Name(),
		Outcome:    o,
		Reason:     reason,
		Mode:       s.Mode.String(),
		Ticks:      m.tick - s.Created,
		Time:       m.now(),
	}
	if o != OutcomeCancelled {
		r.Material = s.Material.Key()
	}
	return r
}
