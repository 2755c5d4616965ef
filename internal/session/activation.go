package session

import (
	"go.uber.org/zap"

	"github.com/Faultbox/resizer/internal/geometry"
)

// Activation decides how a session reaches the editing state.
type Activation interface {
	Name() string
	// CanBegin reports whether a tool use may start editing s.
	CanBegin(s *Session) bool
	// Watch runs on highlight ticks while s is not editing.
	Watch(m *Manager, s *Session)
}

// Direct starts editing as soon as the tool is used on a block. The player
// holds the tool themselves, so nothing is granted.
type Direct struct{}

func (Direct) Name() string { return "direct" }

func (Direct) CanBegin(s *Session) bool { return s.Mode != ModeEditing }

func (Direct) Watch(*Manager, *Session) {}

// HighlightGated grants the tool while the player aims at a corner region of
// the block they just placed, and only then lets a tool use start editing.
type HighlightGated struct {
	Band geometry.Band
}

func (HighlightGated) Name() string { return "highlight" }

func (HighlightGated) CanBegin(s *Session) bool {
	return s.Mode == ModeHighlighting && s.Grant != nil
}

func (h HighlightGated) Watch(m *Manager, s *Session) {
	hit, ok, err := m.host.BlockFromView(s.Player)
	if err != nil {
		m.log.Debug("highlight raycast failed", zap.String("player", string(s.Player)), zap.Error(err))
		return
	}
	onAnchor := ok && hit.Block == s.Anchor
	if onAnchor {
		s.LastSeen = m.tick
	}
	if !onAnchor || !h.Band.QualifyingCorner(hit.Face, hit.FaceLocation) {
		m.revoke(s)
		s.Mode = ModeIdle
		return
	}

	if s.Grant == nil {
		if err := m.grant(s); err != nil {
			m.log.Debug("tool grant failed", zap.String("player", string(s.Player)), zap.Error(err))
			return
		}
	}
	s.Mode = ModeHighlighting
	m.renderHighlight(s)
}
