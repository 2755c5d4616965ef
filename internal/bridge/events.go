package bridge

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/resizer/internal/host"
	"github.com/Faultbox/resizer/internal/protocol"
	"github.com/Faultbox/resizer/internal/session"
)

// ToEvent converts one wire event into a session event.
func ToEvent(e protocol.Event) (session.Event, error) {
	p := host.PlayerID(e.Player)
	if p == "" {
		return nil, fmt.Errorf("%s event without player", e.Kind)
	}
	switch e.Kind {
	case protocol.EventBlockPlaced:
		if e.Block == nil {
			return nil, fmt.Errorf("%s event without block", e.Kind)
		}
		ev := session.BlockPlaced{PlayerID: p, Dimension: host.Dimension(e.Dimension), Block: vec3i(*e.Block)}
		if e.Material != nil {
			ev.Material = material(*e.Material)
		}
		return ev, nil
	case protocol.EventItemStartUse:
		return session.ItemStartUse{PlayerID: p, Item: e.Item}, nil
	case protocol.EventItemReleaseUse:
		return session.ItemReleaseUse{PlayerID: p, Item: e.Item}, nil
	case protocol.EventSlotChanged:
		ev := session.SlotChanged{PlayerID: p}
		if e.Slot != nil {
			ev.Slot = *e.Slot
		}
		return ev, nil
	case protocol.EventPlayerLeft:
		return session.PlayerLeft{PlayerID: p}, nil
	case protocol.EventPlayerSpawned:
		return session.PlayerSpawned{PlayerID: p}, nil
	case protocol.EventDimensionChanged:
		return session.DimensionChanged{PlayerID: p, From: host.Dimension(e.From), To: host.Dimension(e.To)}, nil
	case protocol.EventButtonInput:
		return session.ButtonInput{
			PlayerID: p,
			Button:   e.Button,
			State:    session.ButtonState(e.State),
			Platform: e.Platform,
			Flying:   e.Flying,
			Sneaking: e.Sneaking,
		}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

// Events converts an EVENT message, keeping the snapshot in step with what
// the events report. Events that cannot be converted are logged and skipped.
func (r *RemoteHost) Events(msg protocol.EventMsg) []session.Event {
	out := make([]session.Event, 0, len(msg.Events))
	for _, e := range msg.Events {
		ev, err := ToEvent(e)
		if err != nil {
			r.log.Warn("event skipped", zap.String("kind", e.Kind), zap.Error(err))
			continue
		}
		r.observe(ev)
		out = append(out, ev)
	}
	return out
}

func (r *RemoteHost) observe(ev session.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch e := ev.(type) {
	case session.BlockPlaced:
		if e.Material.ID != "" {
			r.cache(e.Dimension, e.Block, e.Material)
		}
	case session.PlayerLeft:
		delete(r.players, e.PlayerID)
	case session.DimensionChanged:
		if p, ok := r.players[e.PlayerID]; ok {
			p.dim = e.To
			p.hit = nil
		}
	case session.SlotChanged:
		if p, ok := r.players[e.PlayerID]; ok && e.Slot >= 0 && e.Slot < hotbarSize {
			p.slot = e.Slot
		}
	}
}
