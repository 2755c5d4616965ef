package session

import "github.com/Faultbox/resizer/internal/host"

// modifiers tracks which players hold the clear modifier.
//
// On desktop the sneak button is followed directly. Elsewhere the button is
// only followed while flying, since sneaking there is a toggle; on the ground
// the player's sneaking flag is mirrored on any input.
type modifiers map[host.PlayerID]bool

func (m modifiers) apply(e ButtonInput) {
	if e.Platform == PlatformDesktop || e.Flying {
		if e.Button != ButtonSneak {
			return
		}
		switch e.State {
		case ButtonPressed:
			m[e.PlayerID] = true
		case ButtonReleased:
			m[e.PlayerID] = false
		}
		return
	}
	m[e.PlayerID] = e.Sneaking
}
