package session

import (
	"github.com/Faultbox/resizer/internal/host"
	"github.com/Faultbox/resizer/pkg/math"
)

// Event is an input delivered by the host for one player.
type Event interface {
	Player() host.PlayerID
}

// BlockPlaced is sent after a player places a block. An empty Material is
// read back from the world.
type BlockPlaced struct {
	PlayerID  host.PlayerID
	Dimension host.Dimension
	Block     math.Vec3i
	Material  host.Material
}

// ItemStartUse is sent when a player starts using an item.
type ItemStartUse struct {
	PlayerID host.PlayerID
	Item     string
}

// ItemReleaseUse is sent when a player stops using an item.
type ItemReleaseUse struct {
	PlayerID host.PlayerID
	Item     string
}

// SlotChanged is sent when a player selects another hotbar slot.
type SlotChanged struct {
	PlayerID host.PlayerID
	Slot     int
}

// PlayerLeft is sent when a player disconnects.
type PlayerLeft struct {
	PlayerID host.PlayerID
}

// PlayerSpawned is sent when a player spawns or respawns.
type PlayerSpawned struct {
	PlayerID host.PlayerID
}

// DimensionChanged is sent when a player moves to another dimension.
type DimensionChanged struct {
	PlayerID host.PlayerID
	From, To host.Dimension
}

// ButtonState is the new state of an input button.
type ButtonState string

const (
	ButtonPressed  ButtonState = "Pressed"
	ButtonReleased ButtonState = "Released"
)

// ButtonSneak is the button that toggles the clear modifier.
const ButtonSneak = "Sneak"

// PlatformDesktop is the platform whose sneak button is tracked directly.
const PlatformDesktop = "Desktop"

// ButtonInput is sent when a player presses or releases a button. Flying and
// Sneaking describe the player at the time of the input.
type ButtonInput struct {
	PlayerID host.PlayerID
	Button   string
	State    ButtonState
	Platform string
	Flying   bool
	Sneaking bool
}

func (e BlockPlaced) Player() host.PlayerID      { return e.PlayerID }
func (e ItemStartUse) Player() host.PlayerID     { return e.PlayerID }
func (e ItemReleaseUse) Player() host.PlayerID   { return e.PlayerID }
func (e SlotChanged) Player() host.PlayerID      { return e.PlayerID }
func (e PlayerLeft) Player() host.PlayerID       { return e.PlayerID }
func (e PlayerSpawned) Player() host.PlayerID    { return e.PlayerID }
func (e DimensionChanged) Player() host.PlayerID { return e.PlayerID }
func (e ButtonInput) Player() host.PlayerID      { return e.PlayerID }
