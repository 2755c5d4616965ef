package protocol

// HelloMsg is the first message a host sends after connecting.
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	HostID          string            `json:"host_id"`
	HostVersion     string            `json:"host_version,omitempty"`
	Capabilities    HelloCapabilities `json:"capabilities"`
}

type HelloCapabilities struct {
	BulkFill bool `json:"bulk_fill,omitempty"`
}

// WelcomeMsg answers a valid HELLO.
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ServerVersion   string     `json:"server_version"`
	TickRateHz      int        `json:"tick_rate_hz"`
	ToolItem        string     `json:"tool_item"`
	CornerBand      [2]float64 `json:"corner_band"`
}

// StateMsg carries a snapshot of every player the host knows about. Players
// missing from the list have left.
type StateMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Tick            uint64        `json:"tick,omitempty"`
	Players         []PlayerState `json:"players"`
}

type PlayerState struct {
	ID           string     `json:"id"`
	Dimension    string     `json:"dimension"`
	Head         [3]float64 `json:"head"`
	View         [3]float64 `json:"view"`
	SelectedSlot int        `json:"selected_slot"`
	Hotbar       []Item     `json:"hotbar,omitempty"`
	Hit          *Hit       `json:"hit,omitempty"`
}

// Hit is the block a player looks at.
type Hit struct {
	Block        [3]int     `json:"block"`
	Face         string     `json:"face"`
	FaceLocation [3]float64 `json:"face_location"`
	Material     *Material  `json:"material,omitempty"`
}

type Material struct {
	ID     string            `json:"id"`
	States map[string]string `json:"states,omitempty"`
}

type Item struct {
	ID    string `json:"id,omitempty"`
	Count int    `json:"count,omitempty"`
}

// Event kinds.
const (
	EventBlockPlaced      = "block_placed"
	EventItemStartUse     = "item_start_use"
	EventItemReleaseUse   = "item_release_use"
	EventSlotChanged      = "slot_changed"
	EventPlayerLeft       = "player_left"
	EventPlayerSpawned    = "player_spawned"
	EventDimensionChanged = "dimension_changed"
	EventButtonInput      = "button_input"
)

// EventMsg carries host events in the order they happened.
type EventMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Events          []Event `json:"events"`
}

// Event is one host event. Kind selects which optional fields are set.
type Event struct {
	Kind      string    `json:"kind"`
	Player    string    `json:"player"`
	Dimension string    `json:"dimension,omitempty"`
	Block     *[3]int   `json:"block,omitempty"`
	Material  *Material `json:"material,omitempty"`
	Item      string    `json:"item,omitempty"`
	Slot      *int      `json:"slot,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Button    string    `json:"button,omitempty"`
	State     string    `json:"state,omitempty"`
	Platform  string    `json:"platform,omitempty"`
	Flying    bool      `json:"flying,omitempty"`
	Sneaking  bool      `json:"sneaking,omitempty"`
}

// Command ops.
const (
	OpFill      = "fill"
	OpClear     = "clear"
	OpSetBlock  = "set_block"
	OpSetItem   = "set_item"
	OpParticle  = "particle"
	OpActionBar = "action_bar"
)

// CommandsMsg is one tick's worth of world changes for the host to apply in
// order.
type CommandsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	BatchID         uint64 `json:"batch_id"`
	Tick            uint64 `json:"tick"`
	Ops             []Op   `json:"ops"`
}

// Op is one command. Box ops use a half-open [min, max) range.
type Op struct {
	Op        string      `json:"op"`
	Dimension string      `json:"dimension,omitempty"`
	Player    string      `json:"player,omitempty"`
	At        *[3]int     `json:"at,omitempty"`
	Min       *[3]int     `json:"min,omitempty"`
	Max       *[3]int     `json:"max,omitempty"`
	Material  *Material   `json:"material,omitempty"`
	Slot      *int        `json:"slot,omitempty"`
	Item      *Item       `json:"item,omitempty"`
	Particle  string      `json:"particle,omitempty"`
	Pos       *[3]float64 `json:"pos,omitempty"`
	Vars      *Vars       `json:"vars,omitempty"`
	Text      string      `json:"text,omitempty"`
}

type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

type Vars struct {
	Floats map[string]float64 `json:"floats,omitempty"`
	Colors map[string]Color   `json:"colors,omitempty"`
}

// AckMsg reports how a COMMANDS batch was applied.
type AckMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	BatchID         uint64     `json:"batch_id"`
	Failed          []OpResult `json:"failed,omitempty"`
}

type OpResult struct {
	Index   int    `json:"index"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// ErrorMsg is sent before the server closes a misbehaving connection.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewError builds an ERROR message.
func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, Code: code, Message: message}
}
