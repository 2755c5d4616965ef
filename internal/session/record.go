package session

import (
	"time"

	"github.com/Faultbox/resizer/internal/geometry"
)

// Outcome is how a session ended.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeRejected  Outcome = "rejected" // commit attempted, nothing written
	OutcomeCancelled Outcome = "cancelled"
)

// Cancel reasons.
const (
	ReasonCommit           = "commit"
	ReasonSlotChanged      = "slot_changed"
	ReasonPlayerLeft       = "player_left"
	ReasonRespawned        = "respawned"
	ReasonDimensionChanged = "dimension_changed"
	ReasonReplaced         = "replaced"
	ReasonIdle             = "idle"
	ReasonShutdown         = "shutdown"
)

// Record describes one finished session.
type Record struct {
	ID         string    `json:"id"`
	Player     string    `json:"player"`
	Dimension  string    `json:"dimension"`
	Activation string    `json:"activation"`
	Outcome    Outcome   `json:"outcome"`
	Reason     string    `json:"reason"`
	Mode       string    `json:"mode"` // mode the session ended from
	Material   string    `json:"material,omitempty"`
	Cleared    bool      `json:"cleared,omitempty"`
	Min        [3]int    `json:"min,omitempty"`
	Max        [3]int    `json:"max,omitempty"`
	Volume     int64     `json:"volume,omitempty"`
	Error      string    `json:"error,omitempty"`
	Ticks      uint64    `json:"ticks"`
	Time       time.Time `json:"time"`
}

// SetBox fills the box fields.
func (r *Record) SetBox(b geometry.Box) {
	r.Min = [3]int{b.Min.X, b.Min.Y, b.Min.Z}
	r.Max = [3]int{b.Max.X, b.Max.Y, b.Max.Z}
	r.Volume = b.Volume()
}

// Recorder receives finished sessions. Record must not block the tick.
type Recorder interface {
	Record(r Record)
}

// Recorders fans a record out to several recorders.
type Recorders []Recorder

func (rs Recorders) Record(r Record) {
	for _, rec := range rs {
		rec.Record(r)
	}
}

type nopRecorder struct{}

func (nopRecorder) Record(Record) {}
