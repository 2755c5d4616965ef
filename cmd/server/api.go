package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Faultbox/resizer/internal/game"
	"github.com/Faultbox/resizer/internal/session"
)

const (
	defaultEditLimit = 20
	maxEditLimit     = 500
)

// editIndex is the read side of the audit index.
type editIndex interface {
	Recent(ctx context.Context, limit int) ([]session.Record, error)
	RecentByPlayer(ctx context.Context, player string, limit int) ([]session.Record, error)
	CommittedVolume(ctx context.Context) (int64, error)
}

type api struct {
	loop  *game.Loop
	host  interface{ Attached() bool }
	edits editIndex // nil when the audit index is disabled
	now   func() time.Time
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/v1/sessions", a.handleSessions)
	mux.HandleFunc("/v1/edits", a.handleEdits)
}

type healthResponse struct {
	Status       string `json:"status"`
	HostAttached bool   `json:"host_attached"`
	Ticks        uint64 `json:"ticks"`
	Sessions     int    `json:"sessions"`
	Events       uint64 `json:"events"`
	Dropped      uint64 `json:"dropped_events"`
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := a.loop.Stats()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		HostAttached: a.host.Attached(),
		Ticks:        st.Ticks,
		Sessions:     st.Sessions,
		Events:       st.Events,
		Dropped:      st.Dropped,
	})
}

type sessionView struct {
	ID         string `json:"id"`
	Player     string `json:"player"`
	Dimension  string `json:"dimension"`
	Activation string `json:"activation"`
	Mode       string `json:"mode"`
	Anchor     [3]int `json:"anchor"`
	Material   string `json:"material"`
	Face       string `json:"face,omitempty"`
	AgeTicks   uint64 `json:"age_ticks"`
}

func (a *api) handleSessions(w http.ResponseWriter, r *http.Request) {
	var out []sessionView
	err := a.loop.Do(r.Context(), func(m *session.Manager) {
		now := m.Ticks()
		for _, s := range m.All() {
			v := sessionView{
				ID:         s.ID.String(),
				Player:     string(s.Player),
				Dimension:  string(s.Dimension),
				Activation: s.Activation.Name(),
				Mode:       s.Mode.String(),
				Anchor:     [3]int{s.Anchor.X, s.Anchor.Y, s.Anchor.Z},
				Material:   s.Material.ID,
				AgeTicks:   now - s.Created,
			}
			if s.Mode == session.ModeEditing {
				v.Face = s.Face.String()
			}
			out = append(out, v)
		}
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if out == nil {
		out = []sessionView{}
	}
	writeJSON(w, http.StatusOK, out)
}

type editView struct {
	session.Record
	VolumeText string `json:"volume_text,omitempty"`
	Ago        string `json:"ago"`
}

type editsResponse struct {
	Edits           []editView `json:"edits"`
	CommittedVolume string     `json:"committed_volume"`
}

func (a *api) handleEdits(w http.ResponseWriter, r *http.Request) {
	if a.edits == nil {
		writeError(w, http.StatusNotFound, "audit index disabled")
		return
	}
	limit := defaultEditLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxEditLimit)
	}

	var (
		recs []session.Record
		err  error
	)
	if p := r.URL.Query().Get("player"); p != "" {
		recs, err = a.edits.RecentByPlayer(r.Context(), p, limit)
	} else {
		recs, err = a.edits.Recent(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := a.edits.CommittedVolume(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := time.Now
	if a.now != nil {
		now = a.now
	}
	resp := editsResponse{
		Edits:           make([]editView, 0, len(recs)),
		CommittedVolume: humanize.Comma(total),
	}
	for _, rec := range recs {
		v := editView{Record: rec, Ago: humanize.RelTime(rec.Time, now(), "ago", "from now")}
		if rec.Volume > 0 {
			v.VolumeText = humanize.Comma(rec.Volume) + " blocks"
		}
		resp.Edits = append(resp.Edits, v)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
