package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Faultbox/resizer/internal/game"
	"github.com/Faultbox/resizer/internal/host"
	"github.com/Faultbox/resizer/internal/host/memhost"
	"github.com/Faultbox/resizer/internal/session"
	"github.com/Faultbox/resizer/pkg/math"
)

type fakeIndex struct {
	recs   []session.Record
	volume int64
	err    error

	gotPlayer string
	gotLimit  int
}

func (f *fakeIndex) Recent(_ context.Context, limit int) ([]session.Record, error) {
	f.gotLimit = limit
	return f.recs, f.err
}

func (f *fakeIndex) RecentByPlayer(_ context.Context, player string, limit int) ([]session.Record, error) {
	f.gotPlayer, f.gotLimit = player, limit
	return f.recs, f.err
}

func (f *fakeIndex) CommittedVolume(context.Context) (int64, error) { return f.volume, f.err }

type attached bool

func (a attached) Attached() bool { return bool(a) }

func newAPI(t *testing.T, edits editIndex) (*api, *httptest.Server) {
	t.Helper()
	w := memhost.New(memhost.DefaultOptions())
	w.AddPlayer("p1", "overworld", math.Vec3{X: 14, Y: 67, Z: 14})
	if err := w.SetMaterial("overworld", math.Vec3i{X: 10, Y: 64, Z: 10}, host.Material{ID: "minecraft:stone"}); err != nil {
		t.Fatal(err)
	}
	mgr := session.NewManager(w, session.DefaultOptions(), nil, nil)
	loop := game.New(mgr, game.Config{Interval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errc
	})

	a := &api{loop: loop, host: attached(true), edits: edits}
	mux := http.NewServeMux()
	a.register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return a, srv
}

func getJSON(t *testing.T, url string, wantStatus int, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: status %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

func TestHealth(t *testing.T) {
	_, srv := newAPI(t, nil)
	var h healthResponse
	getJSON(t, srv.URL+"/healthz", http.StatusOK, &h)
	if h.Status != "ok" || !h.HostAttached {
		t.Errorf("health = %+v", h)
	}
}

func TestSessions(t *testing.T) {
	a, srv := newAPI(t, nil)

	var views []sessionView
	getJSON(t, srv.URL+"/v1/sessions", http.StatusOK, &views)
	if len(views) != 0 {
		t.Fatalf("sessions = %+v, want none", views)
	}

	ev := session.BlockPlaced{PlayerID: "p1", Dimension: "overworld", Block: math.Vec3i{X: 10, Y: 64, Z: 10}}
	if err := a.loop.Post(ev); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(views) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("session never appeared")
		}
		getJSON(t, srv.URL+"/v1/sessions", http.StatusOK, &views)
	}
	v := views[0]
	if v.Player != "p1" || v.Mode != "idle" || v.Activation != "highlight" ||
		v.Anchor != [3]int{10, 64, 10} || v.Material != "minecraft:stone" || v.Face != "" {
		t.Errorf("session = %+v", v)
	}
}

func TestEditsDisabled(t *testing.T) {
	_, srv := newAPI(t, nil)
	getJSON(t, srv.URL+"/v1/edits", http.StatusNotFound, nil)
}

func TestEdits(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	idx := &fakeIndex{
		recs: []session.Record{
			{ID: "a", Player: "p1", Outcome: session.OutcomeCommitted, Volume: 1500, Time: now.Add(-3 * time.Minute)},
			{ID: "b", Player: "p1", Outcome: session.OutcomeCancelled, Time: now.Add(-time.Hour)},
		},
		volume: 1234567,
	}
	a, srv := newAPI(t, idx)
	a.now = func() time.Time { return now }

	var resp editsResponse
	getJSON(t, srv.URL+"/v1/edits?player=p1&limit=5", http.StatusOK, &resp)
	if idx.gotPlayer != "p1" || idx.gotLimit != 5 {
		t.Errorf("query player=%q limit=%d", idx.gotPlayer, idx.gotLimit)
	}
	if resp.CommittedVolume != "1,234,567" {
		t.Errorf("committed volume = %q", resp.CommittedVolume)
	}
	if len(resp.Edits) != 2 {
		t.Fatalf("edits = %+v", resp.Edits)
	}
	if e := resp.Edits[0]; e.ID != "a" || e.VolumeText != "1,500 blocks" || e.Ago != "3 minutes ago" {
		t.Errorf("edit a = %+v", e)
	}
	if e := resp.Edits[1]; e.VolumeText != "" || e.Ago != "1 hour ago" {
		t.Errorf("edit b = %+v", e)
	}

	getJSON(t, srv.URL+"/v1/edits?limit=100000", http.StatusOK, &resp)
	if idx.gotLimit != maxEditLimit {
		t.Errorf("limit = %d, want clamp to %d", idx.gotLimit, maxEditLimit)
	}
}

func TestEditsErrors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
	}{
		{"bad limit", "?limit=abc", nil, http.StatusBadRequest},
		{"zero limit", "?limit=0", nil, http.StatusBadRequest},
		{"index failure", "", errors.New("disk gone"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newAPI(t, &fakeIndex{err: tt.err})
			getJSON(t, srv.URL+"/v1/edits"+tt.query, tt.status, nil)
		})
	}
}
