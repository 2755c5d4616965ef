package session

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/Faultbox/resizer/internal/config"
	"github.com/Faultbox/resizer/internal/geometry"
	"github.com/Faultbox/resizer/internal/host"
	"github.com/Faultbox/resizer/internal/host/memhost"
	"github.com/Faultbox/resizer/pkg/math"
)

const (
	player host.PlayerID  = "p1"
	dim    host.Dimension = "overworld"
	tool                  = "qsc:resizer"
)

var (
	stone  = host.Material{ID: "minecraft:stone"}
	dirt   = host.Item{ID: "minecraft:dirt", Count: 12}
	anchor = math.Vec3i{X: 10, Y: 64, Z: 10}

	// Aim points on the anchor's top face.
	topCorner = math.Vec3{X: 10.1, Y: 65, Z: 10.1}
	topCenter = math.Vec3{X: 10.5, Y: 65, Z: 10.5}

	// Drag target producing the box x:[10,12) y:[65,66) z:[10,12).
	dragTo  = math.Vec3{X: 12, Y: 65, Z: 12}
	dragBox = geometry.Box{Min: math.Vec3i{X: 10, Y: 65, Z: 10}, Max: math.Vec3i{X: 12, Y: 66, Z: 12}}
)

// countingHost counts inventory writes on top of the in-memory world.
type countingHost struct {
	*memhost.World
	setItems int
}

func (c *countingHost) SetItem(p host.PlayerID, slot int, it host.Item) error {
	c.setItems++
	return c.World.SetItem(p, slot, it)
}

type memRecorder struct {
	records []Record
}

func (r *memRecorder) Record(rec Record) { r.records = append(r.records, rec) }

type fixture struct {
	t     *testing.T
	world *memhost.World
	host  *countingHost
	m     *Manager
	rec   *memRecorder
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	w := memhost.New(memhost.DefaultOptions())
	w.AddPlayer(player, dim, math.Vec3{X: 14, Y: 67, Z: 14})
	if err := w.SetItem(player, 0, dirt); err != nil {
		t.Fatal(err)
	}
	if err := w.SetMaterial(dim, anchor, stone); err != nil {
		t.Fatal(err)
	}
	opts := DefaultOptions()
	opts.IdleTimeout = 0
	if mutate != nil {
		mutate(&opts)
	}
	h := &countingHost{World: w}
	rec := &memRecorder{}
	return &fixture{t: t, world: w, host: h, m: NewManager(h, opts, nil, rec), rec: rec}
}

func (f *fixture) look(target math.Vec3) {
	f.t.Helper()
	if err := f.world.LookAt(player, target); err != nil {
		f.t.Fatal(err)
	}
}

func (f *fixture) tick(n int) {
	for i := 0; i < n; i++ {
		f.m.Tick()
	}
}

func (f *fixture) slot0() host.Item {
	f.t.Helper()
	it, err := f.world.Item(player, 0)
	if err != nil {
		f.t.Fatal(err)
	}
	return it
}

// highlight places the anchor and aims at a qualifying corner until the tool
// is granted.
func (f *fixture) highlight() *Session {
	f.t.Helper()
	f.m.Handle(BlockPlaced{PlayerID: player, Dimension: dim, Block: anchor})
	f.look(topCorner)
	f.tick(2)
	s := f.m.Get(player)
	if s == nil || s.Mode != ModeHighlighting || s.Grant == nil {
		f.t.Fatalf("expected highlighting session with grant, got %+v", s)
	}
	return s
}

func (f *fixture) drag() *Session {
	f.t.Helper()
	s := f.highlight()
	f.m.Handle(ItemStartUse{PlayerID: player, Item: tool})
	if s.Mode != ModeEditing {
		f.t.Fatalf("expected editing, got %v", s.Mode)
	}
	f.look(dragTo)
	return s
}

func nearVec(a, b math.Vec3) bool {
	return gomath.Abs(a.X-b.X) < 1e-9 && gomath.Abs(a.Y-b.Y) < 1e-9 && gomath.Abs(a.Z-b.Z) < 1e-9
}

func TestEndToEndFill(t *testing.T) {
	f := newFixture(t, nil)

	// Place and aim at the top face corner: the tool is granted.
	s := f.highlight()
	if got := f.slot0(); got.ID != tool {
		t.Fatalf("slot 0 holds %+v, want the tool", got)
	}
	if s.Grant.Prior != dirt || s.Grant.Slot != 0 {
		t.Errorf("grant = %+v", s.Grant)
	}

	// Start the drag on the Up face.
	f.m.Handle(ItemStartUse{PlayerID: player, Item: tool})
	if s.Mode != ModeEditing {
		t.Fatalf("mode = %v, want editing", s.Mode)
	}
	if s.Axis() != math.AxisY || s.Face != geometry.FaceUp {
		t.Errorf("face %v axis %v, want Up y", s.Face, s.Axis())
	}
	if !nearVec(s.EditOrigin, topCorner) {
		t.Errorf("edit origin = %v, want %v", s.EditOrigin, topCorner)
	}

	// Drag the view.
	f.look(dragTo)
	p, err := s.Pointer(f.world)
	if err != nil {
		t.Fatalf("Pointer: %v", err)
	}
	if !nearVec(p, dragTo) {
		t.Errorf("pointer = %v, want %v", p, dragTo)
	}
	f.world.Spawns()
	f.tick(1)
	if got := f.world.LastActionBar(player); got != "§l2 1 2" {
		t.Errorf("action bar = %q", got)
	}

	// Release without sneaking.
	f.m.Handle(ItemReleaseUse{PlayerID: player, Item: tool})
	if n := f.world.Count(dim, dragBox); n != 4 {
		t.Errorf("filled %d cells, want 4", n)
	}
	for _, c := range []math.Vec3i{{X: 10, Y: 65, Z: 10}, {X: 11, Y: 65, Z: 11}} {
		if m, _ := f.world.Material(dim, c); !m.Equal(stone) {
			t.Errorf("cell %v = %v, want stone", c, m)
		}
	}
	if m, _ := f.world.Material(dim, math.Vec3i{X: 12, Y: 65, Z: 12}); !m.IsAir() {
		t.Errorf("cell beyond the box was written: %v", m)
	}
	if f.m.Get(player) != nil {
		t.Error("session not removed after commit")
	}
	if got := f.slot0(); got != dirt {
		t.Errorf("slot 0 = %+v, want %+v restored", got, dirt)
	}
	if f.host.setItems != 2 {
		t.Errorf("inventory written %d times, want grant + restore", f.host.setItems)
	}

	if len(f.rec.records) != 1 {
		t.Fatalf("records = %d, want 1", len(f.rec.records))
	}
	r := f.rec.records[0]
	if r.Outcome != OutcomeCommitted || r.Volume != 4 || r.Cleared || r.Material != "minecraft:stone" {
		t.Errorf("record = %+v", r)
	}
	if r.Min != [3]int{10, 65, 10} || r.Max != [3]int{12, 66, 12} {
		t.Errorf("record box = %v %v", r.Min, r.Max)
	}
	if r.ID != s.ID.String() || r.Activation != "highlight" {
		t.Errorf("record identity = %s %s", r.ID, r.Activation)
	}
}

func TestEndToEndClearWhileSneaking(t *testing.T) {
	f := newFixture(t, nil)
	f.drag()
	// Filled after aiming so the view ray still reaches the anchor.
	if err := f.world.Fill(dim, dragBox, stone); err != nil {
		t.Fatal(err)
	}
	f.m.Handle(ButtonInput{PlayerID: player, Button: ButtonSneak, State: ButtonPressed, Platform: PlatformDesktop})

	f.world.Spawns()
	for f.m.Ticks()%4 != 3 {
		f.tick(1)
	}
	f.world.Spawns()
	f.tick(1) // volume preview tick
	tinted := 0
	for _, sp := range f.world.Spawns() {
		if c, ok := sp.Vars.Colors["color"]; ok {
			if c != ClearTint {
				t.Errorf("preview color = %+v, want clear tint", c)
			}
			tinted++
		}
	}
	if tinted != 6 {
		t.Errorf("volume faces = %d, want 6", tinted)
	}

	f.m.Handle(ItemReleaseUse{PlayerID: player, Item: tool})
	if n := f.world.Count(dim, dragBox); n != 0 {
		t.Errorf("%d cells left after clear", n)
	}
	if len(f.rec.records) != 1 || !f.rec.records[0].Cleared {
		t.Errorf("records = %+v", f.rec.records)
	}
}

func TestEditPreviewCadence(t *testing.T) {
	f := newFixture(t, nil)
	f.drag()
	f.world.Spawns()

	for i := 0; i < 8; i++ {
		f.tick(1)
		lines, faces := 0, 0
		for _, sp := range f.world.Spawns() {
			if sp.ID == "qsc:line" {
				lines++
			} else {
				faces++
			}
		}
		if lines != 12 {
			t.Errorf("tick %d: %d lines, want 12", f.m.Ticks(), lines)
		}
		wantFaces := 0
		if f.m.Ticks()%4 == 0 {
			wantFaces = 6
		}
		if faces != wantFaces {
			t.Errorf("tick %d: %d faces, want %d", f.m.Ticks(), faces, wantFaces)
		}
	}
}

func TestCommitOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		look   math.Vec3
	}{
		{"volume limit", func(o *Options) { o.MaxFillVolume = 3 }, dragTo},
		{"above world", func(o *Options) { o.MaxY = 65 }, dragTo},
		{"parallel view", nil, math.Vec3{X: 30, Y: 67 + geometry.EyeOffset.Y, Z: 14}},
		{"far pointer", nil, math.Vec3{X: 1e8, Y: 65, Z: 1e8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.mutate)
			f.drag()
			f.look(tt.look)
			before := f.world.Writes()

			f.m.Handle(ItemReleaseUse{PlayerID: player, Item: tool})

			if f.world.Writes() != before {
				t.Error("rejected commit wrote blocks")
			}
			if got := f.world.LastActionBar(player); got != OutOfRangeMessage {
				t.Errorf("action bar = %q, want out of range", got)
			}
			if f.m.Get(player) != nil {
				t.Error("session survived a failed commit")
			}
			if got := f.slot0(); got != dirt {
				t.Errorf("slot 0 = %+v, want restored", got)
			}
			if len(f.rec.records) != 1 || f.rec.records[0].Outcome != OutcomeRejected || f.rec.records[0].Error == "" {
				t.Errorf("records = %+v", f.rec.records)
			}
		})
	}
}

func TestCheckBoxRejectsOverflowingVolume(t *testing.T) {
	f := newFixture(t, nil)
	b, err := geometry.Span(
		math.Vec3{X: -(1 << 30), Y: 64, Z: -(1 << 30)},
		math.Vec3{X: 1<<30 - 1, Y: 66, Z: 1<<30 - 1},
		math.AxisY)
	if err != nil {
		t.Fatalf("Span: %v", err)
	}
	if err := f.m.checkBox(b); !errors.Is(err, host.ErrOutOfRange) {
		t.Errorf("checkBox = %v, want ErrOutOfRange", err)
	}
	if err := f.world.Fill(dim, b, stone); !errors.Is(err, host.ErrOutOfRange) {
		t.Errorf("memhost Fill = %v, want ErrOutOfRange", err)
	}
}

func TestCancelPaths(t *testing.T) {
	tests := []struct {
		name   string
		ev     Event
		reason string
	}{
		{"slot change", SlotChanged{PlayerID: player, Slot: 3}, ReasonSlotChanged},
		{"disconnect", PlayerLeft{PlayerID: player}, ReasonPlayerLeft},
		{"respawn", PlayerSpawned{PlayerID: player}, ReasonRespawned},
		{"dimension", DimensionChanged{PlayerID: player, From: dim, To: "nether"}, ReasonDimensionChanged},
	}
	for _, tt := range tests {
		for _, editing := range []bool{false, true} {
			name := tt.name + "/highlighting"
			if editing {
				name = tt.name + "/editing"
			}
			t.Run(name, func(t *testing.T) {
				f := newFixture(t, nil)
				if editing {
					f.drag()
				} else {
					f.highlight()
				}
				before := f.world.Writes()

				f.m.Handle(tt.ev)
				f.m.Handle(tt.ev)

				if f.m.Get(player) != nil {
					t.Fatal("session not removed")
				}
				if got := f.slot0(); got != dirt {
					t.Errorf("slot 0 = %+v, want restored", got)
				}
				if f.host.setItems != 2 {
					t.Errorf("inventory written %d times, want grant + one restore", f.host.setItems)
				}
				if len(f.rec.records) != 1 {
					t.Fatalf("records = %d, want 1", len(f.rec.records))
				}
				if r := f.rec.records[0]; r.Outcome != OutcomeCancelled || r.Reason != tt.reason {
					t.Errorf("record = %+v", r)
				}
				if f.world.Writes() != before {
					t.Error("cancel wrote blocks")
				}
			})
		}
	}
}

func TestNoOpTransitions(t *testing.T) {
	f := newFixture(t, nil)
	f.m.Handle(BlockPlaced{PlayerID: player, Dimension: dim, Block: anchor})
	s := f.m.Get(player)

	// Release while not editing.
	f.m.Handle(ItemReleaseUse{PlayerID: player, Item: tool})
	if f.m.Get(player) != s || s.Mode != ModeIdle {
		t.Fatal("release outside editing changed the session")
	}

	// Start while editing keeps the first origin.
	f.look(topCorner)
	f.tick(2)
	f.m.Handle(ItemStartUse{PlayerID: player, Item: tool})
	origin := s.EditOrigin
	f.look(math.Vec3{X: 10.9, Y: 65, Z: 10.9})
	f.m.Handle(ItemStartUse{PlayerID: player, Item: tool})
	if s.EditOrigin != origin || f.m.Get(player) != s {
		t.Error("second start use restarted the edit")
	}

	// Other items are ignored.
	f.m.Handle(ItemReleaseUse{PlayerID: player, Item: "minecraft:bow"})
	if f.m.Get(player) == nil {
		t.Error("release of another item committed")
	}

	// Cancelling an absent session is harmless.
	f.m.Handle(SlotChanged{PlayerID: "nobody"})
	if f.m.Cancel("nobody", ReasonShutdown) {
		t.Error("Cancel reported a session for an unknown player")
	}
}

func TestHighlightGrantAndRevoke(t *testing.T) {
	f := newFixture(t, nil)
	s := f.highlight()

	// Looking at the face center revokes.
	f.look(topCenter)
	f.tick(2)
	if s.Mode != ModeIdle || s.Grant != nil {
		t.Errorf("center: mode %v grant %+v", s.Mode, s.Grant)
	}
	if got := f.slot0(); got != dirt {
		t.Errorf("slot 0 = %+v after revoke", got)
	}

	// Without the grant a tool use cannot begin the highlight edit. With both
	// policies enabled it starts a direct edit instead.
	f.m.Handle(ItemStartUse{PlayerID: player, Item: tool})
	if got := f.m.Get(player); got == nil || got == s || got.Activation.Name() != "direct" {
		t.Errorf("expected a direct session to replace the idle one, got %+v", got)
	}
}

func TestHighlightOnlyPolicy(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Activation = config.ActivationHighlight })
	f.m.Handle(BlockPlaced{PlayerID: player, Dimension: dim, Block: anchor})
	f.look(topCenter)
	f.tick(2)

	f.m.Handle(ItemStartUse{PlayerID: player, Item: tool})
	s := f.m.Get(player)
	if s == nil || s.Mode != ModeIdle {
		t.Fatalf("start use without grant changed the session: %+v", s)
	}

	// Looking away entirely keeps the session idle.
	f.look(math.Vec3{X: 30, Y: 60, Z: 30})
	f.tick(2)
	if s.Mode != ModeIdle || s.Grant != nil {
		t.Errorf("away: mode %v grant %+v", s.Mode, s.Grant)
	}

	// And looking back at a corner grants again.
	f.look(topCorner)
	f.tick(2)
	if s.Mode != ModeHighlighting || s.Grant == nil {
		t.Errorf("corner: mode %v grant %+v", s.Mode, s.Grant)
	}
}

func TestDirectActivation(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Activation = config.ActivationDirect })
	if err := f.world.SetItem(player, 0, host.Item{ID: tool, Count: 1}); err != nil {
		t.Fatal(err)
	}

	// Placing a block does nothing under the direct policy.
	f.m.Handle(BlockPlaced{PlayerID: player, Dimension: dim, Block: anchor})
	if f.m.Count() != 0 {
		t.Fatal("direct policy created a highlight session")
	}

	f.look(topCorner)
	f.m.Handle(ItemStartUse{PlayerID: player, Item: tool})
	s := f.m.Get(player)
	if s == nil || s.Mode != ModeEditing || s.Grant != nil {
		t.Fatalf("session = %+v", s)
	}
	if !s.Material.Equal(stone) || s.Anchor != anchor {
		t.Errorf("anchor %v material %v", s.Anchor, s.Material)
	}

	f.look(dragTo)
	f.tick(1)
	f.m.Handle(ItemReleaseUse{PlayerID: player, Item: tool})
	if n := f.world.Count(dim, dragBox); n != 4 {
		t.Errorf("filled %d cells, want 4", n)
	}
	if got := f.slot0(); got.ID != tool {
		t.Errorf("direct activation touched the player's slot: %+v", got)
	}
	if f.host.setItems != 0 {
		t.Errorf("inventory written %d times", f.host.setItems)
	}
}

func TestStartUseMissesBlock(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Activation = config.ActivationDirect })
	f.look(math.Vec3{X: 30, Y: 80, Z: 30})
	f.m.Handle(ItemStartUse{PlayerID: player, Item: tool})
	if f.m.Count() != 0 {
		t.Error("session created without a block hit")
	}
}

func TestSecondPlacementReplaces(t *testing.T) {
	f := newFixture(t, nil)
	first := f.highlight()

	other := math.Vec3i{X: 20, Y: 64, Z: 20}
	_ = f.world.SetMaterial(dim, other, stone)
	f.m.Handle(BlockPlaced{PlayerID: player, Dimension: dim, Block: other})

	s := f.m.Get(player)
	if s == nil || s == first || s.Anchor != other {
		t.Fatalf("session = %+v", s)
	}
	if first.Grant != nil {
		t.Error("replaced session kept its grant")
	}
	if got := f.slot0(); got != dirt {
		t.Errorf("slot 0 = %+v, want restored", got)
	}
	if len(f.rec.records) != 1 || f.rec.records[0].Reason != ReasonReplaced {
		t.Errorf("records = %+v", f.rec.records)
	}
}

func TestTickCancels(t *testing.T) {
	t.Run("dimension", func(t *testing.T) {
		f := newFixture(t, nil)
		f.drag()
		_ = f.world.UpdatePlayer(player, func(p *memhost.Player) { p.Dimension = "nether" })
		f.tick(1)
		if f.m.Get(player) != nil {
			t.Fatal("session survived a dimension change")
		}
		if f.rec.records[0].Reason != ReasonDimensionChanged {
			t.Errorf("reason = %s", f.rec.records[0].Reason)
		}
	})
	t.Run("player gone", func(t *testing.T) {
		f := newFixture(t, nil)
		f.drag()
		f.world.RemovePlayer(player)
		f.tick(1)
		if f.m.Get(player) != nil {
			t.Fatal("session survived its player")
		}
		if f.rec.records[0].Reason != ReasonPlayerLeft {
			t.Errorf("reason = %s", f.rec.records[0].Reason)
		}
	})
	t.Run("idle timeout", func(t *testing.T) {
		f := newFixture(t, func(o *Options) { o.IdleTimeout = 4 })
		f.m.Handle(BlockPlaced{PlayerID: player, Dimension: dim, Block: anchor})
		f.look(math.Vec3{X: 30, Y: 60, Z: 30})
		f.tick(4)
		if f.m.Get(player) == nil {
			t.Fatal("session expired early")
		}
		f.tick(2)
		if f.m.Get(player) != nil {
			t.Fatal("idle session not expired")
		}
		if f.rec.records[0].Reason != ReasonIdle {
			t.Errorf("reason = %s", f.rec.records[0].Reason)
		}
	})
}

func TestShutdown(t *testing.T) {
	f := newFixture(t, nil)
	f.world.AddPlayer("p2", dim, math.Vec3{})
	f.highlight()
	f.m.Handle(BlockPlaced{PlayerID: "p2", Dimension: dim, Block: anchor, Material: stone})
	if f.m.Count() != 2 {
		t.Fatalf("Count = %d", f.m.Count())
	}
	if all := f.m.All(); all[0].Player != player || all[1].Player != "p2" {
		t.Errorf("All not ordered by player")
	}
	f.m.Shutdown()
	if f.m.Count() != 0 {
		t.Errorf("Count after shutdown = %d", f.m.Count())
	}
	if got := f.slot0(); got != dirt {
		t.Errorf("slot 0 = %+v after shutdown", got)
	}
}

func TestBoxAnchor(t *testing.T) {
	tests := []struct {
		face   geometry.Face
		origin math.Vec3
		want   math.Vec3i
	}{
		{geometry.FaceUp, math.Vec3{X: 10.1, Y: 65, Z: 10.1}, math.Vec3i{X: 10, Y: 65, Z: 10}},
		{geometry.FaceDown, math.Vec3{X: 10.1, Y: 64, Z: 10.1}, math.Vec3i{X: 10, Y: 64, Z: 10}},
		{geometry.FaceEast, math.Vec3{X: 11, Y: 64.5, Z: 10.5}, math.Vec3i{X: 11, Y: 64, Z: 10}},
		{geometry.FaceNorth, math.Vec3{X: 10.5, Y: 64.5, Z: 10}, math.Vec3i{X: 10, Y: 64, Z: 10}},
	}
	for _, tt := range tests {
		s := &Session{Anchor: anchor, Face: tt.face, EditOrigin: tt.origin}
		if got := s.BoxAnchor(); got != tt.want {
			t.Errorf("%v: BoxAnchor = %v, want %v", tt.face, got, tt.want)
		}
	}
}

func TestModifiers(t *testing.T) {
	tests := []struct {
		name string
		ev   ButtonInput
		prev bool
		want bool
	}{
		{"desktop press", ButtonInput{Button: ButtonSneak, State: ButtonPressed, Platform: PlatformDesktop}, false, true},
		{"desktop release", ButtonInput{Button: ButtonSneak, State: ButtonReleased, Platform: PlatformDesktop}, true, false},
		{"desktop other button", ButtonInput{Button: "Jump", State: ButtonPressed, Platform: PlatformDesktop}, true, true},
		{"desktop ignores flag", ButtonInput{Button: "Jump", Platform: PlatformDesktop, Sneaking: true}, false, false},
		{"touch flying press", ButtonInput{Button: ButtonSneak, State: ButtonPressed, Platform: "Mobile", Flying: true}, false, true},
		{"touch mirrors flag", ButtonInput{Button: "Jump", State: ButtonPressed, Platform: "Mobile", Sneaking: true}, false, true},
		{"touch mirrors unsneak", ButtonInput{Button: ButtonSneak, State: ButtonPressed, Platform: "Console"}, true, false},
	}
	for _, tt := range tests {
		m := modifiers{player: tt.prev}
		tt.ev.PlayerID = player
		m.apply(tt.ev)
		if m[player] != tt.want {
			t.Errorf("%s: modifier = %v, want %v", tt.name, m[player], tt.want)
		}
	}
}
