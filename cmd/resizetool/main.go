// resizetool is a CLI utility for trying out edits offline and inspecting
// recorded edit history.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Faultbox/resizer/internal/audit"
	"github.com/Faultbox/resizer/internal/config"
	"github.com/Faultbox/resizer/internal/geometry"
	"github.com/Faultbox/resizer/internal/host"
	"github.com/Faultbox/resizer/internal/host/memhost"
	"github.com/Faultbox/resizer/internal/journal"
	"github.com/Faultbox/resizer/internal/logger"
	"github.com/Faultbox/resizer/internal/session"
	"github.com/Faultbox/resizer/pkg/math"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "simulate", "sim":
		err = cmdSimulate(args)
	case "journal":
		err = cmdJournal(args)
	case "edits":
		err = cmdEdits(args)
	case "config":
		err = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`resizetool - block resizing tool utility

Usage:
  resizetool <command> [options]

Commands:
  simulate [flags]                 Run one scripted drag against an in-memory world
  journal <file.jsonl.zst>...      Print recorded edits from journal files
  edits <audit.sqlite> [player]    Show the latest edits from the audit index
  config [path]                    Write the default config (user config dir if no path)

Examples:
  resizetool simulate -to 12,65,12
  resizetool simulate -activation direct -sneak
  resizetool journal data/journal/edits-2026-03-01-12.jsonl.zst
  resizetool edits data/audit.sqlite p1
  resizetool config ./resizer.yaml`)
}

func cmdSimulate(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	activation := fs.String("activation", config.ActivationHighlight, "highlight or direct")
	anchorArg := fs.String("anchor", "10,64,10", "anchor block x,y,z")
	headArg := fs.String("head", "14,67,14", "player head location x,y,z")
	aimArg := fs.String("aim", "10.1,65,10.1", "point on the anchor the drag starts from")
	toArg := fs.String("to", "12,65,12", "point the player looks at on release")
	material := fs.String("material", "minecraft:stone", "anchor block material")
	sneak := fs.Bool("sneak", false, "hold sneak on release to clear instead of fill")
	debug := fs.Bool("debug", false, "log session activity")
	if err := fs.Parse(args); err != nil {
		return err
	}

	anchorF, err := parseVec(*anchorArg)
	if err != nil {
		return fmt.Errorf("-anchor: %w", err)
	}
	head, err := parseVec(*headArg)
	if err != nil {
		return fmt.Errorf("-head: %w", err)
	}
	aim, err := parseVec(*aimArg)
	if err != nil {
		return fmt.Errorf("-aim: %w", err)
	}
	to, err := parseVec(*toArg)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}

	level := "warn"
	if *debug {
		level = "debug"
	}
	if err := logger.Init(level, ""); err != nil {
		return err
	}
	defer logger.Sync()

	res, err := simulate(simulation{
		Activation: *activation,
		Anchor:     anchorF.Floor().Vec3i(),
		Head:       head,
		Aim:        aim,
		To:         to,
		Material:   host.Material{ID: *material},
		Sneak:      *sneak,
	}, logger.Component("session"))
	if err != nil {
		return err
	}
	printRecord(res.Record, time.Now())
	fmt.Printf("  cells now set:  %s\n", humanize.Comma(int64(res.Cells)))
	return nil
}

// simulation is one scripted drag.
type simulation struct {
	Activation string
	Anchor     math.Vec3i
	Head       math.Vec3
	Aim        math.Vec3
	To         math.Vec3
	Material   host.Material
	Sneak      bool
}

type simResult struct {
	Record session.Record
	Cells  int // non-air cells inside the resulting box
}

type lastRecord struct{ rec *session.Record }

func (l *lastRecord) Record(r session.Record) { l.rec = &r }

const (
	simPlayer host.PlayerID  = "sim"
	simDim    host.Dimension = "overworld"
)

func simulate(sim simulation, log *zap.Logger) (simResult, error) {
	if sim.Activation != config.ActivationHighlight && sim.Activation != config.ActivationDirect {
		return simResult{}, fmt.Errorf("unknown activation %q", sim.Activation)
	}
	world := memhost.New(memhost.DefaultOptions())
	world.AddPlayer(simPlayer, simDim, sim.Head)
	if err := world.SetMaterial(simDim, sim.Anchor, sim.Material); err != nil {
		return simResult{}, err
	}

	opts := session.DefaultOptions()
	opts.Activation = sim.Activation
	opts.IdleTimeout = 0
	rec := &lastRecord{}
	mgr := session.NewManager(world, opts, log, rec)

	if err := world.LookAt(simPlayer, sim.Aim); err != nil {
		return simResult{}, err
	}
	if sim.Activation == config.ActivationHighlight {
		mgr.Handle(session.BlockPlaced{PlayerID: simPlayer, Dimension: simDim, Block: sim.Anchor})
		for i := uint64(0); i < opts.HighlightEvery; i++ {
			mgr.Tick()
		}
		s := mgr.Get(simPlayer)
		if s == nil || s.Mode != session.ModeHighlighting {
			return simResult{}, fmt.Errorf("aim point %v does not highlight the anchor", sim.Aim)
		}
	}

	mgr.Handle(session.ItemStartUse{PlayerID: simPlayer, Item: opts.ToolItem})
	s := mgr.Get(simPlayer)
	if s == nil || s.Mode != session.ModeEditing {
		return simResult{}, fmt.Errorf("aim point %v does not start an edit", sim.Aim)
	}
	if err := world.LookAt(simPlayer, sim.To); err != nil {
		return simResult{}, err
	}
	mgr.Tick()
	if sim.Sneak {
		mgr.Handle(session.ButtonInput{
			PlayerID: simPlayer,
			Button:   session.ButtonSneak,
			State:    session.ButtonPressed,
			Platform: session.PlatformDesktop,
		})
	}
	mgr.Handle(session.ItemReleaseUse{PlayerID: simPlayer, Item: opts.ToolItem})
	if rec.rec == nil {
		return simResult{}, fmt.Errorf("edit did not finish")
	}

	res := simResult{Record: *rec.rec}
	if res.Record.Volume > 0 {
		res.Cells = world.Count(simDim, geometry.Box{
			Min: math.Vec3i{X: res.Record.Min[0], Y: res.Record.Min[1], Z: res.Record.Min[2]},
			Max: math.Vec3i{X: res.Record.Max[0], Y: res.Record.Max[1], Z: res.Record.Max[2]},
		})
	}
	return res, nil
}

func cmdJournal(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: resizetool journal <file.jsonl.zst>...")
	}
	var paths []string
	for _, a := range args {
		m, err := filepath.Glob(a)
		if err != nil {
			return err
		}
		paths = append(paths, m...)
	}

	var total, committed int
	var volume int64
	now := time.Now()
	for _, p := range paths {
		recs, err := journal.ReadFile(p)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		fmt.Printf("%s (%d records)\n", p, len(recs))
		for _, r := range recs {
			printRecord(r, now)
			total++
			if r.Outcome == session.OutcomeCommitted {
				committed++
				volume += r.Volume
			}
		}
	}
	fmt.Printf("\n%s edits, %s committed, %s blocks written\n",
		humanize.Comma(int64(total)), humanize.Comma(int64(committed)), humanize.Comma(volume))
	return nil
}

func cmdEdits(args []string) error {
	fs := flag.NewFlagSet("edits", flag.ContinueOnError)
	limit := fs.Int("n", 20, "number of edits to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: resizetool edits [-n N] <audit.sqlite> [player]")
	}

	idx, err := audit.Open(fs.Arg(0), nil)
	if err != nil {
		return err
	}
	defer idx.Close()

	ctx := context.Background()
	var recs []session.Record
	if fs.NArg() > 1 {
		recs, err = idx.RecentByPlayer(ctx, fs.Arg(1), *limit)
	} else {
		recs, err = idx.Recent(ctx, *limit)
	}
	if err != nil {
		return err
	}
	now := time.Now()
	for _, r := range recs {
		printRecord(r, now)
	}
	vol, err := idx.CommittedVolume(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s blocks written by committed edits\n", humanize.Comma(vol))
	return nil
}

func cmdConfig(args []string) error {
	cfg := config.Default()
	if len(args) == 0 {
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
		return nil
	}
	if err := cfg.SaveTo(args[0]); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", args[0])
	return nil
}

func printRecord(r session.Record, now time.Time) {
	action := "fill"
	if r.Cleared {
		action = "clear"
	}
	fmt.Printf("%-9s %-8s %s", r.Outcome, r.Player, r.Reason)
	if r.Volume > 0 {
		fmt.Printf("  %s %v..%v (%s blocks, %s)", action, r.Min, r.Max, humanize.Comma(r.Volume), r.Material)
	}
	if r.Error != "" {
		fmt.Printf("  error: %s", r.Error)
	}
	if !r.Time.IsZero() {
		fmt.Printf("  %s", humanize.RelTime(r.Time, now, "ago", "from now"))
	}
	fmt.Println()
}

func parseVec(s string) (math.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return math.Vec3{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return math.Vec3{}, err
		}
		v[i] = f
	}
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}
