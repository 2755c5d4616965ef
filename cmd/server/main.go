// Package main is the entry point for the resizer host bridge server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/resizer/internal/audit"
	"github.com/Faultbox/resizer/internal/bridge"
	"github.com/Faultbox/resizer/internal/config"
	"github.com/Faultbox/resizer/internal/game"
	"github.com/Faultbox/resizer/internal/journal"
	"github.com/Faultbox/resizer/internal/logger"
	"github.com/Faultbox/resizer/internal/protocol"
	"github.com/Faultbox/resizer/internal/session"
	"github.com/Faultbox/resizer/internal/transport/ws"
)

const version = "0.1.0"

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Resizer ===", zap.String("version", version))
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped normally")
}

func run(ctx context.Context, cfg *config.Config) error {
	var recorders session.Recorders
	var index *audit.Index
	if cfg.Storage.Journal {
		j := journal.Open(cfg.Storage.DataDir, logger.Component("journal"))
		defer j.Close()
		recorders = append(recorders, j)
	}
	if cfg.Storage.Audit {
		idx, err := audit.Open(filepath.Join(cfg.Storage.DataDir, "audit.sqlite"), logger.Component("audit"))
		if err != nil {
			return fmt.Errorf("opening audit index: %w", err)
		}
		defer idx.Close()
		index = idx
		recorders = append(recorders, idx)
	}

	remote := bridge.New(bridge.DefaultOptions(), logger.Component("bridge"))
	mgr := session.NewManager(remote, session.OptionsFrom(cfg), logger.Component("session"), recorders)
	loop := game.New(mgr, game.Config{Interval: cfg.TickInterval()}, logger.Component("loop"))
	loop.AfterTick(remote.Flush)

	band := session.OptionsFrom(cfg).Band
	host, err := ws.NewServer(remote, loop.Post, ws.Options{
		HandshakeTimeout: cfg.Server.HandshakeTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		ReadLimit:        cfg.Server.ReadLimitBytes,
		Welcome: protocol.WelcomeMsg{
			ServerVersion: version,
			TickRateHz:    cfg.Session.TickRateHz,
			ToolItem:      cfg.Tool.Item,
			CornerBand:    [2]float64{band.Min, band.Max},
		},
	}, logger.Component("ws"))
	if err != nil {
		return err
	}

	routes := &api{loop: loop, host: host}
	if index != nil {
		routes.edits = index
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Server.HostPath, host.Handler())
	routes.register(mux)

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()

	srvDone := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.Server.Listen),
			zap.String("host_path", cfg.Server.HostPath),
			zap.String("activation", cfg.Session.Activation),
			zap.Float64("corner_band_min", band.Min),
			zap.Float64("corner_band_max", band.Max))
		srvDone <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-srvDone:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	// The loop's last batch restores granted items; it must reach the host
	// before the connection goes away.
	loop.Stop()
	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("tick loop ended with error", zap.Error(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := host.Close(shutdownCtx); err != nil {
		logger.Warn("host connection did not close cleanly", zap.Error(err))
	}
	_ = srv.Shutdown(shutdownCtx)
	return runErr
}
