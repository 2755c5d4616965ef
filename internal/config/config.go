// Package config handles resizer configuration loading and management.
package config

import (
	"fmt"
	"time"
)

// Activation policies.
const (
	ActivationHighlight = "highlight"
	ActivationDirect    = "direct"
	ActivationBoth      = "both"
)

// Config holds all resizer settings.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Tool    ToolConfig    `yaml:"tool"`
	Session SessionConfig `yaml:"session"`
	World   WorldConfig   `yaml:"world"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the host bridge endpoint settings.
type ServerConfig struct {
	Listen           string        `yaml:"listen"`
	HostPath         string        `yaml:"host_path"` // websocket path the game host attaches to
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	ReadLimitBytes   int64         `yaml:"read_limit_bytes"`
}

// ToolConfig names the item and particle effects used by the tool.
type ToolConfig struct {
	Item           string   `yaml:"item"`
	LineParticle   string   `yaml:"line_particle"`
	HoverParticles []string `yaml:"hover_particles"` // x, y, z
	EditParticles  []string `yaml:"edit_particles"`  // x, y, z
	LineWidth      float64  `yaml:"line_width"`
	LineLifetime   float64  `yaml:"line_lifetime"`
}

// SessionConfig holds edit session timing and activation.
type SessionConfig struct {
	Activation     string        `yaml:"activation"` // highlight, direct or both
	TickRateHz     int           `yaml:"tick_rate_hz"`
	HighlightEvery int           `yaml:"highlight_every"` // ticks between highlight checks
	VolumeEvery    int           `yaml:"volume_every"`    // ticks between volume previews
	IdleTimeout    time.Duration `yaml:"idle_timeout"`    // drop sessions not aimed at for this long
	CornerBand     []float64     `yaml:"corner_band"`     // [min, max] face-local center band
}

// WorldConfig bounds what a commit may write.
type WorldConfig struct {
	MinY          int     `yaml:"min_y"`
	MaxY          int     `yaml:"max_y"`
	MaxFillVolume int64   `yaml:"max_fill_volume"`
	Reach         float64 `yaml:"reach"`
}

// StorageConfig holds the edit journal and audit index settings.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
	Journal bool   `yaml:"journal"`
	Audit   bool   `yaml:"audit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:           "127.0.0.1:8765",
			HostPath:         "/v1/host",
			HandshakeTimeout: 5 * time.Second,
			WriteTimeout:     2 * time.Second,
			ReadLimitBytes:   1 << 20,
		},
		Tool: ToolConfig{
			Item:         "qsc:resizer",
			LineParticle: "qsc:line",
			HoverParticles: []string{
				"qsc:highlight_axis_x",
				"qsc:highlight_axis_y",
				"qsc:highlight_axis_z",
			},
			EditParticles: []string{
				"qsc:selection_axis_x",
				"qsc:selection_axis_y",
				"qsc:selection_axis_z",
			},
			LineWidth:    0.05,
			LineLifetime: 0.1,
		},
		Session: SessionConfig{
			Activation:     ActivationBoth,
			TickRateHz:     20,
			HighlightEvery: 2,
			VolumeEvery:    4,
			IdleTimeout:    10 * time.Second,
			CornerBand:     []float64{0.3, 0.7},
		},
		World: WorldConfig{
			MinY:          -64,
			MaxY:          320,
			MaxFillVolume: 32768,
			Reach:         8,
		},
		Storage: StorageConfig{
			DataDir: "data",
			Journal: true,
			Audit:   true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// TickInterval returns the duration of one session tick.
func (c *Config) TickInterval() time.Duration {
	if c.Session.TickRateHz <= 0 {
		return 50 * time.Millisecond
	}
	return time.Second / time.Duration(c.Session.TickRateHz)
}

// IdleTimeoutTicks converts the idle timeout to ticks.
func (c *Config) IdleTimeoutTicks() uint64 {
	if c.Session.IdleTimeout <= 0 {
		return 0
	}
	return uint64(c.Session.IdleTimeout / c.TickInterval())
}

// Validate checks settings that would make the resizer misbehave.
func (c *Config) Validate() error {
	switch c.Session.Activation {
	case ActivationHighlight, ActivationDirect, ActivationBoth:
	default:
		return fmt.Errorf("session.activation: unknown policy %q", c.Session.Activation)
	}
	if c.Session.TickRateHz <= 0 {
		return fmt.Errorf("session.tick_rate_hz must be positive, got %d", c.Session.TickRateHz)
	}
	if c.Session.HighlightEvery <= 0 || c.Session.VolumeEvery <= 0 {
		return fmt.Errorf("session.highlight_every and session.volume_every must be positive")
	}
	if b := c.Session.CornerBand; len(b) != 2 || b[0] < 0 || b[1] > 1 || b[0] > b[1] {
		return fmt.Errorf("session.corner_band must be [min, max] within [0, 1], got %v", b)
	}
	if c.Tool.Item == "" {
		return fmt.Errorf("tool.item must be set")
	}
	if len(c.Tool.HoverParticles) != 3 || len(c.Tool.EditParticles) != 3 {
		return fmt.Errorf("tool.hover_particles and tool.edit_particles need one id per axis")
	}
	if c.World.MinY >= c.World.MaxY {
		return fmt.Errorf("world.min_y (%d) must be below world.max_y (%d)", c.World.MinY, c.World.MaxY)
	}
	if c.World.MaxFillVolume < 0 {
		return fmt.Errorf("world.max_fill_volume must not be negative")
	}
	return nil
}
