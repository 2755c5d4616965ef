package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagListen     = flag.String("listen", "", "Host bridge listen address")
	flagData       = flag.String("data", "", "Directory for the edit journal and audit index")
	flagActivation = flag.String("activation", "", "Tool activation policy: highlight, direct or both")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagListen != "" {
		cfg.Server.Listen = *flagListen
	}
	if *flagData != "" {
		cfg.Storage.DataDir = *flagData
	}
	if *flagActivation != "" {
		cfg.Session.Activation = *flagActivation
	}
}
