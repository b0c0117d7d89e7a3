// Package config handles the parsing and validation of application
// configuration from command-line arguments and environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/minewatch/minewatch/internal/logger"
	"github.com/minewatch/minewatch/internal/vars"
)

// Config represents the complete application flags configuration.
type Config struct {
	Bot     Bot           `group:"Bot Options" namespace:"bot" env-namespace:"MINEWATCH_BOT"`
	Poll    Poll          `group:"Polling Options" namespace:"poll" env-namespace:"MINEWATCH_POLL"`
	Storage Storage       `group:"Storage Options" namespace:"db" env-namespace:"MINEWATCH_DB"`
	Server  Server        `group:"API Server Options" namespace:"api" env-namespace:"MINEWATCH_API"`
	GeoIP   GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"MINEWATCH_GEOIP"`
	Logger  logger.Config `group:"Logger Options" namespace:"log" env-namespace:"MINEWATCH_LOG"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Bot holds the messaging transport configuration.
type Bot struct {
	Token string `short:"t" long:"token" env:"TOKEN" description:"Telegram bot API token"`

	// MessageRate paces every outbound transport call.
	MessageRate time.Duration `long:"message-rate" env:"MESSAGE_RATE" description:"Minimum delay between outbound messages" default:"50ms"`
	RateBurst   int           `long:"rate-burst" env:"RATE_BURST" description:"Outbound message burst size" default:"5"`
}

// Poll holds the probe cycle configuration.
type Poll struct {
	Interval       time.Duration `short:"i" long:"interval" env:"INTERVAL" description:"Delay between poll cycles" default:"2s"`
	Timeout        time.Duration `long:"timeout" env:"TIMEOUT" description:"Per-server probe timeout" default:"5s"`
	OfflineWindow  time.Duration `long:"offline-window" env:"OFFLINE_WINDOW" description:"How long offline players stay visible" default:"24h"`
	TopCount       int           `long:"top-count" env:"TOP_COUNT" description:"Leaderboard size" default:"3"`
	DefaultVersion int           `long:"default-version" env:"DEFAULT_VERSION" description:"Protocol version used when a subscription does not name one" default:"763"`
	Concurrency    int           `long:"concurrency" env:"CONCURRENCY" description:"Max concurrent probes per cycle" default:"8"`
	Probe          string        `long:"probe" env:"PROBE" description:"Probe backend" choice:"minecraft" choice:"a2s" default:"minecraft"`
	BufferSize     uint16        `long:"buffer-size" env:"BUFFER_SIZE" description:"A2S response buffer size" default:"1400"`
}

// Storage holds registry persistence configuration and maintenance flags.
type Storage struct {
	Path         string        `short:"d" long:"path" env:"PATH" description:"Path to SQLite database" default:"minewatch.db"`
	SaveInterval time.Duration `long:"save-interval" env:"SAVE_INTERVAL" description:"Registry snapshot interval" default:"1m"`

	PruneOffline  time.Duration `long:"prune-offline" description:"Drop players last seen before this cutoff, then exit" optional:"true" optional-value:"720h"`
	Dump          bool          `long:"dump" description:"Print rendered status of every tracked server, then exit"`
	GenerateCount int           `long:"gen-fake-data" hidden:"true"`
}

// Server holds the optional HTTP status API configuration.
type Server struct {
	Address   string `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Status API listen address (disabled when empty)"`
	AuthToken string `long:"auth-token" env:"AUTH_TOKEN" description:"Bearer token for the status API"`
}

// GeoIP holds MaxMind GeoIP configuration for the stat command.
type GeoIP struct {
	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file (country tags disabled when empty)"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
}

// Maintenance reports whether an offline task flag was given; maintenance
// runs do not need a bot token.
func (c *Config) Maintenance() bool {
	return c.Storage.PruneOffline > 0 || c.Storage.Dump || c.Storage.GenerateCount > 0
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the
// help flag is invoked.
func Parse() *Config {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	if cfg.Bot.Token == "" && !cfg.Maintenance() {
		fmt.Fprintln(os.Stderr,
			"Required flag `--bot-token' or environment variable `MINEWATCH_BOT_TOKEN` was not specified!")
		os.Exit(1)
	}

	return &cfg
}
