package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config represents the application configuration
type Config struct {
	// Node configuration
	NodeID    string
	RaftAddr  string
	RaftDir   string
	HTTPAddr  string
	Bootstrap bool
	JoinAddr  string
	Peers     []string
	// Dev runs a single in-memory node; RaftAddr and RaftDir are ignored
	Dev bool

	// Watchdog
	PollInterval      time.Duration
	StopGrace         time.Duration
	WatchdogAutostart bool

	// SNMP
	SNMPCommunity string
	SNMPPort      uint
	SNMPTimeout   time.Duration
	SNMPRetries   int

	// Inventory
	LowStockThreshold float64
	SeedFile          string

	// Logging
	LogLevel  string
	LogFormat string
}

// ParseFlags loads .env, parses command line flags and returns a Config.
// Every flag defaults to its PRINTSYNC_* environment variable.
func ParseFlags() *Config {
	// A missing .env file is normal outside development
	_ = godotenv.Load()

	config, err := Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		flag.Usage()
		os.Exit(1)
	}
	return config
}

// Parse parses args into a Config using fs and validates the result
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	config := &Config{}

	// Define flags
	fs.StringVar(&config.NodeID, "id", env("NODE_ID", ""), "Node ID (required)")
	fs.StringVar(&config.RaftAddr, "raft-addr", env("RAFT_ADDR", ""), "Raft transport address (required)")
	fs.StringVar(&config.RaftDir, "raft-dir", env("RAFT_DIR", ""), "Raft storage directory (required)")
	fs.StringVar(&config.HTTPAddr, "http-addr", env("HTTP_ADDR", ""), "HTTP API address (required)")
	fs.BoolVar(&config.Bootstrap, "bootstrap", envBool("BOOTSTRAP", false), "Bootstrap the cluster")
	fs.StringVar(&config.JoinAddr, "join", env("JOIN", ""), "HTTP address of an existing node to join")
	peersStr := fs.String("peers", env("PEERS", ""), "Comma-separated list of peer addresses")
	fs.BoolVar(&config.Dev, "dev", envBool("DEV", false), "Run a single in-memory node")

	fs.DurationVar(&config.PollInterval, "poll-interval", envDuration("POLL_INTERVAL", 60*time.Second), "Printer counter poll interval")
	fs.DurationVar(&config.StopGrace, "stop-grace", envDuration("STOP_GRACE", 100*time.Millisecond), "How long a watchdog stop waits for the loop to exit")
	fs.BoolVar(&config.WatchdogAutostart, "watchdog-autostart", envBool("WATCHDOG_AUTOSTART", false), "Start the printer watchdog at boot")

	fs.StringVar(&config.SNMPCommunity, "snmp-community", env("SNMP_COMMUNITY", "public"), "SNMP community string")
	fs.UintVar(&config.SNMPPort, "snmp-port", uint(envInt("SNMP_PORT", 161)), "SNMP UDP port")
	fs.DurationVar(&config.SNMPTimeout, "snmp-timeout", envDuration("SNMP_TIMEOUT", 2*time.Second), "SNMP request timeout")
	fs.IntVar(&config.SNMPRetries, "snmp-retries", envInt("SNMP_RETRIES", 1), "SNMP retries per request")

	fs.Float64Var(&config.LowStockThreshold, "low-stock-threshold", envFloat("LOW_STOCK_THRESHOLD", 50), "Raw material level that triggers a low-stock warning")
	fs.StringVar(&config.SeedFile, "seed", env("SEED", ""), "YAML file with initial inventory, recipes and settings")

	fs.StringVar(&config.LogLevel, "log-level", env("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	fs.StringVar(&config.LogFormat, "log-format", env("LOG_FORMAT", "text"), "Log format (text, json)")

	// Parse flags
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Parse peers
	if *peersStr != "" {
		config.Peers = strings.Split(*peersStr, ",")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return errors.New("Node ID is required")
	}
	if c.HTTPAddr == "" {
		return errors.New("HTTP address is required")
	}
	if !c.Dev {
		if c.RaftAddr == "" {
			return errors.New("Raft address is required")
		}
		if c.RaftDir == "" {
			return errors.New("Raft directory is required")
		}
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.StopGrace <= 0 {
		return errors.New("stop grace must be positive")
	}
	if c.SNMPPort == 0 || c.SNMPPort > 65535 {
		return fmt.Errorf("invalid SNMP port %d", c.SNMPPort)
	}
	if c.SNMPRetries < 0 {
		return errors.New("SNMP retries cannot be negative")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

const envPrefix = "PRINTSYNC_"

func env(key, def string) string {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(env(key, "")); err == nil {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(env(key, "")); err == nil {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(env(key, ""), 64); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(env(key, "")); err == nil {
		return v
	}
	return def
}

// NewLogger builds the process logger from the logging settings
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
