// Package config loads the navigation client configuration from flags, environment variables,
// .env files and an optional YAML file, in that order of precedence.
package config

import (
	"fmt"
	"nav-command/logging"
	"nav-command/transport"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultHost    = "127.0.0.1"
	DefaultAltHost = "10.1.1.32"
	DefaultPort    = 8787
	DefaultService = "nav-control"
)

// ClientConfig holds everything the CLI needs to run command sessions.
type ClientConfig struct {
	// Target control server
	Host    string
	Port    uint16
	AltHost string
	// UseAltHost adds AltHost next to Host in the static target list
	UseAltHost bool

	// Session
	ConnectTimeout time.Duration // 0 = wait for the OS
	IOTimeout      time.Duration // 0 = block
	CommandTimeout time.Duration // whole exchange, 0 = none
	AckBufferSize  int
	TCP            transport.TCPConf

	Discovery DiscoveryConfig
	RateLimit RateLimitConfig
	Log       LogConfig

	JournalPath string
	Metrics     bool
}

type DiscoveryConfig struct {
	EtcdEndpoints []string // empty = static host list
	ServiceName   string
	Balancer      string // round-robin, weighted-random, consistent-hash
	VehicleID     string // key for consistent-hash
	Timeout       time.Duration
}

type RateLimitConfig struct {
	PerSecond float64 // 0 disables the limiter
	Burst     int
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// FileOptions converts the log section for logging.Output.
func (c LogConfig) FileOptions() logging.FileOptions {
	return logging.FileOptions{
		Path:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

// Hosts returns the primary host, followed by the alternate host when UseAltHost is set.
func (c *ClientConfig) Hosts() []string {
	hosts := []string{c.Host}
	if c.UseAltHost && c.AltHost != "" && c.AltHost != c.Host {
		hosts = append(hosts, c.AltHost)
	}
	return hosts
}

// UseDiscovery reports whether targets come from etcd.
func (c *ClientConfig) UseDiscovery() bool {
	return len(c.Discovery.EtcdEndpoints) > 0
}

// Validate checks ranges and combinations the session relies on.
func (c *ClientConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if c.Port == 0 {
		return fmt.Errorf("port must be in [1, 65535]")
	}
	if c.AckBufferSize <= 0 || c.AckBufferSize > 64*1024 {
		return fmt.Errorf("ack buffer size %d is outside [1, 65536]", c.AckBufferSize)
	}
	if c.ConnectTimeout < 0 || c.IOTimeout < 0 || c.CommandTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.RateLimit.PerSecond < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.RateLimit.PerSecond > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1")
	}
	switch c.Discovery.Balancer {
	case "round-robin", "weighted-random":
	case "consistent-hash":
		if c.Discovery.VehicleID == "" {
			return fmt.Errorf("consistent-hash balancer needs a vehicle id")
		}
	default:
		return fmt.Errorf("invalid balancer %s, must be one of: round-robin, weighted-random, consistent-hash", c.Discovery.Balancer)
	}
	if c.Discovery.ServiceName == "" {
		return fmt.Errorf("service name must not be empty")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// String returns a formatted representation of the configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	durationOrNone := func(d time.Duration) string {
		if d == 0 {
			return "none"
		}
		return d.String()
	}

	addSection("Target")
	addField("Host", c.Host)
	addField("Alternate Host", fmt.Sprintf("%s (in use: %t)", c.AltHost, c.UseAltHost))
	addField("Port", strconv.Itoa(int(c.Port)))

	addSection("Session")
	addField("Connect Timeout", durationOrNone(c.ConnectTimeout))
	addField("IO Timeout", durationOrNone(c.IOTimeout))
	addField("Command Timeout", durationOrNone(c.CommandTimeout))
	addField("Ack Buffer", fmt.Sprintf("%d bytes", c.AckBufferSize))
	addField("TCP NoDelay", strconv.FormatBool(c.TCP.NoDelay))
	addField("TCP KeepAlive", durationOrNone(c.TCP.KeepAlive))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.TCP.LingerSec))

	addSection("Discovery")
	if c.UseDiscovery() {
		addField("Etcd Endpoints", strings.Join(c.Discovery.EtcdEndpoints, ","))
	} else {
		addField("Etcd Endpoints", "none (static hosts)")
	}
	addField("Service", c.Discovery.ServiceName)
	addField("Balancer", c.Discovery.Balancer)
	if c.Discovery.VehicleID != "" {
		addField("Vehicle ID", c.Discovery.VehicleID)
	}

	addSection("Rate Limit")
	if c.RateLimit.PerSecond > 0 {
		addField("Rate", fmt.Sprintf("%g/s (burst %d)", c.RateLimit.PerSecond, c.RateLimit.Burst))
	} else {
		addField("Rate", "unlimited")
	}

	addSection("Logging")
	addField("Log Level", c.Log.Level)
	if c.Log.File != "" {
		addField("Log File", c.Log.File)
	}

	if c.JournalPath != "" {
		addSection("Journal")
		addField("Path", c.JournalPath)
	}
	return sb.String()
}
