package config

import (
	"fmt"
	"nav-command/message"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag / viper keys
const (
	KeyConfigFile     = "config"
	KeyHost           = "host"
	KeyPort           = "port"
	KeyAltHost        = "alt-host"
	KeyUseAltHost     = "use-alt-host"
	KeyConnectTimeout = "connect-timeout"
	KeyIOTimeout      = "io-timeout"
	KeyCommandTimeout = "timeout"
	KeyAckSize        = "ack-size"
	KeyTCPNoDelay     = "tcp-nodelay"
	KeyTCPKeepAlive   = "tcp-keepalive"
	KeyTCPLinger      = "tcp-linger"
	KeyEtcdEndpoints  = "etcd-endpoints"
	KeyService        = "service"
	KeyBalancer       = "balancer"
	KeyVehicleID      = "vehicle-id"
	KeyEtcdTimeout    = "etcd-timeout"
	KeyRate           = "rate"
	KeyBurst          = "burst"
	KeyLogLevel       = "log-level"
	KeyLogFile        = "log-file"
	KeyLogMaxSize     = "log-max-size"
	KeyLogMaxBackups  = "log-max-backups"
	KeyLogMaxAge      = "log-max-age"
	KeyJournal        = "journal"
	KeyMetrics        = "metrics"
)

// EnvPrefix is prepended to every key when read from the environment, e.g. NAVCMD_ALT_HOST.
const EnvPrefix = "navcmd"

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyHost, DefaultHost)
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyAltHost, DefaultAltHost)
	v.SetDefault(KeyUseAltHost, false)
	v.SetDefault(KeyConnectTimeout, "5s")
	v.SetDefault(KeyIOTimeout, "0s")
	v.SetDefault(KeyCommandTimeout, "0s")
	v.SetDefault(KeyAckSize, message.AckCapacity)
	v.SetDefault(KeyTCPNoDelay, true)
	v.SetDefault(KeyTCPKeepAlive, "0s")
	v.SetDefault(KeyTCPLinger, 0)
	v.SetDefault(KeyEtcdEndpoints, "")
	v.SetDefault(KeyService, DefaultService)
	v.SetDefault(KeyBalancer, "round-robin")
	v.SetDefault(KeyVehicleID, "")
	v.SetDefault(KeyEtcdTimeout, "5s")
	v.SetDefault(KeyRate, 0.0)
	v.SetDefault(KeyBurst, 1)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyLogMaxSize, 10)
	v.SetDefault(KeyLogMaxBackups, 3)
	v.SetDefault(KeyLogMaxAge, 28)
	v.SetDefault(KeyJournal, "")
	v.SetDefault(KeyMetrics, false)
}

// SetupClientFlags adds the client flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String(KeyConfigFile, "", "optional YAML config file")
	f.String(KeyHost, DefaultHost, "control server address")
	f.Int(KeyPort, DefaultPort, "control server port")
	f.String(KeyAltHost, DefaultAltHost, "alternate control server address")
	f.Bool(KeyUseAltHost, false, "balance commands over host and alt-host")
	f.Duration(KeyConnectTimeout, 5*time.Second, "connect timeout (0 = OS default)")
	f.Duration(KeyIOTimeout, 0, "per send/receive timeout (0 = block)")
	f.Duration(KeyCommandTimeout, 0, "timeout for a whole command exchange (0 = none)")
	f.Int(KeyAckSize, message.AckCapacity, "acknowledgement buffer size in bytes")
	f.Bool(KeyTCPNoDelay, true, "enable TCP_NODELAY")
	f.Duration(KeyTCPKeepAlive, 0, "TCP keepalive period (0 = OS default)")
	f.Int(KeyTCPLinger, 0, "TCP linger in seconds (0 = OS default)")
	f.String(KeyEtcdEndpoints, "", "comma-separated etcd endpoints for control server discovery")
	f.String(KeyService, DefaultService, "service name of the control server in the registry")
	f.String(KeyBalancer, "round-robin", "balancer: round-robin, weighted-random, consistent-hash")
	f.String(KeyVehicleID, "", "vehicle id, the key for consistent-hash")
	f.Duration(KeyEtcdTimeout, 5*time.Second, "etcd request timeout")
	f.Float64(KeyRate, 0, "max commands per second (0 = unlimited)")
	f.Int(KeyBurst, 1, "rate limit burst")
	f.String(KeyLogLevel, "info", "log level: debug, info, warn, error")
	f.String(KeyLogFile, "", "write logs to this rotating file instead of stderr")
	f.Int(KeyLogMaxSize, 10, "max log file size in MB before rotation")
	f.Int(KeyLogMaxBackups, 3, "rotated log files to keep")
	f.Int(KeyLogMaxAge, 28, "days to keep rotated log files")
	f.String(KeyJournal, "", "SQLite journal of sent commands (empty = off)")
	f.Bool(KeyMetrics, false, "print metrics in Prometheus format on exit")
}

// InitEnv loads .env files and makes v read NAVCMD_* environment variables.
func InitEnv(v *viper.Viper) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to v. Only flags that were set on the command line
// override environment and file values.
func BindCommandFlags(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
		return err
	}
	return v.BindPFlags(cmd.Flags())
}

// Load reads the optional config file and builds a validated ClientConfig from v.
func Load(v *viper.Viper) (*ClientConfig, error) {
	SetDefaults(v)

	if path := v.GetString(KeyConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	port := v.GetInt(KeyPort)
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("port %d is outside [1, 65535]", port)
	}

	// a YAML list, or a comma-separated string from flags and env
	var endpoints []string
	for _, item := range v.GetStringSlice(KeyEtcdEndpoints) {
		for _, ep := range strings.Split(item, ",") {
			if ep = strings.TrimSpace(ep); ep != "" {
				endpoints = append(endpoints, ep)
			}
		}
	}

	cfg := &ClientConfig{
		Host:           v.GetString(KeyHost),
		Port:           uint16(port),
		AltHost:        v.GetString(KeyAltHost),
		UseAltHost:     v.GetBool(KeyUseAltHost),
		ConnectTimeout: v.GetDuration(KeyConnectTimeout),
		IOTimeout:      v.GetDuration(KeyIOTimeout),
		CommandTimeout: v.GetDuration(KeyCommandTimeout),
		AckBufferSize:  v.GetInt(KeyAckSize),
		Discovery: DiscoveryConfig{
			EtcdEndpoints: endpoints,
			ServiceName:   v.GetString(KeyService),
			Balancer:      v.GetString(KeyBalancer),
			VehicleID:     v.GetString(KeyVehicleID),
			Timeout:       v.GetDuration(KeyEtcdTimeout),
		},
		RateLimit: RateLimitConfig{
			PerSecond: v.GetFloat64(KeyRate),
			Burst:     v.GetInt(KeyBurst),
		},
		Log: LogConfig{
			Level:      v.GetString(KeyLogLevel),
			File:       v.GetString(KeyLogFile),
			MaxSizeMB:  v.GetInt(KeyLogMaxSize),
			MaxBackups: v.GetInt(KeyLogMaxBackups),
			MaxAgeDays: v.GetInt(KeyLogMaxAge),
		},
		JournalPath: v.GetString(KeyJournal),
		Metrics:     v.GetBool(KeyMetrics),
	}
	cfg.TCP.NoDelay = v.GetBool(KeyTCPNoDelay)
	cfg.TCP.KeepAlive = v.GetDuration(KeyTCPKeepAlive)
	cfg.TCP.LingerSec = v.GetInt(KeyTCPLinger)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
