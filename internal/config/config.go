package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Forwarder ForwarderConfig `mapstructure:"forwarder"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Debug     bool            `mapstructure:"debug"`
}

type ServerConfig struct {
	Port                 int           `mapstructure:"port"`
	ReadTimeout          time.Duration `mapstructure:"read_timeout"`
	WriteTimeout         time.Duration `mapstructure:"write_timeout"`
	IdleTimeout          time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes         int64         `mapstructure:"max_body_bytes"`
	MaxDecompressedBytes int64         `mapstructure:"max_decompressed_bytes"`
}

// AuthConfig holds the shared bearer secret expected on every relay request.
type AuthConfig struct {
	Token string `mapstructure:"token"`
}

type ForwarderConfig struct {
	Verbose    bool `mapstructure:"verbose"`
	TTL        int  `mapstructure:"ttl"`
	SourcePort int  `mapstructure:"source_port"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LogLevel returns the configured level, forced to "debug" when Debug is set.
func (c *Config) LogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.Logging.Level
}

// Load reads defaults, the optional config file and RELAY_ environment
// overrides, then validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("server.max_decompressed_bytes", 64<<20)
	v.SetDefault("auth.token", "")
	v.SetDefault("debug", false)
	v.SetDefault("forwarder.verbose", false)
	v.SetDefault("forwarder.ttl", 64)
	v.SetDefault("forwarder.source_port", 0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/hecrelay")
	}

	// RELAY_AUTH_TOKEN, RELAY_FORWARDER_VERBOSE, ...
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that would make the relay unusable.
func (c *Config) Validate() error {
	if c.Auth.Token == "" {
		return errors.New("auth.token is required (set RELAY_AUTH_TOKEN)")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if c.Server.MaxDecompressedBytes <= 0 {
		return fmt.Errorf("server.max_decompressed_bytes must be positive, got %d", c.Server.MaxDecompressedBytes)
	}
	if c.Forwarder.TTL < 1 || c.Forwarder.TTL > 255 {
		return fmt.Errorf("forwarder.ttl %d out of range 1-255", c.Forwarder.TTL)
	}
	if c.Forwarder.SourcePort < 0 || c.Forwarder.SourcePort > 65535 {
		return fmt.Errorf("forwarder.source_port %d out of range 0-65535", c.Forwarder.SourcePort)
	}
	return nil
}
