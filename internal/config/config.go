package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/sandwichlabs/mcpc/internal/connect"
	"github.com/spf13/viper"
)

// Config root configuration
type Config struct {
	API          APIConfig          `mapstructure:"api" json:"api"`
	Connector    ConnectorConfig    `mapstructure:"connector" json:"connector"`
	Capabilities CapabilitiesConfig `mapstructure:"capabilities" json:"capabilities"`
	Panel        PanelConfig        `mapstructure:"panel" json:"panel"`
	Log          LogConfig          `mapstructure:"log" json:"log"`
}

// APIConfig chat backend settings
type APIConfig struct {
	BaseURL   string `mapstructure:"base_url" json:"base_url"`
	SessionID string `mapstructure:"session_id" json:"session_id"`
	Token     string `mapstructure:"token" json:"token"`
	// Timeout in seconds.
	Timeout int `mapstructure:"timeout" json:"timeout"`
}

// ConnectorConfig selects who performs connect calls: the backend ("api") or this process ("direct").
type ConnectorConfig struct {
	Mode string `mapstructure:"mode" json:"mode"`
}

// CapabilitiesConfig lists which transports the connect form offers.
type CapabilitiesConfig struct {
	Stdio          bool `mapstructure:"stdio" json:"stdio"`
	SSE            bool `mapstructure:"sse" json:"sse"`
	StreamableHTTP bool `mapstructure:"streamable_http" json:"streamable_http"`
}

// PanelConfig task panel settings
type PanelConfig struct {
	// CompactWidth is the terminal width below which the panel shows a single card.
	CompactWidth int `mapstructure:"compact_width" json:"compact_width"`
}

// LogConfig logging settings
type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
	File  string `mapstructure:"file" json:"file"`
}

const (
	ModeAPI    = "api"
	ModeDirect = "direct"
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 60,
		},
		Connector: ConnectorConfig{Mode: ModeAPI},
		Capabilities: CapabilitiesConfig{
			Stdio:          true,
			SSE:            true,
			StreamableHTTP: true,
		},
		Panel: PanelConfig{CompactWidth: 80},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the mcpc config directory
func ConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("failed to resolve home directory, using current directory as fallback", "error", err)
		homeDir = "."
	}
	return filepath.Join(homeDir, ".mcpc")
}

// ConfigPath returns the default config file path
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load reads the config at path, or ConfigPath when path is empty. A missing
// file is created with defaults. MCPC_* environment variables override the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = ConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(cfg, path); err != nil {
			return cfg, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("MCPC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.MatchName = func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		}
	}); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func normalizeKey(input string) string {
	input = strings.ReplaceAll(input, "_", "")
	input = strings.ReplaceAll(input, "-", "")
	return strings.ToLower(input)
}

// Save writes cfg to path, or ConfigPath when path is empty.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Validate checks that the configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:8000"
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http or https URL, got %q", c.API.BaseURL)
	}

	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative, got %d", c.API.Timeout)
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 60
	}

	mode := strings.ToLower(strings.TrimSpace(c.Connector.Mode))
	switch mode {
	case "":
		c.Connector.Mode = ModeAPI
	case ModeAPI, ModeDirect:
		c.Connector.Mode = mode
	default:
		return fmt.Errorf("connector.mode must be one of api, direct; got %q", c.Connector.Mode)
	}

	if c.Panel.CompactWidth < 0 {
		return fmt.Errorf("panel.compact_width must not be negative, got %d", c.Panel.CompactWidth)
	}
	if c.Panel.CompactWidth == 0 {
		c.Panel.CompactWidth = 80
	}

	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	if level == "" {
		c.Log.Level = "info"
	} else {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[level] {
			return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
		}
		c.Log.Level = level
	}

	return nil
}

// ConnectCapabilities converts the capability flags for the connect form.
func (c *Config) ConnectCapabilities() connect.Capabilities {
	return connect.Capabilities{
		Stdio:          c.Capabilities.Stdio,
		SSE:            c.Capabilities.SSE,
		StreamableHTTP: c.Capabilities.StreamableHTTP,
	}
}

// APITimeout returns api.timeout as a duration.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.Timeout) * time.Second
}

// SessionID returns the configured chat session id, generating one when unset.
// The generated id is kept so later calls agree.
func (c *Config) SessionID() string {
	if strings.TrimSpace(c.API.SessionID) == "" {
		c.API.SessionID = uuid.NewString()
		slog.Debug("Generated session id", "session", c.API.SessionID)
	}
	return c.API.SessionID
}
