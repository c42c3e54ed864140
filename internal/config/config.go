package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server Server `yaml:"server"`
	Engine Engine `yaml:"engine"`
	Corpus Corpus `yaml:"corpus"`
	Client Client `yaml:"client"`
}

// Server holds HTTP server configuration
type Server struct {
	Port         int           `yaml:"port"`
	Development  bool          `yaml:"development"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// Engine holds round-engine parameters, fixed at engine construction.
type Engine struct {
	RoundLength time.Duration `yaml:"round_length"`
	BreakLength time.Duration `yaml:"break_length"`
}

// Corpus holds the sentence corpus source.
type Corpus struct {
	Path string `yaml:"path"`
}

// Client holds connection-manager configuration.
type Client struct {
	ServerURL        string        `yaml:"server_url"`
	StateFile        string        `yaml:"state_file"`
	ReconnectMinWait time.Duration `yaml:"reconnect_min_wait"`
	ReconnectMaxWait time.Duration `yaml:"reconnect_max_wait"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	// Engine defaults
	if c.Engine.RoundLength == 0 {
		c.Engine.RoundLength = 10 * time.Second
	}
	if c.Engine.BreakLength == 0 {
		c.Engine.BreakLength = 5 * time.Second
	}

	// Client defaults
	if c.Client.ServerURL == "" {
		c.Client.ServerURL = "ws://localhost:3000/ws"
	}
	if c.Client.StateFile == "" {
		c.Client.StateFile = defaultStateFile()
	}
	if c.Client.ReconnectMinWait == 0 {
		c.Client.ReconnectMinWait = 1 * time.Second
	}
	if c.Client.ReconnectMaxWait == 0 {
		c.Client.ReconnectMaxWait = 30 * time.Second
	}
}

// applyEnv overlays the environment contract: PORT and APP_ENV.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if os.Getenv("APP_ENV") == "development" {
		c.Server.Development = true
	}
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".speedtype-user.json"
	}
	return dir + "/speedtype/user.json"
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}
