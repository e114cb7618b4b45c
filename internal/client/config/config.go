package config

import (
	"os"
	"strings"
	"time"
)

// Config holds runtime settings for the trackvault CLI.
//
// Fields:
//   - ServerURL: base URL of the trackvault HTTP API.
//   - RequestTimeout: upper bound for a single API call; imports can take
//     minutes, so the default is generous.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:4000"
	c.RequestTimeout = 6 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

// normalize accepts "host:port" as a server address.
func (c *Config) normalize() {
	u := strings.TrimRight(strings.TrimSpace(c.ServerURL), "/")
	if u != "" && !strings.Contains(u, "://") {
		u = "http://" + u
	}
	c.ServerURL = u
}
