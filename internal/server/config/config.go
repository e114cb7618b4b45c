// Package config assembles the server settings from four layers applied in
// order: built-in defaults, an optional JSON file (-c/-config or $CONFIG),
// environment variables and finally command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Resolver names accepted by IngestResolver.
const (
	ResolverYouTube   = "youtube"
	ResolverConverter = "converter"
)

// Config holds runtime settings for the trackvault server.
//
// Secrets, the user list and every S3 value have no usable default; Validate
// rejects a config where any of them is missing.
type Config struct {
	EndpointAddrHTTP string `env:"PORT"`

	AccessTokenSecret            string        `env:"JWT_SECRET"`
	RefreshTokenSecret           string        `env:"REFRESH_TOKEN_SECRET"`
	AccessTokenValidityDuration  time.Duration `env:"ACCESS_TOKEN_TTL"`
	RefreshTokenValidityDuration time.Duration `env:"REFRESH_TOKEN_TTL"`

	// UsersDB is the inline JSON user list; UsersFile points at a file with
	// the same content. UsersDB wins when both are set.
	UsersDB   string `env:"USERS_DB"`
	UsersFile string `env:"USERS_FILE"`

	S3BaseEndpoint string        `env:"YA_ENDPOINT"`
	S3Region       string        `env:"YA_REGION"`
	S3AccessKey    string        `env:"YA_ACCESS_KEY"`
	S3SecretKey    string        `env:"YA_SECRET_KEY"`
	S3Bucket       string        `env:"YA_BUCKET"`
	S3UsePathStyle bool          `env:"S3_PATH_STYLE"`
	SignedURLTTL   time.Duration `env:"SIGNED_URL_TTL"`
	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES"`

	IngestResolver      string        `env:"INGEST_RESOLVER"`
	ConverterEndpoint   string        `env:"CONVERTER_ENDPOINT"`
	FFmpegPath          string        `env:"FFMPEG_PATH"`
	AudioBitrate        int           `env:"AUDIO_BITRATE"`
	TempDir             string        `env:"TEMP_DIR"`
	IngestFetchTimeout  time.Duration `env:"INGEST_FETCH_TIMEOUT"`
	IngestTimeout       time.Duration `env:"INGEST_TIMEOUT"`
	IngestMaxBytes      int64         `env:"INGEST_MAX_BYTES"`
	IngestMaxConcurrent int           `env:"INGEST_MAX_CONCURRENT"`

	// RedisURL enables refresh-token revocation when set.
	RedisURL string `env:"REDIS_URL"`

	LogBackend string `env:"LOG_BACKEND"`
	LogLevel   string `env:"LOG_LEVEL"`

	// LoginRatePerMinute limits login attempts per client IP; 0 disables it.
	LoginRatePerMinute int `env:"LOGIN_RATE_LIMIT"`
	LoginRateBurst     int `env:"LOGIN_RATE_BURST"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`
}

// LoadDefaults fills every field that has a sensible default.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":4000"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 30 * time.Minute
	c.S3UsePathStyle = true
	c.SignedURLTTL = time.Hour
	c.MaxUploadBytes = 100 << 20
	c.IngestResolver = ResolverYouTube
	c.FFmpegPath = "ffmpeg"
	c.AudioBitrate = 128
	c.IngestFetchTimeout = 2 * time.Minute
	c.IngestTimeout = 5 * time.Minute
	c.IngestMaxBytes = 100 << 20
	c.IngestMaxConcurrent = 2
	c.LogBackend = "slog"
	c.LogLevel = "info"
	c.LoginRatePerMinute = 10
	c.LoginRateBurst = 5
	c.ShutdownTimeout = 10 * time.Second
}

// LoadConfig builds a Config from defaults, JSON, environment and flags, then
// validates it.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize accepts a bare port number ("4000") as a listen address.
func (c *Config) normalize() {
	addr := strings.TrimSpace(c.EndpointAddrHTTP)
	if addr != "" && !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	c.EndpointAddrHTTP = addr
	c.IngestResolver = strings.ToLower(strings.TrimSpace(c.IngestResolver))
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	required := []struct {
		name  string
		value string
	}{
		{"JWT_SECRET", c.AccessTokenSecret},
		{"REFRESH_TOKEN_SECRET", c.RefreshTokenSecret},
		{"YA_ENDPOINT", c.S3BaseEndpoint},
		{"YA_REGION", c.S3Region},
		{"YA_ACCESS_KEY", c.S3AccessKey},
		{"YA_SECRET_KEY", c.S3SecretKey},
		{"YA_BUCKET", c.S3Bucket},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is not set", r.name))
		}
	}

	if c.UsersDB == "" && c.UsersFile == "" {
		errs = append(errs, errors.New("USERS_DB or USERS_FILE is not set"))
	}
	if c.EndpointAddrHTTP == "" {
		errs = append(errs, errors.New("PORT is empty"))
	}
	if c.AccessTokenValidityDuration <= 0 || c.RefreshTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}

	switch c.IngestResolver {
	case ResolverYouTube:
	case ResolverConverter:
		if c.ConverterEndpoint == "" {
			errs = append(errs, errors.New("CONVERTER_ENDPOINT is required for the converter resolver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown INGEST_RESOLVER %q", c.IngestResolver))
	}

	if c.IngestMaxConcurrent < 1 {
		errs = append(errs, errors.New("INGEST_MAX_CONCURRENT must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
