package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/trackvault/internal/flagx"
	"github.com/dmitrijs2005/trackvault/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// either "15m" style strings or integer nanoseconds. Zero values leave the
// corresponding Config field untouched.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	AccessTokenSecret            string         `json:"access_token_secret"`
	RefreshTokenSecret           string         `json:"refresh_token_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	UsersDB                      string         `json:"users_db"`
	UsersFile                    string         `json:"users_file"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	S3Region                     string         `json:"s3_region"`
	S3AccessKey                  string         `json:"s3_access_key"`
	S3SecretKey                  string         `json:"s3_secret_key"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3UsePathStyle               *bool          `json:"s3_use_path_style"`
	SignedURLTTL                 timex.Duration `json:"signed_url_ttl"`
	MaxUploadBytes               int64          `json:"max_upload_bytes"`
	IngestResolver               string         `json:"ingest_resolver"`
	ConverterEndpoint            string         `json:"converter_endpoint"`
	FFmpegPath                   string         `json:"ffmpeg_path"`
	AudioBitrate                 int            `json:"audio_bitrate"`
	TempDir                      string         `json:"temp_dir"`
	IngestFetchTimeout           timex.Duration `json:"ingest_fetch_timeout"`
	IngestTimeout                timex.Duration `json:"ingest_timeout"`
	IngestMaxBytes               int64          `json:"ingest_max_bytes"`
	IngestMaxConcurrent          int            `json:"ingest_max_concurrent"`
	RedisURL                     string         `json:"redis_url"`
	LogBackend                   string         `json:"log_backend"`
	LogLevel                     string         `json:"log_level"`
	LoginRatePerMinute           int            `json:"login_rate_per_minute"`
	LoginRateBurst               int            `json:"login_rate_burst"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads the file named by -c/-config (or $CONFIG) and copies every
// non-zero value into config. No path means nothing to do.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.OrDefault(config.AccessTokenValidityDuration)
	config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.OrDefault(config.RefreshTokenValidityDuration)
	setString(&config.UsersDB, c.UsersDB)
	setString(&config.UsersFile, c.UsersFile)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	if c.S3UsePathStyle != nil {
		config.S3UsePathStyle = *c.S3UsePathStyle
	}
	config.SignedURLTTL = c.SignedURLTTL.OrDefault(config.SignedURLTTL)
	setNumber(&config.MaxUploadBytes, c.MaxUploadBytes)
	setString(&config.IngestResolver, c.IngestResolver)
	setString(&config.ConverterEndpoint, c.ConverterEndpoint)
	setString(&config.FFmpegPath, c.FFmpegPath)
	setNumber(&config.AudioBitrate, c.AudioBitrate)
	setString(&config.TempDir, c.TempDir)
	config.IngestFetchTimeout = c.IngestFetchTimeout.OrDefault(config.IngestFetchTimeout)
	config.IngestTimeout = c.IngestTimeout.OrDefault(config.IngestTimeout)
	setNumber(&config.IngestMaxBytes, c.IngestMaxBytes)
	setNumber(&config.IngestMaxConcurrent, c.IngestMaxConcurrent)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.LogLevel, c.LogLevel)
	setNumber(&config.LoginRatePerMinute, c.LoginRatePerMinute)
	setNumber(&config.LoginRateBurst, c.LoginRateBurst)
	config.ShutdownTimeout = c.ShutdownTimeout.OrDefault(config.ShutdownTimeout)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setNumber[T int | int64](dst *T, v T) {
	if v != 0 {
		*dst = v
	}
}
