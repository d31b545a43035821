package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/coffersTech/topicview/internal/storage"
)

// Config is read from an optional TOML file; TOPICVIEW_* environment
// variables override whatever the file sets.
type Config struct {
	HTTPAddr string `toml:"http_addr"` // TOPICVIEW_HTTP_ADDR (default ":8080")
	WebDir   string `toml:"web_dir"`   // TOPICVIEW_WEB_DIR (optional static UI)
	LogLevel string `toml:"log_level"` // TOPICVIEW_LOG_LEVEL (default "info")
	TimeZone string `toml:"time_zone"` // TOPICVIEW_TIME_ZONE (default "Local")

	PresetsFile string `toml:"presets_file"` // TOPICVIEW_PRESETS_FILE (default "topicview-presets.json")

	// Fetch sources, tried in order: Kafka, NATS, file.
	KafkaBrokers []string `toml:"kafka_brokers"` // TOPICVIEW_KAFKA_BROKERS, comma separated
	SourceFile   string   `toml:"source_file"`   // TOPICVIEW_SOURCE_FILE
	NATSURL      string   `toml:"nats_url"`      // TOPICVIEW_NATS_URL
	NATSPrefix   string   `toml:"nats_prefix"`   // TOPICVIEW_NATS_PREFIX (default "topics")
	Topics       []string `toml:"topics"`        // TOPICVIEW_TOPICS, comma separated; enables fan-out
	FetchLimit   int      `toml:"fetch_limit"`   // TOPICVIEW_FETCH_LIMIT (default 100)
	FetchTimeout string   `toml:"fetch_timeout"` // TOPICVIEW_FETCH_TIMEOUT (default "5s")

	// Export settings
	ExportDir   string `toml:"export_dir"`   // TOPICVIEW_EXPORT_DIR (default "exports")
	ExportCodec string `toml:"export_codec"` // TOPICVIEW_EXPORT_CODEC (default "zstd")
	S3Bucket    string `toml:"s3_bucket"`    // TOPICVIEW_S3_BUCKET (enables S3 when set)
	S3Region    string `toml:"s3_region"`    // TOPICVIEW_S3_REGION (default "us-east-1")
	S3Endpoint  string `toml:"s3_endpoint"`  // TOPICVIEW_S3_ENDPOINT (custom endpoint for MinIO)
	S3Prefix    string `toml:"s3_prefix"`    // TOPICVIEW_S3_PREFIX (default "topicview")
}

func defaults() *Config {
	return &Config{
		HTTPAddr:     ":8080",
		LogLevel:     "info",
		TimeZone:     "Local",
		PresetsFile:  "topicview-presets.json",
		NATSPrefix:   "topics",
		FetchLimit:   100,
		FetchTimeout: "5s",
		ExportDir:    "exports",
		ExportCodec:  "zstd",
		S3Region:     "us-east-1",
		S3Prefix:     "topicview",
	}
}

// Load reads path (skipped when empty or missing) and applies the
// environment on top.
func Load(path string) (*Config, error) {
	c := defaults()
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	c.HTTPAddr = envOrDefault("TOPICVIEW_HTTP_ADDR", c.HTTPAddr)
	c.WebDir = envOrDefault("TOPICVIEW_WEB_DIR", c.WebDir)
	c.LogLevel = envOrDefault("TOPICVIEW_LOG_LEVEL", c.LogLevel)
	c.TimeZone = envOrDefault("TOPICVIEW_TIME_ZONE", c.TimeZone)
	c.PresetsFile = envOrDefault("TOPICVIEW_PRESETS_FILE", c.PresetsFile)
	c.SourceFile = envOrDefault("TOPICVIEW_SOURCE_FILE", c.SourceFile)
	c.NATSURL = envOrDefault("TOPICVIEW_NATS_URL", c.NATSURL)
	c.NATSPrefix = envOrDefault("TOPICVIEW_NATS_PREFIX", c.NATSPrefix)
	c.FetchTimeout = envOrDefault("TOPICVIEW_FETCH_TIMEOUT", c.FetchTimeout)
	c.ExportDir = envOrDefault("TOPICVIEW_EXPORT_DIR", c.ExportDir)
	c.ExportCodec = envOrDefault("TOPICVIEW_EXPORT_CODEC", c.ExportCodec)
	c.S3Bucket = envOrDefault("TOPICVIEW_S3_BUCKET", c.S3Bucket)
	c.S3Region = envOrDefault("TOPICVIEW_S3_REGION", c.S3Region)
	c.S3Endpoint = envOrDefault("TOPICVIEW_S3_ENDPOINT", c.S3Endpoint)
	c.S3Prefix = envOrDefault("TOPICVIEW_S3_PREFIX", c.S3Prefix)

	if v := os.Getenv("TOPICVIEW_KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv("TOPICVIEW_TOPICS"); v != "" {
		c.Topics = splitList(v)
	}
	if v := os.Getenv("TOPICVIEW_FETCH_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("TOPICVIEW_FETCH_LIMIT: %w", err)
		}
		c.FetchLimit = n
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the values that are parsed later on.
func (c *Config) Validate() error {
	if c.FetchLimit <= 0 {
		return fmt.Errorf("fetch_limit: must be positive, got %d", c.FetchLimit)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.Codec(); err != nil {
		return fmt.Errorf("export_codec: %w", err)
	}
	return nil
}

// Timeout is the parsed fetch timeout.
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil {
		return 0, fmt.Errorf("fetch_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("fetch_timeout: must be positive, got %s", d)
	}
	return d, nil
}

// Level is the parsed log level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// Location is the display time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time_zone: %w", err)
	}
	return loc, nil
}

// Codec is the export codec.
func (c *Config) Codec() (storage.Codec, error) {
	return storage.ParseCodec(c.ExportCodec)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
