package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffersTech/topicview/internal/storage"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topicview.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, 100, c.FetchLimit)
	assert.Equal(t, "topics", c.NATSPrefix)

	d, err := c.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)

	codec, err := c.Codec()
	require.NoError(t, err)
	assert.Equal(t, storage.CodecZstd, codec)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.HTTPAddr)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
http_addr = ":9000"
source_file = "records.jsonl"
topics = ["orders", "users"]
fetch_limit = 25
export_codec = "snappy"
log_level = "debug"
time_zone = "UTC"
`)
	t.Setenv("TOPICVIEW_HTTP_ADDR", ":9100")
	t.Setenv("TOPICVIEW_TOPICS", "payments, ,refunds")
	t.Setenv("TOPICVIEW_KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", c.HTTPAddr)
	assert.Equal(t, "records.jsonl", c.SourceFile)
	assert.Equal(t, []string{"payments", "refunds"}, c.Topics)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.KafkaBrokers)
	assert.Equal(t, 25, c.FetchLimit)

	level, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	codec, err := c.Codec()
	require.NoError(t, err)
	assert.Equal(t, storage.CodecSnappy, codec)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "bad toml", file: "http_addr = "},
		{name: "bad limit env", env: map[string]string{"TOPICVIEW_FETCH_LIMIT": "many"}},
		{name: "zero limit", file: "fetch_limit = 0"},
		{name: "bad timeout", env: map[string]string{"TOPICVIEW_FETCH_TIMEOUT": "soon"}},
		{name: "bad level", env: map[string]string{"TOPICVIEW_LOG_LEVEL": "loud"}},
		{name: "bad zone", env: map[string]string{"TOPICVIEW_TIME_ZONE": "Mars/Olympus"}},
		{name: "bad codec", env: map[string]string{"TOPICVIEW_EXPORT_CODEC": "gzip"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
