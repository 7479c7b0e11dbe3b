package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"DB_HOST", "ENV", "LOG_LEVEL", "PW_HEADLESS", "REPLAY_OUTPUT_DIR",
		"REPLAY_RECORD_TIMEOUT", "REPLAY_SETTLE_DELAY", "FFMPEG_PATH", "REPLAY_FETCH_RETRIES",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "dev", cfg.Logger.Env)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "replays", cfg.Recorder.OutputDir)
	assert.Equal(t, 150*time.Second, cfg.Recorder.RecordTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Recorder.SettleDelay)
	assert.Equal(t, 3, cfg.Recorder.FetchRetries)
	assert.Equal(t, "ffmpeg", cfg.Media.FFmpegPath)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("PW_HEADLESS", "no")
	t.Setenv("REPLAY_RECORD_TIMEOUT", "10m")
	t.Setenv("REPLAY_SETTLE_DELAY", "250")
	t.Setenv("REPLAY_FETCH_RETRIES", "oops")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Database.Enabled())
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 10*time.Minute, cfg.Recorder.RecordTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Recorder.SettleDelay)
	assert.Equal(t, 3, cfg.Recorder.FetchRetries)
}
