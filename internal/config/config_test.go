package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	vars := map[string]string{
		"DB_URL":          "test.db",
		"YT_TO_MP3_URL":   "https://example.test/convert",
		"RAPID_API_KEY":   "key",
		"RAPID_API_HOST":  "host",
		"YOUTUBE_API_KEY": "yt-key",
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
	_ = os.Unsetenv("SAMPLE_RATE")
	_ = os.Unsetenv("CONFIDENCE_THRESHOLD")
	_ = os.Unsetenv("SONG_DIR")
	_ = os.Unsetenv("ECHO_SQL")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, 0.0, cfg.ConfidenceThreshold)
	assert.Equal(t, "downloaded_songs", cfg.SongDir)
	assert.False(t, cfg.EchoSQL)
	assert.Equal(t, "id", cfg.QueryParam)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SAMPLE_RATE", "22050")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.4")
	t.Setenv("ECHO_SQL", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 22050, cfg.SampleRate)
	assert.Equal(t, 0.4, cfg.ConfidenceThreshold)
	assert.True(t, cfg.EchoSQL)
}

func TestLoadFailsFastOnMissingRequired(t *testing.T) {
	for _, k := range []string{"DB_URL", "YT_TO_MP3_URL", "RAPID_API_KEY", "RAPID_API_HOST", "YOUTUBE_API_KEY"} {
		t.Setenv(k, "")
	}
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_URL")
}
