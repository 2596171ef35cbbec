// Package config loads the environment surface enumerated in spec §6.6.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the full configuration surface. Required fields are validated
// at startup in Load, matching the original backend/config.py's fail-fast
// check of req_vars before the process accepts traffic.
type Config struct {
	DBURL      string // DB_URL
	EchoSQL    bool   // ECHO_SQL

	YTToMP3URL   string // YT_TO_MP3_URL
	QueryParam   string // QUERY_PARAM
	RapidAPIKey  string // RAPID_API_KEY
	RapidAPIHost string // RAPID_API_HOST

	YouTubeAPIKey string // YOUTUBE_API_KEY

	SongDir string // SONG_DIR

	SampleRate           int     // SAMPLE_RATE
	ConfidenceThreshold  float64 // CONFIDENCE_THRESHOLD
}

// Load reads .env (if present, via godotenv, same as the teacher's
// main.go) then the process environment, applying the defaults from
// spec §6.6 and returning an error naming every missing required variable.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBURL:         os.Getenv("DB_URL"),
		EchoSQL:       parseBool(os.Getenv("ECHO_SQL"), false),
		YTToMP3URL:    os.Getenv("YT_TO_MP3_URL"),
		QueryParam:    getEnvDefault("QUERY_PARAM", "id"),
		RapidAPIKey:   os.Getenv("RAPID_API_KEY"),
		RapidAPIHost:  os.Getenv("RAPID_API_HOST"),
		YouTubeAPIKey: os.Getenv("YOUTUBE_API_KEY"),
		SongDir:       getEnvDefault("SONG_DIR", "downloaded_songs"),
		SampleRate:    getEnvInt("SAMPLE_RATE", 44100),
		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", 0.0),
	}

	var missing []string
	for name, val := range map[string]string{
		"DB_URL":          cfg.DBURL,
		"YT_TO_MP3_URL":   cfg.YTToMP3URL,
		"RAPID_API_KEY":   cfg.RapidAPIKey,
		"RAPID_API_HOST":  cfg.RapidAPIHost,
		"YOUTUBE_API_KEY": cfg.YouTubeAPIKey,
	} {
		if val == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func parseBool(v string, def bool) bool {
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
