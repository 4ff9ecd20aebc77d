// Package app holds cmd/demo's environment-driven configuration, kept
// separate from the core module's explicit-Options constructors so the
// library never reads the environment behind a caller's back.
package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config configures the demo binary only; internal/source.Options is
// never populated from the environment directly.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	OTELEndpoint   string
	OTELSampleRate float64

	SegmentLengthUs   int64
	SegmentCount      int
	Live              bool
	BufferAheadUs     int64
	BufferSizeBytes   int64
	SimBitrateBytesPS int64
	PlaybackTick      time.Duration
}

// LoadConfig reads Config from the environment, falling back to demo
// defaults for a twelve-segment synthetic stream (cmd/demo supplies the
// two renditions itself).
func LoadConfig() Config {
	return Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8090"),
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		MongoURI:        getEnv("MONGO_URI", ""),
		MongoDatabase:   getEnv("MONGO_DB", "hlssource"),
		MongoCollection: getEnv("MONGO_COLLECTION", "load_events"),

		OTELEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELSampleRate: getEnvFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),

		SegmentLengthUs:   getEnvInt64("HLS_SEGMENT_LENGTH_US", 4_000_000),
		SegmentCount:      int(getEnvInt64("HLS_SEGMENT_COUNT", 12)),
		Live:              getEnvBool("HLS_LIVE", false),
		BufferAheadUs:     getEnvInt64("HLS_BUFFER_AHEAD_US", 20_000_000),
		BufferSizeBytes:   getEnvInt64("HLS_BUFFER_SIZE_BYTES", 32<<20),
		SimBitrateBytesPS: getEnvInt64("HLS_SIM_BITRATE_BYTES_PER_SEC", 1_500_000),
		PlaybackTick:      getEnvDuration("HLS_PLAYBACK_TICK", 500*time.Millisecond),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil || parsed < 0 || parsed > 1 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}
