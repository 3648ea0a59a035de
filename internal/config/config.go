// Package config resolves process-wide settings once at startup. The value
// is passed explicitly into the commands and components that need it; nothing
// here is consulted ambiently after construction.
package config

import (
	"log/slog"
	"os"
	"time"
)

// Environment variables recognized by the tool.
const (
	EnvUser     = "LAVIEW_NVR_USER"
	EnvPassword = "LAVIEW_NVR_PASS"
	EnvLogLevel = "LAVIEW_LOG_LEVEL"
)

// Settings are the run-wide defaults and environment-supplied values.
type Settings struct {
	// Username and Password are the fallback credentials used when neither
	// flags nor a device profile supply them.
	Username string
	Password string

	LogLevel slog.Level

	// Timeout is the default per-request timeout when no device profile
	// overrides it.
	Timeout time.Duration

	// PageSize and PageCap bound recording-search pagination.
	PageSize int
	PageCap  int

	// OutputDir is the default root of the local video archive.
	OutputDir string
}

// FromEnv builds Settings from the environment plus built-in defaults.
func FromEnv() *Settings {
	s := &Settings{
		Username:  os.Getenv(EnvUser),
		Password:  os.Getenv(EnvPassword),
		LogLevel:  slog.LevelInfo,
		Timeout:   10 * time.Second,
		PageSize:  50,
		PageCap:   64,
		OutputDir: "video",
	}
	if text := os.Getenv(EnvLogLevel); text != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(text)); err == nil {
			s.LogLevel = level
		}
	}
	return s
}
