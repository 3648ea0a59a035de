package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv(EnvUser, "")
	t.Setenv(EnvPassword, "")
	t.Setenv(EnvLogLevel, "")

	s := FromEnv()
	if s.LogLevel != slog.LevelInfo {
		t.Errorf("default level = %v, want info", s.LogLevel)
	}
	if s.Timeout != 10*time.Second {
		t.Errorf("default timeout = %v, want 10s", s.Timeout)
	}
	if s.PageSize != 50 || s.PageCap != 64 {
		t.Errorf("paging defaults = %d/%d", s.PageSize, s.PageCap)
	}
	if s.OutputDir != "video" {
		t.Errorf("default output dir = %q", s.OutputDir)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv(EnvUser, "admin")
	t.Setenv(EnvPassword, "qwert123")
	t.Setenv(EnvLogLevel, "debug")

	s := FromEnv()
	if s.Username != "admin" || s.Password != "qwert123" {
		t.Errorf("credentials = %q/%q", s.Username, s.Password)
	}
	if s.LogLevel != slog.LevelDebug {
		t.Errorf("level = %v, want debug", s.LogLevel)
	}
}

func TestFromEnvBadLevelFallsBack(t *testing.T) {
	t.Setenv(EnvLogLevel, "chatty")
	if s := FromEnv(); s.LogLevel != slog.LevelInfo {
		t.Errorf("level = %v, want info fallback", s.LogLevel)
	}
}
