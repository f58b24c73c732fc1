package main

import (
	"context"
	"log/slog"
	"testing"
)

func TestNewLogger_LevelMapping(t *testing.T) {
	tests := []struct {
		level   string
		enabled slog.Level
		muted   slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 4},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"bogus", slog.LevelInfo, slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := newLogger(tt.level)
			ctx := context.Background()

			if !logger.Enabled(ctx, tt.enabled) {
				t.Errorf("level %s: expected %v to be enabled", tt.level, tt.enabled)
			}
			if logger.Enabled(ctx, tt.muted) {
				t.Errorf("level %s: expected %v to be muted", tt.level, tt.muted)
			}
		})
	}
}
