package logging_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pigeonmsg/pigeond/internal/infra/logging"
)

func makeRecord(level slog.Level, msg string) slog.Record {
	return slog.NewRecord(time.Now(), level, msg, 0)
}

func TestConsoleHandler_PkgLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		pkgLevels map[string]slog.Level
		logger    string
		level     slog.Level
		want      bool
	}{
		{
			name:   "no filter",
			logger: "repo.snapshot",
			level:  slog.LevelDebug,
			want:   true,
		},
		{
			name:      "exact match suppresses",
			pkgLevels: map[string]slog.Level{"repo.snapshot": slog.LevelWarn},
			logger:    "repo.snapshot",
			level:     slog.LevelInfo,
			want:      false,
		},
		{
			name:      "exact match passes",
			pkgLevels: map[string]slog.Level{"repo.snapshot": slog.LevelWarn},
			logger:    "repo.snapshot",
			level:     slog.LevelError,
			want:      true,
		},
		{
			name:      "prefix match suppresses child",
			pkgLevels: map[string]slog.Level{"repo": slog.LevelError},
			logger:    "repo.snapshot.filesystem",
			level:     slog.LevelInfo,
			want:      false,
		},
		{
			name:      "specific entry overrides prefix",
			pkgLevels: map[string]slog.Level{"repo": slog.LevelError, "repo.snapshot": slog.LevelDebug},
			logger:    "repo.snapshot",
			level:     slog.LevelDebug,
			want:      true,
		},
		{
			name:      "unrelated logger unaffected",
			pkgLevels: map[string]slog.Level{"repo": slog.LevelError},
			logger:    "svc.msgsvc",
			level:     slog.LevelInfo,
			want:      true,
		},
		{
			name:      "default key applies to all",
			pkgLevels: map[string]slog.Level{"": slog.LevelWarn},
			logger:    "svc.msgsvc",
			level:     slog.LevelInfo,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			//nolint:exhaustruct
			handler := (&logging.ConsoleHandler{
				Output:    &buf,
				Level:     slog.LevelDebug,
				PkgLevels: tt.pkgLevels,
			}).WithAttrs([]slog.Attr{slog.String("logger", tt.logger)})

			if err := handler.Handle(context.Background(), makeRecord(tt.level, "ping")); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.Len() > 0; got != tt.want {
				t.Errorf("Handle() wrote = %v, want %v", got, tt.want)
			}
		})
	}
}

//nolint:paralleltest // Configure mutates the global logging configuration
func TestGetLogger_Filter(t *testing.T) {
	var buf bytes.Buffer

	//nolint:exhaustruct
	logging.Configure(context.Background(), logging.LoggerConfig{
		Level:        "debug",
		Filter:       "repo.snapshot:error",
		OutputHandle: &buf,
	}, "test")

	buf.Reset()

	logging.GetLogger("repo.snapshot.filesystem").Info("filtered out")
	logging.GetLogger("svc.msgsvc").Info("kept")

	out := buf.String()

	if strings.Contains(out, "filtered out") {
		t.Error("filtered logger wrote below its override level")
	}

	if !strings.Contains(out, "kept") {
		t.Error("unfiltered logger output missing")
	}
}

//nolint:paralleltest // Configure mutates the global logging configuration
func TestGetLogger_ConcurrentConfigure(t *testing.T) {
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()

			//nolint:exhaustruct
			logging.Configure(context.Background(), logging.LoggerConfig{
				Level:        "info",
				OutputHandle: io.Discard,
			}, "test")
		}()

		go func() {
			defer wg.Done()

			logging.GetLogger("svc.msgsvc").Info("ping")
		}()
	}

	wg.Wait()
}
