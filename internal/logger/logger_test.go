package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo).Named("sync")

	l.Info(context.Background(), "fetch committed", Int("items", 3), String("user", "ana"))

	out := buf.String()
	for _, want := range []string{"fetch committed", "items=3", "user=ana", "logger=sync", "source="} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelWarn)

	l.Info(context.Background(), "hidden")
	l.Error(context.Background(), "shown", Error(errors.New("boom")))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered: %s", out)
	}
	if !strings.Contains(out, "error=boom") {
		t.Errorf("expected error field, got: %s", out)
	}
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.Error(context.Background(), "nothing to see")
}

func TestGetWithoutInit(t *testing.T) {
	if Get() == nil {
		t.Fatal("Get should never return nil")
	}
}

func TestSetLevelString(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"WARNING", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			err := SetLevelString(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if levelVar.Level() != tc.want {
				t.Errorf("level = %v, want %v", levelVar.Level(), tc.want)
			}
		})
	}
}
