package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	for _, tc := range []struct {
		debug bool
		want  bool
	}{
		{false, false},
		{true, true},
	} {
		l, err := New(tc.debug)
		if err != nil {
			t.Fatalf("New(%v): %v", tc.debug, err)
		}
		if got := l.Core().Enabled(zap.DebugLevel); got != tc.want {
			t.Fatalf("New(%v) debug enabled = %v, want %v", tc.debug, got, tc.want)
		}
		if !l.Core().Enabled(zap.InfoLevel) {
			t.Fatalf("New(%v) info disabled", tc.debug)
		}
	}
}
