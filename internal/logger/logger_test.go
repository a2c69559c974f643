package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	cases := map[string]zap.AtomicLevel{
		"debug": zap.NewAtomicLevelAt(zap.DebugLevel),
		"info":  zap.NewAtomicLevelAt(zap.InfoLevel),
		"":      zap.NewAtomicLevelAt(zap.InfoLevel),
		"warn":  zap.NewAtomicLevelAt(zap.WarnLevel),
		"bogus": zap.NewAtomicLevelAt(zap.ErrorLevel),
	}
	for level, want := range cases {
		log, err := New(level)
		if err != nil {
			t.Fatalf("New(%q): %v", level, err)
		}
		if !log.Core().Enabled(want.Level()) {
			t.Errorf("New(%q): level %s not enabled", level, want.Level())
		}
		if want.Level() > zap.DebugLevel && log.Core().Enabled(want.Level()-1) {
			t.Errorf("New(%q): level below %s should be disabled", level, want.Level())
		}
	}
}
