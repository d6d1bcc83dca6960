package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevelRejectsUnknownValue(t *testing.T) {
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLoggerSuppressesBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)

	l.Debugf("should not appear")
	l.Tracef("should not appear either")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below configured level, got %q", buf.String())
	}

	l.Warnf("warning: %s", "disk low")
	if !strings.Contains(buf.String(), "warning: disk low") {
		t.Fatalf("expected warning to be logged, got %q", buf.String())
	}
}

func TestLoggerAlwaysShowsErrorf(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelError)

	l.Infof("ignored")
	l.Errorf("boom: %v", "disk full")

	if strings.Contains(buf.String(), "ignored") {
		t.Fatalf("expected Infof to be suppressed at LevelError, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "boom: disk full") {
		t.Fatalf("expected Errorf to always be logged, got %q", buf.String())
	}
}
