package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"", logrus.InfoLevel},
		{"debug", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := New(tt.level, &bytes.Buffer{})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if log.GetLevel() != tt.want {
				t.Errorf("level: got %v, want %v", log.GetLevel(), tt.want)
			}
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("chatty", &bytes.Buffer{}); err == nil {
		t.Error("New should reject an unknown level")
	}
}

func TestNew_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("info", &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	log.WithField("file", "a.jpg").Info("saved")

	out := buf.String()
	if !strings.Contains(out, "saved") || !strings.Contains(out, "file=a.jpg") {
		t.Errorf("unexpected log output: %q", out)
	}
}
