//go:build unit

package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"go-cms-app/internal/config"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to unmarshal log output as json: %v\noutput: %s", err, buf.String())
	}
	return entry
}

func TestNew_Formats(t *testing.T) {
	t.Run("console", func(t *testing.T) {
		var buf bytes.Buffer
		New(config.LogConfig{Level: "info", Format: "console"}, &buf).Info("page created")

		output := buf.String()
		if !strings.Contains(output, "page created") {
			t.Errorf("expected output to contain the message, got %q", output)
		}
		if strings.HasPrefix(strings.TrimSpace(output), "{") {
			t.Errorf("expected console format, got json-like output: %s", output)
		}
	})

	t.Run("json with error", func(t *testing.T) {
		var buf bytes.Buffer
		New(config.LogConfig{Level: "error", Format: "json"}, &buf).Error(errors.New("disk full"), "Failed to write version")

		entry := decodeLine(t, &buf)
		if entry["level"] != "error" || entry["message"] != "Failed to write version" || entry["error"] != "disk full" {
			t.Errorf("unexpected entry: %v", entry)
		}
	})
}

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LogConfig{Level: "WARN", Format: "console"}, &buf)
	log.Info("ignored")
	log.Warn("kept")

	if strings.Contains(buf.String(), "ignored") {
		t.Error("info entry should have been filtered")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Error("warn entry should have been written")
	}

	buf.Reset()
	log = New(config.LogConfig{Level: "verbose", Format: "json"}, &buf)
	if !strings.Contains(buf.String(), "Invalid log level") {
		t.Errorf("expected a warning about the level, got %q", buf.String())
	}
	buf.Reset()
	log.Debug("hidden")
	log.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected info level fallback, got %q", buf.String())
	}
}

func TestForComponent(t *testing.T) {
	var buf bytes.Buffer
	log := ForComponent(New(config.LogConfig{Level: "debug", Format: "json"}, &buf), "pages").
		With(map[string]interface{}{"page_id": "p-1"})
	log.Debug("version written")

	entry := decodeLine(t, &buf)
	if entry["component"] != "pages" || entry["page_id"] != "p-1" {
		t.Errorf("expected component and page_id fields, got %v", entry)
	}
}

func TestNop(t *testing.T) {
	log := Nop().With(map[string]interface{}{"k": "v"})
	log.Info("discarded")
	log.Error(errors.New("x"), "discarded")
}
