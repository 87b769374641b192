package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesAllLevelsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldstock.log")

	logger, cleanup, err := New("info", path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("order created")
	logger.Error("notification failed")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(out, "order created") || !strings.Contains(out, "notification failed") {
		t.Errorf("expected info and error records, got %q", out)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, _, err := New("loud", ""); err == nil {
		t.Error("expected error for unknown level")
	}
}
