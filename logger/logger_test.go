package logger

import (
	"os"
	"path/filepath"
	"testing"

	"klinecache/config"
)

// go test -v --run TestNewWithFileOutput
func TestNewWithFileOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "logs", "klinecache.log")

	log, err := New(config.LogConfig{
		Level:       "debug",
		Format:      "json",
		OutputFile:  out,
		Environment: "prod",
	})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	log.Info("hello")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Dir(out)); err != nil {
		t.Fatalf("expected log directory to exist: %v", err)
	}
}

// go test -v --run TestNewInvalidLevel
func TestNewInvalidLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
}
