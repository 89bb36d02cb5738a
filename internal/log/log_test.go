package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInitStderrLevels(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Options{Stderr: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Close()

	slog.Debug("hidden")
	slog.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message reached stderr without verbose")
	}
	if !strings.Contains(out, "visible") {
		t.Error("warning missing from stderr")
	}
}

func TestInitVerbose(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Options{Stderr: &buf, Verbose: true}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Close()

	slog.Debug("debug line")
	if !strings.Contains(buf.String(), "debug line") {
		t.Error("verbose did not surface debug output")
	}
}

func TestDebugFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	if err := Init(Options{Stderr: &buf, DebugDir: dir}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	slog.Info("to file")
	Close()

	name := "lbrd-" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading debug file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Error("info message missing from debug file")
	}
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "lbrd-2020-01-01.log")
	current := filepath.Join(dir, "lbrd-"+time.Now().Format("2006-01-02")+".log")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, current, other} {
		os.WriteFile(p, []byte("x"), 0644)
	}

	Cleanup(dir, 7)

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("stale debug file survived cleanup")
	}
	if _, err := os.Stat(current); err != nil {
		t.Error("current debug file removed by cleanup")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("unrelated file removed by cleanup")
	}
}
