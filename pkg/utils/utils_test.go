package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMoveFile(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	src := filepath.Join(srcDir, "song.mp3")
	if err := os.WriteFile(src, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dstDir, "nested", "renamed.mp3")
	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile() error: %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source file still exists after move")
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "audio" {
		t.Errorf("destination content = (%q, %v)", data, err)
	}
}

func TestMoveFileMissingSource(t *testing.T) {
	if err := MoveFile(filepath.Join(t.TempDir(), "missing.mp3"), filepath.Join(t.TempDir(), "out.mp3")); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestCleanupRefusesOutsideTemp(t *testing.T) {
	if err := Cleanup("/etc"); err == nil {
		t.Error("Cleanup should refuse directories outside the temp folder")
	}
}

func TestCleanupEmptyPathIsNoOp(t *testing.T) {
	if err := Cleanup(""); err != nil {
		t.Errorf("Cleanup(\"\") error: %v", err)
	}
}
