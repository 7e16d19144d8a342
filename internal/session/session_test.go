package session

import (
	"path/filepath"
	"testing"
)

func TestDir(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		t.Setenv(EnvSessionDir, "/tmp/build-session")
		got, err := Dir()
		if err != nil {
			t.Fatalf("Dir: %v", err)
		}
		if got != "/tmp/build-session" {
			t.Errorf("got %q, want %q", got, "/tmp/build-session")
		}
	})

	t.Run("unassigned", func(t *testing.T) {
		t.Setenv(EnvSessionDir, "")
		if _, err := Dir(); err == nil {
			t.Error("Dir without an assigned session dir succeeded, want error")
		}
	})
}

func TestOutputDir(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(EnvOutputDir, dir)
		got, err := OutputDir()
		if err != nil {
			t.Fatalf("OutputDir: %v", err)
		}
		if got != dir {
			t.Errorf("got %q, want %q", got, dir)
		}
	})

	t.Run("fallback", func(t *testing.T) {
		t.Setenv(EnvOutputDir, "")
		got, err := OutputDir()
		if err != nil {
			t.Fatalf("OutputDir: %v", err)
		}
		if filepath.Base(got) != "ccmod-out" {
			t.Errorf("got %q, want a ccmod-out dir", got)
		}
	})
}
