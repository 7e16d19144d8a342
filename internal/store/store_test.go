package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPublishLookup(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	t.Run("roundtrip", func(t *testing.T) {
		payload := []byte(`{"module_name":"aws_crt_common"}`)
		if err := s.Publish("aws_crt_common", payload); err != nil {
			t.Fatalf("Publish: %v", err)
		}
		got, err := s.Lookup("aws_crt_common")
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if string(got) != string(payload) {
			t.Errorf("got %q, want %q", got, payload)
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, err := s.Lookup("never_published")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("write once", func(t *testing.T) {
		if err := s.Publish("once", []byte("a")); err != nil {
			t.Fatalf("Publish: %v", err)
		}
		err := s.Publish("once", []byte("b"))
		if !errors.Is(err, ErrAlreadyPublished) {
			t.Errorf("got %v, want ErrAlreadyPublished", err)
		}
		got, err := s.Lookup("once")
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if string(got) != "a" {
			t.Errorf("second publish overwrote payload: got %q, want %q", got, "a")
		}
	})
}

func TestFailedPublishLeavesKeyFree(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Make the backing dir unwritable so the publish fails mid-write.
	modules := filepath.Join(dir, "modules")
	if err := os.Chmod(modules, 0o555); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	if err := s.Publish("flaky", []byte("partial")); err == nil {
		t.Fatal("Publish into unwritable dir succeeded, want error")
	}
	if err := os.Chmod(modules, 0o755); err != nil {
		t.Fatalf("Chmod: %v", err)
	}

	// The failed attempt must not have claimed the key.
	if _, err := s.Lookup("flaky"); !errors.Is(err, ErrNotFound) {
		t.Errorf("failed publish claimed the key: %v", err)
	}
	if err := s.Publish("flaky", []byte("complete")); err != nil {
		t.Fatalf("Publish after failed attempt: %v", err)
	}
	got, err := s.Lookup("flaky")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if string(got) != "complete" {
		t.Errorf("got %q, want %q", got, "complete")
	}
	assertNoTempFiles(t, modules)
}

// assertNoTempFiles checks that publishing cleaned up its staging files.
func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".publish-") {
			t.Errorf("staging file %s not removed", e.Name())
		}
	}
}

func TestLookupAcrossStores(t *testing.T) {
	// Two Store instances on the same session dir model two build-step
	// processes sharing the propagation channel.
	dir := t.TempDir()
	writer, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := writer.Publish("upstream", []byte("cfg")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	reader, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := reader.Lookup("upstream")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if string(got) != "cfg" {
		t.Errorf("got %q, want %q", got, "cfg")
	}
}
