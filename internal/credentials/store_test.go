package credentials

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	s := NewFileStore(path)

	if _, ok := s.Get(); ok {
		t.Fatalf("empty store must report no token")
	}

	if err := s.Set("token-1"); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	token, ok := s.Get()
	if !ok || token != "token-1" {
		t.Fatalf("Get = %q (%v), want token-1", token, ok)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat token file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("token file mode = %o, want 600", perm)
	}
}

func TestFileStore_LastWriteWins(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "token"))

	if err := s.Set("first"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := s.Set("second"); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	token, ok := s.Get()
	if !ok || token != "second" {
		t.Fatalf("Get = %q (%v), want second", token, ok)
	}
}

func TestFileStore_ClearIsIdempotent(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "token"))

	if err := s.Set("token-1"); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear error: %v", err)
	}

	if _, ok := s.Get(); ok {
		t.Fatalf("token must be absent after Clear")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	if _, ok := s.Get(); ok {
		t.Fatalf("new store must be empty")
	}

	if err := s.Set("token-1"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if token, ok := s.Get(); !ok || token != "token-1" {
		t.Fatalf("Get = %q (%v)", token, ok)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if _, ok := s.Get(); ok {
		t.Fatalf("token must be absent after Clear")
	}
}
