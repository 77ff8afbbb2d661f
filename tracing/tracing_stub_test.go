//go:build notrace

package tracing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestTracingStubNoOps(t *testing.T) {
	if CanEnable() {
		t.Fatal("Expected tracing to be compiled out")
	}
	path := filepath.Join(t.TempDir(), "stub.json")

	if err := Enable(path); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Enable() expected ErrUnavailable, got %v", err)
	}
	if err := Disable(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Disable() expected ErrUnavailable, got %v", err)
	}
	if err := Flush(); err != nil {
		t.Fatalf("Flush() returned error: %v", err)
	}

	Begin("stub")
	End("stub")
	Scope("stub")()

	fn := func(n int) int { return n + 1 }
	if got := Wrap(fn)(1); got != 2 {
		t.Errorf("Expected wrapped stub to call through, got %d", got)
	}

	if _, err := os.Stat(path); err == nil {
		t.Fatal("expected no file to be written when tracing is compiled out")
	}
}
