package id

import (
	"strings"
	"testing"
	"time"
)

func TestRandomGenerator_NewID(t *testing.T) {
	t.Parallel()

	gen := NewPrefixedGenerator("run")
	gen.now = func() time.Time { return time.Unix(1767225600, 0) }

	first, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID error: %v", err)
	}
	second, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID error: %v", err)
	}

	if !strings.HasPrefix(first, "run_1767225600_") {
		t.Fatalf("unexpected id format: %s", first)
	}
	if len(first) != len("run_1767225600_")+16 {
		t.Fatalf("unexpected id length: %s", first)
	}
	if first == second {
		t.Fatalf("expected unique ids, got %s twice", first)
	}
}
