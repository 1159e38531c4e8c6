package cache

import "testing"

// TestStoreRoundTrip verifies basic set/get/has/delete behavior.
func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := New()

	if s.Has("missing") {
		t.Error("expected Has to be false for absent key")
	}

	if _, ok := s.Get("missing"); ok {
		t.Error("expected Get to miss for absent key")
	}

	s.Set("k", "v1")
	if !s.Has("k") {
		t.Error("expected Has to be true after Set")
	}

	v, ok := s.Get("k")
	if !ok || v.(string) != "v1" {
		t.Errorf("expected v1, got %v (ok=%v)", v, ok)
	}

	// Overwrite replaces the previous entry
	s.Set("k", "v2")
	v, _ = s.Get("k")
	if v.(string) != "v2" {
		t.Errorf("expected v2 after overwrite, got %v", v)
	}

	s.Delete("k")
	if s.Has("k") {
		t.Error("expected key gone after Delete")
	}

	// Deleting again is a no-op
	s.Delete("k")
}

// TestStoreNoInternalExpiry verifies that entries never expire on their own.
func TestStoreNoInternalExpiry(t *testing.T) {
	t.Parallel()

	s := New()
	s.Set("k", 42)

	// The store has no janitor and no per-entry TTL; the entry must
	// survive until explicitly deleted.
	if v, ok := s.Get("k"); !ok || v.(int) != 42 {
		t.Errorf("expected entry to persist, got %v (ok=%v)", v, ok)
	}
}
