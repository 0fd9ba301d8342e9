package rpc

import (
	"testing"
	"time"
)

func TestRegistry_InsertGetRemove(t *testing.T) {
	r := NewRegistry()
	s := NewSession("c1", 4, time.Second, nil)
	r.Insert(s)

	got, ok := r.Get("c1")
	if !ok || got != s {
		t.Fatalf("Get() = %v, %v, want %v, true", got, ok, s)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}

	r.Remove("c1")
	if _, ok := r.Get("c1"); ok {
		t.Fatal("session should be gone after Remove()")
	}
	if r.Len() != 0 {
		t.Fatalf("Len() after Remove() = %d, want 0", r.Len())
	}
}

func TestRegistry_IterFilter(t *testing.T) {
	r := NewRegistry()
	a := NewSession("a", 4, time.Second, nil)
	_ = a.SetUser("u1")
	b := NewSession("b", 4, time.Second, nil)
	_ = b.SetUser("u2")
	c := NewSession("c", 4, time.Second, nil)
	_ = c.SetUser("u1")
	r.Insert(a)
	r.Insert(b)
	r.Insert(c)

	var matched []string
	r.IterFilter(
		func(s *Session) bool { return s.UserID() == "u1" },
		func(s *Session) { matched = append(matched, s.ID) },
	)
	if len(matched) != 2 {
		t.Fatalf("IterFilter() matched %d sessions, want 2", len(matched))
	}
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry()
	r.Insert(NewSession("a", 4, time.Second, nil))
	r.Insert(NewSession("b", 4, time.Second, nil))
	if got := len(r.Snapshot()); got != 2 {
		t.Fatalf("Snapshot() length = %d, want 2", got)
	}
}
