package source

import "testing"

func TestRegisterIsIdempotentOnPath(t *testing.T) {
	r := New()
	idx1, err := r.Register("lib/foo.t", "foo.t", -1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idx2, err := r.Register("lib/foo.t", "foo.t", -1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx1 != idx2 {
		t.Fatalf("Register not idempotent: got %d then %d", idx1, idx2)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 registered source, got %d", r.Len())
	}
}

func TestRegisterDistinctPaths(t *testing.T) {
	r := New()
	a, _ := r.Register("a.t", "a.t", -1, 0)
	b, _ := r.Register("b.t", "b.t", -1, 0)
	if a == b {
		t.Fatalf("distinct paths got the same index")
	}
}

func TestFindByNamespace(t *testing.T) {
	r := New()
	idx, _ := r.Register("a.t", "a.t", -1, 0)
	r.SetNamespace(idx, "mylib")
	found, ok := r.FindByNamespace("mylib")
	if !ok || found != idx {
		t.Fatalf("FindByNamespace: got (%d,%v), want (%d,true)", found, ok, idx)
	}
}

func TestTooManySources(t *testing.T) {
	r := New()
	for i := 0; i < MaxSources; i++ {
		path := string(rune('a' + i%26))
		if _, err := r.Register(path+string(rune(i)), path+string(rune(i)), -1, 0); err != nil {
			t.Fatalf("unexpected error registering source %d: %v", i, err)
		}
	}
	if _, err := r.Register("overflow", "overflow", -1, 0); err != ErrTooManySources {
		t.Fatalf("expected ErrTooManySources, got %v", err)
	}
}
