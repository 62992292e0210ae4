package sha256

import "testing"

func TestHashIsDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	a := h.Hash([]byte("<rss>feed body</rss>"))
	b := h.Hash([]byte("<rss>feed body</rss>"))
	if a != b {
		t.Fatalf("same input produced %q and %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("digest length = %d, want 64 hex chars", len(a))
	}
}

func TestHashDetectsChange(t *testing.T) {
	t.Parallel()

	h := New()
	if h.Hash([]byte("v1")) == h.Hash([]byte("v2")) {
		t.Fatal("different inputs must not collide")
	}
}

func TestHashKnownVector(t *testing.T) {
	t.Parallel()

	h := New()
	if got := h.Hash([]byte("abc")); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("Hash(abc) = %q", got)
	}
}
