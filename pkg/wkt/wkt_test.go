package wkt

import (
	"strings"
	"testing"
)

func TestBoxStringIsAClosedFiveVertexPolygon(t *testing.T) {
	b := Box{ULX: 0, ULY: 10, LRX: 5, LRY: 0}
	got := b.String()
	want := "POLYGON ((0.000000 10.000000, 5.000000 10.000000, 5.000000 0.000000, 0.000000 0.000000, 0.000000 10.000000))"
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestBoxStringClosesTheRing(t *testing.T) {
	b := Box{ULX: 1, ULY: 2, LRX: 3, LRY: 4}
	got := b.String()
	if !strings.HasPrefix(got, "POLYGON ((1.000000 2.000000, ") {
		t.Fatalf("expected ring to start at the upper-left corner, got %q", got)
	}
	if !strings.HasSuffix(got, "1.000000 2.000000))") {
		t.Fatalf("expected ring to close back on the upper-left corner, got %q", got)
	}
}
