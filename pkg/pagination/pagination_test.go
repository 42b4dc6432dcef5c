package pagination

import (
	"testing"
	"time"
)

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("zero limit should normalize to default, got %d", got)
	}
	if got := NormalizeLimit(-3); got != DefaultLimit {
		t.Fatalf("negative limit should normalize to default, got %d", got)
	}
	if got := NormalizeLimit(MaxLimit + 50); got != MaxLimit {
		t.Fatalf("oversized limit should cap at max, got %d", got)
	}
	if got := NormalizeLimit(12); got != 12 {
		t.Fatalf("in-range limit should pass through, got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 600000000, time.UTC),
		ID:        "donation-42",
	}

	out, err := ParseCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("cursor mismatch: %+v vs %+v", out, in)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if _, err := ParseCursor("not-base64!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
	if _, err := ParseCursor("bm8tcGlwZQ=="); err == nil {
		t.Fatal("expected error for missing separator")
	}
	cur, err := ParseCursor("   ")
	if err != nil || cur != nil {
		t.Fatalf("blank cursor should be nil, got %v %v", cur, err)
	}
}
