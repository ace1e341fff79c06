package vector

import (
	"regexp"
	"strings"
	"testing"
)

func TestDeriveID_Deterministic(t *testing.T) {
	a := DeriveID("/media/cat.jpg", "image")
	b := DeriveID("/media/cat.jpg", "image")
	if a != b {
		t.Errorf("same locator produced different IDs: %q vs %q", a, b)
	}
}

func TestDeriveID_Shape(t *testing.T) {
	id := DeriveID("/media/cat.jpg", "image")
	parts := strings.SplitN(id, "_", 2)
	if len(parts) != 2 {
		t.Fatalf("expected hash_type shape, got %q", id)
	}
	if len(parts[0]) != 10 {
		t.Errorf("expected 10-char hash prefix, got %d chars", len(parts[0]))
	}
	if parts[1] != "image" {
		t.Errorf("expected type suffix image, got %q", parts[1])
	}
}

func TestDeriveID_DistinctLocators(t *testing.T) {
	if DeriveID("/a.jpg", "image") == DeriveID("/b.jpg", "image") {
		t.Error("different locators produced the same ID")
	}
}

func TestDeriveID_TypeDisambiguates(t *testing.T) {
	if DeriveID("/a.mp4", "video") == DeriveID("/a.mp4", "audio") {
		t.Error("same locator with different types should differ")
	}
}

func TestDeriveSubID(t *testing.T) {
	base := DeriveID("/doc.txt", "document")
	tests := []struct {
		sub  any
		want string
	}{
		{0, base + "_0"},
		{17, base + "_17"},
		{"caption", base + "_caption"},
		{"ocr", base + "_ocr"},
		{"summary", base + "_summary"},
	}
	for _, tt := range tests {
		if got := DeriveSubID(base, tt.sub); got != tt.want {
			t.Errorf("DeriveSubID(%v) = %q, want %q", tt.sub, got, tt.want)
		}
	}
}

var uuidRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-3[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestPointUUID(t *testing.T) {
	id := DeriveID("/media/cat.jpg", "image")

	u := PointUUID(id)
	if !uuidRe.MatchString(u) {
		t.Errorf("not a valid v3 UUID: %q", u)
	}
	if PointUUID(id) != u {
		t.Error("PointUUID is not deterministic")
	}
	if PointUUID(id+"_ocr") == u {
		t.Error("distinct logical IDs mapped to the same UUID")
	}
}
