package object

import (
	"testing"
	"time"
)

func TestImageKey(t *testing.T) {
	at := time.UnixMilli(1718000000123)
	got, err := ImageKey("user-42", "fracture-detection", at, "png")
	if err != nil {
		t.Fatalf("ImageKey: %v", err)
	}
	if got != "user-42/fracture-detection/1718000000123.png" {
		t.Fatalf("unexpected key %q", got)
	}

	if _, err := ImageKey("../root", "bone-age", at, "jpg"); err == nil {
		t.Fatalf("expected traversal in user id to be rejected")
	}

	got, err = ImageKey("a/b", "bone-age", at, "")
	if err != nil {
		t.Fatalf("ImageKey: %v", err)
	}
	if got != "a_b/bone-age/1718000000123.bin" {
		t.Fatalf("unexpected key %q", got)
	}
}
