package util

import "testing"

func TestPseudonymize(t *testing.T) {
	id := "8f14e45f-ceea-467a-9575-2d1a5f0e4c11"
	got := Pseudonymize(id)
	if got != Pseudonymize(id) {
		t.Fatalf("expected stable key, got %s", got)
	}
	if got == Pseudonymize("another-user") {
		t.Fatalf("expected distinct keys for distinct ids")
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("key contains non-hex character: %c", ch)
		}
	}
	if len(got) != 16 {
		t.Fatalf("expected 16 hex characters, got %d", len(got))
	}
	if Pseudonymize("") != "" {
		t.Fatalf("expected empty key for guests")
	}
}

func TestSanitizeFileName(t *testing.T) {
	if _, err := SanitizeFileName("../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	got, err := SanitizeFileName(" user/1 ")
	if err != nil || got != "user_1" {
		t.Fatalf("expected user_1, got %q (%v)", got, err)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Fracture Detection":      "fracture_detection",
		"  Bone--Age (Greulich) ": "bone_age_greulich",
		"***":                     "report",
		"Ostéoporose":             "ostéoporose",
	}
	for in, want := range cases {
		if got := Slug(in, "report"); got != want {
			t.Fatalf("Slug(%q): expected %q, got %q", in, want, got)
		}
	}
}
