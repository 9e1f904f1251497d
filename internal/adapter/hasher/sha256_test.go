package hasher

import (
	"errors"
	"testing"

	"docindex/internal/domain"
)

func TestFingerprintKnownValue(t *testing.T) {
	fp, err := New().Fingerprint("")
	if err != nil {
		t.Fatal(err)
	}
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if fp != want {
		t.Errorf("expected %s, got %s", want, fp)
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	h := New()
	a, _ := h.Fingerprint("The sky is blue and beautiful.")
	b, _ := h.Fingerprint("The sky is blue and beautiful.")
	c, _ := h.Fingerprint("The sky is blue and beautiful!")

	if a != b {
		t.Errorf("same text gave different fingerprints: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different texts gave the same fingerprint")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestFingerprintRejectsInvalidUTF8(t *testing.T) {
	_, err := New().Fingerprint(string([]byte{0xff, 0xfe}))
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
