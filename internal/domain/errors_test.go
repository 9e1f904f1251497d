package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestDependencyWrapsCause(t *testing.T) {
	err := Dependency("embed query", context.DeadlineExceeded)
	if !errors.Is(err, ErrDependency) {
		t.Errorf("expected ErrDependency, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected cause to be preserved, got %v", err)
	}
}

func TestDependencyKeepsClassifiedErrors(t *testing.T) {
	for _, sentinel := range []error{ErrValidation, ErrConflict, ErrNotFound, ErrDependency} {
		in := fmt.Errorf("store: %w", sentinel)
		if got := Dependency("op", in); got != in {
			t.Errorf("expected %v unchanged, got %v", in, got)
		}
	}
	if Dependency("op", nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestInvalid(t *testing.T) {
	err := Invalid("chunk_size must be positive, got %d", 0)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	want := "validation failed: chunk_size must be positive, got 0"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestIndexProfileCompatible(t *testing.T) {
	stored := IndexProfile{Model: "feature-hash-v1-384", Dimension: 384, Distance: "cosine"}
	if err := stored.Compatible(stored); err != nil {
		t.Errorf("expected identical profiles to be compatible, got %v", err)
	}

	other := stored
	other.Dimension = 768
	if err := stored.Compatible(other); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for dimension change, got %v", err)
	}
}
