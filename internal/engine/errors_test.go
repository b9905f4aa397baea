package engine

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	u := ErrUnsupportedModel("m")
	if !IsUnsupportedModel(u) || IsCapabilityUnavailable(u) || IsLoadFailure(u) {
		t.Fatalf("unsupported model misclassified: %v", u)
	}
	c := ErrCapabilityUnavailable("no gpu")
	if !IsCapabilityUnavailable(c) || c.Error() != "no gpu" {
		t.Fatalf("capability error misclassified: %v", c)
	}
	g := ErrGenerationFailure(errors.New("nan"))
	if !IsGenerationFailure(g) || g.Error() != "generation failed: nan" {
		t.Fatalf("generation failure misclassified: %v", g)
	}
}

func TestLoadFailure_UnwrapsCause(t *testing.T) {
	cause := ErrUnsupportedModel("x")
	err := fmt.Errorf("cache: %w", ErrLoadFailure("load model", cause))
	if !IsLoadFailure(err) {
		t.Fatalf("expected load failure through wrapping")
	}
	if !IsUnsupportedModel(err) {
		t.Fatalf("expected the unsupported cause to stay visible")
	}
	if err.Error() != "cache: load model: unsupported model: x" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
