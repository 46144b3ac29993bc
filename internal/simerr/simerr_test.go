package simerr

import (
	"errors"
	"testing"
)

func TestFitErrorUnwrap(t *testing.T) {
	cause := errors.New("optimizer stalled")
	err := error(NewFitError("gev:duration", cause))

	if !errors.Is(err, ErrFitFailure) {
		t.Errorf("expected errors.Is(err, ErrFitFailure)")
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is(err, cause)")
	}

	var fe *FitError
	if !errors.As(err, &fe) {
		t.Fatalf("expected errors.As to find *FitError")
	}
	if fe.Stage != "gev:duration" {
		t.Errorf("Stage = %q, expected %q", fe.Stage, "gev:duration")
	}
}

func TestConfigf(t *testing.T) {
	err := Configf("realizations must be positive, got %d", 0)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if err.Error() != "configuration error: realizations must be positive, got 0" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
