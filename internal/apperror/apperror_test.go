package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestConstructorsWrapTheirSentinels(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{name: "unauthorized", err: Unauthorized(), sentinel: ErrUnauthorized},
		{name: "forbidden", err: Forbidden("no touching"), sentinel: ErrForbidden},
		{name: "not found", err: NotFound("note"), sentinel: ErrNotFound},
		{name: "validation", err: ValidationFailed("title", "title is required"), sentinel: ErrValidation},
		{name: "dependency", err: Dependency("notes.create", errors.New("disk full")), sentinel: ErrDependency},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if !errors.Is(testCase.err, testCase.sentinel) {
				t.Fatalf("expected %v to wrap %v", testCase.err, testCase.sentinel)
			}
		})
	}
}

func TestNotFoundNeverDistinguishesOwnership(t *testing.T) {
	foreign := NotFound("note")
	absent := NotFound("note")
	if foreign.Error() != absent.Error() {
		t.Fatalf("messages must be identical: %q vs %q", foreign.Error(), absent.Error())
	}
}

func TestValidationCarriesField(t *testing.T) {
	err := ValidationFailed("priority", "priority must be between 0 and 3")
	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError")
	}
	if appErr.Field != "priority" {
		t.Fatalf("unexpected field %q", appErr.Field)
	}
}

func TestDependencyHidesCauseFromMessageButKeepsChain(t *testing.T) {
	cause := errors.New("connection refused to 10.0.0.5:5432")
	err := Dependency("notes.list", cause)

	if err.Error() != "notes.list failed" {
		t.Fatalf("cause leaked into message: %q", err.Error())
	}
	chain := fmt.Sprintf("%v", errors.Unwrap(err))
	if chain == "" || !errors.Is(err, ErrDependency) {
		t.Fatalf("expected cause preserved on the chain")
	}
}
