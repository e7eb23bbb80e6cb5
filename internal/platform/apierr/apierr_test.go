package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound(errors.New("x")), http.StatusNotFound},
		{"conflict", Conflict(errors.New("x")), http.StatusConflict},
		{"transient", Transient(errors.New("x")), http.StatusBadGateway},
		{"invalid", Invalid(errors.New("x")), http.StatusBadRequest},
		{"wrapped", fmt.Errorf("load cart: %w", NotFound(errors.New("x"))), http.StatusNotFound},
		{"untyped", errors.New("x"), http.StatusInternalServerError},
		{"nil", nil, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Fatalf("StatusOf: want=%d got=%d", tt.want, got)
			}
		})
	}
}

func TestPredicatesUnwrap(t *testing.T) {
	inner := Conflict(errors.New("duplicate"))
	wrapped := fmt.Errorf("insert: %w", inner)

	if !IsConflict(wrapped) {
		t.Fatalf("IsConflict must see through wrapping")
	}
	if IsNotFound(wrapped) {
		t.Fatalf("IsNotFound: false positive")
	}
	if !errors.Is(wrapped, inner) {
		t.Fatalf("wrapped error lost its chain")
	}
}

func TestErrorMessage(t *testing.T) {
	err := NotFound(errors.New("track missing"))
	if err.Error() != "track missing" {
		t.Fatalf("Error(): want underlying message, got %q", err.Error())
	}
	bare := &Error{Code: CodeTransient}
	if bare.Error() != CodeTransient {
		t.Fatalf("Error() without cause: want code, got %q", bare.Error())
	}
}
