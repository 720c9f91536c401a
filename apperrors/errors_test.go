package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", NewValidationError("bad date"), KindValidation},
		{"conflict", NewConflictError("overlap"), KindConflict},
		{"storage conflict", NewStorageConflictError("slot taken", errors.New("23505")), KindStorageConflict},
		{"permission", NewPermissionDeniedError("not yours"), KindPermissionDenied},
		{"not found", NewNotFoundError("appointment"), KindNotFound},
		{"plain", errors.New("boom"), KindInternal},
		{"wrapped with fmt", fmt.Errorf("booking: %w", NewConflictError("dup")), KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWrap_KeepsKind(t *testing.T) {
	err := Wrap(NewNotFoundError("slot"), "load slot")
	if !IsKind(err, KindNotFound) {
		t.Fatalf("expected not_found, got %s", KindOf(err))
	}
	if MessageOf(err) != "slot not found" {
		t.Errorf("unexpected message %q", MessageOf(err))
	}
}

func TestWrap_PlainErrorBecomesInternal(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, "load slot")
	if !IsKind(err, KindInternal) {
		t.Fatalf("expected internal, got %s", KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Error("expected wrapped error to keep its cause")
	}
	if MessageOf(err) != "internal server error" {
		t.Errorf("unexpected message %q", MessageOf(err))
	}
	if Wrap(nil, "noop") != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestRetryable(t *testing.T) {
	var appErr *Error
	if !errors.As(NewStorageConflictError("slot taken", nil), &appErr) || !appErr.Retryable() {
		t.Error("storage conflict should be retryable")
	}
	if !errors.As(NewConflictError("dup"), &appErr) || appErr.Retryable() {
		t.Error("conflict should not be retryable")
	}
}
