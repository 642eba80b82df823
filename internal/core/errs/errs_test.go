package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusForbidden, ErrProviderError},
		{http.StatusInternalServerError, ErrProviderError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromStatus("github.read_file", tt.status, "boom")
			if !errors.Is(err, tt.want) {
				t.Errorf("FromStatus(%d) = %v, want %v", tt.status, err, tt.want)
			}
		})
	}
}

func TestErrorMessageKeepsUpstreamText(t *testing.T) {
	err := FromStatus("github.write_file", 409, "is at abc but expected def")
	want := "github.write_file: is at abc but expected def (status 409)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("save: %w", New(KindConflict, "op", 409, "stale"))
	if got := KindOf(err); got != KindConflict {
		t.Errorf("KindOf() = %q, want %q", got, KindConflict)
	}
	if got := HTTPStatus(err); got != http.StatusConflict {
		t.Errorf("HTTPStatus() = %d, want 409", got)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}

func TestNetwork(t *testing.T) {
	cause := errors.New("connection refused")
	err := Network("llm.complete", cause)
	if !errors.Is(err, ErrNetworkError) {
		t.Error("expected ErrNetworkError")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to unwrap")
	}
	if HTTPStatus(err) != http.StatusBadGateway {
		t.Errorf("HTTPStatus() = %d, want 502", HTTPStatus(err))
	}
}
