package secerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStorage(t *testing.T) {
	if Storage(nil) != nil {
		t.Fatal("Storage(nil) should be nil")
	}

	cause := context.DeadlineExceeded
	err := Storage(fmt.Errorf("count login_logs: %w", cause))
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Error("expected ErrStorageUnavailable")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected the cause to stay reachable")
	}

	if again := Storage(err); again != err {
		t.Error("Storage should not wrap an already-marked error twice")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"date format", &InvalidDateFormat{Field: "from_date", Value: "2024/01/01"}, http.StatusBadRequest},
		{"invalid", Invalid("limit", "limit must be between 1 and 1000"), http.StatusBadRequest},
		{"not found", fmt.Errorf("user x: %w", ErrNotFound), http.StatusNotFound},
		{"storage", Storage(errors.New("connection refused")), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInvalidDateFormat_Message(t *testing.T) {
	err := &InvalidDateFormat{Field: "to_date", Value: "yesterday"}
	want := "Invalid to_date format. Use YYYY-MM-DD"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if PublicMessage(err) != want {
		t.Errorf("PublicMessage() = %q, want %q", PublicMessage(err), want)
	}
}

func TestPublicMessage_HidesCauses(t *testing.T) {
	err := Storage(errors.New("dial tcp 10.0.0.5:27017: connection refused"))
	if got := PublicMessage(err); got != "event store unavailable" {
		t.Errorf("PublicMessage() = %q", got)
	}
}
