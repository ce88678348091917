package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	domainagg "github.com/yungbote/ballot-consensus-backend/internal/domain/aggregates"
	pkgerrors "github.com/yungbote/ballot-consensus-backend/internal/pkg/errors"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("case T-1: %w", pkgerrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{"invalid", pkgerrors.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
		{"no window", pkgerrors.ErrNoActiveWindow, http.StatusForbidden, CodeNoElectionConfig},
		{"outside window", pkgerrors.ErrOutsideWindow, http.StatusForbidden, CodeOutsideVotingHours},
		{"aggregate retryable", domainagg.NewError(domainagg.CodeRetryable, "op", "lock", nil), http.StatusServiceUnavailable, "retryable"},
		{"explicit", fmt.Errorf("wrap: %w", New(http.StatusTeapot, "teapot", nil)), http.StatusTeapot, "teapot"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := From(tc.err)
			if got.Status != tc.status || got.Code != tc.code {
				t.Fatalf("got %d/%s want %d/%s", got.Status, got.Code, tc.status, tc.code)
			}
		})
	}
	if From(nil) != nil {
		t.Fatalf("nil must map to nil")
	}
}
