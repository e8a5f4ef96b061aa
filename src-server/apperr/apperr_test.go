package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"evhub/src-server/apperr"
)

func TestKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("(*MemoryStore).Update: %w", apperr.NotFound("Attendee not found"))

	if !errors.Is(err, apperr.ErrNotFound) {
		t.Error("wrapped not-found should match ErrNotFound")
	}
	if errors.Is(err, apperr.ErrPermission) {
		t.Error("not-found should not match ErrPermission")
	}
	if got := apperr.KindOf(err); got != apperr.KindNotFound {
		t.Errorf("KindOf = %s, want not-found", got)
	}
	if got := apperr.HTTPStatus(err); got != http.StatusNotFound {
		t.Errorf("HTTPStatus = %d", got)
	}
	if got := apperr.Message(err, "fallback"); got != "Attendee not found" {
		t.Errorf("Message = %q", got)
	}
}

func TestMessageFallback(t *testing.T) {
	err := errors.New("sql: database is closed")
	if got := apperr.Message(err, "Failed to load attendees"); got != "Failed to load attendees" {
		t.Errorf("Message = %q", got)
	}
	if got := apperr.HTTPStatus(err); got != http.StatusInternalServerError {
		t.Errorf("HTTPStatus = %d", got)
	}
}
