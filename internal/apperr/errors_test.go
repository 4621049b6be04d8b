package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindsSurviveWrapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", Validation("price", "must be positive"), IsValidation},
		{"not found", NotFound("property", 7), IsNotFound},
		{"invalid state", InvalidState("payment", "pending", "cannot refund"), IsInvalidState},
		{"upstream", Upstream("create intent", context.DeadlineExceeded), IsUpstream},
		{"signature", Signature(errors.New("bad hmac")), IsSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("service: %w", tt.err)
			if !tt.check(wrapped) {
				t.Errorf("kind lost through wrapping: %v", wrapped)
			}
		})
	}
}

func TestUpstreamErrorHidesCause(t *testing.T) {
	err := Upstream("create refund", errors.New("card_declined: secret detail"))
	if strings.Contains(err.Error(), "secret detail") {
		t.Errorf("upstream message leaked cause: %q", err.Error())
	}
	if !errors.Is(err, errors.Unwrap(err)) {
		t.Error("expected cause to remain reachable through Unwrap")
	}
}

func TestValidationMessage(t *testing.T) {
	if got := Validation("amount", "must be > %d", 0).Error(); got != "amount: must be > 0" {
		t.Errorf("unexpected message %q", got)
	}
	if got := Validation("", "bad request").Error(); got != "bad request" {
		t.Errorf("unexpected message %q", got)
	}
}
