// Package signup gates Cognito pre sign-up requests on the disposable
// address verdict.
package signup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/cruxstack/disposable-email-checker-go/internal/types"
)

var (
	ErrDisposableAddress = errors.New("disposable email addresses are not allowed")
	ErrUnverifiedAddress = errors.New("email address could not be verified")
	ErrMissingEmail      = errors.New("email attribute is required")
)

type Checker interface {
	Check(ctx context.Context, raw string) (*types.Report, error)
}

type Handler struct {
	Checker       Checker
	RejectUnknown bool
}

// Handle returns an error to reject the sign-up. Cognito surfaces the error
// message to the caller.
func (h *Handler) Handle(ctx context.Context, event events.CognitoEventUserPoolsPreSignup) (events.CognitoEventUserPoolsPreSignup, error) {
	email, ok := event.Request.UserAttributes["email"]
	if !ok || email == "" {
		slog.WarnContext(ctx, "rejecting sign-up without email", "user", event.UserName)
		return event, ErrMissingEmail
	}

	report, err := h.Checker.Check(ctx, email)
	if err != nil {
		slog.WarnContext(ctx, "rejecting sign-up with invalid email",
			"user", event.UserName,
			"error", err,
		)
		return event, fmt.Errorf("sign-up rejected: %w", err)
	}

	if err := Admit(report, h.RejectUnknown); err != nil {
		slog.InfoContext(ctx, "rejecting sign-up",
			"user", event.UserName,
			"run_id", report.ID,
			"verdict", report.Verdict,
		)
		return event, err
	}

	return event, nil
}

// Admit maps a verdict to an admission decision.
func Admit(report *types.Report, rejectUnknown bool) error {
	switch report.Verdict {
	case types.VerdictDisposable:
		return ErrDisposableAddress
	case types.VerdictNotDisposable:
		return nil
	default:
		if rejectUnknown {
			return ErrUnverifiedAddress
		}
		return nil
	}
}
