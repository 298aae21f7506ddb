package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewConflict(code, message string, details map[string]any) error {
	return NewDomainError(code, message, http.StatusConflict, details)
}

// Terminal invite and activation states are reported as gone/conflict
// variants so the UI can render an actionable message for each.

func NewInviteRevoked() error {
	return NewDomainError("INVITE_REVOKED", "this invite has been revoked", http.StatusGone, nil)
}

func NewInviteExpired() error {
	return NewDomainError("INVITE_EXPIRED", "this invite has expired", http.StatusGone, nil)
}

func NewInviteAlreadyRedeemed() error {
	return NewDomainError("INVITE_ALREADY_REDEEMED", "this invite was already used", http.StatusConflict, nil)
}

func NewEmailMismatch(inviteEmail string) error {
	var details map[string]any
	if inviteEmail != "" {
		details = map[string]any{"invited_email": inviteEmail}
	}
	return NewDomainError("EMAIL_MISMATCH", "sign in with the invited address to continue", http.StatusForbidden, details)
}

func NewOnboardingCompleted() error {
	return NewDomainError("ONBOARDING_COMPLETED", "onboarding is already complete", http.StatusConflict, nil)
}

func NewActivationFailed(message string) error {
	return NewDomainError("ACTIVATION_FAILED", message, http.StatusBadGateway, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
