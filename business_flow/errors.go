// Package businessflow contains the core business logic: short link creation and resolution, click tracking and analytics
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Lookup errors
	ErrShortLinkNotFound = errors.New("short link not found")
	ErrShortLinkExpired  = errors.New("short link has expired")
	ErrShortLinkInactive = errors.New("short link is inactive")

	// Creation errors
	ErrAliasAlreadyExists = errors.New("custom alias already exists")
	ErrURLRequired        = errors.New("url is required")
	ErrInvalidURL         = errors.New("invalid url format")
	ErrMaliciousURL       = errors.New("url contains potentially malicious content")
	ErrLocalURLNotAllowed = errors.New("local or internal url not allowed")
	ErrInvalidAlias       = errors.New("invalid alias")
	ErrAliasReserved      = errors.New("alias is reserved")
	ErrInvalidExpiry      = errors.New("expiry must not be negative")

	// Export errors
	ErrUnsupportedExportFormat = errors.New("unsupported export format")
)

const (
	CodeValidationError = "VALIDATION_ERROR"
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// newValidationError wraps a validation sentinel; the message is what the client sees
func newValidationError(message string, err error) *BusinessError {
	return NewBusinessError(CodeValidationError, message, err)
}

// IsValidationError reports whether err was caused by invalid client input
func IsValidationError(err error) bool {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code == CodeValidationError
	}
	return false
}

// IsLookupFailure reports whether err means the code cannot be resolved to a live link
func IsLookupFailure(err error) bool {
	return IsShortLinkNotFound(err) || IsShortLinkExpired(err) || IsShortLinkInactive(err)
}

func IsShortLinkNotFound(err error) bool {
	return errors.Is(err, ErrShortLinkNotFound)
}

func IsShortLinkExpired(err error) bool {
	return errors.Is(err, ErrShortLinkExpired)
}

func IsShortLinkInactive(err error) bool {
	return errors.Is(err, ErrShortLinkInactive)
}

func IsAliasAlreadyExists(err error) bool {
	return errors.Is(err, ErrAliasAlreadyExists)
}

func IsInvalidURL(err error) bool {
	return errors.Is(err, ErrInvalidURL)
}

func IsMaliciousURL(err error) bool {
	return errors.Is(err, ErrMaliciousURL)
}

func IsLocalURLNotAllowed(err error) bool {
	return errors.Is(err, ErrLocalURLNotAllowed)
}

func IsURLRequired(err error) bool {
	return errors.Is(err, ErrURLRequired)
}

func IsInvalidAlias(err error) bool {
	return errors.Is(err, ErrInvalidAlias)
}

func IsAliasReserved(err error) bool {
	return errors.Is(err, ErrAliasReserved)
}

func IsUnsupportedExportFormat(err error) bool {
	return errors.Is(err, ErrUnsupportedExportFormat)
}
