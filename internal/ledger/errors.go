package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected operation so callers can map it to an
// actionable message or status code without string matching.
type Kind string

const (
	KindUnauthorized          Kind = "UNAUTHORIZED"
	KindSystemPaused          Kind = "SYSTEM_PAUSED"
	KindDuplicateContent      Kind = "DUPLICATE_CONTENT"
	KindEmptyIdentifier       Kind = "EMPTY_IDENTIFIER"
	KindInvalidPrice          Kind = "INVALID_PRICE"
	KindInvalidAmount         Kind = "INVALID_AMOUNT"
	KindNotOwner              Kind = "NOT_OWNER"
	KindNotAuthorized         Kind = "NOT_AUTHORIZED"
	KindNotFound              Kind = "NOT_FOUND"
	KindDatasetPublic         Kind = "DATASET_PUBLIC"
	KindDatasetRemoved        Kind = "DATASET_REMOVED"
	KindLicenseAlreadyActive  Kind = "LICENSE_ALREADY_ACTIVE"
	KindNoValidLicense        Kind = "NO_VALID_LICENSE"
	KindInsufficientAllowance Kind = "INSUFFICIENT_ALLOWANCE"
	KindInsufficientBalance   Kind = "INSUFFICIENT_BALANCE"
	KindFeeTooHigh            Kind = "FEE_TOO_HIGH"
)

// Error is a rejected ledger operation. A failed operation leaves state
// untouched; Error reports why.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledger: %s: %s", e.Kind, e.Message)
}

// Is makes errors.Is match two ledger errors of the same kind.
func (e *Error) Is(target error) bool {
	var le *Error
	if !errors.As(target, &le) {
		return false
	}
	return e.Kind == le.Kind
}

func reject(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from a ledger error, or "" for foreign errors.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// IsKind reports whether err is a ledger error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
