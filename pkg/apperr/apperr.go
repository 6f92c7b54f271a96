package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a category of domain error so handlers can map it to an
// HTTP status without string matching.
type Kind string

const (
	KindInvalidOrderState        Kind = "INVALID_ORDER_STATE"
	KindUnknownLineItem          Kind = "UNKNOWN_LINE_ITEM"
	KindQuantityExceedsPending   Kind = "QUANTITY_EXCEEDS_PENDING"
	KindConcurrentModification   Kind = "CONCURRENT_MODIFICATION"
	KindNegativeStockInvariant   Kind = "NEGATIVE_STOCK_INVARIANT"
	KindCannotCancelAfterReceipt Kind = "CANNOT_CANCEL_AFTER_RECEIPT"
	KindNotFound                 Kind = "NOT_FOUND"
	KindValidation               Kind = "VALIDATION"
	KindConflict                 Kind = "CONFLICT"
)

// Error is a domain error carrying a Kind plus optional structured fields.
// MaxAllowed is populated for QUANTITY_EXCEEDS_PENDING so callers can clamp
// and retry; ItemID names the offending order line where relevant.
type Error struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	ItemID     string `json:"item_id,omitempty"`
	MaxAllowed *int   `json:"max_allowed,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates a domain error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// QuantityExceedsPending builds the quantity error with the allowed maximum
// attached for the caller.
func QuantityExceedsPending(itemID string, requested, maxAllowed int) *Error {
	return &Error{
		Kind:       KindQuantityExceedsPending,
		Message:    fmt.Sprintf("requested quantity %d exceeds pending quantity %d for item %s", requested, maxAllowed, itemID),
		ItemID:     itemID,
		MaxAllowed: &maxAllowed,
	}
}

// KindOf extracts the Kind from err, or "" if err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// AsError unwraps err into *Error if possible.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// HTTPStatus maps a domain error kind to an HTTP status code. Unknown errors
// map to 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindUnknownLineItem, KindQuantityExceedsPending:
		return http.StatusUnprocessableEntity
	case KindInvalidOrderState, KindCannotCancelAfterReceipt, KindConcurrentModification, KindNegativeStockInvariant, KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
