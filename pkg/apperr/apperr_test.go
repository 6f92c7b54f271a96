package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfSurvivesWrapping(t *testing.T) {
	err := New(KindInvalidOrderState, "order %s is cancelled", "PO-1")
	wrapped := fmt.Errorf("receive failed: %w", err)

	assert.Equal(t, KindInvalidOrderState, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestQuantityExceedsPendingCarriesMax(t *testing.T) {
	err := QuantityExceedsPending("item-1", 9, 6)

	e, ok := AsError(fmt.Errorf("wrapped: %w", err))
	require.True(t, ok)
	assert.Equal(t, "item-1", e.ItemID)
	require.NotNil(t, e.MaxAllowed)
	assert.Equal(t, 6, *e.MaxAllowed)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindUnknownLineItem, http.StatusUnprocessableEntity},
		{KindQuantityExceedsPending, http.StatusUnprocessableEntity},
		{KindInvalidOrderState, http.StatusConflict},
		{KindCannotCancelAfterReceipt, http.StatusConflict},
		{KindConcurrentModification, http.StatusConflict},
		{KindNegativeStockInvariant, http.StatusConflict},
		{KindConflict, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(New(tt.kind, "x")))
		})
	}

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}
