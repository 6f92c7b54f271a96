package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		quantity int
		expiry   time.Time
		want     string
	}{
		{
			name:     "zero quantity is sold out even when far from expiry",
			quantity: 0,
			expiry:   now.AddDate(1, 0, 0),
			want:     ExpiryStatusSoldOut,
		},
		{
			name:     "zero quantity is sold out even when already expired",
			quantity: 0,
			expiry:   now.AddDate(0, 0, -10),
			want:     ExpiryStatusSoldOut,
		},
		{
			name:     "past expiry with stock on hand",
			quantity: 5,
			expiry:   now.AddDate(0, 0, -1),
			want:     ExpiryStatusExpired,
		},
		{
			name:     "inside the critical window",
			quantity: 5,
			expiry:   now.Add(3 * 24 * time.Hour),
			want:     ExpiryStatusCritical,
		},
		{
			name:     "just under seven days is still critical",
			quantity: 5,
			expiry:   now.Add(CriticalExpiryWindow - time.Hour),
			want:     ExpiryStatusCritical,
		},
		{
			name:     "between seven and thirty days is expiring soon",
			quantity: 5,
			expiry:   now.Add(15 * 24 * time.Hour),
			want:     ExpiryStatusExpiringSoon,
		},
		{
			name:     "just under thirty days is still expiring soon",
			quantity: 5,
			expiry:   now.Add(ExpiringSoonExpiryWindow - time.Hour),
			want:     ExpiryStatusExpiringSoon,
		},
		{
			name:     "beyond thirty days is active",
			quantity: 5,
			expiry:   now.Add(ExpiringSoonExpiryWindow + time.Hour),
			want:     ExpiryStatusActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Batch{Quantity: tt.quantity, ExpiryDate: tt.expiry}
			assert.Equal(t, tt.want, b.Classify(now))
		})
	}
}

// As the clock advances toward expiry the classification only ever moves
// through Active, ExpiringSoon, Critical, Expired, never backwards.
func TestClassifyMonotonicOverTime(t *testing.T) {
	rank := map[string]int{
		ExpiryStatusActive:       0,
		ExpiryStatusExpiringSoon: 1,
		ExpiryStatusCritical:     2,
		ExpiryStatusExpired:      3,
	}

	expiry := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	b := Batch{Quantity: 10, ExpiryDate: expiry}

	prev := -1
	for day := -60; day <= 10; day++ {
		now := expiry.AddDate(0, 0, day)
		got := b.Classify(now)
		r, ok := rank[got]
		assert.True(t, ok, "unexpected status %s at day offset %d", got, day)
		assert.GreaterOrEqual(t, r, prev, "classification regressed at day offset %d", day)
		prev = r
	}
}
