package reservation

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestHoldCode(t *testing.T) {
	at := time.UnixMilli(1735732800123)

	code := HoldCode(7, at)

	assert.Equal(t, "CONFIRM-7-1735732800123", code)
}

func TestDirectCode(t *testing.T) {
	at := time.UnixMilli(1735732800123)

	a := DirectCode(at, 1)
	b := DirectCode(at, 2)

	assert.True(t, strings.HasPrefix(a, "CONFIRM-DIRECT-"))
	assert.Equal(t, "CONFIRM-DIRECT-1735732800123-1", a)
	assert.NotEqual(t, a, b)
}

func TestNewConfirmation(t *testing.T) {
	at := time.Now()
	seats := []SeatRef{
		{Level: "First Class", Label: "1A", Price: decimal.NewFromInt(500)},
		{Level: "First Class", Label: "1B", Price: decimal.NewFromInt(500)},
	}

	c := NewConfirmation("CONFIRM-1-1", KindHold, 1, "a@x.com", seats, at)

	assert.True(t, decimal.NewFromInt(1000).Equal(c.TotalPrice))
	assert.Equal(t, KindHold, c.Kind)
	assert.Equal(t, at, c.ConfirmedAt)
}

func TestConfirmation_Validate(t *testing.T) {
	seats := []SeatRef{{Level: "Economy", Label: "1A", Price: decimal.NewFromInt(200)}}

	tests := []struct {
		name        string
		c           *Confirmation
		expectedErr error
	}{
		{"有効", &Confirmation{Code: "C", CustomerEmail: "a@x.com", Seats: seats}, nil},
		{"コードなし", &Confirmation{CustomerEmail: "a@x.com", Seats: seats}, ErrCodeRequired},
		{"顧客なし", &Confirmation{Code: "C", Seats: seats}, ErrCustomerRequired},
		{"座席なし", &Confirmation{Code: "C", CustomerEmail: "a@x.com"}, ErrSeatsRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
