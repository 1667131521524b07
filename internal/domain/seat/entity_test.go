package seat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		row, column int
		expected    string
	}{
		{1, 1, "1A"},
		{1, 4, "1D"},
		{10, 6, "10F"},
		{25, 26, "25Z"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, Label(tt.row, tt.column))
		})
	}
}

func TestSeat_Hold(t *testing.T) {
	l := newLevel(0, LevelSpec{Name: "Test", Rows: 1, SeatsPerRow: 1})

	t.Run("空席を仮押さえできる", func(t *testing.T) {
		s := newSeat(l, 1, 1)

		require.NoError(t, s.Hold())
		assert.Equal(t, StatusHeld, s.Status())
	})

	t.Run("仮押さえ済みの座席は仮押さえできない", func(t *testing.T) {
		s := newSeat(l, 1, 1)
		s.status = StatusHeld

		assert.ErrorIs(t, s.Hold(), ErrSeatNotAvailable)
	})

	t.Run("予約済みの座席は仮押さえできない", func(t *testing.T) {
		s := newSeat(l, 1, 1)
		s.status = StatusReserved

		assert.ErrorIs(t, s.Hold(), ErrSeatNotAvailable)
	})
}

func TestSeat_Release(t *testing.T) {
	l := newLevel(0, LevelSpec{Name: "Test", Rows: 1, SeatsPerRow: 1})

	t.Run("仮押さえを解除できる", func(t *testing.T) {
		s := newSeat(l, 1, 1)
		require.NoError(t, s.Hold())

		require.NoError(t, s.Release())
		assert.True(t, s.IsFree())
	})

	t.Run("予約済みの座席は解除できない", func(t *testing.T) {
		s := newSeat(l, 1, 1)
		s.status = StatusReserved

		assert.ErrorIs(t, s.Release(), ErrSeatNotHeld)
		assert.Equal(t, StatusReserved, s.Status())
	})
}

func TestSeat_Reserve(t *testing.T) {
	tests := []struct {
		name        string
		from        Status
		expectedErr error
	}{
		{"空席から直接予約できる", StatusFree, nil},
		{"仮押さえから予約できる", StatusHeld, nil},
		{"予約済みは再予約できない", StatusReserved, ErrSeatAlreadyReserved},
	}

	l := newLevel(0, LevelSpec{Name: "Test", Rows: 1, SeatsPerRow: 1})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSeat(l, 1, 1)
			s.status = tt.from

			err := s.Reserve()
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, StatusReserved, s.Status())
		})
	}
}
