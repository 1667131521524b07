package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/airline-ticket-service/internal/domain/hold"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/reservation"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/seat"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/airline-ticket-service/internal/infrastructure/redis"
	"github.com/sanosuguru/airline-ticket-service/internal/pkg/metrics"
)

type MockCache struct{ mock.Mock }

func (m *MockCache) GetAvailableCount(ctx context.Context, levelName string) (int, error) {
	args := m.Called(ctx, levelName)
	return args.Int(0), args.Error(1)
}

func (m *MockCache) SetAvailableCount(ctx context.Context, levelName string, count int, ttl time.Duration) error {
	return m.Called(ctx, levelName, count, ttl).Error(0)
}

func (m *MockCache) Invalidate(ctx context.Context, levelNames ...string) error {
	return m.Called(ctx, levelNames).Error(0)
}

type MockTx struct{ mock.Mock }

func (m *MockTx) Commit() error   { return m.Called().Error(0) }
func (m *MockTx) Rollback() error { return m.Called().Error(0) }

type MockTxManager struct{ mock.Mock }

func (m *MockTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

type MockJournal struct{ mock.Mock }

func (m *MockJournal) Save(ctx context.Context, tx transaction.Tx, c *reservation.Confirmation) error {
	return m.Called(ctx, tx, c).Error(0)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) PublishConfirmed(ctx context.Context, c *reservation.Confirmation) error {
	return m.Called(ctx, c).Error(0)
}

func TestReservationService_AvailabilityCache(t *testing.T) {
	ctx := context.Background()

	t.Run("キャッシュヒット時は在庫を参照しない", func(t *testing.T) {
		cache := new(MockCache)
		cache.On("GetAvailableCount", ctx, seat.FirstClass).Return(12, nil)
		s, _ := newTestService(t, WithAvailabilityCache(cache, time.Minute))

		got, err := s.Availability(ctx, []string{seat.FirstClass})
		require.NoError(t, err)
		assert.Equal(t, 12, got[0].AvailableCount)
		cache.AssertNotCalled(t, "SetAvailableCount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("キャッシュミス時は在庫から数えて保存する", func(t *testing.T) {
		cache := new(MockCache)
		cache.On("GetAvailableCount", ctx, seat.Business).Return(0, redisinfra.ErrCacheMiss)
		cache.On("SetAvailableCount", ctx, seat.Business, 90, time.Minute).Return(nil)
		s, _ := newTestService(t, WithAvailabilityCache(cache, time.Minute))

		got, err := s.Availability(ctx, []string{seat.Business})
		require.NoError(t, err)
		assert.Equal(t, 90, got[0].AvailableCount)
		cache.AssertExpectations(t)
	})

	t.Run("キャッシュ障害でも在庫から返す", func(t *testing.T) {
		cache := new(MockCache)
		cache.On("GetAvailableCount", ctx, seat.Economy).Return(0, errors.New("connection refused"))
		cache.On("SetAvailableCount", ctx, seat.Economy, 150, defaultCacheTTL).Return(errors.New("connection refused"))
		s, _ := newTestService(t, WithAvailabilityCache(cache, 0))

		got, err := s.Availability(ctx, []string{seat.Economy})
		require.NoError(t, err)
		assert.Equal(t, 150, got[0].AvailableCount)
	})

	t.Run("変更後は対象レベルのキャッシュを無効化する", func(t *testing.T) {
		cache := new(MockCache)
		cache.On("Invalidate", ctx, []string{seat.FirstClass}).Return(nil).Twice()
		s, _ := newTestService(t, WithAvailabilityCache(cache, time.Minute))

		h, err := s.CreateHold(ctx, CreateHoldInput{NumSeats: 1, CustomerEmail: "a@x.com"})
		require.NoError(t, err)
		_, err = s.CommitHold(ctx, CommitHoldInput{HoldID: h.ID, CustomerEmail: "a@x.com"})
		require.NoError(t, err)
		cache.AssertExpectations(t)
	})

	t.Run("無効化の失敗はリクエストを失敗させない", func(t *testing.T) {
		cache := new(MockCache)
		cache.On("Invalidate", ctx, []string{seat.FirstClass}).Return(errors.New("timeout"))
		s, _ := newTestService(t, WithAvailabilityCache(cache, time.Minute))

		_, err := s.ReserveDirect(ctx, ReserveDirectInput{
			NumSeats: 1, CustomerEmail: "a@x.com",
			MinPrice: decimal.Zero, MaxPrice: decimal.NewFromInt(500),
			LevelNames: []string{seat.FirstClass},
		})
		assert.NoError(t, err)
	})
}

func TestReservationService_Journal(t *testing.T) {
	ctx := context.Background()

	t.Run("確定内容をトランザクション内で記録して通知する", func(t *testing.T) {
		tx := new(MockTx)
		tx.On("Commit").Return(nil)
		tm := new(MockTxManager)
		tm.On("Begin", ctx).Return(tx, nil)
		journal := new(MockJournal)
		journal.On("Save", ctx, tx, mock.MatchedBy(func(c *reservation.Confirmation) bool {
			return c.Kind == reservation.KindHold && c.HoldID == 1 && len(c.Seats) == 2
		})).Return(nil)
		pub := new(MockPublisher)
		pub.On("PublishConfirmed", ctx, mock.AnythingOfType("*reservation.Confirmation")).Return(nil)

		s, _ := newTestService(t, WithJournal(tm, journal), WithPublisher(pub))
		h, err := s.CreateHold(ctx, CreateHoldInput{NumSeats: 2, CustomerEmail: "a@x.com"})
		require.NoError(t, err)
		conf, err := s.CommitHold(ctx, CommitHoldInput{HoldID: h.ID, CustomerEmail: "a@x.com"})
		require.NoError(t, err)

		tx.AssertExpectations(t)
		journal.AssertExpectations(t)
		pub.AssertCalled(t, "PublishConfirmed", ctx, conf)
	})

	t.Run("記録と通知の失敗は予約を失敗させない", func(t *testing.T) {
		tx := new(MockTx)
		tx.On("Rollback").Return(nil)
		tm := new(MockTxManager)
		tm.On("Begin", ctx).Return(tx, nil)
		journal := new(MockJournal)
		journal.On("Save", ctx, tx, mock.Anything).Return(errors.New("db down"))
		pub := new(MockPublisher)
		pub.On("PublishConfirmed", ctx, mock.Anything).Return(errors.New("broker down"))

		s, _ := newTestService(t, WithJournal(tm, journal), WithPublisher(pub))
		conf, err := s.ReserveDirect(ctx, ReserveDirectInput{
			NumSeats: 1, CustomerEmail: "a@x.com",
			MinPrice: decimal.Zero, MaxPrice: decimal.NewFromInt(200),
		})
		require.NoError(t, err)
		assert.Equal(t, seat.Economy, conf.Seats[0].Level)
		assert.Equal(t, 149, availableIn(t, s, seat.Economy))
		tx.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("失敗した操作は記録しない", func(t *testing.T) {
		tm := new(MockTxManager)
		journal := new(MockJournal)
		pub := new(MockPublisher)
		s, _ := newTestService(t, WithJournal(tm, journal), WithPublisher(pub))

		_, err := s.CreateHold(ctx, CreateHoldInput{NumSeats: 41, CustomerEmail: "a@x.com"})
		require.Error(t, err)
		_, err = s.CommitHold(ctx, CommitHoldInput{HoldID: 1, CustomerEmail: "a@x.com"})
		require.Error(t, err)

		tm.AssertNotCalled(t, "Begin", mock.Anything)
		pub.AssertNotCalled(t, "PublishConfirmed", mock.Anything, mock.Anything)
	})
}

func TestReservationService_Metrics(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	s, clk := newTestService(t, WithMetrics(m), WithHoldDuration(time.Second))

	h, err := s.CreateHold(ctx, CreateHoldInput{NumSeats: 4, CustomerEmail: "a@x.com"})
	require.NoError(t, err)
	_, err = s.CreateHold(ctx, CreateHoldInput{NumSeats: 1, CustomerEmail: "b@x.com"})
	require.NoError(t, err)
	_, err = s.CreateHold(ctx, CreateHoldInput{NumSeats: 100, CustomerEmail: "c@x.com"})
	require.Error(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.HoldsTotal.WithLabelValues("created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HoldsTotal.WithLabelValues("insufficient")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ActiveHolds))
	assert.Equal(t, float64(35), testutil.ToFloat64(m.AvailableSeats.WithLabelValues(seat.FirstClass)))

	_, err = s.CommitHold(ctx, CommitHoldInput{HoldID: h.ID, CustomerEmail: "a@x.com"})
	require.NoError(t, err)
	clk.Advance(time.Second)
	released, err := s.ReleaseExpiredHolds(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, released)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HoldsTotal.WithLabelValues("committed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HoldsTotal.WithLabelValues("expired")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReservationsTotal.WithLabelValues("hold", "success")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ActiveHolds))
	assert.Equal(t, float64(36), testutil.ToFloat64(m.AvailableSeats.WithLabelValues(seat.FirstClass)))
	assert.Positive(t, testutil.CollectAndCount(m.CriticalSectionDuration))
}

func TestReservationService_Metrics_SweptHoldCountedOnce(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	s, clk := newTestService(t, WithMetrics(m), WithHoldDuration(time.Second))

	h, err := s.CreateHold(ctx, CreateHoldInput{NumSeats: 1, CustomerEmail: "a@x.com"})
	require.NoError(t, err)
	clk.Advance(time.Second)
	_, err = s.ReleaseExpiredHolds(ctx)
	require.NoError(t, err)

	_, err = s.CommitHold(ctx, CommitHoldInput{HoldID: h.ID, CustomerEmail: "b@x.com"})
	require.ErrorIs(t, err, hold.ErrCustomerMismatch)
	_, err = s.CommitHold(ctx, CommitHoldInput{HoldID: h.ID, CustomerEmail: "a@x.com"})
	require.ErrorIs(t, err, hold.ErrHoldExpired)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HoldsTotal.WithLabelValues("expired")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HoldsTotal.WithLabelValues("mismatch")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReservationsTotal.WithLabelValues("hold", "expired")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ActiveHolds))
}
