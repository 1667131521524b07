package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/airline-ticket-service/internal/domain/reservation"
)

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	a := m.Called(name, durable, autoDelete, exclusive, noWait)
	return amqp.Queue{Name: name}, a.Error(0)
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	a := m.Called(ctx, exchange, key, msg)
	return a.Error(0)
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}

func sampleConfirmation() *reservation.Confirmation {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return reservation.NewConfirmation(reservation.HoldCode(3, at), reservation.KindHold, 3, "a@x.com",
		[]reservation.SeatRef{
			{Level: "First Class", Label: "1A", Price: decimal.NewFromInt(500)},
			{Level: "First Class", Label: "1B", Price: decimal.NewFromInt(500)},
		}, at)
}

func TestBuildMessage(t *testing.T) {
	c := sampleConfirmation()

	msg, err := buildMessage(c)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	_, err = uuid.Parse(msg.MessageId)
	assert.NoError(t, err)

	var event BookingConfirmedEvent
	require.NoError(t, json.Unmarshal(msg.Body, &event))
	assert.Equal(t, c.Code, event.ConfirmationCode)
	assert.Equal(t, "hold", event.Kind)
	assert.Equal(t, int64(3), event.HoldID)
	assert.Equal(t, "1000", event.TotalPrice)
	require.Len(t, event.Seats, 2)
	assert.Equal(t, EventSeat{Level: "First Class", Label: "1A", Price: "500"}, event.Seats[0])
}

func TestNewPublisher_DeclaresDurableQueue(t *testing.T) {
	t.Run("キュー名未指定なら既定のキューを宣言する", func(t *testing.T) {
		ch := new(MockChannel)
		ch.On("QueueDeclare", DefaultQueue, true, false, false, false).Return(nil)

		p, err := newPublisher(ch, "")
		require.NoError(t, err)
		assert.Equal(t, DefaultQueue, p.queue)
		ch.AssertExpectations(t)
	})

	t.Run("宣言失敗はエラーを返す", func(t *testing.T) {
		ch := new(MockChannel)
		ch.On("QueueDeclare", "custom", true, false, false, false).Return(errors.New("access refused"))

		_, err := newPublisher(ch, "custom")
		assert.Error(t, err)
	})
}

func TestPublisher_PublishConfirmed(t *testing.T) {
	ctx := context.Background()

	t.Run("既定エクスチェンジ経由でキューに送信する", func(t *testing.T) {
		ch := new(MockChannel)
		ch.On("QueueDeclare", DefaultQueue, true, false, false, false).Return(nil)
		ch.On("PublishWithContext", ctx, "", DefaultQueue, mock.MatchedBy(func(msg amqp.Publishing) bool {
			return msg.DeliveryMode == amqp.Persistent && len(msg.Body) > 0
		})).Return(nil)

		p, err := newPublisher(ch, DefaultQueue)
		require.NoError(t, err)
		require.NoError(t, p.PublishConfirmed(ctx, sampleConfirmation()))
		ch.AssertExpectations(t)
	})

	t.Run("送信失敗はエラーを返す", func(t *testing.T) {
		ch := new(MockChannel)
		ch.On("QueueDeclare", DefaultQueue, true, false, false, false).Return(nil)
		ch.On("PublishWithContext", ctx, "", DefaultQueue, mock.Anything).Return(errors.New("channel closed"))

		p, err := newPublisher(ch, DefaultQueue)
		require.NoError(t, err)
		err = p.PublishConfirmed(ctx, sampleConfirmation())
		assert.ErrorContains(t, err, "channel closed")
	})

	t.Run("Close はチャネルを閉じる", func(t *testing.T) {
		ch := new(MockChannel)
		ch.On("QueueDeclare", DefaultQueue, true, false, false, false).Return(nil)
		ch.On("Close").Return(nil)

		p, err := newPublisher(ch, DefaultQueue)
		require.NoError(t, err)
		assert.NoError(t, p.Close())
		ch.AssertExpectations(t)
	})
}
