package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sanosuguru/airline-ticket-service/internal/domain/reservation"
)

// DefaultQueue は予約確定イベントのキュー名
const DefaultQueue = "booking.confirmed"

// BookingConfirmedEvent は予約確定時に通知するメッセージ本文
type BookingConfirmedEvent struct {
	ConfirmationCode string      `json:"confirmationCode"`
	Kind             string      `json:"kind"`
	HoldID           int64       `json:"holdId,omitempty"`
	CustomerEmail    string      `json:"customerEmail"`
	Seats            []EventSeat `json:"seats"`
	TotalPrice       string      `json:"totalPrice"`
	ConfirmedAt      time.Time   `json:"confirmedAt"`
}

type EventSeat struct {
	Level string `json:"level"`
	Label string `json:"label"`
	Price string `json:"price"`
}

// channel は amqp.Channel のうち publisher が使う操作
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher は予約確定イベントを RabbitMQ の永続キューに送る
type Publisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    channel
	queue string
}

// NewPublisher はブローカーに接続し、キューを宣言する
func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("RabbitMQ接続に失敗しました: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("チャネル作成に失敗しました: %w", err)
	}
	p, err := newPublisher(ch, queue)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, queue string) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("キュー宣言に失敗しました: %w", err)
	}
	return &Publisher{ch: ch, queue: queue}, nil
}

// PublishConfirmed は確定内容を JSON で送信する（DeliveryMode=Persistent）
func (p *Publisher) PublishConfirmed(ctx context.Context, c *reservation.Confirmation) error {
	msg, err := buildMessage(c)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("イベント送信に失敗しました: %w", err)
	}
	return nil
}

// Close はチャネルと接続を閉じる
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func buildMessage(c *reservation.Confirmation) (amqp.Publishing, error) {
	event := BookingConfirmedEvent{
		ConfirmationCode: c.Code,
		Kind:             string(c.Kind),
		HoldID:           c.HoldID,
		CustomerEmail:    c.CustomerEmail,
		Seats:            make([]EventSeat, 0, len(c.Seats)),
		TotalPrice:       c.TotalPrice.String(),
		ConfirmedAt:      c.ConfirmedAt.UTC(),
	}
	for _, s := range c.Seats {
		event.Seats = append(event.Seats, EventSeat{Level: s.Level, Label: s.Label, Price: s.Price.String()})
	}

	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("イベントのシリアライズに失敗しました: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         DefaultQueue,
		Body:         body,
	}, nil
}
