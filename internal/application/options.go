package application

import (
	"context"
	"time"

	"github.com/sanosuguru/airline-ticket-service/internal/domain/reservation"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/transaction"
	"github.com/sanosuguru/airline-ticket-service/internal/pkg/metrics"
)

const (
	defaultHoldDuration = 120 * time.Second
	defaultCacheTTL     = 30 * time.Second
)

// AvailabilityCache はレベルごとの空席数キャッシュ
// 未登録の場合 GetAvailableCount は redis.ErrCacheMiss を返す
type AvailabilityCache interface {
	GetAvailableCount(ctx context.Context, levelName string) (int, error)
	SetAvailableCount(ctx context.Context, levelName string, count int, ttl time.Duration) error
	Invalidate(ctx context.Context, levelNames ...string) error
}

// Option は ReservationService の設定を変更する
type Option func(*ReservationService)

// WithHoldDuration は仮押さえの有効期間を設定する
func WithHoldDuration(d time.Duration) Option {
	return func(s *ReservationService) {
		if d > 0 {
			s.holdDuration = d
		}
	}
}

// WithHoldLevel は仮押さえの対象レベルを設定する（既定は First Class）
func WithHoldLevel(name string) Option {
	return func(s *ReservationService) {
		s.holdLevel = name
	}
}

// WithStrictLevelFilter はレベルフィルタに未知の名前があれば ErrUnknownLevel にする
func WithStrictLevelFilter(strict bool) Option {
	return func(s *ReservationService) {
		s.strictLevelFilter = strict
	}
}

// WithAvailabilityCache は空席数の読み取りキャッシュを設定する
func WithAvailabilityCache(cache AvailabilityCache, ttl time.Duration) Option {
	return func(s *ReservationService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithJournal は予約確定の記録先を設定する
func WithJournal(tm transaction.Manager, repo reservation.Repository) Option {
	return func(s *ReservationService) {
		s.txManager = tm
		s.journal = repo
	}
}

// WithPublisher は予約確定イベントの通知先を設定する
func WithPublisher(p reservation.Publisher) Option {
	return func(s *ReservationService) {
		s.publisher = p
	}
}

// WithMetrics はメトリクスの記録先を設定する
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ReservationService) {
		s.metrics = m
	}
}
