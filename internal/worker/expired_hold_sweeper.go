package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/airline-ticket-service/internal/pkg/logger"
)

// HoldReleaser は期限切れの仮押さえを解放するインターフェース
type HoldReleaser interface {
	ReleaseExpiredHolds(ctx context.Context) (int, error)
}

// ExpiredHoldSweeper は期限切れの仮押さえを定期的に解放するワーカー
// 期限切れの判定自体は確定時にも行われるため、このワーカーは空席の早期回復のためにある
type ExpiredHoldSweeper struct {
	releaser HoldReleaser
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewExpiredHoldSweeper は新しいスイーパーを作成
func NewExpiredHoldSweeper(r HoldReleaser, interval time.Duration) *ExpiredHoldSweeper {
	return &ExpiredHoldSweeper{
		releaser: r,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はスイーパーを開始。ctx のキャンセルか Stop で終了する
func (s *ExpiredHoldSweeper) Start(ctx context.Context) {
	logger.Info("仮押さえスイーパー開始", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("仮押さえスイーパー停止（コンテキストキャンセル）")
			return
		case <-s.stopCh:
			logger.Info("仮押さえスイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止し、終了を待つ
func (s *ExpiredHoldSweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *ExpiredHoldSweeper) sweep(ctx context.Context) {
	log := logger.Get()

	count, err := s.releaser.ReleaseExpiredHolds(ctx)
	if err != nil {
		log.Error("期限切れ仮押さえの解放失敗", zap.Int("released", count), zap.Error(err))
		return
	}
	if count > 0 {
		log.Info("期限切れ仮押さえを解放", zap.Int("count", count))
	} else {
		log.Debug("期限切れ仮押さえなし")
	}
}
