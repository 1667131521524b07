package reservation

import (
	"context"

	"github.com/sanosuguru/airline-ticket-service/internal/domain/transaction"
)

// Repository は予約確定の記録先（監査用ジャーナル）
// 書き込みのみで、在庫の復元には使わない
type Repository interface {
	// Save は確定内容を保存する（トランザクション必須）
	Save(ctx context.Context, tx transaction.Tx, c *Confirmation) error
}

// Publisher は予約確定イベントを外部に通知する
type Publisher interface {
	PublishConfirmed(ctx context.Context, c *Confirmation) error
}
