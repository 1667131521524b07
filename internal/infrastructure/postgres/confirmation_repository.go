package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/airline-ticket-service/internal/domain/reservation"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/transaction"
)

// ConfirmationRepository は予約確定のジャーナルを PostgreSQL に書き込む
type ConfirmationRepository struct{ db *sqlx.DB }

func NewConfirmationRepository(db *sqlx.DB) *ConfirmationRepository {
	return &ConfirmationRepository{db: db}
}

const (
	insertConfirmationQuery = `INSERT INTO booking_confirmations (code, kind, hold_id, customer_email, total_price, confirmed_at) VALUES ($1, $2, $3, $4, $5, $6)`
	insertSeatQuery         = `INSERT INTO booking_confirmation_seats (confirmation_code, level_name, seat_label, price) VALUES ($1, $2, $3, $4)`
)

// Save は確定内容と座席明細を同一トランザクションで保存する
func (r *ConfirmationRepository) Save(ctx context.Context, tx transaction.Tx, c *reservation.Confirmation) error {
	if err := c.Validate(); err != nil {
		return err
	}
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return errors.New("トランザクションが不正です")
	}

	var holdID *int64
	if c.Kind == reservation.KindHold {
		holdID = &c.HoldID
	}
	if _, err := sqlxTx.ExecContext(ctx, insertConfirmationQuery, c.Code, string(c.Kind), holdID, c.CustomerEmail, c.TotalPrice, c.ConfirmedAt); err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return reservation.ErrCodeAlreadyExists
		}
		return fmt.Errorf("予約確定の保存に失敗: %w", err)
	}
	for _, s := range c.Seats {
		if _, err := sqlxTx.ExecContext(ctx, insertSeatQuery, c.Code, s.Level, s.Label, s.Price); err != nil {
			return fmt.Errorf("座席明細の保存に失敗: %w", err)
		}
	}
	return nil
}
