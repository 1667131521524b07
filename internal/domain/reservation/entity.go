package reservation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind は予約確定の経路を表す
type Kind string

const (
	KindHold   Kind = "hold"
	KindDirect Kind = "direct"
)

// SeatRef は確定した座席と確定時点の価格
type SeatRef struct {
	Level string
	Label string
	Price decimal.Decimal
}

// Confirmation は予約確定の結果を表す
type Confirmation struct {
	Code          string
	Kind          Kind
	HoldID        int64
	CustomerEmail string
	Seats         []SeatRef
	TotalPrice    decimal.Decimal
	ConfirmedAt   time.Time
}

// HoldCode は仮押さえ確定の確認コードを返す（CONFIRM-<holdId>-<unix ms>）
// 一意性は再利用されない仮押さえ ID で保証される
func HoldCode(holdID int64, at time.Time) string {
	return fmt.Sprintf("CONFIRM-%d-%d", holdID, at.UnixMilli())
}

// DirectCode は直接予約の確認コードを返す（CONFIRM-DIRECT-<unix ms>-<seq>）
func DirectCode(at time.Time, seq uint64) string {
	return fmt.Sprintf("CONFIRM-DIRECT-%d-%d", at.UnixMilli(), seq)
}

// NewConfirmation は座席一覧から合計金額を計算して Confirmation を作成する
func NewConfirmation(code string, kind Kind, holdID int64, customerEmail string, seats []SeatRef, at time.Time) *Confirmation {
	total := decimal.Zero
	for _, s := range seats {
		total = total.Add(s.Price)
	}
	return &Confirmation{
		Code:          code,
		Kind:          kind,
		HoldID:        holdID,
		CustomerEmail: customerEmail,
		Seats:         seats,
		TotalPrice:    total,
		ConfirmedAt:   at,
	}
}

// Validate は保存前の検証を行う
func (c *Confirmation) Validate() error {
	if c.Code == "" {
		return ErrCodeRequired
	}
	if c.CustomerEmail == "" {
		return ErrCustomerRequired
	}
	if len(c.Seats) == 0 {
		return ErrSeatsRequired
	}
	return nil
}
