package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sanosuguru/airline-ticket-service/internal/domain/seat"
)

// Unbounded は上限なしの閾値を表す
const Unbounded = -1

// Tier は「予約確定数が MaxReserved 以下ならこの価格」という料金段階
type Tier struct {
	MaxReserved int
	Price       decimal.Decimal
}

// Table はレベルごとの料金段階（閾値の昇順）
type Table map[string][]Tier

// DefaultTable は各レベルの料金段階
func DefaultTable() Table {
	return Table{
		seat.FirstClass: {
			{MaxReserved: 10, Price: decimal.NewFromInt(500)},
			{MaxReserved: 30, Price: decimal.NewFromInt(1000)},
			{MaxReserved: Unbounded, Price: decimal.NewFromInt(1600)},
		},
		seat.Business: {
			{MaxReserved: 45, Price: decimal.NewFromInt(350)},
			{MaxReserved: Unbounded, Price: decimal.NewFromInt(450)},
		},
		seat.PremiumEconomy: {
			{MaxReserved: 40, Price: decimal.NewFromInt(250)},
			{MaxReserved: 60, Price: decimal.NewFromInt(150)},
			{MaxReserved: Unbounded, Price: decimal.NewFromInt(300)},
		},
		seat.Economy: {
			{MaxReserved: Unbounded, Price: decimal.NewFromInt(200)},
		},
	}
}

// Engine は予約確定数に応じた動的価格を計算する。状態を持たない
type Engine struct {
	table Table
}

// NewEngine はデフォルトの料金表で Engine を作成する
func NewEngine() *Engine {
	return NewEngineWithTable(DefaultTable())
}

// NewEngineWithTable は任意の料金表で Engine を作成する
func NewEngineWithTable(table Table) *Engine {
	copied := make(Table, len(table))
	for name, tiers := range table {
		copied[name] = append([]Tier(nil), tiers...)
	}
	return &Engine{table: copied}
}

// Price はレベル名と予約確定数から価格を返す
// 閾値は「以下」で判定し、昇順に評価する
func (e *Engine) Price(levelName string, reservedCount int) (decimal.Decimal, error) {
	tiers, ok := e.table[levelName]
	if !ok || len(tiers) == 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", seat.ErrUnknownLevel, levelName)
	}
	for _, t := range tiers {
		if t.MaxReserved == Unbounded || reservedCount <= t.MaxReserved {
			return t.Price, nil
		}
	}
	// 最後の段階に上限がある料金表では最後の価格を使う
	return tiers[len(tiers)-1].Price, nil
}
