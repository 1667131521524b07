package seat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Pricer はレベル名と予約確定数から価格を求める
type Pricer interface {
	Price(levelName string, reservedCount int) (decimal.Decimal, error)
}

// Inventory は機体の座席在庫を管理する
// 読み取り・状態遷移は WithLocked で対象レベルのロックを取った上で行う
type Inventory struct {
	levels []*Level
	pricer Pricer
}

// NewInventory はレイアウト定義から座席在庫を初期化する
func NewInventory(layout []LevelSpec, pricer Pricer) (*Inventory, error) {
	if len(layout) == 0 {
		return nil, fmt.Errorf("%w: no levels", ErrInvalidLayout)
	}
	seen := make(map[string]struct{}, len(layout))
	levels := make([]*Level, 0, len(layout))
	for i, spec := range layout {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: level name is required", ErrInvalidLayout)
		}
		if spec.Rows < 1 || spec.SeatsPerRow < 1 || spec.SeatsPerRow > maxSeatsPerRow {
			return nil, fmt.Errorf("%w: %s has %dx%d seats", ErrInvalidLayout, spec.Name, spec.Rows, spec.SeatsPerRow)
		}
		key := strings.ToLower(spec.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate level %s", ErrInvalidLayout, spec.Name)
		}
		seen[key] = struct{}{}
		levels = append(levels, newLevel(i, spec))
	}
	return &Inventory{levels: levels, pricer: pricer}, nil
}

// Levels は全レベルを正規順序で返す
func (inv *Inventory) Levels() []*Level {
	out := make([]*Level, len(inv.levels))
	copy(out, inv.levels)
	return out
}

// Level は名前（大文字小文字を区別しない完全一致）でレベルを取得する
func (inv *Inventory) Level(name string) (*Level, error) {
	for _, l := range inv.levels {
		if strings.EqualFold(l.name, name) {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownLevel, name)
}

// ListLevels はフィルタに一致するレベルを正規順序で返す
// フィルタが空なら全レベル。strict の場合、どのレベルにも一致しない名前があればエラー
func (inv *Inventory) ListLevels(filter []string, strict bool) ([]*Level, error) {
	if len(filter) == 0 {
		return inv.Levels(), nil
	}
	selected := make(map[int]struct{}, len(filter))
	for _, name := range filter {
		l, err := inv.Level(name)
		if err != nil {
			if strict {
				return nil, err
			}
			continue
		}
		selected[l.index] = struct{}{}
	}
	out := make([]*Level, 0, len(selected))
	for _, l := range inv.levels {
		if _, ok := selected[l.index]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// WithLocked は指定レベルのロックを正規順序で取得して fn を実行する
// 取得順序を固定しているため複数レベルを同時にロックしてもデッドロックしない
func (inv *Inventory) WithLocked(levels []*Level, fn func() error) error {
	ordered := make([]*Level, 0, len(levels))
	seen := make(map[int]struct{}, len(levels))
	for _, l := range levels {
		if _, ok := seen[l.index]; ok {
			continue
		}
		seen[l.index] = struct{}{}
		ordered = append(ordered, l)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].index < ordered[j].index })

	for _, l := range ordered {
		l.mu.Lock()
	}
	defer func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			ordered[i].mu.Unlock()
		}
	}()
	return fn()
}

// AvailableCount は空席数を返す
func (inv *Inventory) AvailableCount(l *Level) int {
	n := 0
	for _, s := range l.seats {
		if s.IsFree() {
			n++
		}
	}
	return n
}

// FindFreeSeats は行優先順に最大 maxCount 件の空席を返す。状態は変更しない
// maxCount が負の場合は上限なし
func (inv *Inventory) FindFreeSeats(l *Level, maxCount int) []*Seat {
	out := make([]*Seat, 0)
	if maxCount == 0 {
		return out
	}
	for _, s := range l.seats {
		if !s.IsFree() {
			continue
		}
		out = append(out, s)
		if maxCount > 0 && len(out) == maxCount {
			break
		}
	}
	return out
}

// MarkHeld は座席を仮押さえにする。既に仮押さえの座席はそのまま
// 遷移できない座席が1つでもあれば何も変更せずにエラーを返す
func (inv *Inventory) MarkHeld(seats []*Seat) error {
	for _, s := range seats {
		if s.status == StatusReserved {
			return fmt.Errorf("%w: %s %s", ErrSeatNotAvailable, s.LevelName(), s.label)
		}
	}
	for _, s := range seats {
		if s.status == StatusFree {
			_ = s.Hold()
		}
	}
	return nil
}

// MarkFree は仮押さえを解除する。既に空席の座席はそのまま
func (inv *Inventory) MarkFree(seats []*Seat) error {
	for _, s := range seats {
		if s.status == StatusReserved {
			return fmt.Errorf("%w: %s %s", ErrSeatAlreadyReserved, s.LevelName(), s.label)
		}
	}
	for _, s := range seats {
		if s.status == StatusHeld {
			_ = s.Release()
		}
	}
	return nil
}

// MarkReserved は座席を予約確定にし、新たに確定した座席ごとに所属レベルの予約確定数を1増やす
// 既に確定済みの座席は数えない
func (inv *Inventory) MarkReserved(seats []*Seat) {
	for _, s := range seats {
		if s.Reserve() == nil {
			s.level.reservedCount++
		}
	}
}

// NextPrice は現在の予約確定数に基づく次の座席の価格を返す
func (inv *Inventory) NextPrice(l *Level) (decimal.Decimal, error) {
	return inv.pricer.Price(l.name, l.reservedCount)
}
