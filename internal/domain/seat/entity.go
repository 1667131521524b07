package seat

import "strconv"

// Status は座席の状態を表す
type Status string

const (
	StatusFree     Status = "free"
	StatusHeld     Status = "held"
	StatusReserved Status = "reserved"
)

// Seat は座席エンティティを表す
// 識別子は（レベル名, ラベル）の組。状態の変更は Inventory 経由でのみ行う
type Seat struct {
	label  string
	row    int
	column int
	status Status
	level  *Level
}

func newSeat(level *Level, row, column int) *Seat {
	return &Seat{
		label:  Label(row, column),
		row:    row,
		column: column,
		status: StatusFree,
		level:  level,
	}
}

// Label は行番号と列番号（1始まり）から "1A" 形式のラベルを生成する
func Label(row, column int) string {
	return strconv.Itoa(row) + string(rune('A'+column-1))
}

func (s *Seat) Label() string { return s.label }
func (s *Seat) Row() int      { return s.row }
func (s *Seat) Column() int   { return s.column }

// LevelName は座席が属するレベル名を返す
func (s *Seat) LevelName() string { return s.level.name }

// Status は現在の状態を返す。並行アクセス時はレベルのロック内で呼ぶこと
func (s *Seat) Status() Status { return s.status }

// IsFree は座席が空席かを返す
func (s *Seat) IsFree() bool {
	return s.status == StatusFree
}

// Hold は座席を仮押さえ状態にする
func (s *Seat) Hold() error {
	if s.status != StatusFree {
		return ErrSeatNotAvailable
	}
	s.status = StatusHeld
	return nil
}

// Release は仮押さえを解除する
func (s *Seat) Release() error {
	if s.status != StatusHeld {
		return ErrSeatNotHeld
	}
	s.status = StatusFree
	return nil
}

// Reserve は座席を予約確定状態にする（空席からの直接予約も可）
func (s *Seat) Reserve() error {
	if s.status == StatusReserved {
		return ErrSeatAlreadyReserved
	}
	s.status = StatusReserved
	return nil
}
