package seat

import "sync"

// 機内レイアウトのレベル名
const (
	FirstClass     = "First Class"
	Business       = "Business"
	PremiumEconomy = "Premium Economy"
	Economy        = "Economy"
)

// maxSeatsPerRow は列記号 A〜Z で表せる上限
const maxSeatsPerRow = 26

// LevelSpec はレベルの行数と1行あたりの座席数を定義する
type LevelSpec struct {
	Name        string
	Rows        int
	SeatsPerRow int
}

// DefaultLayout は機体の固定レイアウト（並び順が正規順序になる）
var DefaultLayout = []LevelSpec{
	{Name: FirstClass, Rows: 10, SeatsPerRow: 4},
	{Name: Business, Rows: 15, SeatsPerRow: 6},
	{Name: PremiumEconomy, Rows: 20, SeatsPerRow: 6},
	{Name: Economy, Rows: 25, SeatsPerRow: 6},
}

// Level は座席レベル（料金帯）を表す
type Level struct {
	mu            sync.Mutex
	index         int
	name          string
	rows          int
	seatsPerRow   int
	seats         []*Seat
	reservedCount int
}

func newLevel(index int, spec LevelSpec) *Level {
	l := &Level{
		index:       index,
		name:        spec.Name,
		rows:        spec.Rows,
		seatsPerRow: spec.SeatsPerRow,
		seats:       make([]*Seat, 0, spec.Rows*spec.SeatsPerRow),
	}
	// 行優先で生成する。この順序が「ベストな空席」の優先順位になる
	for row := 1; row <= spec.Rows; row++ {
		for col := 1; col <= spec.SeatsPerRow; col++ {
			l.seats = append(l.seats, newSeat(l, row, col))
		}
	}
	return l
}

func (l *Level) Name() string     { return l.name }
func (l *Level) Rows() int        { return l.rows }
func (l *Level) SeatsPerRow() int { return l.seatsPerRow }
func (l *Level) TotalSeats() int  { return len(l.seats) }

// Seats は座席一覧（行優先順）のコピーを返す
func (l *Level) Seats() []*Seat {
	out := make([]*Seat, len(l.seats))
	copy(out, l.seats)
	return out
}

// ReservedCount は予約確定済み座席数を返す。ロック内で呼ぶこと
func (l *Level) ReservedCount() int { return l.reservedCount }
