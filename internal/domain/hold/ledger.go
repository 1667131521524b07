package hold

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sanosuguru/airline-ticket-service/internal/clock"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/seat"
)

// Ledger は有効な仮押さえを ID で管理する
// ID は1から単調増加し、削除後も再利用しない
type Ledger struct {
	clock  clock.Clock
	lastID atomic.Int64

	mu      sync.RWMutex
	holds   map[int64]*Hold
	expired map[int64]tombstone
}

// tombstone は掃除で解放された仮押さえの記録。retainUntil を過ぎたら破棄する
type tombstone struct {
	customerEmail string
	retainUntil   time.Time
}

// NewLedger は空の Ledger を作成する
func NewLedger(clk clock.Clock) *Ledger {
	return &Ledger{
		clock:   clk,
		holds:   make(map[int64]*Hold),
		expired: make(map[int64]tombstone),
	}
}

// Create は新しい仮押さえを登録する。有効期限は現在時刻 + duration
func (l *Ledger) Create(seats []*seat.Seat, customerEmail string, duration time.Duration) *Hold {
	now := l.clock.Now()
	h := &Hold{
		ID:            l.lastID.Add(1),
		Seats:         append([]*seat.Seat(nil), seats...),
		CustomerEmail: customerEmail,
		CreatedAt:     now,
		ExpiresAt:     now.Add(duration),
	}

	l.mu.Lock()
	l.holds[h.ID] = h
	l.mu.Unlock()
	return h
}

// Get は ID から仮押さえを取得する
func (l *Ledger) Get(id int64) (*Hold, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.holds[id]
	if !ok {
		return nil, ErrHoldNotFound
	}
	return h, nil
}

// Remove は仮押さえを削除する。存在しなくてもエラーにしない
func (l *Ledger) Remove(id int64) {
	l.mu.Lock()
	delete(l.holds, id)
	l.mu.Unlock()
}

// Expire は仮押さえを削除し、期限切れとして記録する
// 記録は解放時刻から仮押さえの保持時間と同じだけ残る
func (l *Ledger) Expire(id int64) {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(now)
	h, ok := l.holds[id]
	if !ok {
		return
	}
	delete(l.holds, id)
	l.expired[id] = tombstone{
		customerEmail: h.CustomerEmail,
		retainUntil:   now.Add(h.ExpiresAt.Sub(h.CreatedAt)),
	}
}

// TakeExpired は期限切れ記録を確認する
// 所有者なら記録を消費して ErrHoldExpired、他の顧客なら記録を残したまま ErrCustomerMismatch、
// 記録が無いか保持期間を過ぎていれば ErrHoldNotFound を返す
func (l *Ledger) TakeExpired(id int64, customerEmail string) error {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	ts, ok := l.expired[id]
	if !ok {
		return ErrHoldNotFound
	}
	if !now.Before(ts.retainUntil) {
		delete(l.expired, id)
		return ErrHoldNotFound
	}
	if ts.customerEmail != customerEmail {
		return ErrCustomerMismatch
	}
	delete(l.expired, id)
	return ErrHoldExpired
}

// ExpiredCount は保持中の期限切れ記録の件数を返す
func (l *Ledger) ExpiredCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.expired)
}

func (l *Ledger) pruneLocked(now time.Time) {
	for id, ts := range l.expired {
		if !now.Before(ts.retainUntil) {
			delete(l.expired, id)
		}
	}
}

// IsExpired は現在時刻で仮押さえが期限切れかを返す
func (l *Ledger) IsExpired(h *Hold) bool {
	return h.IsExpired(l.clock.Now())
}

// ExpiredHolds は現時点で期限切れの仮押さえを ID 順で返す
// 保持期間を過ぎた期限切れ記録もここで破棄する
func (l *Ledger) ExpiredHolds() []*Hold {
	now := l.clock.Now()
	l.mu.Lock()
	l.pruneLocked(now)
	var out []*Hold
	for _, h := range l.holds {
		if h.IsExpired(now) {
			out = append(out, h)
		}
	}
	l.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len は有効な仮押さえ件数を返す
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.holds)
}
