package clock

import (
	"sync"
	"time"
)

// Clock は現在時刻を注入するためのインターフェース
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem は time.Now を使う Clock を返す
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

type fixedClock struct {
	now time.Time
}

// NewFixed は常に同じ時刻を返す Clock を返す（テスト用）
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t}
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// Manual は手動で進められる Clock（有効期限のテスト用）
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual は指定時刻から始まる Manual を返す
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance は時刻を d だけ進める
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
