package hold

import (
	"time"

	"github.com/sanosuguru/airline-ticket-service/internal/domain/seat"
)

// Hold は顧客による座席の時間制限付き仮押さえを表す
type Hold struct {
	ID            int64
	Seats         []*seat.Seat
	CustomerEmail string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// IsExpired は now が有効期限以降かを返す
func (h *Hold) IsExpired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

// BelongsTo は仮押さえの所有者が email かを返す
func (h *Hold) BelongsTo(email string) bool {
	return h.CustomerEmail == email
}

// LevelNames は仮押さえ座席が属するレベル名を重複なく返す
func (h *Hold) LevelNames() []string {
	var names []string
	seen := make(map[string]struct{})
	for _, s := range h.Seats {
		if _, ok := seen[s.LevelName()]; ok {
			continue
		}
		seen[s.LevelName()] = struct{}{}
		names = append(names, s.LevelName())
	}
	return names
}
