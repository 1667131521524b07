package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sanosuguru/airline-ticket-service/internal/clock"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/hold"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/reservation"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/seat"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/airline-ticket-service/internal/infrastructure/redis"
	"github.com/sanosuguru/airline-ticket-service/internal/pkg/logger"
	"github.com/sanosuguru/airline-ticket-service/internal/pkg/metrics"
)

// ReservationService は空席照会・仮押さえ・確定・直接予約を調停する
// 座席状態と仮押さえ台帳の変更はすべてこのサービス経由で行う。
// レベル単位のロック内ではメモリ上の状態のみを扱い、キャッシュ無効化・ジャーナル保存・
// イベント通知はロック解放後に行う。
type ReservationService struct {
	inventory *seat.Inventory
	ledger    *hold.Ledger
	clock     clock.Clock

	holdDuration      time.Duration
	holdLevel         string
	strictLevelFilter bool

	cache     AvailabilityCache
	cacheTTL  time.Duration
	txManager transaction.Manager
	journal   reservation.Repository
	publisher reservation.Publisher
	metrics   *metrics.Metrics

	// レベルごとの変更世代。キャッシュ書き込みと変更の競合検出に使う
	generations map[string]*atomic.Uint64
	directSeq   atomic.Uint64
}

// NewReservationService は ReservationService を作成する
func NewReservationService(inv *seat.Inventory, ledger *hold.Ledger, clk clock.Clock, opts ...Option) *ReservationService {
	s := &ReservationService{
		inventory:    inv,
		ledger:       ledger,
		clock:        clk,
		holdDuration: defaultHoldDuration,
		holdLevel:    seat.FirstClass,
		cacheTTL:     defaultCacheTTL,
		generations:  make(map[string]*atomic.Uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, l := range inv.Levels() {
		s.generations[l.Name()] = new(atomic.Uint64)
	}
	return s
}

// HoldDuration は仮押さえの有効期間を返す
func (s *ReservationService) HoldDuration() time.Duration {
	return s.holdDuration
}

// LevelAvailability はレベルごとの空席数
type LevelAvailability struct {
	LevelName      string
	AvailableCount int
}

// LevelSummary はレベルの座席数・予約状況・次の座席価格
type LevelSummary struct {
	LevelName      string
	Rows           int
	SeatsPerRow    int
	TotalSeats     int
	AvailableCount int
	ReservedCount  int
	NextPrice      decimal.Decimal
}

type CreateHoldInput struct {
	NumSeats      int
	CustomerEmail string
}

type CommitHoldInput struct {
	HoldID        int64
	CustomerEmail string
}

type ReserveDirectInput struct {
	NumSeats      int
	CustomerEmail string
	MinPrice      decimal.Decimal
	MaxPrice      decimal.Decimal
	LevelNames    []string
}

// Availability はフィルタに一致する各レベルの空席数を正規順序で返す
func (s *ReservationService) Availability(ctx context.Context, levelNames []string) ([]LevelAvailability, error) {
	levels, err := s.inventory.ListLevels(levelNames, s.strictLevelFilter)
	if err != nil {
		return nil, err
	}

	out := make([]LevelAvailability, 0, len(levels))
	for _, l := range levels {
		if s.cache != nil {
			count, err := s.cache.GetAvailableCount(ctx, l.Name())
			if err == nil {
				logger.Debug("キャッシュヒット", zap.String("level", l.Name()), zap.Int("count", count))
				out = append(out, LevelAvailability{LevelName: l.Name(), AvailableCount: count})
				continue
			}
			if !errors.Is(err, redisinfra.ErrCacheMiss) {
				logger.Warn("キャッシュ取得エラー", zap.Error(err))
			}
		}

		var count int
		var gen uint64
		_ = s.inventory.WithLocked([]*seat.Level{l}, func() error {
			gen = s.generations[l.Name()].Load()
			count = s.inventory.AvailableCount(l)
			return nil
		})

		if s.cache != nil {
			s.storeAvailability(ctx, l.Name(), count, gen)
		}
		out = append(out, LevelAvailability{LevelName: l.Name(), AvailableCount: count})
	}
	return out, nil
}

// storeAvailability はキャッシュに空席数を保存する
// 保存までの間に変更が入っていれば、古い値を残さないよう無効化する
func (s *ReservationService) storeAvailability(ctx context.Context, levelName string, count int, gen uint64) {
	if err := s.cache.SetAvailableCount(ctx, levelName, count, s.cacheTTL); err != nil {
		logger.Warn("キャッシュ保存エラー", zap.Error(err))
		return
	}
	if s.generations[levelName].Load() != gen {
		if err := s.cache.Invalidate(ctx, levelName); err != nil {
			logger.Warn("キャッシュ無効化エラー", zap.Error(err))
		}
	}
}

// LevelSummaries は全レベルの概要を正規順序で返す
func (s *ReservationService) LevelSummaries(ctx context.Context) ([]LevelSummary, error) {
	levels := s.inventory.Levels()
	out := make([]LevelSummary, 0, len(levels))
	for _, l := range levels {
		sum := LevelSummary{
			LevelName:   l.Name(),
			Rows:        l.Rows(),
			SeatsPerRow: l.SeatsPerRow(),
			TotalSeats:  l.TotalSeats(),
		}
		err := s.inventory.WithLocked([]*seat.Level{l}, func() error {
			price, err := s.inventory.NextPrice(l)
			if err != nil {
				return err
			}
			sum.AvailableCount = s.inventory.AvailableCount(l)
			sum.ReservedCount = l.ReservedCount()
			sum.NextPrice = price
			return nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

// CreateHold は仮押さえ対象レベルの空席を行優先で numSeats 席押さえる
// 空席が足りない場合は何も変更せずに ErrInsufficientInventory を返す
func (s *ReservationService) CreateHold(ctx context.Context, input CreateHoldInput) (*hold.Hold, error) {
	if input.NumSeats < 1 {
		return nil, fmt.Errorf("%w: numSeats must be at least 1", ErrInvalidArgument)
	}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		return nil, fmt.Errorf("%w: customerEmail is required", ErrInvalidArgument)
	}

	level, err := s.inventory.Level(s.holdLevel)
	if err != nil {
		return nil, err
	}

	var h *hold.Hold
	var available int
	start := time.Now()
	err = s.inventory.WithLocked([]*seat.Level{level}, func() error {
		seats := s.inventory.FindFreeSeats(level, input.NumSeats)
		if len(seats) < input.NumSeats {
			return fmt.Errorf("%w to hold", seat.ErrInsufficientInventory)
		}
		if err := s.inventory.MarkHeld(seats); err != nil {
			return err
		}
		h = s.ledger.Create(seats, input.CustomerEmail, s.holdDuration)
		s.generations[level.Name()].Add(1)
		available = s.inventory.AvailableCount(level)
		return nil
	})
	s.observeCriticalSection("create_hold", start)
	if err != nil {
		if errors.Is(err, seat.ErrInsufficientInventory) {
			s.countHold("insufficient")
		}
		return nil, err
	}

	s.countHold("created")
	if s.metrics != nil {
		s.metrics.ActiveHolds.Inc()
	}
	s.afterMutation(ctx, map[string]int{level.Name(): available})

	logger.Info("仮押さえ作成",
		zap.Int64("hold_id", h.ID),
		zap.String("level", level.Name()),
		zap.Int("num_seats", len(h.Seats)),
		zap.Time("expires_at", h.ExpiresAt),
	)
	return h, nil
}

// GetHold は有効な仮押さえと、現時点で期限切れかどうかを返す
// 期限切れでも座席の解放は行わない
func (s *ReservationService) GetHold(ctx context.Context, id int64) (*hold.Hold, bool, error) {
	h, err := s.ledger.Get(id)
	if err != nil {
		return nil, false, err
	}
	return h, s.ledger.IsExpired(h), nil
}

// CommitHold は仮押さえを予約確定にする
// 期限切れの場合は座席を解放して仮押さえを削除し、ErrHoldExpired を返す
func (s *ReservationService) CommitHold(ctx context.Context, input CommitHoldInput) (*reservation.Confirmation, error) {
	h, err := s.ledger.Get(input.HoldID)
	if err != nil {
		return nil, s.holdLookupError(input, err)
	}
	if !h.BelongsTo(input.CustomerEmail) {
		s.countHold("mismatch")
		return nil, hold.ErrCustomerMismatch
	}

	levels, err := s.holdLevels(h)
	if err != nil {
		return nil, err
	}

	var conf *reservation.Confirmation
	counts := make(map[string]int, len(levels))
	start := time.Now()
	err = s.inventory.WithLocked(levels, func() error {
		// ロック待ちの間に確定・解放されていないか再確認する
		current, err := s.ledger.Get(h.ID)
		if err != nil {
			return err
		}
		if s.ledger.IsExpired(current) {
			if err := s.inventory.MarkFree(current.Seats); err != nil {
				return err
			}
			s.ledger.Remove(current.ID)
			s.touch(levels, counts)
			return hold.ErrHoldExpired
		}

		refs, err := s.snapshotPrices(current.Seats)
		if err != nil {
			return err
		}
		s.inventory.MarkReserved(current.Seats)
		s.ledger.Remove(current.ID)
		s.touch(levels, counts)

		now := s.clock.Now()
		conf = reservation.NewConfirmation(reservation.HoldCode(current.ID, now), reservation.KindHold, current.ID, current.CustomerEmail, refs, now)
		return nil
	})
	s.observeCriticalSection("commit_hold", start)

	switch {
	case errors.Is(err, hold.ErrHoldExpired):
		s.countHold("expired")
		s.countReservation(reservation.KindHold, "expired")
		if s.metrics != nil {
			s.metrics.ActiveHolds.Dec()
		}
		s.afterMutation(ctx, counts)
		logger.Info("期限切れの仮押さえを解放", zap.Int64("hold_id", h.ID))
		return nil, err
	case err != nil:
		return nil, s.holdLookupError(input, err)
	}

	s.countHold("committed")
	s.countReservation(reservation.KindHold, "success")
	if s.metrics != nil {
		s.metrics.ActiveHolds.Dec()
	}
	s.afterMutation(ctx, counts)
	s.record(ctx, conf)

	logger.Info("仮押さえを予約確定",
		zap.Int64("hold_id", h.ID),
		zap.String("confirmation_code", conf.Code),
		zap.Int("num_seats", len(conf.Seats)),
	)
	return conf, nil
}

// ReserveDirect は価格帯 [MinPrice, MaxPrice] に一致するレベルの空席を
// 正規順序で numSeats 席、仮押さえを経ずに予約確定にする
// 価格はレベルごとにロック取得時点の予約確定数で1回だけ評価する
func (s *ReservationService) ReserveDirect(ctx context.Context, input ReserveDirectInput) (*reservation.Confirmation, error) {
	if input.NumSeats < 1 {
		s.countReservation(reservation.KindDirect, "invalid")
		return nil, fmt.Errorf("%w: numSeats must be at least 1", ErrInvalidArgument)
	}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		s.countReservation(reservation.KindDirect, "invalid")
		return nil, fmt.Errorf("%w: customerEmail is required", ErrInvalidArgument)
	}
	if input.MinPrice.IsNegative() || input.MaxPrice.IsNegative() {
		s.countReservation(reservation.KindDirect, "invalid")
		return nil, fmt.Errorf("%w: prices must not be negative", ErrInvalidArgument)
	}

	levels, err := s.inventory.ListLevels(input.LevelNames, s.strictLevelFilter)
	if err != nil {
		return nil, err
	}

	var conf *reservation.Confirmation
	counts := make(map[string]int, len(levels))
	start := time.Now()
	err = s.inventory.WithLocked(levels, func() error {
		var candidates []*seat.Seat
		prices := make(map[string]decimal.Decimal, len(levels))
		for _, l := range levels {
			if len(candidates) == input.NumSeats {
				break
			}
			price, err := s.inventory.NextPrice(l)
			if err != nil {
				return err
			}
			if price.LessThan(input.MinPrice) || price.GreaterThan(input.MaxPrice) {
				continue
			}
			prices[l.Name()] = price
			candidates = append(candidates, s.inventory.FindFreeSeats(l, input.NumSeats-len(candidates))...)
		}
		if len(candidates) < input.NumSeats {
			return fmt.Errorf("%w within the specified price range", seat.ErrInsufficientInventory)
		}

		refs := make([]reservation.SeatRef, 0, len(candidates))
		for _, st := range candidates {
			refs = append(refs, reservation.SeatRef{Level: st.LevelName(), Label: st.Label(), Price: prices[st.LevelName()]})
		}
		s.inventory.MarkReserved(candidates)
		s.touch(levels, counts)

		now := s.clock.Now()
		code := reservation.DirectCode(now, s.directSeq.Add(1))
		conf = reservation.NewConfirmation(code, reservation.KindDirect, 0, input.CustomerEmail, refs, now)
		return nil
	})
	s.observeCriticalSection("reserve_direct", start)
	if err != nil {
		if errors.Is(err, seat.ErrInsufficientInventory) {
			s.countReservation(reservation.KindDirect, "insufficient")
		}
		return nil, err
	}

	s.countReservation(reservation.KindDirect, "success")
	s.afterMutation(ctx, counts)
	s.record(ctx, conf)

	logger.Info("直接予約を確定",
		zap.String("confirmation_code", conf.Code),
		zap.Int("num_seats", len(conf.Seats)),
		zap.String("total_price", conf.TotalPrice.String()),
	)
	return conf, nil
}

// ReleaseExpiredHolds は期限切れの仮押さえをすべて解放し、解放件数を返す
// 解放した仮押さえは期限切れとして記録され、所有者の次の確定要求は ErrHoldExpired になる
func (s *ReservationService) ReleaseExpiredHolds(ctx context.Context) (int, error) {
	released := 0
	for _, h := range s.ledger.ExpiredHolds() {
		if err := ctx.Err(); err != nil {
			return released, err
		}
		levels, err := s.holdLevels(h)
		if err != nil {
			return released, err
		}

		freed := false
		counts := make(map[string]int, len(levels))
		start := time.Now()
		err = s.inventory.WithLocked(levels, func() error {
			current, err := s.ledger.Get(h.ID)
			if err != nil || !s.ledger.IsExpired(current) {
				return nil
			}
			if err := s.inventory.MarkFree(current.Seats); err != nil {
				return err
			}
			s.ledger.Expire(current.ID)
			s.touch(levels, counts)
			freed = true
			return nil
		})
		s.observeCriticalSection("sweep", start)
		if err != nil {
			return released, fmt.Errorf("仮押さえ %d の解放に失敗: %w", h.ID, err)
		}
		if !freed {
			continue
		}

		released++
		s.countHold("expired")
		if s.metrics != nil {
			s.metrics.ActiveHolds.Dec()
		}
		s.afterMutation(ctx, counts)
	}
	return released, nil
}

// holdLookupError は台帳に無い仮押さえについて掃除済みの記録を確認する
// 所有者には ErrHoldExpired を返して記録を消費し、他の顧客には ErrCustomerMismatch を返す
// 期限切れの件数は掃除の時点で数えているため、ここでは数えない
func (s *ReservationService) holdLookupError(input CommitHoldInput, err error) error {
	if !errors.Is(err, hold.ErrHoldNotFound) {
		return err
	}
	switch terr := s.ledger.TakeExpired(input.HoldID, input.CustomerEmail); {
	case errors.Is(terr, hold.ErrHoldExpired):
		s.countReservation(reservation.KindHold, "expired")
		return terr
	case errors.Is(terr, hold.ErrCustomerMismatch):
		s.countHold("mismatch")
		return terr
	}
	s.countHold("not_found")
	return err
}

func (s *ReservationService) holdLevels(h *hold.Hold) ([]*seat.Level, error) {
	names := h.LevelNames()
	levels := make([]*seat.Level, 0, len(names))
	for _, name := range names {
		l, err := s.inventory.Level(name)
		if err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, nil
}

// snapshotPrices は確定前の予約確定数で各座席の価格を求める。ロック内で呼ぶこと
func (s *ReservationService) snapshotPrices(seats []*seat.Seat) ([]reservation.SeatRef, error) {
	prices := make(map[string]decimal.Decimal)
	refs := make([]reservation.SeatRef, 0, len(seats))
	for _, st := range seats {
		price, ok := prices[st.LevelName()]
		if !ok {
			l, err := s.inventory.Level(st.LevelName())
			if err != nil {
				return nil, err
			}
			if price, err = s.inventory.NextPrice(l); err != nil {
				return nil, err
			}
			prices[st.LevelName()] = price
		}
		refs = append(refs, reservation.SeatRef{Level: st.LevelName(), Label: st.Label(), Price: price})
	}
	return refs, nil
}

// touch は変更したレベルの世代を進め、変更後の空席数を counts に記録する。ロック内で呼ぶこと
func (s *ReservationService) touch(levels []*seat.Level, counts map[string]int) {
	for _, l := range levels {
		s.generations[l.Name()].Add(1)
		counts[l.Name()] = s.inventory.AvailableCount(l)
	}
}

// afterMutation はロック解放後にキャッシュ無効化とゲージ更新を行う
// 失敗してもリクエストは失敗させない
func (s *ReservationService) afterMutation(ctx context.Context, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	names := make([]string, 0, len(counts))
	for name, count := range counts {
		names = append(names, name)
		if s.metrics != nil {
			s.metrics.AvailableSeats.WithLabelValues(name).Set(float64(count))
		}
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, names...); err != nil {
			logger.Warn("キャッシュ無効化エラー", zap.Strings("levels", names), zap.Error(err))
		}
	}
}

// record は確定内容をジャーナルに保存し、確定イベントを通知する
// 在庫はメモリ上で確定済みのため、失敗は警告ログのみ
func (s *ReservationService) record(ctx context.Context, conf *reservation.Confirmation) {
	if s.journal != nil && s.txManager != nil {
		err := transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
			return s.journal.Save(ctx, tx, conf)
		})
		if err != nil {
			logger.Warn("予約確定の記録に失敗", zap.String("confirmation_code", conf.Code), zap.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishConfirmed(ctx, conf); err != nil {
			logger.Warn("予約確定イベントの通知に失敗", zap.String("confirmation_code", conf.Code), zap.Error(err))
		}
	}
}

func (s *ReservationService) countHold(result string) {
	if s.metrics != nil {
		s.metrics.HoldsTotal.WithLabelValues(result).Inc()
	}
}

func (s *ReservationService) countReservation(kind reservation.Kind, status string) {
	if s.metrics != nil {
		s.metrics.ReservationsTotal.WithLabelValues(string(kind), status).Inc()
	}
}

func (s *ReservationService) observeCriticalSection(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.CriticalSectionDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
