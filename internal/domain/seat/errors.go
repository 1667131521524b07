package seat

import "errors"

// Seat ドメインのエラー定義
var (
	ErrUnknownLevel          = errors.New("unknown seating level")
	ErrInsufficientInventory = errors.New("not enough available seats")
	ErrSeatNotAvailable      = errors.New("seat is not available")
	ErrSeatNotHeld           = errors.New("seat is not held")
	ErrSeatAlreadyReserved   = errors.New("seat is already reserved")
	ErrInvalidLayout         = errors.New("invalid seating layout")
)
