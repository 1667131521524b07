package reservation

import "errors"

// Reservation ドメインのエラー定義
var (
	ErrCodeRequired      = errors.New("confirmation code is required")
	ErrCustomerRequired  = errors.New("customer email is required")
	ErrSeatsRequired     = errors.New("at least one seat is required")
	ErrCodeAlreadyExists = errors.New("confirmation code already exists")
)
