package hold

import "errors"

// Hold ドメインのエラー定義
var (
	ErrHoldNotFound     = errors.New("hold not found")
	ErrCustomerMismatch = errors.New("customer email does not match the hold")
	ErrHoldExpired      = errors.New("the hold has expired")
)
