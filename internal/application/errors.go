package application

import "errors"

// ErrInvalidArgument は入力値が不正な場合のエラー（座席数が0以下など）
var ErrInvalidArgument = errors.New("invalid argument")
