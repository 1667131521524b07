package api

import (
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/airline-ticket-service/internal/application"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/hold"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/seat"
	"github.com/sanosuguru/airline-ticket-service/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// domainErrors はドメインエラーと HTTP ステータス・エラー種別の対応
var domainErrors = []struct {
	err    error
	status int
	kind   string
}{
	{application.ErrInvalidArgument, http.StatusBadRequest, "InvalidArgument"},
	{seat.ErrUnknownLevel, http.StatusBadRequest, "UnknownLevel"},
	{seat.ErrInsufficientInventory, http.StatusBadRequest, "InsufficientInventory"},
	{hold.ErrHoldNotFound, http.StatusNotFound, "HoldNotFound"},
	{hold.ErrCustomerMismatch, http.StatusBadRequest, "CustomerMismatch"},
	{hold.ErrHoldExpired, http.StatusConflict, "HoldExpired"},
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := ErrorResponse{
		Error: "内部サーバーエラー",
		Code:  http.StatusInternalServerError,
	}

	var he *echo.HTTPError
	matched := false
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			resp = ErrorResponse{Error: sentence(err.Error()), Code: d.status, Details: d.kind}
			matched = true
			break
		}
	}
	if !matched && errors.As(err, &he) {
		resp.Code = he.Code
		if m, ok := he.Message.(string); ok {
			resp.Error = m
		} else {
			resp.Error = http.StatusText(he.Code)
		}
	}

	// エラーログを出力（5xx エラーの場合）
	if resp.Code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", resp.Code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(resp.Code)
	} else {
		err = c.JSON(resp.Code, resp)
	}
	if err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}

// sentence は "not enough available seats to hold" を "Not enough available seats to hold." にする
func sentence(msg string) string {
	if msg == "" {
		return msg
	}
	r := []rune(msg)
	r[0] = unicode.ToUpper(r[0])
	out := string(r)
	if !strings.HasSuffix(out, ".") {
		out += "."
	}
	return out
}
