package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger は依存先の疎通確認
type Pinger func(ctx context.Context) error

// HealthHandler はヘルスチェックハンドラー
type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler はHealthHandlerを作成する
// checks には有効化された依存先（postgres, redis など）だけを渡す
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Check はヘルスチェックを行う
// 座席在庫はメモリ上にあるため、依存先の障害は degraded として 200 で返す
func (h *HealthHandler) Check(c echo.Context) error {
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if len(h.checks) > 0 {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		resp.Dependencies = make(map[string]string, len(h.checks))
		for name, ping := range h.checks {
			if err := ping(ctx); err != nil {
				resp.Dependencies[name] = "unavailable"
				resp.Status = "degraded"
				continue
			}
			resp.Dependencies[name] = "ok"
		}
	}
	return c.JSON(http.StatusOK, resp)
}
