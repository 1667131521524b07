package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/airline-ticket-service/internal/application"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/reservation"
)

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type CommitHoldRequest struct {
	HoldID        int64  `json:"holdId" validate:"required,min=1"`
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
}

// ReserveDirectRequest の価格は JSON の数値・文字列のどちらでも受け付ける
type ReserveDirectRequest struct {
	NumSeats      int             `json:"numSeats" validate:"required,min=1"`
	CustomerEmail string          `json:"customerEmail" validate:"required,email"`
	MinPrice      decimal.Decimal `json:"minPrice" validate:"gte=0"`
	MaxPrice      decimal.Decimal `json:"maxPrice" validate:"gte=0"`
	LevelNames    []string        `json:"levelNames"`
}

type ConfirmationResponse struct {
	ConfirmationCode string `json:"confirmationCode"`
}

func toConfirmationResponse(c *reservation.Confirmation) ConfirmationResponse {
	return ConfirmationResponse{ConfirmationCode: c.Code}
}

// Commit は仮押さえを予約確定にする
func (h *ReservationHandler) Commit(c echo.Context) error {
	var req CommitHoldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	conf, err := h.service.CommitHold(c.Request().Context(), application.CommitHoldInput{
		HoldID:        req.HoldID,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toConfirmationResponse(conf))
}

// ReserveDirect は価格帯に一致する空席を仮押さえなしで予約確定にする
func (h *ReservationHandler) ReserveDirect(c echo.Context) error {
	var req ReserveDirectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	conf, err := h.service.ReserveDirect(c.Request().Context(), application.ReserveDirectInput{
		NumSeats:      req.NumSeats,
		CustomerEmail: req.CustomerEmail,
		MinPrice:      req.MinPrice,
		MaxPrice:      req.MaxPrice,
		LevelNames:    req.LevelNames,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toConfirmationResponse(conf))
}
