package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/airline-ticket-service/internal/application"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/hold"
)

type HoldHandler struct {
	service ReservationServiceInterface
}

func NewHoldHandler(s ReservationServiceInterface) *HoldHandler {
	return &HoldHandler{service: s}
}

type CreateHoldRequest struct {
	NumSeats      int    `json:"numSeats" validate:"required,min=1"`
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
}

type HeldSeatResponse struct {
	LevelName string `json:"levelName"`
	SeatLabel string `json:"seatLabel"`
}

type HoldResponse struct {
	ID            int64              `json:"id"`
	CustomerEmail string             `json:"customerEmail"`
	Seats         []HeldSeatResponse `json:"seats"`
	CreatedAt     time.Time          `json:"createdAt"`
	ExpiresAt     time.Time          `json:"expirationTime"`
	Expired       bool               `json:"expired"`
}

func toHoldResponse(h *hold.Hold, expired bool) HoldResponse {
	seats := make([]HeldSeatResponse, len(h.Seats))
	for i, s := range h.Seats {
		seats[i] = HeldSeatResponse{LevelName: s.LevelName(), SeatLabel: s.Label()}
	}
	return HoldResponse{
		ID:            h.ID,
		CustomerEmail: h.CustomerEmail,
		Seats:         seats,
		CreatedAt:     h.CreatedAt,
		ExpiresAt:     h.ExpiresAt,
		Expired:       expired,
	}
}

// Create は仮押さえを作成する
func (h *HoldHandler) Create(c echo.Context) error {
	var req CreateHoldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	hd, err := h.service.CreateHold(c.Request().Context(), application.CreateHoldInput{
		NumSeats:      req.NumSeats,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHoldResponse(hd, false))
}

// GetByID は有効な仮押さえを返す。参照だけでは期限切れの座席を解放しない
func (h *HoldHandler) GetByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return fmt.Errorf("%w: hold id must be a positive integer", application.ErrInvalidArgument)
	}

	hd, expired, err := h.service.GetHold(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHoldResponse(hd, expired))
}
