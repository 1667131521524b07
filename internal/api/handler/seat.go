package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type SeatHandler struct {
	service ReservationServiceInterface
}

func NewSeatHandler(s ReservationServiceInterface) *SeatHandler {
	return &SeatHandler{service: s}
}

type AvailableSeatsResponse struct {
	LevelName      string `json:"levelName"`
	AvailableSeats int    `json:"availableSeats"`
}

type LevelResponse struct {
	LevelName      string `json:"levelName"`
	Rows           int    `json:"rows"`
	SeatsPerRow    int    `json:"seatsPerRow"`
	TotalSeats     int    `json:"totalSeats"`
	AvailableSeats int    `json:"availableSeats"`
	ReservedSeats  int    `json:"reservedSeats"`
	NextSeatPrice  string `json:"nextSeatPrice"`
}

// Available はレベルごとの空席数を返す
// levelNames は繰り返し指定（?levelNames=a&levelNames=b）とカンマ区切りの両方を受け付ける
func (h *SeatHandler) Available(c echo.Context) error {
	var levelNames []string
	for _, v := range c.QueryParams()["levelNames"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				levelNames = append(levelNames, name)
			}
		}
	}

	levels, err := h.service.Availability(c.Request().Context(), levelNames)
	if err != nil {
		return err
	}
	resp := make([]AvailableSeatsResponse, len(levels))
	for i, l := range levels {
		resp[i] = AvailableSeatsResponse{LevelName: l.LevelName, AvailableSeats: l.AvailableCount}
	}
	return c.JSON(http.StatusOK, resp)
}

// Levels は各レベルの座席数・予約状況・次の座席価格を返す
func (h *SeatHandler) Levels(c echo.Context) error {
	sums, err := h.service.LevelSummaries(c.Request().Context())
	if err != nil {
		return err
	}
	resp := make([]LevelResponse, len(sums))
	for i, s := range sums {
		resp[i] = LevelResponse{
			LevelName:      s.LevelName,
			Rows:           s.Rows,
			SeatsPerRow:    s.SeatsPerRow,
			TotalSeats:     s.TotalSeats,
			AvailableSeats: s.AvailableCount,
			ReservedSeats:  s.ReservedCount,
			NextSeatPrice:  s.NextPrice.StringFixed(2),
		}
	}
	return c.JSON(http.StatusOK, resp)
}
