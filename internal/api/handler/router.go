package handler

import "github.com/labstack/echo/v4"

// RegisterRoutes は /api/v1 配下のルートを登録する
func RegisterRoutes(e *echo.Echo, svc ReservationServiceInterface, health *HealthHandler) {
	seatHandler := NewSeatHandler(svc)
	holdHandler := NewHoldHandler(svc)
	reservationHandler := NewReservationHandler(svc)

	v1 := e.Group("/api/v1")
	v1.GET("/health", health.Check)

	seats := v1.Group("/seats")
	seats.GET("/available", seatHandler.Available)
	seats.GET("/levels", seatHandler.Levels)
	seats.POST("/hold", holdHandler.Create)
	seats.GET("/holds/:id", holdHandler.GetByID)
	seats.POST("/reserve", reservationHandler.Commit)
	seats.POST("/reserve-direct", reservationHandler.ReserveDirect)
}
