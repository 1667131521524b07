package handler

import (
	"context"

	"github.com/sanosuguru/airline-ticket-service/internal/application"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/hold"
	"github.com/sanosuguru/airline-ticket-service/internal/domain/reservation"
)

// ReservationServiceInterface は座席予約サービスのインターフェース
type ReservationServiceInterface interface {
	Availability(ctx context.Context, levelNames []string) ([]application.LevelAvailability, error)
	LevelSummaries(ctx context.Context) ([]application.LevelSummary, error)
	CreateHold(ctx context.Context, input application.CreateHoldInput) (*hold.Hold, error)
	GetHold(ctx context.Context, id int64) (*hold.Hold, bool, error)
	CommitHold(ctx context.Context, input application.CommitHoldInput) (*reservation.Confirmation, error)
	ReserveDirect(ctx context.Context, input application.ReserveDirectInput) (*reservation.Confirmation, error)
}
