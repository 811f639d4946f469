package response

import (
	"time"

	"github.com/youngjaekwon/exam-scheduler/internal/data/entity"
)

type ReservationResponse struct {
	ID                   string            `json:"id"`
	UserID               string            `json:"user_id"`
	Schedule             *ScheduleResponse `json:"schedule,omitempty"`
	ScheduleID           string            `json:"schedule_id"`
	ExpectedParticipants int               `json:"expected_participants"`
	IsConfirmed          bool              `json:"is_confirmed"`
	ConfirmedAt          *time.Time        `json:"confirmed_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}

func ReservationToResponse(reservation *entity.Reservation, schedule *ScheduleResponse) ReservationResponse {
	return ReservationResponse{
		ID:                   reservation.ID.String(),
		UserID:               reservation.UserID.String(),
		Schedule:             schedule,
		ScheduleID:           reservation.ScheduleID.String(),
		ExpectedParticipants: reservation.ExpectedParticipants,
		IsConfirmed:          reservation.IsConfirmed,
		ConfirmedAt:          reservation.ConfirmedAt,
		CreatedAt:            reservation.CreatedAt,
	}
}
