package response

import (
	"time"

	"github.com/youngjaekwon/exam-scheduler/internal/data/entity"
)

type ScheduleResponse struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description"`
	StartTime             time.Time `json:"start_time"`
	EndTime               time.Time `json:"end_time"`
	ConfirmedParticipants int       `json:"confirmed_participants"`
	MaxTotalParticipants  int       `json:"max_total_participants"`
	RemainingCapacity     int       `json:"remaining_capacity"`
	ReservationDeadline   time.Time `json:"reservation_deadline"`
	CreatedAt             time.Time `json:"created_at"`
}

func ScheduleToResponse(schedule *entity.ExamSchedule, maxParticipants int, deadline time.Time) ScheduleResponse {
	return ScheduleResponse{
		ID:                    schedule.ID.String(),
		Title:                 schedule.Title,
		Description:           schedule.Description,
		StartTime:             schedule.StartTime,
		EndTime:               schedule.EndTime,
		ConfirmedParticipants: schedule.ConfirmedParticipants,
		MaxTotalParticipants:  maxParticipants,
		RemainingCapacity:     maxParticipants - schedule.ConfirmedParticipants,
		ReservationDeadline:   deadline,
		CreatedAt:             schedule.CreatedAt,
	}
}
