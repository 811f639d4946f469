package request

type CreateReservationRequest struct {
	ScheduleID           string `json:"schedule_id" validate:"required,uuid"`
	ExpectedParticipants int    `json:"expected_participants" validate:"required,gt=0"`
}

type UpdateReservationRequest struct {
	ExpectedParticipants int `json:"expected_participants" validate:"required,gt=0"`
}
