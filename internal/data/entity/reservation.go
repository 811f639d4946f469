package entity

import (
	"time"

	"github.com/google/uuid"
)

// Reservation is a seat request against one exam schedule. It starts pending
// (IsConfirmed false) and counts toward the schedule's confirmed seats only
// after an admin confirms it. ConfirmedAt is set once on confirmation and
// never cleared afterwards.
type Reservation struct {
	BaseSimple
	UserID               uuid.UUID  `db:"user_id"`
	ScheduleID           uuid.UUID  `db:"schedule_id"`
	ExpectedParticipants int        `db:"expected_participants"`
	IsConfirmed          bool       `db:"is_confirmed"`
	ConfirmedAt          *time.Time `db:"confirmed_at"`
}
