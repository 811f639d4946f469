package entity

import (
	"time"
)

// ExamSchedule is one exam sitting with a bounded number of confirmed seats.
// ConfirmedParticipants is only ever written through the capacity ledger; no
// other component assigns it.
type ExamSchedule struct {
	BaseNoDelete
	Title                 string    `db:"title"`
	Description           string    `db:"description"`
	StartTime             time.Time `db:"start_time"`
	EndTime               time.Time `db:"end_time"`
	ConfirmedParticipants int       `db:"confirmed_participants"`
}
