package repository

import (
	"github.com/youngjaekwon/exam-scheduler/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User        UserRepository
	Session     SessionRepository
	Schedule    ScheduleRepository
	Reservation ReservationRepository
	Tx          TxManager
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:        NewUserRepository(db, log),
		Session:     NewSessionRepository(db, log),
		Schedule:    NewScheduleRepository(db, log),
		Reservation: NewReservationRepository(db, log),
		Tx:          NewTxManager(db, log),
	}
}
