package usecase

import (
	"github.com/youngjaekwon/exam-scheduler/internal/data/repository"
	"github.com/youngjaekwon/exam-scheduler/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Auth        AuthService
	User        UserService
	Schedule    ScheduleService
	Reservation ReservationService
}

func NewService(repo *repository.Repository, config *utils.Config, log *zap.Logger) *Service {
	ledger := NewCapacityLedger(config.Exam, repo.Schedule, log)

	return &Service{
		Auth:        NewAuthService(repo, config, log),
		User:        NewUserService(repo, log),
		Schedule:    NewScheduleService(repo, ledger, log),
		Reservation: NewReservationService(repo, ledger, log),
	}
}
