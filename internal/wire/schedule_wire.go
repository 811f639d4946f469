package wire

import (
	"github.com/youngjaekwon/exam-scheduler/internal/adaptor"
	"github.com/youngjaekwon/exam-scheduler/internal/data/repository"
	"github.com/youngjaekwon/exam-scheduler/pkg/middleware"
	"github.com/youngjaekwon/exam-scheduler/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wireSchedule configures exam schedule routes with role-based access control
func wireSchedule(
	r chi.Router,
	scheduleHandler *adaptor.ScheduleHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES ====================
	// Browsing schedules requires authentication only
	r.With(middleware.AuthSession(repo.Session, repo.User, log)).
		Route("/api/schedules", func(r chi.Router) {
			r.Get("/", scheduleHandler.GetSchedules)   // GET /api/schedules?page=1&per_page=10
			r.Get("/{id}", scheduleHandler.GetSchedule) // GET /api/schedules/{schedule-id}

			// ==================== ADMIN ROUTES ====================
			// Schedule management requires the admin role
			r.With(middleware.Admin(log)).Post("/", scheduleHandler.CreateSchedule)
			r.With(middleware.Admin(log)).Put("/{id}", scheduleHandler.UpdateSchedule)
			r.With(middleware.Admin(log)).Delete("/{id}", scheduleHandler.DeleteSchedule)
		})
}
