package wire

import (
	"github.com/youngjaekwon/exam-scheduler/internal/adaptor"
	"github.com/youngjaekwon/exam-scheduler/internal/data/repository"
	"github.com/youngjaekwon/exam-scheduler/pkg/middleware"
	"github.com/youngjaekwon/exam-scheduler/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wireAuth configures authentication routes
func wireAuth(
	r chi.Router,
	authHandler *adaptor.AuthHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	r.Post("/api/register", authHandler.Register)
	r.Post("/api/login", authHandler.Login)

	// ==================== PROTECTED ROUTES ====================
	r.With(middleware.AuthSession(repo.Session, repo.User, log)).
		Post("/api/logout", authHandler.Logout)
	r.With(middleware.AuthSession(repo.Session, repo.User, log)).
		Post("/api/logout-all", authHandler.LogoutAll)
}
