package wire

import (
	"github.com/youngjaekwon/exam-scheduler/internal/adaptor"
	"github.com/youngjaekwon/exam-scheduler/internal/data/repository"
	"github.com/youngjaekwon/exam-scheduler/pkg/middleware"
	"github.com/youngjaekwon/exam-scheduler/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wireReservation configures reservation routes with role-based access control
func wireReservation(
	r chi.Router,
	reservationHandler *adaptor.ReservationHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES ====================
	// Users manage their own reservations; admins reach every reservation
	// through the same routes
	r.With(middleware.AuthSession(repo.Session, repo.User, log)).
		Route("/api/reservations", func(r chi.Router) {
			r.Post("/", reservationHandler.CreateReservation)       // POST /api/reservations
			r.Get("/", reservationHandler.GetReservations)          // GET /api/reservations?page=1&per_page=10
			r.Get("/{id}", reservationHandler.GetReservation)       // GET /api/reservations/{reservation-id}
			r.Patch("/{id}", reservationHandler.UpdateReservation)  // PATCH /api/reservations/{reservation-id}
			r.Delete("/{id}", reservationHandler.DeleteReservation) // DELETE /api/reservations/{reservation-id}

			// ==================== ADMIN ROUTES ====================
			// Confirming a reservation commits seats and is admin-only
			r.With(middleware.Admin(log)).Post("/{id}/confirm", reservationHandler.ConfirmReservation)
		})
}
