package adaptor

import (
	"errors"
	"net/http"
	"strings"

	"github.com/youngjaekwon/exam-scheduler/internal/usecase"
	"github.com/youngjaekwon/exam-scheduler/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth        *AuthHandler
	User        *UserHandler
	Schedule    *ScheduleHandler
	Reservation *ReservationHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(service.Auth, log),
		User:        NewUserHandler(service.User, log),
		Schedule:    NewScheduleHandler(service.Schedule, log),
		Reservation: NewReservationHandler(service.Reservation, log),
	}
}

// handleServiceError maps service errors to stable status codes. Each
// business-rule kind keeps its own status; store failures fall through to 500.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	switch {
	case errors.Is(err, usecase.ErrNotFound):
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrForbidden):
		log.Warn(operation+" failed - forbidden", zap.Error(err))
		utils.ResponseForbidden(w, err.Error())

	case errors.Is(err, usecase.ErrCapacityExceeded),
		errors.Is(err, usecase.ErrUnderflow),
		errors.Is(err, usecase.ErrAlreadyConfirmed),
		errors.Is(err, usecase.ErrDeadlinePassed):
		log.Warn(operation+" failed - business rule", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case strings.Contains(err.Error(), "validation failed"),
		strings.Contains(err.Error(), "invalid"),
		strings.Contains(err.Error(), "already"):
		log.Warn(operation+" failed - invalid input", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	default:
		log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
