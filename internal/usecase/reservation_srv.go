package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/youngjaekwon/exam-scheduler/internal/data/entity"
	"github.com/youngjaekwon/exam-scheduler/internal/data/repository"
	"github.com/youngjaekwon/exam-scheduler/internal/dto/request"
	"github.com/youngjaekwon/exam-scheduler/internal/dto/response"
	"github.com/youngjaekwon/exam-scheduler/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReservationService interface {
	CreateReservation(ctx context.Context, userID uuid.UUID, req *request.CreateReservationRequest) (*response.ReservationResponse, error)
	GetReservation(ctx context.Context, userID uuid.UUID, isAdmin bool, reservationID string) (*response.ReservationResponse, error)
	GetReservations(ctx context.Context, userID uuid.UUID, isAdmin bool, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReservationResponse], error)
	UpdateReservation(ctx context.Context, userID uuid.UUID, isAdmin bool, reservationID string, req *request.UpdateReservationRequest) (*response.ReservationResponse, error)
	DeleteReservation(ctx context.Context, userID uuid.UUID, isAdmin bool, reservationID string) error

	// Admin only
	ConfirmReservation(ctx context.Context, reservationID string) (*response.ReservationResponse, error)
}

type reservationService struct {
	repo   *repository.Repository
	ledger *CapacityLedger
	log    *zap.Logger
}

func NewReservationService(repo *repository.Repository, ledger *CapacityLedger, log *zap.Logger) ReservationService {
	return &reservationService{
		repo:   repo,
		ledger: ledger,
		log:    log.With(zap.String("service", "reservation")),
	}
}

// CreateReservation produces a pending reservation. Capacity is not held at
// creation; the checks here are advisory and the authoritative one runs under
// the schedule row lock at confirmation.
func (s *reservationService) CreateReservation(ctx context.Context, userID uuid.UUID, req *request.CreateReservationRequest) (*response.ReservationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create reservation validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	scheduleID, err := uuid.Parse(req.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule ID format %s: %w", req.ScheduleID, err)
	}

	schedule, err := s.repo.Schedule.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	if schedule == nil {
		return nil, fmt.Errorf("schedule %s: %w", req.ScheduleID, ErrNotFound)
	}

	// Creating exactly at the deadline is allowed; one instant later is not.
	if time.Now().After(s.ledger.ReservationDeadline(schedule)) {
		return nil, ErrDeadlinePassed
	}

	if req.ExpectedParticipants > s.ledger.RemainingCapacity(schedule) {
		return nil, ErrCapacityExceeded
	}

	reservation := &entity.Reservation{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
		},
		UserID:               userID,
		ScheduleID:           scheduleID,
		ExpectedParticipants: req.ExpectedParticipants,
		IsConfirmed:          false,
	}

	if err := s.repo.Reservation.Create(ctx, reservation); err != nil {
		s.log.Error("Failed to create reservation",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("schedule_id", req.ScheduleID),
		)
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	s.log.Info("Reservation created",
		zap.String("reservation_id", reservation.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("schedule_id", req.ScheduleID),
		zap.Int("expected_participants", req.ExpectedParticipants),
	)

	return s.buildReservationResponse(ctx, reservation), nil
}

func (s *reservationService) GetReservation(ctx context.Context, userID uuid.UUID, isAdmin bool, reservationID string) (*response.ReservationResponse, error) {
	id, err := uuid.Parse(reservationID)
	if err != nil {
		return nil, fmt.Errorf("invalid reservation ID format %s: %w", reservationID, err)
	}

	reservation, err := s.repo.Reservation.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find reservation: %w", err)
	}
	// Foreign reservations read as not found for non-admins.
	if reservation == nil || (!isAdmin && reservation.UserID != userID) {
		return nil, fmt.Errorf("reservation %s: %w", reservationID, ErrNotFound)
	}

	return s.buildReservationResponse(ctx, reservation), nil
}

func (s *reservationService) GetReservations(ctx context.Context, userID uuid.UUID, isAdmin bool, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReservationResponse], error) {
	limit := req.Limit()
	offset := req.Offset()

	var (
		reservations []*entity.Reservation
		total        int64
		err          error
	)

	if isAdmin {
		reservations, err = s.repo.Reservation.FindAll(ctx, limit, offset)
		if err == nil {
			total, err = s.repo.Reservation.CountAll(ctx)
		}
	} else {
		reservations, err = s.repo.Reservation.FindByUserID(ctx, userID, limit, offset)
		if err == nil {
			total, err = s.repo.Reservation.CountByUserID(ctx, userID)
		}
	}
	if err != nil {
		s.log.Error("Failed to get reservations",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.Bool("is_admin", isAdmin),
		)
		return nil, fmt.Errorf("get reservations: %w", err)
	}

	reservationResponses := make([]response.ReservationResponse, len(reservations))
	for i, reservation := range reservations {
		reservationResponses[i] = *s.buildReservationResponse(ctx, reservation)
	}

	return response.NewPaginatedResponse(reservationResponses, req.Page, req.PerPage, total), nil
}

// UpdateReservation changes the seat count of a reservation. For a confirmed
// reservation the old contribution is removed and the new one added under the
// schedule row lock, in one transaction; if the add overflows the ceiling the
// whole operation rolls back and the old contribution stays intact. A pending
// reservation involves no ledger work, only an advisory capacity check.
func (s *reservationService) UpdateReservation(ctx context.Context, userID uuid.UUID, isAdmin bool, reservationID string, req *request.UpdateReservationRequest) (*response.ReservationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Update reservation validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	id, err := uuid.Parse(reservationID)
	if err != nil {
		return nil, fmt.Errorf("invalid reservation ID format %s: %w", reservationID, err)
	}

	var updated *entity.Reservation
	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		reservation, err := s.repo.Reservation.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if reservation == nil || (!isAdmin && reservation.UserID != userID) {
			return fmt.Errorf("reservation %s: %w", reservationID, ErrNotFound)
		}
		if reservation.IsConfirmed && !isAdmin {
			return ErrForbidden
		}

		if reservation.ExpectedParticipants != req.ExpectedParticipants {
			if err := s.applyParticipantChange(ctx, reservation, req.ExpectedParticipants); err != nil {
				return err
			}

			if err := s.repo.Reservation.UpdateExpectedParticipants(ctx, reservation.ID, req.ExpectedParticipants); err != nil {
				return err
			}
			reservation.ExpectedParticipants = req.ExpectedParticipants
		}

		updated = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Reservation updated",
		zap.String("reservation_id", reservationID),
		zap.Int("expected_participants", req.ExpectedParticipants),
		zap.Bool("is_confirmed", updated.IsConfirmed),
	)

	return s.buildReservationResponse(ctx, updated), nil
}

// applyParticipantChange moves a confirmed reservation's ledger contribution
// from its current count to newCount. Must run inside the enclosing
// transaction: the remove only becomes visible if the add succeeds too.
func (s *reservationService) applyParticipantChange(ctx context.Context, reservation *entity.Reservation, newCount int) error {
	if !reservation.IsConfirmed {
		// Pending reservations hold no capacity. Advisory check only.
		schedule, err := s.repo.Schedule.FindByID(ctx, reservation.ScheduleID)
		if err != nil {
			return err
		}
		if schedule == nil {
			return fmt.Errorf("schedule %s: %w", reservation.ScheduleID.String(), ErrNotFound)
		}
		if newCount > s.ledger.RemainingCapacity(schedule) {
			return ErrCapacityExceeded
		}
		return nil
	}

	schedule, err := s.repo.Schedule.FindByIDForUpdate(ctx, reservation.ScheduleID)
	if err != nil {
		return err
	}
	if schedule == nil {
		return fmt.Errorf("schedule %s: %w", reservation.ScheduleID.String(), ErrNotFound)
	}

	if err := s.ledger.RemoveConfirmed(ctx, schedule, reservation.ExpectedParticipants); err != nil {
		return err
	}
	return s.ledger.AddConfirmed(ctx, schedule, newCount)
}

// DeleteReservation removes the reservation record, releasing its held
// capacity first when it is confirmed. Both happen in one transaction.
func (s *reservationService) DeleteReservation(ctx context.Context, userID uuid.UUID, isAdmin bool, reservationID string) error {
	id, err := uuid.Parse(reservationID)
	if err != nil {
		return fmt.Errorf("invalid reservation ID format %s: %w", reservationID, err)
	}

	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		reservation, err := s.repo.Reservation.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if reservation == nil || (!isAdmin && reservation.UserID != userID) {
			return fmt.Errorf("reservation %s: %w", reservationID, ErrNotFound)
		}
		if reservation.IsConfirmed && !isAdmin {
			return ErrForbidden
		}

		if reservation.IsConfirmed {
			schedule, err := s.repo.Schedule.FindByIDForUpdate(ctx, reservation.ScheduleID)
			if err != nil {
				return err
			}
			if schedule == nil {
				return fmt.Errorf("schedule %s: %w", reservation.ScheduleID.String(), ErrNotFound)
			}
			if err := s.ledger.RemoveConfirmed(ctx, schedule, reservation.ExpectedParticipants); err != nil {
				return err
			}
		}

		return s.repo.Reservation.Delete(ctx, reservation.ID)
	})
	if err != nil {
		return err
	}

	s.log.Info("Reservation deleted", zap.String("reservation_id", reservationID))
	return nil
}

// ConfirmReservation flips a pending reservation to confirmed and adds its
// seats to the schedule's ledger under the schedule row lock. A second
// confirm on the same reservation fails with ErrAlreadyConfirmed.
func (s *reservationService) ConfirmReservation(ctx context.Context, reservationID string) (*response.ReservationResponse, error) {
	id, err := uuid.Parse(reservationID)
	if err != nil {
		return nil, fmt.Errorf("invalid reservation ID format %s: %w", reservationID, err)
	}

	var confirmed *entity.Reservation
	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		reservation, err := s.repo.Reservation.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if reservation == nil {
			return fmt.Errorf("reservation %s: %w", reservationID, ErrNotFound)
		}
		if reservation.IsConfirmed {
			return ErrAlreadyConfirmed
		}

		schedule, err := s.repo.Schedule.FindByIDForUpdate(ctx, reservation.ScheduleID)
		if err != nil {
			return err
		}
		if schedule == nil {
			return fmt.Errorf("schedule %s: %w", reservation.ScheduleID.String(), ErrNotFound)
		}

		if err := s.ledger.AddConfirmed(ctx, schedule, reservation.ExpectedParticipants); err != nil {
			return err
		}

		now := time.Now()
		if err := s.repo.Reservation.MarkConfirmed(ctx, reservation.ID, now); err != nil {
			return err
		}
		reservation.IsConfirmed = true
		reservation.ConfirmedAt = &now

		confirmed = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Reservation confirmed",
		zap.String("reservation_id", reservationID),
		zap.Int("expected_participants", confirmed.ExpectedParticipants),
	)

	return s.buildReservationResponse(ctx, confirmed), nil
}

func (s *reservationService) buildReservationResponse(ctx context.Context, reservation *entity.Reservation) *response.ReservationResponse {
	var scheduleResp *response.ScheduleResponse

	schedule, _ := s.repo.Schedule.FindByID(ctx, reservation.ScheduleID)
	if schedule != nil {
		resp := response.ScheduleToResponse(schedule, s.ledger.MaxParticipants(), s.ledger.ReservationDeadline(schedule))
		scheduleResp = &resp
	}

	resp := response.ReservationToResponse(reservation, scheduleResp)
	return &resp
}
