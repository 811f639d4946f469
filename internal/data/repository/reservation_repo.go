package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/youngjaekwon/exam-scheduler/internal/data/entity"
	"github.com/youngjaekwon/exam-scheduler/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ReservationRepository interface {
	Create(ctx context.Context, reservation *entity.Reservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Reservation, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	FindAll(ctx context.Context, limit, offset int) ([]*entity.Reservation, error)
	CountAll(ctx context.Context) (int64, error)
	FindConfirmedByScheduleID(ctx context.Context, scheduleID uuid.UUID) ([]*entity.Reservation, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Row-lock queries; only valid inside a TxManager.WithinTx transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Reservation, error)
	MarkConfirmed(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error
	UpdateExpectedParticipants(ctx context.Context, id uuid.UUID, count int) error
}

type reservationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReservationRepository(db database.PgxIface, log *zap.Logger) ReservationRepository {
	return &reservationRepository{
		db:  db,
		log: log.With(zap.String("repository", "reservation")),
	}
}

func (r *reservationRepository) conn(ctx context.Context) database.Querier {
	if tx, ok := database.TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

func (r *reservationRepository) Create(ctx context.Context, reservation *entity.Reservation) error {
	query := `
		INSERT INTO reservations (id, user_id, schedule_id, expected_participants, is_confirmed, confirmed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn(ctx).Exec(ctx, query,
		reservation.ID,
		reservation.UserID,
		reservation.ScheduleID,
		reservation.ExpectedParticipants,
		reservation.IsConfirmed,
		reservation.ConfirmedAt,
		reservation.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create reservation",
			zap.Error(err),
			zap.String("user_id", reservation.UserID.String()),
			zap.String("schedule_id", reservation.ScheduleID.String()),
		)
		return fmt.Errorf("create reservation for schedule %s: %w", reservation.ScheduleID.String(), err)
	}

	return nil
}

func (r *reservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	query := `
		SELECT id, user_id, schedule_id, expected_participants, is_confirmed, confirmed_at, created_at
		FROM reservations
		WHERE id = $1
	`

	var reservation entity.Reservation
	err := r.conn(ctx).QueryRow(ctx, query, id).Scan(
		&reservation.ID,
		&reservation.UserID,
		&reservation.ScheduleID,
		&reservation.ExpectedParticipants,
		&reservation.IsConfirmed,
		&reservation.ConfirmedAt,
		&reservation.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find reservation by ID",
			zap.Error(err),
			zap.String("reservation_id", id.String()),
		)
		return nil, fmt.Errorf("find reservation by ID %s: %w", id.String(), err)
	}

	return &reservation, nil
}

// FindByIDForUpdate locks the reservation row so concurrent confirm/update/
// delete calls on the same reservation serialize.
func (r *reservationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	if _, ok := database.TxFromContext(ctx); !ok {
		return nil, fmt.Errorf("find reservation for update %s: no open transaction", id.String())
	}

	query := `
		SELECT id, user_id, schedule_id, expected_participants, is_confirmed, confirmed_at, created_at
		FROM reservations
		WHERE id = $1
		FOR UPDATE
	`

	var reservation entity.Reservation
	err := r.conn(ctx).QueryRow(ctx, query, id).Scan(
		&reservation.ID,
		&reservation.UserID,
		&reservation.ScheduleID,
		&reservation.ExpectedParticipants,
		&reservation.IsConfirmed,
		&reservation.ConfirmedAt,
		&reservation.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to lock reservation row",
			zap.Error(err),
			zap.String("reservation_id", id.String()),
		)
		return nil, fmt.Errorf("lock reservation row %s: %w", id.String(), err)
	}

	return &reservation, nil
}

func (r *reservationRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Reservation, error) {
	query := `
		SELECT id, user_id, schedule_id, expected_participants, is_confirmed, confirmed_at, created_at
		FROM reservations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn(ctx).Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find reservations by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find reservations by user ID %s: %w", userID.String(), err)
	}
	defer rows.Close()

	return scanReservations(rows, r.log)
}

func (r *reservationRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM reservations WHERE user_id = $1`

	var count int64
	err := r.conn(ctx).QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count reservations by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("count reservations by user ID %s: %w", userID.String(), err)
	}

	return count, nil
}

func (r *reservationRepository) FindAll(ctx context.Context, limit, offset int) ([]*entity.Reservation, error) {
	query := `
		SELECT id, user_id, schedule_id, expected_participants, is_confirmed, confirmed_at, created_at
		FROM reservations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("Failed to find reservations",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find reservations: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows, r.log)
}

func (r *reservationRepository) CountAll(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM reservations`

	var count int64
	err := r.conn(ctx).QueryRow(ctx, query).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count reservations", zap.Error(err))
		return 0, fmt.Errorf("count reservations: %w", err)
	}

	return count, nil
}

func (r *reservationRepository) FindConfirmedByScheduleID(ctx context.Context, scheduleID uuid.UUID) ([]*entity.Reservation, error) {
	query := `
		SELECT id, user_id, schedule_id, expected_participants, is_confirmed, confirmed_at, created_at
		FROM reservations
		WHERE schedule_id = $1 AND is_confirmed = TRUE
	`

	rows, err := r.conn(ctx).Query(ctx, query, scheduleID)
	if err != nil {
		r.log.Error("Failed to find confirmed reservations by schedule ID",
			zap.Error(err),
			zap.String("schedule_id", scheduleID.String()),
		)
		return nil, fmt.Errorf("find confirmed reservations by schedule ID %s: %w", scheduleID.String(), err)
	}
	defer rows.Close()

	return scanReservations(rows, r.log)
}

func (r *reservationRepository) MarkConfirmed(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error {
	if _, ok := database.TxFromContext(ctx); !ok {
		return fmt.Errorf("mark reservation confirmed %s: no open transaction", id.String())
	}

	query := `UPDATE reservations SET is_confirmed = TRUE, confirmed_at = $2 WHERE id = $1`

	result, err := r.conn(ctx).Exec(ctx, query, id, confirmedAt)
	if err != nil {
		r.log.Error("Failed to mark reservation confirmed",
			zap.Error(err),
			zap.String("reservation_id", id.String()),
		)
		return fmt.Errorf("mark reservation %s confirmed: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("reservation %s not found", id.String())
	}

	return nil
}

func (r *reservationRepository) UpdateExpectedParticipants(ctx context.Context, id uuid.UUID, count int) error {
	if _, ok := database.TxFromContext(ctx); !ok {
		return fmt.Errorf("update expected participants %s: no open transaction", id.String())
	}

	query := `UPDATE reservations SET expected_participants = $2 WHERE id = $1`

	result, err := r.conn(ctx).Exec(ctx, query, id, count)
	if err != nil {
		r.log.Error("Failed to update expected participants",
			zap.Error(err),
			zap.String("reservation_id", id.String()),
			zap.Int("expected_participants", count),
		)
		return fmt.Errorf("update expected participants for reservation %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("reservation %s not found", id.String())
	}

	return nil
}

func (r *reservationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM reservations WHERE id = $1`

	result, err := r.conn(ctx).Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete reservation",
			zap.Error(err),
			zap.String("reservation_id", id.String()),
		)
		return fmt.Errorf("delete reservation %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("reservation %s not found", id.String())
	}

	return nil
}

func scanReservations(rows pgx.Rows, log *zap.Logger) ([]*entity.Reservation, error) {
	var reservations []*entity.Reservation
	for rows.Next() {
		var reservation entity.Reservation
		err := rows.Scan(
			&reservation.ID,
			&reservation.UserID,
			&reservation.ScheduleID,
			&reservation.ExpectedParticipants,
			&reservation.IsConfirmed,
			&reservation.ConfirmedAt,
			&reservation.CreatedAt,
		)
		if err != nil {
			log.Error("Failed to scan reservation row", zap.Error(err))
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		reservations = append(reservations, &reservation)
	}

	return reservations, nil
}
