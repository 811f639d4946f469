package repository

import (
	"context"
	"fmt"

	"github.com/youngjaekwon/exam-scheduler/internal/data/entity"
	"github.com/youngjaekwon/exam-scheduler/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *entity.ExamSchedule) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ExamSchedule, error)
	FindAll(ctx context.Context, limit, offset int) ([]*entity.ExamSchedule, error)
	CountAll(ctx context.Context) (int64, error)
	Update(ctx context.Context, schedule *entity.ExamSchedule) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Row-lock queries; only valid inside a TxManager.WithinTx transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.ExamSchedule, error)
	UpdateConfirmedParticipants(ctx context.Context, id uuid.UUID, count int) error
}

type scheduleRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewScheduleRepository(db database.PgxIface, log *zap.Logger) ScheduleRepository {
	return &scheduleRepository{
		db:  db,
		log: log.With(zap.String("repository", "schedule")),
	}
}

// conn returns the open transaction from the context when there is one, so
// statements issued during a lifecycle operation stay on that transaction.
func (r *scheduleRepository) conn(ctx context.Context) database.Querier {
	if tx, ok := database.TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

func (r *scheduleRepository) Create(ctx context.Context, schedule *entity.ExamSchedule) error {
	query := `
		INSERT INTO exam_schedules (id, title, description, start_time, end_time, confirmed_participants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn(ctx).Exec(ctx, query,
		schedule.ID,
		schedule.Title,
		schedule.Description,
		schedule.StartTime,
		schedule.EndTime,
		schedule.ConfirmedParticipants,
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create schedule",
			zap.Error(err),
			zap.String("title", schedule.Title),
		)
		return fmt.Errorf("create schedule %s: %w", schedule.Title, err)
	}

	return nil
}

func (r *scheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ExamSchedule, error) {
	query := `
		SELECT id, title, description, start_time, end_time, confirmed_participants, created_at, updated_at
		FROM exam_schedules
		WHERE id = $1
	`

	var schedule entity.ExamSchedule
	err := r.conn(ctx).QueryRow(ctx, query, id).Scan(
		&schedule.ID,
		&schedule.Title,
		&schedule.Description,
		&schedule.StartTime,
		&schedule.EndTime,
		&schedule.ConfirmedParticipants,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find schedule by ID",
			zap.Error(err),
			zap.String("schedule_id", id.String()),
		)
		return nil, fmt.Errorf("find schedule by ID %s: %w", id.String(), err)
	}

	return &schedule, nil
}

// FindByIDForUpdate locks the schedule row with SELECT ... FOR UPDATE. Any
// concurrent lifecycle operation on the same schedule blocks here until the
// holding transaction commits or rolls back, then re-reads the fresh counter.
func (r *scheduleRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.ExamSchedule, error) {
	if _, ok := database.TxFromContext(ctx); !ok {
		return nil, fmt.Errorf("find schedule for update %s: no open transaction", id.String())
	}

	query := `
		SELECT id, title, description, start_time, end_time, confirmed_participants, created_at, updated_at
		FROM exam_schedules
		WHERE id = $1
		FOR UPDATE
	`

	var schedule entity.ExamSchedule
	err := r.conn(ctx).QueryRow(ctx, query, id).Scan(
		&schedule.ID,
		&schedule.Title,
		&schedule.Description,
		&schedule.StartTime,
		&schedule.EndTime,
		&schedule.ConfirmedParticipants,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to lock schedule row",
			zap.Error(err),
			zap.String("schedule_id", id.String()),
		)
		return nil, fmt.Errorf("lock schedule row %s: %w", id.String(), err)
	}

	return &schedule, nil
}

func (r *scheduleRepository) FindAll(ctx context.Context, limit, offset int) ([]*entity.ExamSchedule, error) {
	query := `
		SELECT id, title, description, start_time, end_time, confirmed_participants, created_at, updated_at
		FROM exam_schedules
		ORDER BY start_time
		LIMIT $1 OFFSET $2
	`

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("Failed to find schedules",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*entity.ExamSchedule
	for rows.Next() {
		var schedule entity.ExamSchedule
		err := rows.Scan(
			&schedule.ID,
			&schedule.Title,
			&schedule.Description,
			&schedule.StartTime,
			&schedule.EndTime,
			&schedule.ConfirmedParticipants,
			&schedule.CreatedAt,
			&schedule.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan schedule row", zap.Error(err))
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}
		schedules = append(schedules, &schedule)
	}

	return schedules, nil
}

func (r *scheduleRepository) CountAll(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM exam_schedules`

	var count int64
	err := r.conn(ctx).QueryRow(ctx, query).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count schedules", zap.Error(err))
		return 0, fmt.Errorf("count schedules: %w", err)
	}

	return count, nil
}

func (r *scheduleRepository) Update(ctx context.Context, schedule *entity.ExamSchedule) error {
	// confirmed_participants is deliberately absent here; only
	// UpdateConfirmedParticipants may touch it.
	query := `
		UPDATE exam_schedules
		SET title = $2, description = $3, start_time = $4, end_time = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.conn(ctx).Exec(ctx, query,
		schedule.ID,
		schedule.Title,
		schedule.Description,
		schedule.StartTime,
		schedule.EndTime,
		schedule.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to update schedule",
			zap.Error(err),
			zap.String("schedule_id", schedule.ID.String()),
		)
		return fmt.Errorf("update schedule %s: %w", schedule.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("schedule %s not found", schedule.ID.String())
	}

	return nil
}

func (r *scheduleRepository) UpdateConfirmedParticipants(ctx context.Context, id uuid.UUID, count int) error {
	if _, ok := database.TxFromContext(ctx); !ok {
		return fmt.Errorf("update confirmed participants %s: no open transaction", id.String())
	}

	query := `UPDATE exam_schedules SET confirmed_participants = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.conn(ctx).Exec(ctx, query, id, count)
	if err != nil {
		r.log.Error("Failed to update confirmed participants",
			zap.Error(err),
			zap.String("schedule_id", id.String()),
			zap.Int("confirmed_participants", count),
		)
		return fmt.Errorf("update confirmed participants for schedule %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("schedule %s not found", id.String())
	}

	return nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM exam_schedules WHERE id = $1`

	result, err := r.conn(ctx).Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete schedule",
			zap.Error(err),
			zap.String("schedule_id", id.String()),
		)
		return fmt.Errorf("delete schedule %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("schedule %s not found", id.String())
	}

	r.log.Info("Schedule deleted", zap.String("schedule_id", id.String()))
	return nil
}
