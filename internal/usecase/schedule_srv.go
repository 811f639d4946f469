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

type ScheduleService interface {
	GetSchedule(ctx context.Context, scheduleID string) (*response.ScheduleResponse, error)
	GetSchedules(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ScheduleResponse], error)

	// Admin only
	CreateSchedule(ctx context.Context, req *request.CreateScheduleRequest) (*response.ScheduleResponse, error)
	UpdateSchedule(ctx context.Context, scheduleID string, req *request.UpdateScheduleRequest) (*response.ScheduleResponse, error)
	DeleteSchedule(ctx context.Context, scheduleID string) error
}

type scheduleService struct {
	repo   *repository.Repository
	ledger *CapacityLedger
	log    *zap.Logger
}

func NewScheduleService(repo *repository.Repository, ledger *CapacityLedger, log *zap.Logger) ScheduleService {
	return &scheduleService{
		repo:   repo,
		ledger: ledger,
		log:    log.With(zap.String("service", "schedule")),
	}
}

func (s *scheduleService) GetSchedule(ctx context.Context, scheduleID string) (*response.ScheduleResponse, error) {
	id, err := uuid.Parse(scheduleID)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule ID format %s: %w", scheduleID, err)
	}

	schedule, err := s.repo.Schedule.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	if schedule == nil {
		return nil, fmt.Errorf("schedule %s: %w", scheduleID, ErrNotFound)
	}

	resp := response.ScheduleToResponse(schedule, s.ledger.MaxParticipants(), s.ledger.ReservationDeadline(schedule))
	return &resp, nil
}

func (s *scheduleService) GetSchedules(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ScheduleResponse], error) {
	limit := req.Limit()
	offset := req.Offset()

	schedules, err := s.repo.Schedule.FindAll(ctx, limit, offset)
	if err != nil {
		s.log.Error("Failed to get schedules",
			zap.Error(err),
			zap.Int("page", req.Page),
			zap.Int("per_page", req.PerPage),
		)
		return nil, fmt.Errorf("get schedules: %w", err)
	}

	total, err := s.repo.Schedule.CountAll(ctx)
	if err != nil {
		s.log.Error("Failed to count schedules", zap.Error(err))
		return nil, fmt.Errorf("count schedules: %w", err)
	}

	scheduleResponses := make([]response.ScheduleResponse, len(schedules))
	for i, schedule := range schedules {
		scheduleResponses[i] = response.ScheduleToResponse(schedule, s.ledger.MaxParticipants(), s.ledger.ReservationDeadline(schedule))
	}

	return response.NewPaginatedResponse(scheduleResponses, req.Page, req.PerPage, total), nil
}

func (s *scheduleService) CreateSchedule(ctx context.Context, req *request.CreateScheduleRequest) (*response.ScheduleResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create schedule validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	now := time.Now()
	schedule := &entity.ExamSchedule{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Title:                 req.Title,
		Description:           req.Description,
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		ConfirmedParticipants: 0,
	}

	if err := s.repo.Schedule.Create(ctx, schedule); err != nil {
		s.log.Error("Failed to create schedule", zap.Error(err), zap.String("title", req.Title))
		return nil, fmt.Errorf("create schedule: %w", err)
	}

	s.log.Info("Schedule created",
		zap.String("schedule_id", schedule.ID.String()),
		zap.String("title", schedule.Title),
		zap.Time("start_time", schedule.StartTime),
	)

	resp := response.ScheduleToResponse(schedule, s.ledger.MaxParticipants(), s.ledger.ReservationDeadline(schedule))
	return &resp, nil
}

func (s *scheduleService) UpdateSchedule(ctx context.Context, scheduleID string, req *request.UpdateScheduleRequest) (*response.ScheduleResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Update schedule validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	id, err := uuid.Parse(scheduleID)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule ID format %s: %w", scheduleID, err)
	}

	schedule, err := s.repo.Schedule.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	if schedule == nil {
		return nil, fmt.Errorf("schedule %s: %w", scheduleID, ErrNotFound)
	}

	schedule.Title = req.Title
	schedule.Description = req.Description
	schedule.StartTime = req.StartTime
	schedule.EndTime = req.EndTime
	schedule.UpdatedAt = time.Now()

	// Schedule.Update never writes confirmed_participants; that column stays
	// under the ledger's control.
	if err := s.repo.Schedule.Update(ctx, schedule); err != nil {
		s.log.Error("Failed to update schedule", zap.Error(err), zap.String("schedule_id", scheduleID))
		return nil, fmt.Errorf("update schedule: %w", err)
	}

	s.log.Info("Schedule updated", zap.String("schedule_id", scheduleID))

	resp := response.ScheduleToResponse(schedule, s.ledger.MaxParticipants(), s.ledger.ReservationDeadline(schedule))
	return &resp, nil
}

func (s *scheduleService) DeleteSchedule(ctx context.Context, scheduleID string) error {
	id, err := uuid.Parse(scheduleID)
	if err != nil {
		return fmt.Errorf("invalid schedule ID format %s: %w", scheduleID, err)
	}

	if err := s.repo.Schedule.Delete(ctx, id); err != nil {
		s.log.Error("Failed to delete schedule", zap.Error(err), zap.String("schedule_id", scheduleID))
		return fmt.Errorf("delete schedule: %w", err)
	}

	return nil
}
