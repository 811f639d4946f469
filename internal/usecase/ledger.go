package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/youngjaekwon/exam-scheduler/internal/data/entity"
	"github.com/youngjaekwon/exam-scheduler/internal/data/repository"
	"github.com/youngjaekwon/exam-scheduler/pkg/utils"

	"go.uber.org/zap"
)

// CapacityLedger is the only component allowed to change a schedule's
// confirmed-participant counter. Both mutations validate against the
// configured ceiling before persisting, so every caller gets the same
// overflow/underflow protection.
//
// AddConfirmed and RemoveConfirmed must run while the schedule row is held
// FOR UPDATE inside an open transaction; RemainingCapacity and
// ReservationDeadline are advisory reads and need no lock.
type CapacityLedger struct {
	cfg       utils.ExamConfig
	schedules repository.ScheduleRepository
	log       *zap.Logger
}

func NewCapacityLedger(cfg utils.ExamConfig, schedules repository.ScheduleRepository, log *zap.Logger) *CapacityLedger {
	return &CapacityLedger{
		cfg:       cfg,
		schedules: schedules,
		log:       log.With(zap.String("service", "capacity_ledger")),
	}
}

// AddConfirmed increments the schedule's confirmed participants by count.
// Fails with ErrCapacityExceeded and mutates nothing when the result would
// pass the ceiling.
func (l *CapacityLedger) AddConfirmed(ctx context.Context, schedule *entity.ExamSchedule, count int) error {
	if count <= 0 {
		return fmt.Errorf("participant count must be positive, got %d", count)
	}

	if schedule.ConfirmedParticipants+count > l.cfg.MaxParticipants {
		return ErrCapacityExceeded
	}

	updated := schedule.ConfirmedParticipants + count
	if err := l.schedules.UpdateConfirmedParticipants(ctx, schedule.ID, updated); err != nil {
		return err
	}
	schedule.ConfirmedParticipants = updated

	l.log.Debug("Confirmed participants added",
		zap.String("schedule_id", schedule.ID.String()),
		zap.Int("count", count),
		zap.Int("confirmed_participants", updated),
	)

	return nil
}

// RemoveConfirmed decrements the schedule's confirmed participants by count.
// Fails with ErrUnderflow and mutates nothing when count exceeds the current
// confirmed total.
func (l *CapacityLedger) RemoveConfirmed(ctx context.Context, schedule *entity.ExamSchedule, count int) error {
	if count <= 0 {
		return fmt.Errorf("participant count must be positive, got %d", count)
	}

	if count > schedule.ConfirmedParticipants {
		return ErrUnderflow
	}

	updated := schedule.ConfirmedParticipants - count
	if err := l.schedules.UpdateConfirmedParticipants(ctx, schedule.ID, updated); err != nil {
		return err
	}
	schedule.ConfirmedParticipants = updated

	l.log.Debug("Confirmed participants removed",
		zap.String("schedule_id", schedule.ID.String()),
		zap.Int("count", count),
		zap.Int("confirmed_participants", updated),
	)

	return nil
}

// RemainingCapacity returns how many seats are still open. Advisory: a
// concurrent confirmation can invalidate the answer, which is why
// AddConfirmed re-checks under lock before committing.
func (l *CapacityLedger) RemainingCapacity(schedule *entity.ExamSchedule) int {
	return l.cfg.MaxParticipants - schedule.ConfirmedParticipants
}

// ReservationDeadline returns the last instant a reservation may be created
// for the schedule.
func (l *CapacityLedger) ReservationDeadline(schedule *entity.ExamSchedule) time.Time {
	return schedule.StartTime.AddDate(0, 0, -l.cfg.ReservationDeadlineDays)
}

// MaxParticipants returns the process-wide confirmed-seat ceiling.
func (l *CapacityLedger) MaxParticipants() int {
	return l.cfg.MaxParticipants
}
