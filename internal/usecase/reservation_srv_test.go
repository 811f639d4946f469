package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/youngjaekwon/exam-scheduler/internal/dto/request"
	"github.com/youngjaekwon/exam-scheduler/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExamConfig() utils.ExamConfig {
	return utils.ExamConfig{MaxParticipants: 20, ReservationDeadlineDays: 3}
}

func TestCreateReservation(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 5)
	userID := uuid.New()

	resp, err := svc.CreateReservation(context.Background(), userID, &request.CreateReservationRequest{
		ScheduleID:           schedule.ID.String(),
		ExpectedParticipants: 4,
	})

	require.NoError(t, err)
	assert.Equal(t, userID.String(), resp.UserID)
	assert.Equal(t, 4, resp.ExpectedParticipants)
	assert.False(t, resp.IsConfirmed)
	assert.Nil(t, resp.ConfirmedAt)

	// Pending reservations hold no capacity.
	assert.Equal(t, 5, storedSchedule(store, schedule.ID).ConfirmedParticipants)
}

func TestCreateReservationScheduleNotFound(t *testing.T) {
	_, _, svc := newTestReservationService(testExamConfig())

	_, err := svc.CreateReservation(context.Background(), uuid.New(), &request.CreateReservationRequest{
		ScheduleID:           uuid.New().String(),
		ExpectedParticipants: 4,
	})

	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateReservationAfterDeadline(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	// Starts tomorrow, so the 3-day cutoff passed two days ago.
	schedule := seedSchedule(store, time.Now().AddDate(0, 0, 1), 0)

	_, err := svc.CreateReservation(context.Background(), uuid.New(), &request.CreateReservationRequest{
		ScheduleID:           schedule.ID.String(),
		ExpectedParticipants: 4,
	})

	require.ErrorIs(t, err, ErrDeadlinePassed)
}

func TestCreateReservationOverRemainingCapacity(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 18)

	_, err := svc.CreateReservation(context.Background(), uuid.New(), &request.CreateReservationRequest{
		ScheduleID:           schedule.ID.String(),
		ExpectedParticipants: 3,
	})

	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestCreateReservationRejectsInvalidInput(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 0)

	_, err := svc.CreateReservation(context.Background(), uuid.New(), &request.CreateReservationRequest{
		ScheduleID:           schedule.ID.String(),
		ExpectedParticipants: 0,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	_, err = svc.CreateReservation(context.Background(), uuid.New(), &request.CreateReservationRequest{
		ScheduleID:           "not-a-uuid",
		ExpectedParticipants: 4,
	})
	require.Error(t, err)
}

func TestGetReservationHidesForeignFromNonAdmin(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 0)
	owner := uuid.New()
	reservation := seedReservation(store, owner, schedule.ID, 4, false)

	_, err := svc.GetReservation(context.Background(), uuid.New(), false, reservation.ID.String())
	require.ErrorIs(t, err, ErrNotFound)

	resp, err := svc.GetReservation(context.Background(), owner, false, reservation.ID.String())
	require.NoError(t, err)
	assert.Equal(t, reservation.ID.String(), resp.ID)

	// Admins read any reservation.
	resp, err = svc.GetReservation(context.Background(), uuid.New(), true, reservation.ID.String())
	require.NoError(t, err)
	assert.Equal(t, owner.String(), resp.UserID)
}

func TestGetReservationsScopedByRole(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 0)
	userA := uuid.New()
	userB := uuid.New()
	seedReservation(store, userA, schedule.ID, 2, false)
	seedReservation(store, userA, schedule.ID, 3, false)
	seedReservation(store, userB, schedule.ID, 4, false)

	page := &request.PaginatedRequest{Page: 1, PerPage: 10}

	resp, err := svc.GetReservations(context.Background(), userA, false, page)
	require.NoError(t, err)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, int64(2), resp.Pagination.Total)

	resp, err = svc.GetReservations(context.Background(), userA, true, page)
	require.NoError(t, err)
	assert.Len(t, resp.Data, 3)
	assert.Equal(t, int64(3), resp.Pagination.Total)
}

func TestConfirmReservation(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 5)
	reservation := seedReservation(store, uuid.New(), schedule.ID, 4, false)

	resp, err := svc.ConfirmReservation(context.Background(), reservation.ID.String())

	require.NoError(t, err)
	assert.True(t, resp.IsConfirmed)
	require.NotNil(t, resp.ConfirmedAt)

	assert.Equal(t, 9, storedSchedule(store, schedule.ID).ConfirmedParticipants)

	stored := storedReservation(store, reservation.ID)
	assert.True(t, stored.IsConfirmed)
	assert.NotNil(t, stored.ConfirmedAt)
}

func TestConfirmReservationTwice(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 5)
	reservation := seedReservation(store, uuid.New(), schedule.ID, 4, false)

	_, err := svc.ConfirmReservation(context.Background(), reservation.ID.String())
	require.NoError(t, err)

	_, err = svc.ConfirmReservation(context.Background(), reservation.ID.String())
	require.ErrorIs(t, err, ErrAlreadyConfirmed)

	// The counter moved exactly once.
	assert.Equal(t, 9, storedSchedule(store, schedule.ID).ConfirmedParticipants)
}

func TestConfirmReservationOverCapacity(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 18)
	reservation := seedReservation(store, uuid.New(), schedule.ID, 5, false)

	_, err := svc.ConfirmReservation(context.Background(), reservation.ID.String())

	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 18, storedSchedule(store, schedule.ID).ConfirmedParticipants)
	assert.False(t, storedReservation(store, reservation.ID).IsConfirmed)
}

func TestConfirmReservationNotFound(t *testing.T) {
	_, _, svc := newTestReservationService(testExamConfig())

	_, err := svc.ConfirmReservation(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, ErrNotFound)
}

// Two confirmations race for the last seats of the same schedule. The row
// lock serializes them: the loser re-reads the counter the winner committed
// and fails its capacity check, so the schedule never overfills.
func TestConcurrentConfirmOnlyOneFits(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 5)
	first := seedReservation(store, uuid.New(), schedule.ID, 10, false)
	second := seedReservation(store, uuid.New(), schedule.ID, 10, false)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uuid.UUID{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.ConfirmReservation(context.Background(), id.String())
		}(i, id)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrCapacityExceeded)
			failures++
		}
	}

	assert.Equal(t, 1, failures)
	assert.Equal(t, 15, storedSchedule(store, schedule.ID).ConfirmedParticipants)
}

func TestUpdatePendingReservation(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 5)
	owner := uuid.New()
	reservation := seedReservation(store, owner, schedule.ID, 4, false)

	resp, err := svc.UpdateReservation(context.Background(), owner, false, reservation.ID.String(), &request.UpdateReservationRequest{
		ExpectedParticipants: 7,
	})

	require.NoError(t, err)
	assert.Equal(t, 7, resp.ExpectedParticipants)
	assert.Equal(t, 7, storedReservation(store, reservation.ID).ExpectedParticipants)

	// Pending changes never move the counter.
	assert.Equal(t, 5, storedSchedule(store, schedule.ID).ConfirmedParticipants)
}

func TestUpdatePendingReservationOverCapacity(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 15)
	owner := uuid.New()
	reservation := seedReservation(store, owner, schedule.ID, 4, false)

	_, err := svc.UpdateReservation(context.Background(), owner, false, reservation.ID.String(), &request.UpdateReservationRequest{
		ExpectedParticipants: 6,
	})

	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 4, storedReservation(store, reservation.ID).ExpectedParticipants)
}

func TestUpdateConfirmedReservationByOwnerForbidden(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 4)
	owner := uuid.New()
	reservation := seedReservation(store, owner, schedule.ID, 4, true)

	_, err := svc.UpdateReservation(context.Background(), owner, false, reservation.ID.String(), &request.UpdateReservationRequest{
		ExpectedParticipants: 2,
	})

	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 4, storedReservation(store, reservation.ID).ExpectedParticipants)
	assert.Equal(t, 4, storedSchedule(store, schedule.ID).ConfirmedParticipants)
}

func TestUpdateConfirmedReservationByAdminMovesLedger(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 15)
	reservation := seedReservation(store, uuid.New(), schedule.ID, 5, true)

	resp, err := svc.UpdateReservation(context.Background(), uuid.New(), true, reservation.ID.String(), &request.UpdateReservationRequest{
		ExpectedParticipants: 8,
	})

	require.NoError(t, err)
	assert.Equal(t, 8, resp.ExpectedParticipants)
	assert.Equal(t, 8, storedReservation(store, reservation.ID).ExpectedParticipants)

	// 15 - 5 + 8
	assert.Equal(t, 18, storedSchedule(store, schedule.ID).ConfirmedParticipants)
}

// A confirmed reservation grows past the ceiling: the remove succeeds, the
// add fails, and the rollback restores the counter. The old contribution is
// never lost.
func TestUpdateConfirmedReservationOverflowRollsBack(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 15)
	reservation := seedReservation(store, uuid.New(), schedule.ID, 5, true)

	_, err := svc.UpdateReservation(context.Background(), uuid.New(), true, reservation.ID.String(), &request.UpdateReservationRequest{
		ExpectedParticipants: 13,
	})

	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 15, storedSchedule(store, schedule.ID).ConfirmedParticipants)
	assert.Equal(t, 5, storedReservation(store, reservation.ID).ExpectedParticipants)
	assert.True(t, storedReservation(store, reservation.ID).IsConfirmed)
}

func TestUpdateForeignReservationNotFound(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 0)
	reservation := seedReservation(store, uuid.New(), schedule.ID, 4, false)

	_, err := svc.UpdateReservation(context.Background(), uuid.New(), false, reservation.ID.String(), &request.UpdateReservationRequest{
		ExpectedParticipants: 2,
	})

	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePendingReservation(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 5)
	owner := uuid.New()
	reservation := seedReservation(store, owner, schedule.ID, 4, false)

	require.NoError(t, svc.DeleteReservation(context.Background(), owner, false, reservation.ID.String()))

	assert.Nil(t, storedReservation(store, reservation.ID))
	assert.Equal(t, 5, storedSchedule(store, schedule.ID).ConfirmedParticipants)
}

func TestDeleteConfirmedReservationByOwnerForbidden(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 4)
	owner := uuid.New()
	reservation := seedReservation(store, owner, schedule.ID, 4, true)

	err := svc.DeleteReservation(context.Background(), owner, false, reservation.ID.String())

	require.ErrorIs(t, err, ErrForbidden)
	assert.NotNil(t, storedReservation(store, reservation.ID))
}

func TestDeleteConfirmedReservationReleasesCapacity(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 9)
	reservation := seedReservation(store, uuid.New(), schedule.ID, 4, true)

	require.NoError(t, svc.DeleteReservation(context.Background(), uuid.New(), true, reservation.ID.String()))

	assert.Nil(t, storedReservation(store, reservation.ID))
	assert.Equal(t, 5, storedSchedule(store, schedule.ID).ConfirmedParticipants)
}

// Full lifecycle: create pending, confirm, then delete. The counter returns
// to where it started and always equals the sum of confirmed reservations.
func TestReservationLifecycleRoundTrip(t *testing.T) {
	store, _, svc := newTestReservationService(testExamConfig())
	schedule := seedSchedule(store, time.Now().AddDate(0, 1, 0), 0)
	userID := uuid.New()

	created, err := svc.CreateReservation(context.Background(), userID, &request.CreateReservationRequest{
		ScheduleID:           schedule.ID.String(),
		ExpectedParticipants: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, storedSchedule(store, schedule.ID).ConfirmedParticipants)

	confirmed, err := svc.ConfirmReservation(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, confirmed.IsConfirmed)
	assert.Equal(t, 6, storedSchedule(store, schedule.ID).ConfirmedParticipants)

	require.NoError(t, svc.DeleteReservation(context.Background(), uuid.New(), true, created.ID))
	assert.Equal(t, 0, storedSchedule(store, schedule.ID).ConfirmedParticipants)
}
