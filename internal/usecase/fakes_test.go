package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/youngjaekwon/exam-scheduler/internal/data/entity"
	"github.com/youngjaekwon/exam-scheduler/internal/data/repository"
	"github.com/youngjaekwon/exam-scheduler/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memStore backs the fake repositories with plain maps. Per-row mutexes stand
// in for FOR UPDATE row locks: a fake transaction keeps them until it ends, so
// a second goroutine touching the same row blocks exactly like a second
// database transaction would, then re-reads the fresh state.
type memStore struct {
	mu             sync.Mutex
	schedules      map[uuid.UUID]*entity.ExamSchedule
	scheduleIDs    []uuid.UUID
	reservations   map[uuid.UUID]*entity.Reservation
	reservationIDs []uuid.UUID
	rowLocks       map[uuid.UUID]*sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		schedules:    make(map[uuid.UUID]*entity.ExamSchedule),
		reservations: make(map[uuid.UUID]*entity.Reservation),
		rowLocks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *memStore) lockRow(tx *fakeTxState, id uuid.UUID) {
	s.mu.Lock()
	l, ok := s.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.rowLocks[id] = l
	}
	s.mu.Unlock()

	if _, held := tx.held[id]; !held {
		l.Lock()
		tx.held[id] = l
	}
}

func copySchedule(s *entity.ExamSchedule) *entity.ExamSchedule {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func copyReservation(r *entity.Reservation) *entity.Reservation {
	if r == nil {
		return nil
	}
	c := *r
	if r.ConfirmedAt != nil {
		t := *r.ConfirmedAt
		c.ConfirmedAt = &t
	}
	return &c
}

// fakeTxState is the in-memory stand-in for an open transaction. undo entries
// are applied in reverse when the transaction function fails, mirroring a
// database rollback; held row locks are released either way.
type fakeTxState struct {
	held map[uuid.UUID]*sync.Mutex
	undo []func()
}

type fakeTxKey struct{}

func txState(ctx context.Context) *fakeTxState {
	tx, _ := ctx.Value(fakeTxKey{}).(*fakeTxState)
	return tx
}

type fakeTxManager struct{}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := &fakeTxState{held: make(map[uuid.UUID]*sync.Mutex)}

	err := fn(context.WithValue(ctx, fakeTxKey{}, tx))
	if err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
	}

	for _, l := range tx.held {
		l.Unlock()
	}

	return err
}

type fakeScheduleRepo struct {
	store *memStore
}

func (f *fakeScheduleRepo) Create(ctx context.Context, schedule *entity.ExamSchedule) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	f.store.schedules[schedule.ID] = copySchedule(schedule)
	f.store.scheduleIDs = append(f.store.scheduleIDs, schedule.ID)
	return nil
}

func (f *fakeScheduleRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.ExamSchedule, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	return copySchedule(f.store.schedules[id]), nil
}

func (f *fakeScheduleRepo) FindAll(ctx context.Context, limit, offset int) ([]*entity.ExamSchedule, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	var schedules []*entity.ExamSchedule
	for i := offset; i < len(f.store.scheduleIDs) && len(schedules) < limit; i++ {
		schedules = append(schedules, copySchedule(f.store.schedules[f.store.scheduleIDs[i]]))
	}
	return schedules, nil
}

func (f *fakeScheduleRepo) CountAll(ctx context.Context) (int64, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	return int64(len(f.store.schedules)), nil
}

func (f *fakeScheduleRepo) Update(ctx context.Context, schedule *entity.ExamSchedule) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	existing, ok := f.store.schedules[schedule.ID]
	if !ok {
		return fmt.Errorf("schedule %s not found", schedule.ID.String())
	}

	// confirmed_participants stays untouched, matching the SQL repository.
	existing.Title = schedule.Title
	existing.Description = schedule.Description
	existing.StartTime = schedule.StartTime
	existing.EndTime = schedule.EndTime
	existing.UpdatedAt = schedule.UpdatedAt
	return nil
}

func (f *fakeScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	if _, ok := f.store.schedules[id]; !ok {
		return fmt.Errorf("schedule %s not found", id.String())
	}

	delete(f.store.schedules, id)
	for i, sid := range f.store.scheduleIDs {
		if sid == id {
			f.store.scheduleIDs = append(f.store.scheduleIDs[:i], f.store.scheduleIDs[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeScheduleRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.ExamSchedule, error) {
	tx := txState(ctx)
	if tx == nil {
		return nil, fmt.Errorf("find schedule for update %s: no open transaction", id.String())
	}

	f.store.lockRow(tx, id)

	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return copySchedule(f.store.schedules[id]), nil
}

func (f *fakeScheduleRepo) UpdateConfirmedParticipants(ctx context.Context, id uuid.UUID, count int) error {
	tx := txState(ctx)
	if tx == nil {
		return fmt.Errorf("update confirmed participants %s: no open transaction", id.String())
	}

	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	existing, ok := f.store.schedules[id]
	if !ok {
		return fmt.Errorf("schedule %s not found", id.String())
	}

	old := existing.ConfirmedParticipants
	tx.undo = append(tx.undo, func() {
		f.store.mu.Lock()
		existing.ConfirmedParticipants = old
		f.store.mu.Unlock()
	})
	existing.ConfirmedParticipants = count
	return nil
}

type fakeReservationRepo struct {
	store *memStore
}

func (f *fakeReservationRepo) Create(ctx context.Context, reservation *entity.Reservation) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	f.store.reservations[reservation.ID] = copyReservation(reservation)
	f.store.reservationIDs = append(f.store.reservationIDs, reservation.ID)
	return nil
}

func (f *fakeReservationRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	return copyReservation(f.store.reservations[id]), nil
}

func (f *fakeReservationRepo) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Reservation, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	var reservations []*entity.Reservation
	skipped := 0
	for _, id := range f.store.reservationIDs {
		r := f.store.reservations[id]
		if r.UserID != userID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(reservations) == limit {
			break
		}
		reservations = append(reservations, copyReservation(r))
	}
	return reservations, nil
}

func (f *fakeReservationRepo) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	var count int64
	for _, r := range f.store.reservations {
		if r.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeReservationRepo) FindAll(ctx context.Context, limit, offset int) ([]*entity.Reservation, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	var reservations []*entity.Reservation
	for i := offset; i < len(f.store.reservationIDs) && len(reservations) < limit; i++ {
		reservations = append(reservations, copyReservation(f.store.reservations[f.store.reservationIDs[i]]))
	}
	return reservations, nil
}

func (f *fakeReservationRepo) CountAll(ctx context.Context) (int64, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	return int64(len(f.store.reservations)), nil
}

func (f *fakeReservationRepo) FindConfirmedByScheduleID(ctx context.Context, scheduleID uuid.UUID) ([]*entity.Reservation, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	var reservations []*entity.Reservation
	for _, id := range f.store.reservationIDs {
		r := f.store.reservations[id]
		if r.ScheduleID == scheduleID && r.IsConfirmed {
			reservations = append(reservations, copyReservation(r))
		}
	}
	return reservations, nil
}

func (f *fakeReservationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	existing, ok := f.store.reservations[id]
	if !ok {
		return fmt.Errorf("reservation %s not found", id.String())
	}

	if tx := txState(ctx); tx != nil {
		tx.undo = append(tx.undo, func() {
			f.store.mu.Lock()
			f.store.reservations[id] = existing
			f.store.reservationIDs = append(f.store.reservationIDs, id)
			f.store.mu.Unlock()
		})
	}

	delete(f.store.reservations, id)
	for i, rid := range f.store.reservationIDs {
		if rid == id {
			f.store.reservationIDs = append(f.store.reservationIDs[:i], f.store.reservationIDs[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeReservationRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	tx := txState(ctx)
	if tx == nil {
		return nil, fmt.Errorf("find reservation for update %s: no open transaction", id.String())
	}

	f.store.lockRow(tx, id)

	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return copyReservation(f.store.reservations[id]), nil
}

func (f *fakeReservationRepo) MarkConfirmed(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error {
	tx := txState(ctx)
	if tx == nil {
		return fmt.Errorf("mark reservation confirmed %s: no open transaction", id.String())
	}

	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	existing, ok := f.store.reservations[id]
	if !ok {
		return fmt.Errorf("reservation %s not found", id.String())
	}

	oldConfirmed := existing.IsConfirmed
	oldAt := existing.ConfirmedAt
	tx.undo = append(tx.undo, func() {
		f.store.mu.Lock()
		existing.IsConfirmed = oldConfirmed
		existing.ConfirmedAt = oldAt
		f.store.mu.Unlock()
	})

	existing.IsConfirmed = true
	at := confirmedAt
	existing.ConfirmedAt = &at
	return nil
}

func (f *fakeReservationRepo) UpdateExpectedParticipants(ctx context.Context, id uuid.UUID, count int) error {
	tx := txState(ctx)
	if tx == nil {
		return fmt.Errorf("update expected participants %s: no open transaction", id.String())
	}

	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	existing, ok := f.store.reservations[id]
	if !ok {
		return fmt.Errorf("reservation %s not found", id.String())
	}

	old := existing.ExpectedParticipants
	tx.undo = append(tx.undo, func() {
		f.store.mu.Lock()
		existing.ExpectedParticipants = old
		f.store.mu.Unlock()
	})
	existing.ExpectedParticipants = count
	return nil
}

func newTestRepo() (*memStore, *repository.Repository) {
	store := newMemStore()
	repo := &repository.Repository{
		Schedule:    &fakeScheduleRepo{store: store},
		Reservation: &fakeReservationRepo{store: store},
		Tx:          &fakeTxManager{},
	}
	return store, repo
}

func newTestLedger(cfg utils.ExamConfig) (*memStore, *repository.Repository, *CapacityLedger) {
	store, repo := newTestRepo()
	return store, repo, NewCapacityLedger(cfg, repo.Schedule, zap.NewNop())
}

func newTestReservationService(cfg utils.ExamConfig) (*memStore, *repository.Repository, ReservationService) {
	store, repo := newTestRepo()
	ledger := NewCapacityLedger(cfg, repo.Schedule, zap.NewNop())
	return store, repo, NewReservationService(repo, ledger, zap.NewNop())
}

func newTestScheduleService(cfg utils.ExamConfig) (*memStore, *repository.Repository, ScheduleService) {
	store, repo := newTestRepo()
	ledger := NewCapacityLedger(cfg, repo.Schedule, zap.NewNop())
	return store, repo, NewScheduleService(repo, ledger, zap.NewNop())
}

func seedSchedule(store *memStore, start time.Time, confirmed int) *entity.ExamSchedule {
	now := time.Now()
	schedule := &entity.ExamSchedule{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Title:                 "Midterm sitting",
		Description:           "Main hall",
		StartTime:             start,
		EndTime:               start.Add(2 * time.Hour),
		ConfirmedParticipants: confirmed,
	}

	store.mu.Lock()
	store.schedules[schedule.ID] = schedule
	store.scheduleIDs = append(store.scheduleIDs, schedule.ID)
	store.mu.Unlock()
	return schedule
}

func seedReservation(store *memStore, userID, scheduleID uuid.UUID, count int, confirmed bool) *entity.Reservation {
	reservation := &entity.Reservation{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
		},
		UserID:               userID,
		ScheduleID:           scheduleID,
		ExpectedParticipants: count,
		IsConfirmed:          confirmed,
	}
	if confirmed {
		at := time.Now()
		reservation.ConfirmedAt = &at
	}

	store.mu.Lock()
	store.reservations[reservation.ID] = reservation
	store.reservationIDs = append(store.reservationIDs, reservation.ID)
	store.mu.Unlock()
	return reservation
}

func storedSchedule(store *memStore, id uuid.UUID) *entity.ExamSchedule {
	store.mu.Lock()
	defer store.mu.Unlock()
	return copySchedule(store.schedules[id])
}

func storedReservation(store *memStore, id uuid.UUID) *entity.Reservation {
	store.mu.Lock()
	defer store.mu.Unlock()
	return copyReservation(store.reservations[id])
}
