package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcore/hospital-api/internal/model"
	"github.com/medcore/hospital-api/internal/repository"
	"github.com/medcore/hospital-api/pkg/errors"
	"github.com/medcore/hospital-api/pkg/logger"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type memoryAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
}

func newMemoryAppointmentRepo() *memoryAppointmentRepo {
	return &memoryAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (r *memoryAppointmentRepo) Create(_ context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *apt
	r.appointments[apt.ID] = &cp
	return nil
}

func (r *memoryAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *apt
	return &cp, nil
}

func (r *memoryAppointmentRepo) Update(_ context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[apt.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *apt
	r.appointments[apt.ID] = &cp
	return nil
}

func (r *memoryAppointmentRepo) ListScheduled(_ context.Context, doctorID uuid.UUID) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if apt.DoctorID == doctorID && apt.Status == model.AppointmentStatusScheduled {
			cp := *apt
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memoryAppointmentRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if filters.DoctorID != uuid.Nil && apt.DoctorID != filters.DoctorID {
			continue
		}
		if filters.PatientID != uuid.Nil && apt.PatientID != filters.PatientID {
			continue
		}
		cp := *apt
		out = append(out, &cp)
	}
	return out, nil
}

var testBase = time.Date(2030, time.March, 4, 9, 0, 0, 0, time.UTC)

func newTestService(repo repository.AppointmentRepository) *Service {
	return NewService(repo, fixedClock{now: testBase}, nil, nil, nil, nil)
}

func slot(startOffset, endOffset time.Duration) model.Interval {
	return model.Interval{Start: testBase.Add(startOffset), End: testBase.Add(endOffset)}
}

func schedulingCode(t *testing.T, err error) errors.SchedulingCode {
	var schedErr *errors.SchedulingError
	require.ErrorAs(t, err, &schedErr)
	return schedErr.Code
}

func TestBookValidation(t *testing.T) {
	svc := newTestService(newMemoryAppointmentRepo())
	doctorID, patientID := uuid.New(), uuid.New()

	tests := []struct {
		name string
		slot model.Interval
		code errors.SchedulingCode
	}{
		{"start equals end", slot(time.Hour, time.Hour), errors.SchedulingInvalidInterval},
		{"start after end", slot(2*time.Hour, time.Hour), errors.SchedulingInvalidInterval},
		{"start in the past", slot(-time.Hour, time.Hour), errors.SchedulingPastInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Book(context.Background(), doctorID, patientID, tt.slot, "")
			assert.Equal(t, tt.code, schedulingCode(t, err))
		})
	}
}

func TestBookRejectsOverlap(t *testing.T) {
	svc := newTestService(newMemoryAppointmentRepo())
	doctorID, patientID := uuid.New(), uuid.New()

	_, err := svc.Book(context.Background(), doctorID, patientID, slot(time.Hour, 2*time.Hour), "")
	require.NoError(t, err)

	overlapping := []struct {
		name string
		slot model.Interval
	}{
		{"identical", slot(time.Hour, 2*time.Hour)},
		{"straddles start", slot(30*time.Minute, 90*time.Minute)},
		{"straddles end", slot(90*time.Minute, 150*time.Minute)},
		{"contained", slot(75*time.Minute, 105*time.Minute)},
		{"covering", slot(30*time.Minute, 3*time.Hour)},
	}
	for _, tt := range overlapping {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Book(context.Background(), doctorID, uuid.New(), tt.slot, "")
			assert.Equal(t, errors.SchedulingDoubleBooked, schedulingCode(t, err))
		})
	}
}

func TestBookTouchingBoundariesAllowed(t *testing.T) {
	svc := newTestService(newMemoryAppointmentRepo())
	doctorID := uuid.New()

	_, err := svc.Book(context.Background(), doctorID, uuid.New(), slot(time.Hour, 2*time.Hour), "")
	require.NoError(t, err)

	// [2h, 3h) touches [1h, 2h) at the boundary; half-open intervals do not
	// overlap there.
	_, err = svc.Book(context.Background(), doctorID, uuid.New(), slot(2*time.Hour, 3*time.Hour), "")
	assert.NoError(t, err)

	_, err = svc.Book(context.Background(), doctorID, uuid.New(), slot(0, time.Hour), "")
	assert.NoError(t, err)
}

func TestBookDifferentDoctorsDoNotConflict(t *testing.T) {
	svc := newTestService(newMemoryAppointmentRepo())

	_, err := svc.Book(context.Background(), uuid.New(), uuid.New(), slot(time.Hour, 2*time.Hour), "")
	require.NoError(t, err)
	_, err = svc.Book(context.Background(), uuid.New(), uuid.New(), slot(time.Hour, 2*time.Hour), "")
	assert.NoError(t, err)
}

func TestBookConcurrentSameSlot(t *testing.T) {
	svc := newTestService(newMemoryAppointmentRepo())
	doctorID := uuid.New()

	const workers = 32
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Book(context.Background(), doctorID, uuid.New(), slot(time.Hour, 2*time.Hour), "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var committed, rejected int
	for err := range results {
		if err == nil {
			committed++
			continue
		}
		assert.Equal(t, errors.SchedulingDoubleBooked, schedulingCode(t, err))
		rejected++
	}
	assert.Equal(t, 1, committed, "exactly one booking must win the slot")
	assert.Equal(t, workers-1, rejected)
}

func TestCancel(t *testing.T) {
	repo := newMemoryAppointmentRepo()
	svc := newTestService(repo)
	doctorID := uuid.New()

	apt, err := svc.Book(context.Background(), doctorID, uuid.New(), slot(time.Hour, 2*time.Hour), "")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), apt.ID, "patient request"))

	stored, err := repo.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, stored.Status)
	require.NotNil(t, stored.CancelReason)
	assert.Equal(t, "patient request", *stored.CancelReason)

	t.Run("double cancel is invalid", func(t *testing.T) {
		err := svc.Cancel(context.Background(), apt.ID, "again")
		assert.Equal(t, errors.SchedulingInvalidTransition, schedulingCode(t, err))
	})

	t.Run("complete after cancel is invalid", func(t *testing.T) {
		err := svc.Complete(context.Background(), apt.ID)
		assert.Equal(t, errors.SchedulingInvalidTransition, schedulingCode(t, err))
	})

	t.Run("cancelled slot is bookable again", func(t *testing.T) {
		_, err := svc.Book(context.Background(), doctorID, uuid.New(), slot(time.Hour, 2*time.Hour), "")
		assert.NoError(t, err)
	})
}

func TestBookPersistsNotes(t *testing.T) {
	repo := newMemoryAppointmentRepo()
	svc := newTestService(repo)

	apt, err := svc.Book(context.Background(), uuid.New(), uuid.New(), slot(time.Hour, 2*time.Hour), "fasting required")
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, "fasting required", stored.Notes)
}

type failingCreateRepo struct {
	*memoryAppointmentRepo
}

func (r *failingCreateRepo) Create(context.Context, *model.Appointment) error {
	return fmt.Errorf("connection reset")
}

func TestBookSurfacesPersistenceFailure(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: &buf})
	svc := NewService(&failingCreateRepo{newMemoryAppointmentRepo()}, fixedClock{now: testBase}, nil, nil, log, nil)

	_, err := svc.Book(context.Background(), uuid.New(), uuid.New(), slot(time.Hour, 2*time.Hour), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create appointment")
	assert.Contains(t, buf.String(), "failed to persist appointment")
}

// blockingNotifier holds every notification until release is closed, standing
// in for a stalled SMTP server.
type blockingNotifier struct {
	started chan struct{}
	release chan struct{}
	done    chan struct{}
}

func newBlockingNotifier() *blockingNotifier {
	return &blockingNotifier{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
		done:    make(chan struct{}, 8),
	}
}

func (n *blockingNotifier) AppointmentBooked(context.Context, *model.Appointment) {
	n.started <- struct{}{}
	<-n.release
	n.done <- struct{}{}
}

func (n *blockingNotifier) AppointmentCancelled(context.Context, *model.Appointment) {}

func (n *blockingNotifier) wait(t *testing.T, ch chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestBookDoesNotWaitForNotifier(t *testing.T) {
	notifier := newBlockingNotifier()
	svc := NewService(newMemoryAppointmentRepo(), fixedClock{now: testBase}, nil, notifier, nil, nil)
	doctorID := uuid.New()

	// The first booking must commit and return while its notification is
	// still stuck in delivery.
	_, err := svc.Book(context.Background(), doctorID, uuid.New(), slot(time.Hour, 2*time.Hour), "")
	require.NoError(t, err)
	notifier.wait(t, notifier.started, "first notification to start")

	// A non-overlapping booking for the same doctor must not queue behind
	// the stalled delivery.
	booked := make(chan error, 1)
	go func() {
		_, err := svc.Book(context.Background(), doctorID, uuid.New(), slot(2*time.Hour, 3*time.Hour), "")
		booked <- err
	}()
	select {
	case err := <-booked:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("booking blocked behind the notifier")
	}

	close(notifier.release)
	notifier.wait(t, notifier.done, "notifications to drain")
}

func TestCancelMissingAppointment(t *testing.T) {
	svc := newTestService(newMemoryAppointmentRepo())
	err := svc.Cancel(context.Background(), uuid.New(), "")
	assert.Equal(t, errors.SchedulingNotFound, schedulingCode(t, err))
}

func TestReschedule(t *testing.T) {
	repo := newMemoryAppointmentRepo()
	svc := newTestService(repo)
	doctorID := uuid.New()

	apt, err := svc.Book(context.Background(), doctorID, uuid.New(), slot(time.Hour, 2*time.Hour), "")
	require.NoError(t, err)
	_, err = svc.Book(context.Background(), doctorID, uuid.New(), slot(3*time.Hour, 4*time.Hour), "")
	require.NoError(t, err)

	t.Run("into occupied slot fails without releasing original", func(t *testing.T) {
		_, err := svc.Reschedule(context.Background(), apt.ID, slot(3*time.Hour, 4*time.Hour))
		assert.Equal(t, errors.SchedulingDoubleBooked, schedulingCode(t, err))

		stored, err := repo.Get(context.Background(), apt.ID)
		require.NoError(t, err)
		assert.True(t, stored.StartTime.Equal(testBase.Add(time.Hour)), "original slot must be untouched")
		assert.Equal(t, model.AppointmentStatusScheduled, stored.Status)
	})

	t.Run("overlapping own slot succeeds", func(t *testing.T) {
		moved, err := svc.Reschedule(context.Background(), apt.ID, slot(90*time.Minute, 150*time.Minute))
		require.NoError(t, err)
		assert.True(t, moved.StartTime.Equal(testBase.Add(90*time.Minute)))
	})

	t.Run("invalid interval fails before any write", func(t *testing.T) {
		_, err := svc.Reschedule(context.Background(), apt.ID, slot(-time.Hour, time.Hour))
		assert.Equal(t, errors.SchedulingPastInterval, schedulingCode(t, err))
	})

	t.Run("cancelled appointment cannot move", func(t *testing.T) {
		require.NoError(t, svc.Cancel(context.Background(), apt.ID, ""))
		_, err := svc.Reschedule(context.Background(), apt.ID, slot(5*time.Hour, 6*time.Hour))
		assert.Equal(t, errors.SchedulingInvalidTransition, schedulingCode(t, err))
	})
}

func TestAvailability(t *testing.T) {
	svc := newTestService(newMemoryAppointmentRepo())
	doctorID := uuid.New()

	_, err := svc.Book(context.Background(), doctorID, uuid.New(), slot(time.Hour, 2*time.Hour), "")
	require.NoError(t, err)

	free, err := svc.Availability(context.Background(), doctorID, testBase, time.Hour)
	require.NoError(t, err)
	assert.Len(t, free, 23)

	booked := model.Interval{Start: testBase.Add(time.Hour), End: testBase.Add(2 * time.Hour)}
	for _, f := range free {
		assert.False(t, f.Overlaps(booked), "free slot %v overlaps the booked one", f)
	}
}
