// Package scheduler allocates non-overlapping appointment slots per doctor.
// All check-then-write sequences against one doctor's booking set run inside
// that doctor's critical section.
package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medcore/hospital-api/internal/model"
	"github.com/medcore/hospital-api/internal/repository"
	"github.com/medcore/hospital-api/internal/service/audit"
	"github.com/medcore/hospital-api/pkg/errors"
	"github.com/medcore/hospital-api/pkg/logger"
	"github.com/medcore/hospital-api/pkg/metrics"
)

// Clock abstracts "now" so past-interval validation is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
func SystemClock() Clock { return systemClock{} }

// Notifier is told about committed bookings and cancellations. Failures are
// the notifier's problem; the scheduler never checks them.
type Notifier interface {
	AppointmentBooked(ctx context.Context, apt *model.Appointment)
	AppointmentCancelled(ctx context.Context, apt *model.Appointment)
}

type Service struct {
	repo     repository.AppointmentRepository
	locks    *doctorLocks
	clock    Clock
	sink     audit.Sink
	notifier Notifier
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(repo repository.AppointmentRepository, clock Clock, sink audit.Sink, notifier Notifier, log *logger.Logger, m *metrics.Metrics) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = logger.NewLogger(nil)
	}
	return &Service{
		repo:     repo,
		locks:    newDoctorLocks(),
		clock:    clock,
		sink:     sink,
		notifier: notifier,
		logger:   log,
		metrics:  m,
	}
}

// Book validates and commits a new SCHEDULED appointment. Validation order:
// interval shape, past start, overlap against the doctor's SCHEDULED set.
// The overlap check and the insert execute under the doctor's lock.
func (s *Service) Book(ctx context.Context, doctorID, patientID uuid.UUID, slot model.Interval, notes string) (*model.Appointment, error) {
	if err := s.validateInterval(slot); err != nil {
		s.reject(ctx, "book", patientID, doctorID, err)
		return nil, err
	}

	lock := s.locks.forDoctor(doctorID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.BookingLatency.Observe(time.Since(start).Seconds())
		}
	}()

	if err := s.checkOverlap(ctx, doctorID, slot, uuid.Nil); err != nil {
		s.reject(ctx, "book", patientID, doctorID, err)
		return nil, err
	}

	apt := &model.Appointment{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: patientID,
		StartTime: slot.Start,
		EndTime:   slot.End,
		Status:    model.AppointmentStatusScheduled,
		Notes:     notes,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		s.logger.Error(err, "failed to persist appointment", "doctor_id", doctorID.String())
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.commit(ctx, "book", apt)
	s.notifyBooked(ctx, apt)
	return apt, nil
}

// Cancel transitions SCHEDULED to CANCELLED. Cancelling an appointment that
// is already CANCELLED or COMPLETED is an invalid transition, not a no-op.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	return s.transition(ctx, "cancel", id, model.AppointmentStatusCancelled, reason)
}

// Complete transitions SCHEDULED to COMPLETED.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, "complete", id, model.AppointmentStatusCompleted, "")
}

func (s *Service) transition(ctx context.Context, op string, id uuid.UUID, target model.AppointmentStatus, reason string) error {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.AppointmentNotFound()
		}
		return fmt.Errorf("failed to get appointment: %w", err)
	}

	lock := s.locks.forDoctor(apt.DoctorID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: a concurrent transition may have won.
	apt, err = s.repo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.AppointmentNotFound()
		}
		return fmt.Errorf("failed to get appointment: %w", err)
	}

	if apt.Status != model.AppointmentStatusScheduled {
		err := errors.InvalidTransition(fmt.Sprintf("cannot %s a %s appointment", op, apt.Status))
		s.reject(ctx, op, apt.PatientID, apt.DoctorID, err)
		return err
	}

	apt.Status = target
	if reason != "" {
		apt.CancelReason = &reason
	}
	apt.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, apt); err != nil {
		s.logger.Error(err, "failed to persist appointment transition", "appointment_id", apt.ID.String())
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	s.commit(ctx, op, apt)
	if target == model.AppointmentStatusCancelled {
		s.notifyCancelled(ctx, apt)
	}
	return nil
}

// Reschedule moves a SCHEDULED appointment to a new interval, re-validated
// as a fresh booking. All-or-nothing: the new interval is fully validated
// before the old slot is touched, so a failed reschedule never releases it.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, slot model.Interval) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.AppointmentNotFound()
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if err := s.validateInterval(slot); err != nil {
		s.reject(ctx, "reschedule", apt.PatientID, apt.DoctorID, err)
		return nil, err
	}

	lock := s.locks.forDoctor(apt.DoctorID)
	lock.Lock()
	defer lock.Unlock()

	apt, err = s.repo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.AppointmentNotFound()
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if apt.Status != model.AppointmentStatusScheduled {
		err := errors.InvalidTransition(fmt.Sprintf("cannot reschedule a %s appointment", apt.Status))
		s.reject(ctx, "reschedule", apt.PatientID, apt.DoctorID, err)
		return nil, err
	}

	// The appointment's own slot is excluded from the overlap check so the
	// new interval may touch or cover the old one.
	if err := s.checkOverlap(ctx, apt.DoctorID, slot, apt.ID); err != nil {
		s.reject(ctx, "reschedule", apt.PatientID, apt.DoctorID, err)
		return nil, err
	}

	apt.StartTime = slot.Start
	apt.EndTime = slot.End
	apt.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, apt); err != nil {
		s.logger.Error(err, "failed to persist appointment transition", "appointment_id", apt.ID.String())
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}

	s.commit(ctx, "reschedule", apt)
	return apt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.AppointmentNotFound()
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return apt, nil
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// Availability returns the free half-open slots of slotLen between the
// doctor's booked SCHEDULED appointments on the given day.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, day time.Time, slotLen time.Duration) ([]model.Interval, error) {
	booked, err := s.repo.ListScheduled(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled appointments: %w", err)
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var free []model.Interval
	for t := dayStart; t.Add(slotLen).Before(dayEnd) || t.Add(slotLen).Equal(dayEnd); t = t.Add(slotLen) {
		candidate := model.Interval{Start: t, End: t.Add(slotLen)}
		conflict := false
		for _, apt := range booked {
			if candidate.Overlaps(model.Interval{Start: apt.StartTime, End: apt.EndTime}) {
				conflict = true
				break
			}
		}
		if !conflict {
			free = append(free, candidate)
		}
	}
	return free, nil
}

func (s *Service) validateInterval(slot model.Interval) error {
	if !slot.Start.Before(slot.End) {
		return errors.InvalidInterval("interval start must precede end")
	}
	if slot.Start.Before(s.clock.Now()) {
		return errors.PastInterval("interval starts in the past")
	}
	return nil
}

func (s *Service) checkOverlap(ctx context.Context, doctorID uuid.UUID, slot model.Interval, exclude uuid.UUID) error {
	booked, err := s.repo.ListScheduled(ctx, doctorID)
	if err != nil {
		return fmt.Errorf("failed to list scheduled appointments: %w", err)
	}
	for _, apt := range booked {
		if apt.ID == exclude {
			continue
		}
		if slot.Overlaps(model.Interval{Start: apt.StartTime, End: apt.EndTime}) {
			return errors.DoubleBooked(fmt.Sprintf("interval overlaps appointment %s", apt.ID))
		}
	}
	return nil
}

func (s *Service) commit(ctx context.Context, op string, apt *model.Appointment) {
	s.metrics.IncSchedulingOutcome(op, "committed")
	if s.sink == nil {
		return
	}
	s.sink.Record(ctx, model.DecisionRecord{
		SubjectID:    apt.PatientID,
		Verb:         opVerb(op),
		ResourceType: model.ResourceAppointment,
		ResourceID:   apt.ID,
		Outcome:      model.DecisionAllow,
		Reason:       op,
	})
}

func (s *Service) reject(ctx context.Context, op string, patientID, doctorID uuid.UUID, err error) {
	s.metrics.IncSchedulingOutcome(op, "rejected")
	if s.sink == nil {
		return
	}
	s.sink.Record(ctx, model.DecisionRecord{
		SubjectID:    patientID,
		Verb:         opVerb(op),
		ResourceType: model.ResourceAppointment,
		ResourceID:   doctorID,
		Outcome:      model.DecisionDeny,
		Reason:       op + ": " + err.Error(),
	})
}

// Notifications run detached: email I/O must never extend the per-doctor
// critical section or the caller's latency.

func (s *Service) notifyBooked(ctx context.Context, apt *model.Appointment) {
	if s.notifier == nil {
		return
	}
	go s.notifier.AppointmentBooked(context.WithoutCancel(ctx), apt)
}

func (s *Service) notifyCancelled(ctx context.Context, apt *model.Appointment) {
	if s.notifier == nil {
		return
	}
	go s.notifier.AppointmentCancelled(context.WithoutCancel(ctx), apt)
}

func opVerb(op string) model.Verb {
	if op == "book" {
		return model.VerbCreate
	}
	return model.VerbUpdate
}
