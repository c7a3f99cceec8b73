package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medcore/hospital-api/internal/model"
	"github.com/medcore/hospital-api/internal/repository"
	"github.com/medcore/hospital-api/pkg/logger"
	"github.com/medcore/hospital-api/pkg/messaging"
	"github.com/medcore/hospital-api/pkg/metrics"
)

// DecisionChannel is the broker channel external consumers subscribe to.
const DecisionChannel = "audit.decisions"

// Sink accepts decision records. The guard and the scheduler depend on this
// interface, not on the concrete service.
type Sink interface {
	Record(ctx context.Context, rec model.DecisionRecord)
}

// Service is the append-only decision log. Record never blocks or fails the
// originating action: storage and broker failures are counted and logged,
// never propagated.
type Service struct {
	repo    repository.DecisionRepository
	broker  messaging.Broker
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(repo repository.DecisionRepository, broker messaging.Broker, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		broker:  broker,
		logger:  log,
		metrics: m,
	}
}

// Record appends a decision entry, fire-and-forget. The write runs detached
// from the request context so a cancelled request cannot lose its trail.
func (s *Service) Record(ctx context.Context, rec model.DecisionRecord) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	go s.append(context.WithoutCancel(ctx), rec)
}

func (s *Service) append(ctx context.Context, rec model.DecisionRecord) {
	if err := s.repo.Create(ctx, &rec); err != nil {
		s.metrics.IncAuditDropped()
		s.logger.Error(err, "failed to append decision record",
			"subject_id", rec.SubjectID.String(),
			"outcome", string(rec.Outcome),
		)
		return
	}
	s.metrics.IncAuditWritten()

	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, DecisionChannel, rec); err != nil {
		s.logger.Warn("failed to publish decision record", "error", err.Error())
	}
}

// Query returns decision records matching the filters, ordered by timestamp
// ascending. Offset/Limit make the sequence restartable.
func (s *Service) Query(ctx context.Context, filters *model.DecisionFilters) ([]*model.DecisionRecord, error) {
	return s.repo.List(ctx, filters)
}
