package audit

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcore/hospital-api/internal/model"
	"github.com/medcore/hospital-api/pkg/logger"
)

type memoryDecisionRepo struct {
	mu      sync.Mutex
	failing bool
	records []*model.DecisionRecord
	created chan struct{}
}

func newMemoryDecisionRepo() *memoryDecisionRepo {
	return &memoryDecisionRepo{created: make(chan struct{}, 16)}
}

func (r *memoryDecisionRepo) Create(_ context.Context, rec *model.DecisionRecord) error {
	defer func() { r.created <- struct{}{} }()
	if r.failing {
		return fmt.Errorf("decision store down")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records = append(r.records, &cp)
	return nil
}

func (r *memoryDecisionRepo) List(_ context.Context, filters *model.DecisionFilters) ([]*model.DecisionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.DecisionRecord
	for _, rec := range r.records {
		if filters.Outcome != "" && rec.Outcome != filters.Outcome {
			continue
		}
		out = append(out, rec)
	}
	if filters.Offset < len(out) {
		out = out[filters.Offset:]
	} else {
		out = nil
	}
	if filters.Limit > 0 && filters.Limit < len(out) {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (r *memoryDecisionRepo) waitForWrite(t *testing.T) {
	select {
	case <-r.created:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for decision record write")
	}
}

type recordingBroker struct {
	mu        sync.Mutex
	published []string
}

func (b *recordingBroker) Publish(_ context.Context, channel string, _ interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, channel)
	return nil
}

func (b *recordingBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

func (b *recordingBroker) Close() error { return nil }

func quietLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

func TestRecordAppendsAsynchronously(t *testing.T) {
	repo := newMemoryDecisionRepo()
	broker := &recordingBroker{}
	svc := NewService(repo, broker, quietLogger(), nil)

	svc.Record(context.Background(), model.DecisionRecord{
		SubjectID:    uuid.New(),
		Role:         model.RolePatient,
		Verb:         model.VerbRead,
		ResourceType: model.ResourceAppointment,
		Outcome:      model.DecisionAllow,
	})
	repo.waitForWrite(t)

	repo.mu.Lock()
	require.Len(t, repo.records, 1)
	rec := repo.records[0]
	repo.mu.Unlock()

	assert.NotEqual(t, uuid.Nil, rec.ID, "missing ids are filled in")
	assert.False(t, rec.CreatedAt.IsZero(), "missing timestamps are filled in")

	broker.mu.Lock()
	defer broker.mu.Unlock()
	assert.Equal(t, []string{DecisionChannel}, broker.published)
}

func TestRecordSurvivesCancelledContext(t *testing.T) {
	repo := newMemoryDecisionRepo()
	svc := NewService(repo, nil, quietLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc.Record(ctx, model.DecisionRecord{Outcome: model.DecisionDeny})
	repo.waitForWrite(t)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Len(t, repo.records, 1)
}

func TestRecordStorageFailureIsSwallowed(t *testing.T) {
	repo := newMemoryDecisionRepo()
	repo.failing = true
	broker := &recordingBroker{}
	svc := NewService(repo, broker, quietLogger(), nil)

	// Record must not panic or surface the failure to the caller.
	svc.Record(context.Background(), model.DecisionRecord{Outcome: model.DecisionAllow})
	repo.waitForWrite(t)

	broker.mu.Lock()
	defer broker.mu.Unlock()
	assert.Empty(t, broker.published, "dropped records are not fanned out")
}

func TestQueryIsRestartable(t *testing.T) {
	repo := newMemoryDecisionRepo()
	svc := NewService(repo, nil, quietLogger(), nil)

	for i := 0; i < 5; i++ {
		svc.Record(context.Background(), model.DecisionRecord{
			SubjectID: uuid.New(),
			Outcome:   model.DecisionAllow,
		})
		repo.waitForWrite(t)
	}

	first, err := svc.Query(context.Background(), &model.DecisionFilters{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first, 3)

	rest, err := svc.Query(context.Background(), &model.DecisionFilters{Offset: 3, Limit: 3})
	require.NoError(t, err)
	require.Len(t, rest, 2)

	seen := make(map[uuid.UUID]bool)
	for _, rec := range append(first, rest...) {
		assert.False(t, seen[rec.ID], "pages must not repeat records")
		seen[rec.ID] = true
	}
}
