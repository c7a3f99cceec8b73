package guard

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcore/hospital-api/internal/model"
	"github.com/medcore/hospital-api/internal/policy"
	"github.com/medcore/hospital-api/internal/repository"
	"github.com/medcore/hospital-api/pkg/errors"
	"github.com/medcore/hospital-api/pkg/metrics"
)

type recordingSink struct {
	mu      sync.Mutex
	records []model.DecisionRecord
}

func (s *recordingSink) Record(_ context.Context, rec model.DecisionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *recordingSink) last(t *testing.T) model.DecisionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.records)
	return s.records[len(s.records)-1]
}

type countingLookup struct {
	calls int
	ref   *model.ResourceRef
	err   error
}

func (l *countingLookup) fn() Lookup {
	return func(ctx context.Context, id uuid.UUID) (*model.ResourceRef, error) {
		l.calls++
		if l.err != nil {
			return nil, l.err
		}
		return l.ref, nil
	}
}

func newTestGuard() (*Guard, *recordingSink) {
	sink := &recordingSink{}
	return NewGuard(policy.NewEngine(policy.DefaultRules()), sink, nil), sink
}

func TestAuthorizeNoRuleHidesExistence(t *testing.T) {
	g, sink := newTestGuard()
	nurse := model.Identity{SubjectID: uuid.New(), Role: model.RoleNurse}
	action := model.Action{Verb: model.VerbDelete, Resource: model.ResourcePatient}

	// The resource genuinely does not exist, but a caller with no rule must
	// see Forbidden, never NotFound.
	lookup := &countingLookup{err: repository.ErrNotFound}
	_, err := g.Authorize(context.Background(), nurse, action, uuid.New(), lookup.fn())

	var authzErr *errors.AuthzError
	require.ErrorAs(t, err, &authzErr)
	assert.Equal(t, errors.AuthzForbidden, authzErr.Kind)
	assert.Zero(t, lookup.calls, "storage must not be touched before the role pre-check passes")
	assert.Equal(t, model.DecisionDeny, sink.last(t).Outcome)
}

func TestAuthorizeNotFoundAfterRoleCheck(t *testing.T) {
	g, _ := newTestGuard()
	patient := model.Identity{SubjectID: uuid.New(), Role: model.RolePatient}
	action := model.Action{Verb: model.VerbRead, Resource: model.ResourceAppointment}

	lookup := &countingLookup{err: repository.ErrNotFound}
	_, err := g.Authorize(context.Background(), patient, action, uuid.New(), lookup.fn())

	var authzErr *errors.AuthzError
	require.ErrorAs(t, err, &authzErr)
	assert.Equal(t, errors.AuthzNotFound, authzErr.Kind)
	assert.Equal(t, 1, lookup.calls)
}

func TestAuthorizeOwnershipFailureIsForbidden(t *testing.T) {
	g, _ := newTestGuard()
	patient := model.Identity{SubjectID: uuid.New(), Role: model.RolePatient}
	action := model.Action{Verb: model.VerbRead, Resource: model.ResourceAppointment}
	id := uuid.New()

	// The appointment exists but belongs to someone else.
	lookup := &countingLookup{ref: &model.ResourceRef{
		Type: model.ResourceAppointment, ID: id, PatientID: uuid.New(),
	}}
	_, err := g.Authorize(context.Background(), patient, action, id, lookup.fn())

	var authzErr *errors.AuthzError
	require.ErrorAs(t, err, &authzErr)
	assert.Equal(t, errors.AuthzForbidden, authzErr.Kind)
}

func TestAuthorizeOwnerAllowed(t *testing.T) {
	g, sink := newTestGuard()
	subject := uuid.New()
	patient := model.Identity{SubjectID: subject, Role: model.RolePatient}
	action := model.Action{Verb: model.VerbRead, Resource: model.ResourceAppointment}
	id := uuid.New()

	lookup := &countingLookup{ref: &model.ResourceRef{
		Type: model.ResourceAppointment, ID: id, PatientID: subject,
	}}
	ref, err := g.Authorize(context.Background(), patient, action, id, lookup.fn())

	require.NoError(t, err)
	assert.Equal(t, id, ref.ID)
	assert.Equal(t, model.DecisionAllow, sink.last(t).Outcome)
}

func TestAuthorizeSkipsLookupForUnconditionalRule(t *testing.T) {
	g, _ := newTestGuard()
	nurse := model.Identity{SubjectID: uuid.New(), Role: model.RoleNurse}
	action := model.Action{Verb: model.VerbRead, Resource: model.ResourceAppointment}

	lookup := &countingLookup{err: repository.ErrNotFound}
	_, err := g.Authorize(context.Background(), nurse, action, uuid.New(), lookup.fn())

	require.NoError(t, err)
	assert.Zero(t, lookup.calls, "unconditional rules must not trigger a fetch")
}

func TestAuthorizeCachesOwnerRefs(t *testing.T) {
	g, _ := newTestGuard()
	subject := uuid.New()
	patient := model.Identity{SubjectID: subject, Role: model.RolePatient}
	action := model.Action{Verb: model.VerbRead, Resource: model.ResourceAppointment}
	id := uuid.New()

	lookup := &countingLookup{ref: &model.ResourceRef{
		Type: model.ResourceAppointment, ID: id, PatientID: subject,
	}}

	_, err := g.Authorize(context.Background(), patient, action, id, lookup.fn())
	require.NoError(t, err)
	_, err = g.Authorize(context.Background(), patient, action, id, lookup.fn())
	require.NoError(t, err)
	assert.Equal(t, 1, lookup.calls)

	g.Invalidate(model.ResourceAppointment, id)
	_, err = g.Authorize(context.Background(), patient, action, id, lookup.fn())
	require.NoError(t, err)
	assert.Equal(t, 2, lookup.calls)
}

func TestAuthorizeNew(t *testing.T) {
	g, _ := newTestGuard()
	subject := uuid.New()
	patient := model.Identity{SubjectID: subject, Role: model.RolePatient}
	action := model.Action{Verb: model.VerbCreate, Resource: model.ResourceAppointment}

	t.Run("own booking allowed", func(t *testing.T) {
		ref := &model.ResourceRef{Type: model.ResourceAppointment, PatientID: subject}
		assert.NoError(t, g.AuthorizeNew(context.Background(), patient, action, ref))
	})

	t.Run("booking for someone else denied", func(t *testing.T) {
		ref := &model.ResourceRef{Type: model.ResourceAppointment, PatientID: uuid.New()}
		err := g.AuthorizeNew(context.Background(), patient, action, ref)

		var authzErr *errors.AuthzError
		require.ErrorAs(t, err, &authzErr)
		assert.Equal(t, errors.AuthzForbidden, authzErr.Kind)
	})
}

func TestAuthorizeObservesLatency(t *testing.T) {
	m := metrics.NewMetrics("guardtest")
	g := NewGuard(policy.NewEngine(policy.DefaultRules()), &recordingSink{}, m)
	admin := model.Identity{SubjectID: uuid.New(), Role: model.RoleAdmin}
	action := model.Action{Verb: model.VerbRead, Resource: model.ResourcePatient}

	_, err := g.Authorize(context.Background(), admin, action, uuid.New(), nil)
	require.NoError(t, err)
	require.NoError(t, g.AuthorizeNew(context.Background(), admin, action, nil))

	var pb dto.Metric
	require.NoError(t, m.AuthzLatency.Write(&pb))
	assert.Equal(t, uint64(2), pb.GetHistogram().GetSampleCount())
}

func TestEveryDecisionIsRecorded(t *testing.T) {
	g, sink := newTestGuard()
	admin := model.Identity{SubjectID: uuid.New(), Role: model.RoleAdmin}
	nobody := model.Identity{SubjectID: uuid.New(), Role: "GHOST"}
	action := model.Action{Verb: model.VerbRead, Resource: model.ResourcePatient}

	_, _ = g.Authorize(context.Background(), admin, action, uuid.New(), nil)
	_, _ = g.Authorize(context.Background(), nobody, action, uuid.New(), nil)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.records, 2)
	assert.Equal(t, model.DecisionAllow, sink.records[0].Outcome)
	assert.Equal(t, model.DecisionDeny, sink.records[1].Outcome)
	assert.Equal(t, "unrecognized role", sink.records[1].Reason)
}
