package appointment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcore/hospital-api/internal/guard"
	"github.com/medcore/hospital-api/internal/model"
	"github.com/medcore/hospital-api/internal/policy"
	"github.com/medcore/hospital-api/internal/repository"
	"github.com/medcore/hospital-api/internal/scheduler"
)

type stubRepo struct {
	mu          sync.Mutex
	listCalls   int
	lastFilters *model.AppointmentFilters
}

func (r *stubRepo) Create(context.Context, *model.Appointment) error { return nil }
func (r *stubRepo) Get(context.Context, uuid.UUID) (*model.Appointment, error) {
	return nil, repository.ErrNotFound
}
func (r *stubRepo) Update(context.Context, *model.Appointment) error { return nil }
func (r *stubRepo) ListScheduled(context.Context, uuid.UUID) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *stubRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	r.lastFilters = filters
	return []*model.Appointment{}, nil
}

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

func newListFixture() (*Handler, *stubRepo, *recordingSink) {
	repo := &stubRepo{}
	sink := &recordingSink{}
	g := guard.NewGuard(policy.NewEngine(policy.DefaultRules()), sink, nil)
	svc := scheduler.NewService(repo, nil, sink, nil, nil, nil)
	return NewHandler(svc, g, repo), repo, sink
}

func listRequest(identity model.Identity, query string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/appointments"+query, nil)
	c.Set("identity", identity)
	return c, w
}

func TestListAppointmentsPinsPatientScope(t *testing.T) {
	h, repo, sink := newListFixture()
	subject := uuid.New()
	identity := model.Identity{SubjectID: subject, Role: model.RolePatient}

	// A patient asking for someone else's book still gets their own slice.
	c, w := listRequest(identity, "?patient_id="+uuid.New().String())
	h.ListAppointments(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, repo.lastFilters)
	assert.Equal(t, subject, repo.lastFilters.PatientID)

	rec := sink.last(t)
	assert.Equal(t, model.DecisionAllow, rec.Outcome)
	assert.Equal(t, model.VerbRead, rec.Verb)
	assert.Equal(t, model.ResourceAppointment, rec.ResourceType)
}

func TestListAppointmentsPinsDoctorScope(t *testing.T) {
	h, repo, _ := newListFixture()
	subject := uuid.New()
	identity := model.Identity{SubjectID: subject, Role: model.RoleDoctor}

	c, w := listRequest(identity, "?doctor_id="+uuid.New().String())
	h.ListAppointments(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, repo.lastFilters)
	assert.Equal(t, subject, repo.lastFilters.DoctorID)
}

func TestListAppointmentsDeniesUnknownRole(t *testing.T) {
	h, repo, sink := newListFixture()
	identity := model.Identity{SubjectID: uuid.New(), Role: "GHOST"}

	c, w := listRequest(identity, "")
	h.ListAppointments(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, repo.listCalls, "storage must not be touched on a denied list")
	assert.Equal(t, model.DecisionDeny, sink.last(t).Outcome)
}
