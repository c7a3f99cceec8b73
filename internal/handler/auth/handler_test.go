package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/medcore/hospital-api/internal/model"
	"github.com/medcore/hospital-api/internal/repository"
	authservice "github.com/medcore/hospital-api/internal/service/auth"
	pkgauth "github.com/medcore/hospital-api/pkg/auth"
	"github.com/medcore/hospital-api/pkg/security"
)

type fakeUsers struct {
	mu      sync.Mutex
	created []*model.User
}

func (f *fakeUsers) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, user)
	return nil
}

func (f *fakeUsers) Get(context.Context, uuid.UUID) (*model.User, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.created {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) Update(context.Context, *model.User) error   { return nil }
func (f *fakeUsers) Delete(context.Context, uuid.UUID) error     { return nil }
func (f *fakeUsers) List(context.Context) ([]*model.User, error) { return nil, nil }

type fakePatients struct {
	mu      sync.Mutex
	created []*model.Patient
}

func (f *fakePatients) Create(_ context.Context, patient *model.Patient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, patient)
	return nil
}

func (f *fakePatients) Get(context.Context, uuid.UUID) (*model.Patient, error) {
	return nil, repository.ErrNotFound
}

func (f *fakePatients) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.created {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePatients) Update(context.Context, *model.Patient) error { return nil }
func (f *fakePatients) List(context.Context, *model.PatientFilters) ([]*model.Patient, error) {
	return nil, nil
}

func newRegisterFixture() (*Handler, *fakeUsers, *fakePatients) {
	users := &fakeUsers{}
	patients := &fakePatients{}
	svc := authservice.NewService(users, patients,
		security.NewBcryptHasher(bcrypt.MinCost),
		pkgauth.NewJWTService("test-secret", time.Hour))
	return NewHandler(svc), users, patients
}

func registerRequest(body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestRegisterIgnoresSubmittedRole(t *testing.T) {
	h, users, patients := newRegisterFixture()

	// A role smuggled into the payload must not grant a staff account.
	c, w := registerRequest(`{
		"email": "eve@example.com",
		"password": "longenoughpw",
		"name": "Eve",
		"role": "ADMIN"
	}`)
	h.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, users.created, 1)
	assert.Equal(t, model.RolePatient, users.created[0].Role)

	patient, err := patients.GetByUserID(context.Background(), users.created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "eve@example.com", patient.Email)
}

func TestRegisterValidatesPayload(t *testing.T) {
	h, users, _ := newRegisterFixture()

	tests := []struct {
		name string
		body string
	}{
		{"short password", `{"email":"a@b.com","password":"short","name":"A"}`},
		{"missing email", `{"password":"longenoughpw","name":"A"}`},
		{"bad email", `{"email":"not-an-email","password":"longenoughpw","name":"A"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := registerRequest(tt.body)
			h.Register(c)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, users.created)
}
