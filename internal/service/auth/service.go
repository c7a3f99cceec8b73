// Package auth issues and verifies credentials. The authorization core never
// sees any of this; it only receives the Identity the middleware builds from
// a validated token.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medcore/hospital-api/internal/model"
	"github.com/medcore/hospital-api/internal/repository"
	pkgauth "github.com/medcore/hospital-api/pkg/auth"
	"github.com/medcore/hospital-api/pkg/errors"
	"github.com/medcore/hospital-api/pkg/security"
)

type Service struct {
	users    repository.UserRepository
	patients repository.PatientRepository
	hasher   security.PasswordHasher
	jwt      pkgauth.JWTService
}

func NewService(users repository.UserRepository, patients repository.PatientRepository, hasher security.PasswordHasher, jwt pkgauth.JWTService) *Service {
	return &Service{
		users:    users,
		patients: patients,
		hasher:   hasher,
		jwt:      jwt,
	}
}

// Register creates a login-capable account. Patient accounts also get a
// patient row owned by the new user so ownership predicates line up.
func (s *Service) Register(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.NewBadRequest("invalid password", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         req.Role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if user.Role == model.RolePatient {
		patient := &model.Patient{
			ID:        uuid.New(),
			UserID:    user.ID,
			Name:      user.Name,
			Email:     user.Email,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := s.patients.Create(ctx, patient); err != nil {
			return nil, fmt.Errorf("failed to create patient profile: %w", err)
		}
	}

	return user, nil
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.Unauthorized(fmt.Errorf("invalid credentials"))
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, errors.Unauthorized(fmt.Errorf("invalid credentials"))
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &model.TokenResponse{AccessToken: token, ExpiresAt: expiresAt}, nil
}
