package model

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	Name        string     `db:"name" json:"name"`
	Email       string     `db:"email" json:"email"`
	Phone       string     `db:"phone" json:"phone,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Ref reports the patient record as owned by its own user account.
func (p *Patient) Ref() *ResourceRef {
	return &ResourceRef{Type: ResourcePatient, ID: p.ID, PatientID: p.UserID}
}

type Doctor struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Specialty string    `db:"specialty" json:"specialty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (d *Doctor) Ref() *ResourceRef {
	return &ResourceRef{Type: ResourceDoctor, ID: d.ID, DoctorID: d.UserID}
}

type CreateDoctorRequest struct {
	UserID    uuid.UUID `json:"user_id" binding:"required"`
	Name      string    `json:"name" binding:"required"`
	Specialty string    `json:"specialty" binding:"required"`
}

type CreatePatientRequest struct {
	Name        string     `json:"name" binding:"required"`
	Email       string     `json:"email" binding:"required,email"`
	Phone       string     `json:"phone"`
	DateOfBirth *time.Time `json:"date_of_birth"`
}

type PatientFilters struct {
	Name  string
	Email string
}
