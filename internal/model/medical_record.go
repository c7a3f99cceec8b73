package model

import (
	"time"

	"github.com/google/uuid"
)

type MedicalRecord struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Diagnosis string    `db:"diagnosis" json:"diagnosis"`
	Notes     string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (m *MedicalRecord) Ref() *ResourceRef {
	return &ResourceRef{
		Type:      ResourceMedicalRecord,
		ID:        m.ID,
		PatientID: m.PatientID,
		DoctorID:  m.DoctorID,
	}
}

type CreateMedicalRecordRequest struct {
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	Diagnosis string    `json:"diagnosis" binding:"required,max=2000"`
	Notes     string    `json:"notes" binding:"max=5000"`
}

type UpdateMedicalRecordRequest struct {
	Diagnosis *string `json:"diagnosis" binding:"omitempty,max=2000"`
	Notes     *string `json:"notes" binding:"omitempty,max=5000"`
}
