package model

import (
	"time"

	"github.com/google/uuid"
)

type Prescription struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID   uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Medication string    `db:"medication" json:"medication"`
	Dosage     string    `db:"dosage" json:"dosage"`
	Directions string    `db:"directions" json:"directions,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Prescription) Ref() *ResourceRef {
	return &ResourceRef{
		Type:      ResourcePrescription,
		ID:        p.ID,
		PatientID: p.PatientID,
		DoctorID:  p.DoctorID,
	}
}

type CreatePrescriptionRequest struct {
	PatientID  uuid.UUID `json:"patient_id" binding:"required"`
	Medication string    `json:"medication" binding:"required,max=500"`
	Dosage     string    `json:"dosage" binding:"required,max=200"`
	Directions string    `json:"directions" binding:"max=1000"`
}
