package model

import (
	"github.com/google/uuid"
)

// Verb describes the intent of a request, not its mechanism.
type Verb string

const (
	VerbCreate Verb = "CREATE"
	VerbRead   Verb = "READ"
	VerbUpdate Verb = "UPDATE"
	VerbDelete Verb = "DELETE"
)

// ResourceType enumerates the guarded resource kinds.
type ResourceType string

const (
	ResourceUser          ResourceType = "USER"
	ResourcePatient       ResourceType = "PATIENT"
	ResourceDoctor        ResourceType = "DOCTOR"
	ResourceAppointment   ResourceType = "APPOINTMENT"
	ResourceMedicalRecord ResourceType = "MEDICAL_RECORD"
	ResourcePrescription  ResourceType = "PRESCRIPTION"
)

// Action pairs a verb with the resource type it targets.
type Action struct {
	Verb     Verb
	Resource ResourceType
}

// ResourceRef carries the owner-identifying fields of a concrete resource,
// which is all the policy predicates ever need. PatientID/DoctorID are
// uuid.Nil when the resource has no owner of that kind.
type ResourceRef struct {
	Type      ResourceType
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
}
