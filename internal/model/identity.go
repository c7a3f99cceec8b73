package model

import (
	"github.com/google/uuid"
)

// Role is the coarse-grained position an authenticated principal holds.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleDoctor       Role = "DOCTOR"
	RoleNurse        Role = "NURSE"
	RoleReceptionist Role = "RECEPTIONIST"
	RolePatient      Role = "PATIENT"
)

// Known reports whether the role is one the policy table can match.
func (r Role) Known() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleNurse, RoleReceptionist, RolePatient:
		return true
	}
	return false
}

// Identity is the authenticated principal for a single request. It is built
// once by the auth middleware and passed explicitly; there is no ambient
// current-user state.
type Identity struct {
	SubjectID uuid.UUID
	Role      Role
	// ScopeRefs optionally narrows the identity to wards or specialties.
	ScopeRefs []uuid.UUID
}

func (i Identity) InScope(id uuid.UUID) bool {
	for _, ref := range i.ScopeRefs {
		if ref == id {
			return true
		}
	}
	return false
}
