package policy

import (
	"github.com/google/uuid"

	"github.com/medcore/hospital-api/internal/model"
)

// OwnPatient holds when the resource belongs to the acting patient.
func OwnPatient(identity model.Identity, resource *model.ResourceRef) bool {
	return resource.PatientID != uuid.Nil && resource.PatientID == identity.SubjectID
}

// OwnDoctor holds when the resource belongs to the acting doctor, either
// directly or through a ward/specialty scope ref.
func OwnDoctor(identity model.Identity, resource *model.ResourceRef) bool {
	if resource.DoctorID == uuid.Nil {
		return false
	}
	return resource.DoctorID == identity.SubjectID || identity.InScope(resource.DoctorID)
}

var allResourceTypes = []model.ResourceType{
	model.ResourceUser,
	model.ResourcePatient,
	model.ResourceDoctor,
	model.ResourceAppointment,
	model.ResourceMedicalRecord,
	model.ResourcePrescription,
}

var allVerbs = []model.Verb{
	model.VerbCreate,
	model.VerbRead,
	model.VerbUpdate,
	model.VerbDelete,
}

// DefaultRules is the process-wide rule table. ADMIN gets a universal
// unconditional rule for every combination. PATIENT carries no DELETE rule
// anywhere: cancelling an own appointment is modelled as UPDATE.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, 64)

	for _, rt := range allResourceTypes {
		for _, v := range allVerbs {
			rules = append(rules, Rule{Role: model.RoleAdmin, Resource: rt, Verb: v})
		}
	}

	rules = append(rules,
		// Doctors read the roster and their patients, and manage clinical
		// output for patients under their care.
		Rule{Role: model.RoleDoctor, Resource: model.ResourcePatient, Verb: model.VerbRead},
		Rule{Role: model.RoleDoctor, Resource: model.ResourceDoctor, Verb: model.VerbRead},
		Rule{Role: model.RoleDoctor, Resource: model.ResourceAppointment, Verb: model.VerbRead, Owner: OwnDoctor},
		Rule{Role: model.RoleDoctor, Resource: model.ResourceAppointment, Verb: model.VerbUpdate, Owner: OwnDoctor},
		Rule{Role: model.RoleDoctor, Resource: model.ResourceMedicalRecord, Verb: model.VerbCreate},
		Rule{Role: model.RoleDoctor, Resource: model.ResourceMedicalRecord, Verb: model.VerbRead},
		Rule{Role: model.RoleDoctor, Resource: model.ResourceMedicalRecord, Verb: model.VerbUpdate, Owner: OwnDoctor},
		Rule{Role: model.RoleDoctor, Resource: model.ResourcePrescription, Verb: model.VerbCreate},
		Rule{Role: model.RoleDoctor, Resource: model.ResourcePrescription, Verb: model.VerbRead},
		Rule{Role: model.RoleDoctor, Resource: model.ResourcePrescription, Verb: model.VerbUpdate, Owner: OwnDoctor},

		// Nurses have read access to ward-facing resources.
		Rule{Role: model.RoleNurse, Resource: model.ResourcePatient, Verb: model.VerbRead},
		Rule{Role: model.RoleNurse, Resource: model.ResourceDoctor, Verb: model.VerbRead},
		Rule{Role: model.RoleNurse, Resource: model.ResourceAppointment, Verb: model.VerbRead},
		Rule{Role: model.RoleNurse, Resource: model.ResourceMedicalRecord, Verb: model.VerbRead},
		Rule{Role: model.RoleNurse, Resource: model.ResourcePrescription, Verb: model.VerbRead},

		// Receptionists run the front desk: patient intake and the
		// appointment book.
		Rule{Role: model.RoleReceptionist, Resource: model.ResourcePatient, Verb: model.VerbCreate},
		Rule{Role: model.RoleReceptionist, Resource: model.ResourcePatient, Verb: model.VerbRead},
		Rule{Role: model.RoleReceptionist, Resource: model.ResourceDoctor, Verb: model.VerbRead},
		Rule{Role: model.RoleReceptionist, Resource: model.ResourceAppointment, Verb: model.VerbCreate},
		Rule{Role: model.RoleReceptionist, Resource: model.ResourceAppointment, Verb: model.VerbRead},
		Rule{Role: model.RoleReceptionist, Resource: model.ResourceAppointment, Verb: model.VerbUpdate},

		// Patients see and manage only what is theirs.
		Rule{Role: model.RolePatient, Resource: model.ResourcePatient, Verb: model.VerbRead, Owner: OwnPatient},
		Rule{Role: model.RolePatient, Resource: model.ResourcePatient, Verb: model.VerbUpdate, Owner: OwnPatient},
		Rule{Role: model.RolePatient, Resource: model.ResourceDoctor, Verb: model.VerbRead},
		Rule{Role: model.RolePatient, Resource: model.ResourceAppointment, Verb: model.VerbCreate, Owner: OwnPatient},
		Rule{Role: model.RolePatient, Resource: model.ResourceAppointment, Verb: model.VerbRead, Owner: OwnPatient},
		Rule{Role: model.RolePatient, Resource: model.ResourceAppointment, Verb: model.VerbUpdate, Owner: OwnPatient},
		Rule{Role: model.RolePatient, Resource: model.ResourceMedicalRecord, Verb: model.VerbRead, Owner: OwnPatient},
		Rule{Role: model.RolePatient, Resource: model.ResourcePrescription, Verb: model.VerbRead, Owner: OwnPatient},
	)

	return rules
}
