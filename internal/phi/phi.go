package phi

import (
	"slices"
	"time"

	phiDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/phi"
)

const (
	FieldPatientName     = "patientName"
	FieldDateOfBirth     = "dateOfBirth"
	FieldMRN             = "medicalRecordNumber"
	FieldSSN             = "socialSecurityNumber"
	FieldHealthCondition = "healthConditions"
	FieldMedications     = "medications"
	FieldTreatmentPlans  = "treatmentPlans"
)

// Fields lists every key treated as protected health information.
var Fields = []string{
	FieldPatientName,
	FieldDateOfBirth,
	FieldMRN,
	FieldSSN,
	FieldHealthCondition,
	FieldMedications,
	FieldTreatmentPlans,
}

func IsProtected(key string) bool {
	return slices.Contains(Fields, key)
}

// Record is the stored form: protected values are opaque tokens.
type Record struct {
	ID         string
	OwnerID    string
	Attributes map[string]string
	Protected  map[string]string
	MRNDigest  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// View is a record rendered for one session.
type View struct {
	ID         string            `json:"id"`
	OwnerID    string            `json:"owner_id"`
	Mode       string            `json:"mode"`
	Attributes map[string]string `json:"attributes"`
	PHI        map[string]string `json:"phi"`
	CreatedAt  time.Time         `json:"created_at"`
}

type Summary struct {
	ID         string            `json:"id"`
	OwnerID    string            `json:"owner_id"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  time.Time         `json:"created_at"`
}

func ToDataModel(r *Record) *phiDatamodel.Record {
	return &phiDatamodel.Record{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		Attributes: r.Attributes,
		Protected:  r.Protected,
		MRNDigest:  r.MRNDigest,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func FromDataModel(r *phiDatamodel.Record) *Record {
	return &Record{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		Attributes: r.Attributes,
		Protected:  r.Protected,
		MRNDigest:  r.MRNDigest,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}
