package phi

import (
	"strings"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/core/common/validation"
)

// CreateRecordDTO is a flat form. Keys listed in Fields are protected; any
// other key is stored as a plain attribute.
type CreateRecordDTO struct {
	Fields map[string]string `json:"fields"`
}

func (dto *CreateRecordDTO) Normalize() {
	for k, v := range dto.Fields {
		dto.Fields[k] = strings.TrimSpace(v)
	}
}

func (dto CreateRecordDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field(FieldPatientName, dto.Fields[FieldPatientName]).Required().MaxLength(200)
	v.Field(FieldMRN, dto.Fields[FieldMRN]).Required().MaxLength(64)
	v.Field(FieldHealthCondition, dto.Fields[FieldHealthCondition]).Required().MaxLength(5000)
	if dob, ok := dto.Fields[FieldDateOfBirth]; ok && dob != "" {
		v.Field(FieldDateOfBirth, dob).Date().NotFuture()
	}
	for k, val := range dto.Fields {
		if k == FieldPatientName || k == FieldMRN || k == FieldHealthCondition {
			continue
		}
		v.Field(k, val).MaxLength(5000)
	}
	return v.Validate()
}

type RecordsResponse struct {
	Records []Summary `json:"records"`
}
