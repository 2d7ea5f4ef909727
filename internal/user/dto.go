package user

import (
	"strings"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/core/common/validation"
	"github.com/frahmantamala/client-portal/internal/navigation"
	"github.com/frahmantamala/client-portal/internal/session"
)

// MeResponse is the signed-in user as the sidebar and profile menu need it.
type MeResponse struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	Role         string              `json:"role"`
	Permissions  []string            `json:"permissions"`
	PHIAccess    session.AccessLevel `json:"phi_access"`
	CanAccessPHI bool                `json:"can_access_phi"`
	Navigation   []navigation.Link   `json:"navigation"`
}

func NewMeResponse(s *session.Session) MeResponse {
	perms := s.Permissions
	if perms == nil {
		perms = []string{}
	}
	return MeResponse{
		ID:           s.UserID,
		Name:         s.Name,
		Email:        s.Email,
		Role:         s.Role,
		Permissions:  perms,
		PHIAccess:    s.PHIAccess,
		CanAccessPHI: s.CanAccessPHI(),
		Navigation:   navigation.Links(s),
	}
}

type CreateUserDTO struct {
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	PHIAccess   string   `json:"phi_access"`
	Permissions []string `json:"permissions"`
}

var accessLevels = []string{
	string(session.AccessFull),
	string(session.AccessLimited),
	string(session.AccessNone),
}

func (d *CreateUserDTO) Normalize() {
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Name = strings.TrimSpace(d.Name)
	d.Role = strings.TrimSpace(d.Role)
	if d.Role == "" {
		d.Role = "client"
	}
	if d.PHIAccess == "" {
		d.PHIAccess = string(session.AccessNone)
	}
}

func (d CreateUserDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().MaxLength(255).Custom(func(value interface{}) *internal.AppError {
		if s, _ := value.(string); s != "" && !strings.Contains(s, "@") {
			return internal.NewValidationFieldError("email", "email is invalid", internal.ErrCodeValidationFailed)
		}
		return nil
	})
	v.Field("name", d.Name).Required().MaxLength(255)
	v.Field("password", d.Password).Required().MinLength(8)
	v.Field("phi_access", d.PHIAccess).OneOf(accessLevels, internal.ErrCodeValidationFailed)
	for _, p := range d.Permissions {
		v.Field("permissions", p).OneOf(session.AllPermissions, internal.ErrCodeValidationFailed)
	}
	return v.Validate()
}
