package user

import (
	"errors"
	"strconv"
	"time"

	userDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/user"
	"github.com/frahmantamala/client-portal/internal/session"
)

type User struct {
	ID           int64               `json:"id"`
	Email        string              `json:"email"`
	Name         string              `json:"name"`
	PasswordHash string              `json:"-"`
	Role         string              `json:"role"`
	PHIAccess    session.AccessLevel `json:"phi_access"`
	IsActive     bool                `json:"is_active"`
	Permissions  []string            `json:"permissions"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

var ErrNotFound = errors.New("user not found")

// ErrDuplicateEmail is returned by repositories on a unique email collision.
var ErrDuplicateEmail = errors.New("email already exists")

// ToSession builds the request identity for u.
func (u *User) ToSession() *session.Session {
	return session.New(strconv.FormatInt(u.ID, 10), u.Name, u.Email, u.Role, u.Permissions, u.PHIAccess)
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		PHIAccess:    string(u.PHIAccess),
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User, permissions []string) *User {
	if permissions == nil {
		permissions = []string{}
	}
	return &User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		PHIAccess:    session.AccessLevel(u.PHIAccess),
		IsActive:     u.IsActive,
		Permissions:  permissions,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
