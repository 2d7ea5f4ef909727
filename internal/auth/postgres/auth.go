package postgres

import (
	"errors"
	"strconv"
	"strings"

	userDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/user"
	"gorm.io/gorm"
)

var ErrUnknownEmail = errors.New("no active user with that email")

// Repository reads login credentials from the users table.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetPasswordForUsername matches email case-insensitively. Inactive users are
// treated as unknown.
func (r *Repository) GetPasswordForUsername(email string) (string, string, error) {
	var u userDatamodel.User
	err := r.db.Select("id", "password_hash").
		Where("LOWER(email) = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(email)), true).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrUnknownEmail
		}
		return "", "", err
	}
	return u.PasswordHash, strconv.FormatInt(u.ID, 10), nil
}
