package postgres

import (
	"context"
	"errors"
	"strings"

	userDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/user"
	"github.com/frahmantamala/client-portal/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.first(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepository) first(ctx context.Context, query string, args ...interface{}) (*user.User, error) {
	var u userDatamodel.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}

	perms, err := r.permissions(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return user.FromDataModel(&u, perms), nil
}

func (r *UserRepository) permissions(ctx context.Context, userID int64) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Table("permissions").
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ?", userID).
		Order("permissions.id ASC").
		Pluck("permissions.name", &names).Error
	return names, err
}

// Create inserts the user and grants its permissions in one transaction.
// Unknown permission names are created on the fly.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userDatamodel.User{}).Where("LOWER(email) = ?", strings.ToLower(u.Email)).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return user.ErrDuplicateEmail
		}

		row := user.ToDataModel(u)
		if err := tx.Create(row).Error; err != nil {
			return err
		}

		for _, name := range u.Permissions {
			perm := userDatamodel.Permission{Name: name}
			if err := tx.Where(userDatamodel.Permission{Name: name}).FirstOrCreate(&perm).Error; err != nil {
				return err
			}
			grant := userDatamodel.UserPermission{UserID: row.ID, PermissionID: perm.ID}
			if err := tx.Create(&grant).Error; err != nil {
				return err
			}
		}

		u.ID = row.ID
		u.CreatedAt = row.CreatedAt
		u.UpdatedAt = row.UpdatedAt
		return nil
	})
}
