package user

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/session"
)

type Repository interface {
	GetByID(ctx context.Context, userID int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
}

// PasswordHasher is satisfied by the auth service.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

type Service struct {
	repo   Repository
	hasher PasswordHasher
	logger *slog.Logger
}

func NewService(repo Repository, hasher PasswordHasher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		logger: logger,
	}
}

// SessionFor loads the user behind an authenticated token. Inactive users
// get ErrUserInactive even though their token is still valid.
func (s *Service) SessionFor(ctx context.Context, userID string) (*session.Session, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if !u.IsActive {
		return nil, internal.ErrUserInactive
	}
	return u.ToSession(), nil
}

func (s *Service) GetByID(ctx context.Context, actor *session.Session, userID int64) (*User, error) {
	if actor.UserID != strconv.FormatInt(userID, 10) && !actor.HasPermission(session.PermManageUsers) {
		return nil, internal.ErrPermissionDenied
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewInternalError("failed to get user", err)
	}
	return u, nil
}

func (s *Service) CreateUser(ctx context.Context, actor *session.Session, dto CreateUserDTO) (*User, error) {
	if !actor.HasPermission(session.PermManageUsers) {
		return nil, internal.ErrPermissionDenied
	}

	dto.Normalize()
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	if _, err := s.repo.GetByEmail(ctx, dto.Email); err == nil {
		return nil, internal.ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, internal.NewInternalError("failed to check email", err)
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &User{
		Email:        dto.Email,
		Name:         dto.Name,
		PasswordHash: hash,
		Role:         dto.Role,
		PHIAccess:    session.AccessLevel(dto.PHIAccess),
		IsActive:     true,
		Permissions:  dto.Permissions,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, internal.ErrEmailTaken
		}
		s.logger.Error("failed to create user", "email", dto.Email, "error", err)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", u.ID, "role", u.Role, "created_by", actor.UserID)
	return u, nil
}
