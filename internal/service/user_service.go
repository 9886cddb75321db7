package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"schoolregistry/internal/auth"
	"schoolregistry/internal/errors"
	"schoolregistry/internal/model"
	"schoolregistry/internal/repository"
)

// NewUser is the input for creating a user.
type NewUser struct {
	Username string
	Email    string
	Password string
	Role     model.Role
}

// UserUpdate holds the fields to change; nil fields are left untouched.
type UserUpdate struct {
	Username *string
	Email    *string
	Role     *model.Role
}

// UserService exposes user administration.
type UserService interface {
	AddUser(ctx context.Context, in NewUser) (*model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, in UserUpdate) (*model.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	repo     repository.UserRepository
	sessions auth.SessionStore
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewUserService builds a UserService.
func NewUserService(repo repository.UserRepository, sessions auth.SessionStore, hasher PasswordHasher, logger *slog.Logger) UserService {
	return &userService{repo: repo, sessions: sessions, hasher: hasher, logger: logger}
}

func (s *userService) AddUser(ctx context.Context, in NewUser) (*model.User, error) {
	if err := s.ensureUnique(ctx, uuid.Nil, &in.Username, &in.Email); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, errors.Internal(err)
	}

	role := in.Role
	if role == "" {
		role = model.RoleViewer
	}
	user := &model.User{
		ID:           uuid.New(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: digest,
		Role:         role,
	}
	if err := s.repo.Insert(ctx, user); err != nil {
		if errors.Is(err, errors.ErrConflict) {
			return nil, err
		}
		return nil, errors.Internal(err)
	}

	s.logger.Info("user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		return nil, errors.Internal(err)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return users, nil
}

func (s *userService) UpdateUser(ctx context.Context, id uuid.UUID, in UserUpdate) (*model.User, error) {
	if _, err := s.GetUser(ctx, id); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, id, in.Username, in.Email); err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	if in.Username != nil {
		fields["username"] = *in.Username
	}
	if in.Email != nil {
		fields["email"] = *in.Email
	}
	if in.Role != nil {
		fields["role"] = *in.Role
	}
	if len(fields) > 0 {
		if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
			if errors.Is(err, errors.ErrConflict) {
				return nil, err
			}
			return nil, errors.Internal(err)
		}
	}
	return s.GetUser(ctx, id)
}

// DeleteUser removes the user and then, best-effort, every session they hold.
func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return err
		}
		return errors.Internal(err)
	}

	if _, err := s.sessions.DeleteByUserID(ctx, id); err != nil {
		s.logger.Warn("revoke sessions of deleted user failed", "user_id", id, "error", err)
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// ensureUnique checks that username and email are not held by a user other
// than self.
func (s *userService) ensureUnique(ctx context.Context, self uuid.UUID, username, email *string) error {
	if username != nil {
		existing, err := s.repo.FindByUsername(ctx, *username)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return errors.Internal(err)
		}
		if existing != nil && existing.ID != self {
			return errors.ErrUsernameTaken
		}
	}
	if email != nil {
		existing, err := s.repo.FindByEmail(ctx, *email)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return errors.Internal(err)
		}
		if existing != nil && existing.ID != self {
			return errors.ErrEmailTaken
		}
	}
	return nil
}
