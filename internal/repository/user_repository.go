package repository

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolregistry/internal/errors"
	"schoolregistry/internal/model"
)

// UserRepository defines user persistence operations. Lookups return an
// error matching errors.ErrUserNotFound when no user matches.
type UserRepository interface {
	Insert(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// FindByIdentifier returns users whose username or email equals identifier.
	FindByIdentifier(ctx context.Context, identifier string) ([]model.User, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Insert(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.ErrConflict
	}
	return err
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.first(r.db.WithContext(ctx).Where("username = ?", username))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(r.db.WithContext(ctx).Where("email = ?", email))
}

func (r *userRepository) FindByIdentifier(ctx context.Context, identifier string) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		Limit(2).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.ErrConflict
	}
	return err
}

func (r *userRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) first(q *gorm.DB) (*model.User, error) {
	var user model.User
	if err := q.First(&user).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
