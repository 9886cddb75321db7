package repository

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolregistry/internal/auth"
	"schoolregistry/internal/errors"
	"schoolregistry/internal/model"
)

// SessionRepository stores sessions in the database. Expired rows stay until
// the resolver or the sweeper removes them.
type SessionRepository struct {
	db *gorm.DB
}

var (
	_ auth.SessionStore  = (*SessionRepository)(nil)
	_ auth.ExpiredPurger = (*SessionRepository)(nil)
)

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session. A duplicate token fails the unique index.
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	err := r.db.WithContext(ctx).Create(session).Error
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.ErrSessionConflict
	}
	return err
}

// FindByToken returns (nil, nil) when no session has the token.
func (r *SessionRepository) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&session).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteByToken removes the session with token, if any.
func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&model.Session{}).Error
}

// DeleteExpired removes a session the resolver found expired.
func (r *SessionRepository) DeleteExpired(ctx context.Context, session *model.Session) error {
	return r.db.WithContext(ctx).Where("id = ?", session.ID).Delete(&model.Session{}).Error
}

// DeleteByUserID removes every session owned by userID.
func (r *SessionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Session{})
	return res.RowsAffected, res.Error
}

// PurgeExpired removes sessions whose expiry is at or before before.
func (r *SessionRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", before).Delete(&model.Session{})
	return res.RowsAffected, res.Error
}
