package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"schoolregistry/internal/errors"
	"schoolregistry/internal/model"
)

const (
	sessionKeyPrefix     = "session:"
	userSessionKeyPrefix = "user_sessions:"
)

// SessionStore persists sessions keyed by token.
//
// FindByToken returns (nil, nil) when no session has the token. Create
// returns an error matching errors.ErrConflict when the token already exists.
// Deletes are idempotent.
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	FindByToken(ctx context.Context, token string) (*model.Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, session *model.Session) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}

// ExpiredPurger is implemented by stores that keep expired sessions until
// they are removed explicitly.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// KeyValue is the subset of Redis operations the Redis session store needs.
type KeyValue interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Remove(ctx context.Context, keys ...string) (int64, error)
	AddToSet(ctx context.Context, key, member string, ttl time.Duration) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	RemoveFromSet(ctx context.Context, key, member string) error
}

// RedisSessionStore keeps sessions in Redis. Each session key expires with
// the session, and a per-user set indexes the user's tokens.
type RedisSessionStore struct {
	kv  KeyValue
	now func() time.Time
}

// Ensure RedisSessionStore implements SessionStore
var _ SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore creates a session store on top of kv.
func NewRedisSessionStore(kv KeyValue) *RedisSessionStore {
	return &RedisSessionStore{kv: kv, now: time.Now}
}

type sessionRecord struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Create stores a session until its expiry.
func (s *RedisSessionStore) Create(ctx context.Context, session *model.Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	payload, err := json.Marshal(sessionRecord{
		ID:        session.ID,
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := session.ExpiresAt.Sub(s.now())
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	stored, err := s.kv.SetNX(ctx, sessionKeyPrefix+session.Token, payload, ttl)
	if err != nil {
		return err
	}
	if !stored {
		return errors.ErrSessionConflict
	}
	if err := s.kv.AddToSet(ctx, userSessionKeyPrefix+session.UserID.String(), session.Token, ttl); err != nil {
		// An unindexed session could never be revoked by DeleteByUserID.
		if _, rmErr := s.kv.Remove(ctx, sessionKeyPrefix+session.Token); rmErr != nil {
			return fmt.Errorf("index session: %w (cleanup: %v)", err, rmErr)
		}
		return fmt.Errorf("index session: %w", err)
	}
	return nil
}

// FindByToken loads the session stored under token.
func (s *RedisSessionStore) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	data, err := s.kv.Fetch(ctx, sessionKeyPrefix+token)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &model.Session{
		ID:        rec.ID,
		Token:     token,
		UserID:    rec.UserID,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// DeleteByToken removes the session, if any.
func (s *RedisSessionStore) DeleteByToken(ctx context.Context, token string) error {
	session, err := s.FindByToken(ctx, token)
	if err != nil || session == nil {
		return err
	}
	return s.remove(ctx, session)
}

// DeleteExpired removes a session found to be past its expiry.
func (s *RedisSessionStore) DeleteExpired(ctx context.Context, session *model.Session) error {
	return s.remove(ctx, session)
}

// DeleteByUserID removes every session of the user.
func (s *RedisSessionStore) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	indexKey := userSessionKeyPrefix + userID.String()
	tokens, err := s.kv.SetMembers(ctx, indexKey)
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(tokens))
	for _, token := range tokens {
		keys = append(keys, sessionKeyPrefix+token)
	}
	removed, err := s.kv.Remove(ctx, keys...)
	if err != nil {
		return 0, err
	}
	if _, err := s.kv.Remove(ctx, indexKey); err != nil {
		return removed, err
	}
	return removed, nil
}

func (s *RedisSessionStore) remove(ctx context.Context, session *model.Session) error {
	if _, err := s.kv.Remove(ctx, sessionKeyPrefix+session.Token); err != nil {
		return err
	}
	return s.kv.RemoveFromSet(ctx, userSessionKeyPrefix+session.UserID.String(), session.Token)
}
