package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"schoolregistry/internal/auth"
	"schoolregistry/internal/errors"
	"schoolregistry/internal/model"
	"schoolregistry/internal/repository"
)

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, digest string) bool
}

// SessionState is the outcome of resolving a presented token.
type SessionState int

const (
	StateNoToken SessionState = iota
	StateSessionAbsent
	StateSessionExpired
	StateUserAbsent
	StateAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateNoToken:
		return "no_token"
	case StateSessionAbsent:
		return "session_absent"
	case StateSessionExpired:
		return "session_expired"
	case StateUserAbsent:
		return "user_absent"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// AuthService handles credential checks and the session lifecycle.
type AuthService interface {
	Login(ctx context.Context, identifier, password string) (user *model.User, token string, expiresAt time.Time, err error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) (int64, error)
	ResolveUser(ctx context.Context, token string) (*model.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
}

type authService struct {
	users    repository.UserRepository
	sessions auth.SessionStore
	hasher   PasswordHasher
	lifetime time.Duration
	logger   *slog.Logger

	now      func() time.Time
	newToken func() (string, error)

	dummyMu     sync.Mutex
	dummyDigest string
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	sessions auth.SessionStore,
	hasher PasswordHasher,
	lifetime time.Duration,
	logger *slog.Logger,
) AuthService {
	return &authService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		lifetime: lifetime,
		logger:   logger,
		now:      time.Now,
		newToken: auth.NewToken,
	}
}

// Login verifies identifier (username or email) and password and opens a
// new session. Unknown identifiers and wrong passwords fail identically.
func (s *authService) Login(ctx context.Context, identifier, password string) (*model.User, string, time.Time, error) {
	user, err := s.lookupIdentifier(ctx, identifier)
	if err != nil {
		return nil, "", time.Time{}, errors.Internal(err)
	}

	if user == nil {
		// Burn the same bcrypt work as a real check.
		s.hasher.Verify(ctx, password, s.dummyHash())
		if err := ctx.Err(); err != nil {
			return nil, "", time.Time{}, errors.Internal(err)
		}
		s.logger.Info("login rejected", "reason", "unknown identifier")
		return nil, "", time.Time{}, errors.ErrUnauthenticated
	}
	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		if err := ctx.Err(); err != nil {
			return nil, "", time.Time{}, errors.Internal(err)
		}
		s.logger.Info("login rejected", "reason", "password mismatch", "user_id", user.ID)
		return nil, "", time.Time{}, errors.ErrUnauthenticated
	}

	token, err := s.newToken()
	if err != nil {
		return nil, "", time.Time{}, errors.Internal(err)
	}

	createdAt := s.now().UTC().Truncate(time.Millisecond)
	session := &model.Session{
		Token:     token,
		UserID:    user.ID,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(s.lifetime),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", time.Time{}, errors.Internal(err)
	}

	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{"last_login": createdAt}); err != nil {
		s.logger.Warn("record last login failed", "user_id", user.ID, "error", err)
	} else {
		user.LastLogin = &createdAt
	}

	s.logger.Info("login succeeded", "user_id", user.ID, "session_id", session.ID)
	return user, token, session.ExpiresAt, nil
}

// lookupIdentifier returns the user whose username, or failing that email,
// equals identifier exactly. It returns (nil, nil) when there is none.
func (s *authService) lookupIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	if identifier == "" {
		return nil, nil
	}
	candidates, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if candidates[i].Username == identifier {
			return &candidates[i], nil
		}
	}
	for i := range candidates {
		if candidates[i].Email == identifier {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// dummyHash returns the digest verified against for unknown identifiers. It
// is built outside any request context and kept only once hashing succeeds.
func (s *authService) dummyHash() string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyDigest == "" {
		digest, err := s.hasher.Hash(context.Background(), "placeholder-password")
		if err != nil {
			s.logger.Warn("dummy digest unavailable", "error", err)
			return ""
		}
		s.dummyDigest = digest
	}
	return s.dummyDigest
}

// Logout ends the session identified by token. Unknown and empty tokens are
// not an error.
func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		return errors.Internal(err)
	}
	return nil
}

// LogoutAll ends every session of the user and returns how many were removed.
func (s *authService) LogoutAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	removed, err := s.sessions.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, errors.Internal(err)
	}
	s.logger.Info("sessions revoked", "user_id", userID, "count", removed)
	return removed, nil
}

// ResolveUser maps a presented token to its user. Expired sessions are
// deleted on the lookup that discovers them.
func (s *authService) ResolveUser(ctx context.Context, token string) (*model.User, error) {
	user, state, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if state != StateAuthenticated {
		s.logger.Debug("session rejected", "state", state.String())
		return nil, errors.ErrUnauthenticated
	}
	return user, nil
}

func (s *authService) resolve(ctx context.Context, token string) (*model.User, SessionState, error) {
	if token == "" {
		return nil, StateNoToken, nil
	}

	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		return nil, StateSessionAbsent, errors.Internal(err)
	}
	if session == nil {
		return nil, StateSessionAbsent, nil
	}

	if session.ExpiredAt(s.now()) {
		if err := s.sessions.DeleteExpired(ctx, session); err != nil {
			s.logger.Warn("delete expired session failed", "session_id", session.ID, "error", err)
		}
		return nil, StateSessionExpired, nil
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, StateUserAbsent, nil
	}
	if err != nil {
		return nil, StateUserAbsent, errors.Internal(err)
	}
	return user, StateAuthenticated, nil
}

// UpdatePassword replaces the user's password after re-checking the old one.
// Existing sessions stay valid.
func (s *authService) UpdatePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, errors.ErrNotFound) {
		return errors.ErrInvalidCredentials
	}
	if err != nil {
		return errors.Internal(err)
	}

	if !s.hasher.Verify(ctx, oldPassword, user.PasswordHash) {
		if err := ctx.Err(); err != nil {
			return errors.Internal(err)
		}
		return errors.ErrInvalidCredentials
	}

	digest, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return errors.Internal(err)
	}
	if err := s.users.UpdateFields(ctx, userID, map[string]any{"password_hash": digest}); err != nil {
		return errors.Internal(err)
	}

	s.logger.Info("password updated", "user_id", userID)
	return nil
}
