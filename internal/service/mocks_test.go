package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"schoolregistry/internal/errors"
	"schoolregistry/internal/model"
	"schoolregistry/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Insert(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByIdentifier(ctx context.Context, identifier string) ([]model.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockUserRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

// MockSessionStore is a mock implementation of auth.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, session *model.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionStore) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockSessionStore) DeleteByToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockSessionStore) DeleteExpired(ctx context.Context, session *model.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionStore) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockSchoolRepository is a mock implementation of SchoolRepository.
type MockSchoolRepository struct {
	mock.Mock
}

func (m *MockSchoolRepository) Create(ctx context.Context, school *model.School) error {
	args := m.Called(ctx, school)
	return args.Error(0)
}

func (m *MockSchoolRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.School, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.School), args.Error(1)
}

func (m *MockSchoolRepository) List(ctx context.Context, filter repository.SchoolFilter) ([]model.School, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.School), args.Error(1)
}

func (m *MockSchoolRepository) Stats(ctx context.Context) (*model.SchoolStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SchoolStats), args.Error(1)
}

func (m *MockSchoolRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockSchoolRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// memoryUsers is an in-memory user directory for scenario tests.
type memoryUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func newMemoryUsers(users ...model.User) *memoryUsers {
	m := &memoryUsers{users: make(map[uuid.UUID]model.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memoryUsers) Insert(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return errors.ErrConflict
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUsers) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	return &u, nil
}

func (m *memoryUsers) find(match func(model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (m *memoryUsers) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.Username == username })
}

func (m *memoryUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.Email == email })
}

func (m *memoryUsers) FindByIdentifier(ctx context.Context, identifier string) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.users {
		if u.Username == identifier || u.Email == identifier {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memoryUsers) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "password_hash":
			u.PasswordHash = v.(string)
		case "last_login":
			t := v.(time.Time)
			u.LastLogin = &t
		case "username":
			u.Username = v.(string)
		case "email":
			u.Email = v.(string)
		case "role":
			u.Role = v.(model.Role)
		}
	}
	m.users[id] = u
	return nil
}

func (m *memoryUsers) DeleteByID(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return errors.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memoryUsers) List(ctx context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

// memorySessions is an in-memory session store for scenario tests.
type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: make(map[string]model.Session)}
}

func (m *memorySessions) Create(ctx context.Context, session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.Token]; ok {
		return errors.ErrSessionConflict
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	m.sessions[session.Token] = *session
	return nil
}

func (m *memorySessions) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memorySessions) DeleteByToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *memorySessions) DeleteExpired(ctx context.Context, session *model.Session) error {
	return m.DeleteByToken(ctx, session.Token)
}

func (m *memorySessions) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for token, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

func (m *memorySessions) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
