package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolregistry/internal/errors"
	"schoolregistry/internal/model"
)

// memoryKV is an in-process stand-in for Redis. TTLs are recorded, not enforced.
type memoryKV struct {
	mu   sync.Mutex
	vals map[string][]byte
	sets map[string]map[string]struct{}
	ttls map[string]time.Duration
	fail error
	// failIndex fails only AddToSet.
	failIndex error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{
		vals: make(map[string][]byte),
		sets: make(map[string]map[string]struct{}),
		ttls: make(map[string]time.Duration),
	}
}

func (m *memoryKV) Fetch(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	return m.vals[key], nil
}

func (m *memoryKV) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return false, m.fail
	}
	if _, ok := m.vals[key]; ok {
		return false, nil
	}
	m.vals[key] = value
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryKV) Remove(ctx context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return 0, m.fail
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.vals[k]; ok {
			delete(m.vals, k)
			n++
		}
		if _, ok := m.sets[k]; ok {
			delete(m.sets, k)
			n++
		}
	}
	return n, nil
}

func (m *memoryKV) AddToSet(ctx context.Context, key, member string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if m.failIndex != nil {
		return m.failIndex
	}
	if m.sets[key] == nil {
		m.sets[key] = make(map[string]struct{})
	}
	m.sets[key][member] = struct{}{}
	return nil
}

func (m *memoryKV) SetMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	members := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		members = append(members, member)
	}
	return members, nil
}

func (m *memoryKV) RemoveFromSet(ctx context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	delete(m.sets[key], member)
	return nil
}

func newTestSession(userID uuid.UUID, token string, now time.Time) *model.Session {
	return &model.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestRedisSessionStore_CreateAndFind(t *testing.T) {
	kv := newMemoryKV()
	store := NewRedisSessionStore(kv)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()
	userID := uuid.New()

	session := newTestSession(userID, "tok-1", now)
	require.NoError(t, store.Create(ctx, session))
	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.Equal(t, time.Hour, kv.ttls["session:tok-1"])

	found, err := store.FindByToken(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, session.ID, found.ID)
	assert.Equal(t, userID, found.UserID)
	assert.True(t, session.ExpiresAt.Equal(found.ExpiresAt))

	missing, err := store.FindByToken(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRedisSessionStore_DuplicateToken(t *testing.T) {
	store := NewRedisSessionStore(newMemoryKV())
	now := time.Now()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newTestSession(uuid.New(), "dup", now)))
	err := store.Create(ctx, newTestSession(uuid.New(), "dup", now))
	assert.ErrorIs(t, err, errors.ErrConflict)
}

func TestRedisSessionStore_DeleteByToken(t *testing.T) {
	kv := newMemoryKV()
	store := NewRedisSessionStore(kv)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, store.Create(ctx, newTestSession(userID, "tok", time.Now())))
	require.NoError(t, store.DeleteByToken(ctx, "tok"))
	require.NoError(t, store.DeleteByToken(ctx, "tok"))
	require.NoError(t, store.DeleteByToken(ctx, "never-existed"))

	found, err := store.FindByToken(ctx, "tok")
	assert.NoError(t, err)
	assert.Nil(t, found)
	assert.Empty(t, kv.sets["user_sessions:"+userID.String()])
}

func TestRedisSessionStore_DeleteByUserID(t *testing.T) {
	store := NewRedisSessionStore(newMemoryKV())
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	now := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Create(ctx, newTestSession(alice, fmt.Sprintf("a%d", i), now)))
	}
	require.NoError(t, store.Create(ctx, newTestSession(bob, "b0", now)))

	removed, err := store.DeleteByUserID(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	for i := 0; i < 3; i++ {
		found, err := store.FindByToken(ctx, fmt.Sprintf("a%d", i))
		assert.NoError(t, err)
		assert.Nil(t, found)
	}
	found, err := store.FindByToken(ctx, "b0")
	assert.NoError(t, err)
	assert.NotNil(t, found)
}

func TestRedisSessionStore_Failures(t *testing.T) {
	kv := newMemoryKV()
	kv.fail = fmt.Errorf("connection refused")
	store := NewRedisSessionStore(kv)
	ctx := context.Background()

	assert.Error(t, store.Create(ctx, newTestSession(uuid.New(), "tok", time.Now())))
	_, err := store.FindByToken(ctx, "tok")
	assert.Error(t, err)
	assert.Error(t, store.DeleteByToken(ctx, "tok"))
}

func TestRedisSessionStore_IndexFailureRemovesSession(t *testing.T) {
	kv := newMemoryKV()
	kv.failIndex = fmt.Errorf("READONLY replica")
	store := NewRedisSessionStore(kv)
	ctx := context.Background()
	userID := uuid.New()

	err := store.Create(ctx, newTestSession(userID, "orphan", time.Now()))
	require.Error(t, err)
	assert.NotErrorIs(t, err, errors.ErrSessionConflict)

	found, err := store.FindByToken(ctx, "orphan")
	require.NoError(t, err)
	assert.Nil(t, found)

	// The token is free again once the index is writable.
	kv.failIndex = nil
	require.NoError(t, store.Create(ctx, newTestSession(userID, "orphan", time.Now())))
	removed, err := store.DeleteByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
