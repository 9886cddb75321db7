package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolregistry/internal/errors"
	"schoolregistry/internal/model"
)

func insertUser(t *testing.T, repo UserRepository, username, email string) *model.User {
	t.Helper()
	user := &model.User{Username: username, Email: email, PasswordHash: "digest", Role: model.RoleViewer}
	require.NoError(t, repo.Insert(context.Background(), user))
	return user
}

func TestUserRepository_Insert(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	alice := insertUser(t, repo, "alice", "alice@x.com")
	assert.NotEqual(t, uuid.Nil, alice.ID)

	tests := []struct {
		name     string
		username string
		email    string
	}{
		{"duplicate username", "alice", "other@x.com"},
		{"duplicate email", "alicia", "alice@x.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Insert(context.Background(), &model.User{Username: tt.username, Email: tt.email, PasswordHash: "digest"})
			assert.ErrorIs(t, err, errors.ErrConflict)
		})
	}
}

func TestUserRepository_FindByIdentifier(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	alice := insertUser(t, repo, "alice", "alice@x.com")
	// bob's username is alice's email.
	bob := insertUser(t, repo, "alice@x.com", "bob@x.com")

	tests := []struct {
		name       string
		identifier string
		want       []uuid.UUID
	}{
		{"username", "alice", []uuid.UUID{alice.ID}},
		{"email", "bob@x.com", []uuid.UUID{bob.ID}},
		{"username or email", "alice@x.com", []uuid.UUID{alice.ID, bob.ID}},
		{"unknown", "carol", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := repo.FindByIdentifier(context.Background(), tt.identifier)
			require.NoError(t, err)
			var ids []uuid.UUID
			for _, u := range users {
				ids = append(ids, u.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestUserRepository_Lookups(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()
	alice := insertUser(t, repo, "alice", "alice@x.com")

	byID, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byEmail, err := repo.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	_, err = repo.FindByUsername(ctx, "mallory")
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
}

func TestUserRepository_UpdateFields(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()
	alice := insertUser(t, repo, "alice", "alice@x.com")
	insertUser(t, repo, "bob", "bob@x.com")

	lastLogin := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateFields(ctx, alice.ID, map[string]any{
		"last_login": lastLogin,
		"role":       model.RoleStaff,
	}))

	got, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, got.Role)
	require.NotNil(t, got.LastLogin)
	assert.True(t, got.LastLogin.Equal(lastLogin))

	err = repo.UpdateFields(ctx, alice.ID, map[string]any{"username": "bob"})
	assert.ErrorIs(t, err, errors.ErrConflict)
}

func TestUserRepository_DeleteAndList(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()
	alice := insertUser(t, repo, "alice", "alice@x.com")
	insertUser(t, repo, "bob", "bob@x.com")

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, repo.DeleteByID(ctx, alice.ID))
	assert.ErrorIs(t, repo.DeleteByID(ctx, alice.ID), errors.ErrUserNotFound)

	users, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)
}
