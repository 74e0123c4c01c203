package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/domain/model"
	"github.com/promptdeck/promptdeck/internal/domain/port/driven"
)

func TestSessionRepo_CreateAndGetByToken(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()

	now := time.Now().UTC()
	err := repo.Create(ctx, model.Session{
		Token:     "tok-abc",
		CreatedAt: now,
		LastUsed:  now,
	}, "ciphertext-blob")
	require.NoError(t, err)

	session, encrypted, err := repo.GetByToken(ctx, "tok-abc")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", session.Token)
	assert.Equal(t, "ciphertext-blob", encrypted)
	assert.WithinDuration(t, now, session.CreatedAt, time.Second)
	assert.WithinDuration(t, now, session.LastUsed, time.Second)
	assert.NotZero(t, session.ID)
}

func TestSessionRepo_GetByToken_Unknown(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)

	_, _, err := repo.GetByToken(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, driven.ErrSessionNotFound)
}

func TestSessionRepo_Create_DuplicateToken(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()

	now := time.Now().UTC()
	session := model.Session{Token: "tok-dup", CreatedAt: now, LastUsed: now}
	require.NoError(t, repo.Create(ctx, session, "blob-one"))

	err := repo.Create(ctx, session, "blob-two")
	assert.Error(t, err, "token is unique and immutable once issued")
}

func TestSessionRepo_TouchLastUsed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()

	created := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, model.Session{
		Token:     "tok-touch",
		CreatedAt: created,
		LastUsed:  created,
	}, "blob"))

	require.NoError(t, repo.TouchLastUsed(ctx, "tok-touch"))

	session, _, err := repo.GetByToken(ctx, "tok-touch")
	require.NoError(t, err)
	assert.True(t, session.LastUsed.After(created), "last_used should move forward")
	assert.WithinDuration(t, created, session.CreatedAt, time.Second, "created_at must not change")
}

func TestSessionRepo_TouchLastUsed_Unknown(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)

	err := repo.TouchLastUsed(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, driven.ErrSessionNotFound)
}
