package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pagetags/models"
	"pagetags/testutils"
)

func setupTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	db := testutils.SetupTestDB(t)
	return New(db, WithBcryptCost(4)), db
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func mustCreatePost(t *testing.T, s *Store, title, url string, tags ...string) *models.Post {
	t.Helper()
	post, err := s.CreatePost(context.Background(), PostInput{Title: title, URL: url, Tags: tags})
	require.NoError(t, err)
	return post
}

func TestStats(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	mustCreatePost(t, s, "page 1", "http://x/1", "a", "b")
	_, err := s.CreateUser(ctx, "user1", "password")
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, &Stats{Users: 1, Tags: 2, Categories: 0, URLs: 1, Posts: 1}, stats)
	require.NoError(t, s.Ping(ctx))
}
