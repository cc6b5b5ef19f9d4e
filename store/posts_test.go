package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagetags/apperrors"
	"pagetags/models"
	"pagetags/pagination"
)

func TestCreatePost_GetPostRoundTrip(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	created, err := s.CreatePost(ctx, PostInput{
		Title:      "  post title ",
		URL:        "http://www.example.com/page_1",
		Tags:       []string{"tag2", "tag1", "tag2"},
		Categories: []string{"Reading"},
	})
	require.NoError(t, err)

	post, err := s.GetPost(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "post title", post.Title)
	assert.Equal(t, "http://www.example.com/page_1", post.URL.URL)
	assert.ElementsMatch(t, []string{"tag1", "tag2"}, post.TagNames())
	assert.Equal(t, []string{"Reading"}, post.CategoryNames())
	assert.False(t, post.AddedAt.IsZero())
}

func TestCreatePost_ReusesURL(t *testing.T) {
	s, db := setupTestStore(t)

	first := mustCreatePost(t, s, "page 1", "http://x/1", "a")
	second := mustCreatePost(t, s, "page 1 again", "http://x/1", "b")

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.URLID, second.URLID)
	assert.Equal(t, int64(1), countRows(t, db, &models.URL{}))
}

func TestCreatePost_ValidationWritesNothing(t *testing.T) {
	tests := []struct {
		name  string
		input PostInput
		field string
	}{
		{"empty title", PostInput{Title: "", URL: "http://x/1"}, "title"},
		{"blank title", PostInput{Title: "   ", URL: "http://x/1"}, "title"},
		{"long title", PostInput{Title: strings.Repeat("t", 257), URL: "http://x/1"}, "title"},
		{"empty url", PostInput{Title: "title", URL: ""}, "url"},
		{"long url", PostInput{Title: "title", URL: "http://x/" + strings.Repeat("u", 1024)}, "url"},
		{"long tag", PostInput{Title: "title", URL: "http://x/1", Tags: []string{"ok", strings.Repeat("g", 101)}}, "tags[1]"},
		{"empty category", PostInput{Title: "title", URL: "http://x/1", Categories: []string{""}}, "categories[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, db := setupTestStore(t)
			input := tt.input
			input.Tags = append(input.Tags, "tag1")

			_, err := s.CreatePost(context.Background(), input)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))

			details, ok := apperrors.From(err).Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.field)

			assert.Zero(t, countRows(t, db, &models.Post{}))
			assert.Zero(t, countRows(t, db, &models.URL{}))
			assert.Zero(t, countRows(t, db, &models.Tag{}))
			assert.Zero(t, countRows(t, db, &models.Category{}))
		})
	}
}

func TestCreatePost_BoundaryLengths(t *testing.T) {
	s, _ := setupTestStore(t)

	url := "http://x/" + strings.Repeat("u", 1024-len("http://x/"))
	post, err := s.CreatePost(context.Background(), PostInput{Title: strings.Repeat("t", 256), URL: url})
	require.NoError(t, err)
	assert.Len(t, post.Title, 256)
	assert.Len(t, post.URL.URL, 1024)
}

func TestSubmitPost_ReplacesTagSet(t *testing.T) {
	s, db := setupTestStore(t)
	ctx := context.Background()

	first, created, err := s.SubmitPost(ctx, PostInput{
		Title:      "page 1",
		URL:        "http://x/1",
		Tags:       []string{"a", "b"},
		Categories: []string{"Later"},
	})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.SubmitPost(ctx, PostInput{
		Title:      "page 1 renamed",
		URL:        "http://x/1",
		Tags:       []string{"c"},
		Categories: []string{"Work"},
	})
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "page 1 renamed", second.Title)
	assert.Equal(t, []string{"c"}, second.TagNames())
	assert.Equal(t, []string{"Work"}, second.CategoryNames())

	assert.Equal(t, int64(1), countRows(t, db, &models.URL{}))
	assert.Equal(t, int64(1), countRows(t, db, &models.Post{}))
	// tags are never removed automatically
	assert.Equal(t, int64(3), countRows(t, db, &models.Tag{}))
}

func TestUpdatePost(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	post, err := s.CreatePost(ctx, PostInput{
		Title:      "page 1",
		URL:        "http://x/1",
		Tags:       []string{"a", "b"},
		Categories: []string{"Reading"},
	})
	require.NoError(t, err)

	updated, err := s.UpdatePost(ctx, post.ID, UpdateInput{
		Title: "page 2",
		URL:   "http://x/2",
		Tags:  []string{"b", "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, "page 2", updated.Title)
	assert.Equal(t, "http://x/2", updated.URL.URL)
	assert.Equal(t, []string{"b", "c"}, updated.TagNames())
	assert.Equal(t, []string{"Reading"}, updated.CategoryNames(), "nil categories are left untouched")

	empty := []string{}
	updated, err = s.UpdatePost(ctx, post.ID, UpdateInput{
		Title:      "page 2",
		URL:        "http://x/2",
		Categories: &empty,
	})
	require.NoError(t, err)
	assert.Empty(t, updated.TagNames())
	assert.Empty(t, updated.CategoryNames())

	_, err = s.UpdatePost(ctx, 9999, UpdateInput{Title: "t", URL: "http://x/3"})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = s.UpdatePost(ctx, post.ID, UpdateInput{Title: "", URL: "http://x/3"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestDeletePost(t *testing.T) {
	s, db := setupTestStore(t)
	ctx := context.Background()

	post := mustCreatePost(t, s, "page 1", "http://x/1", "a")
	require.NoError(t, s.DeletePost(ctx, post.ID))

	_, err := s.GetPost(ctx, post.ID)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, int64(1), countRows(t, db, &models.URL{}))
	assert.Equal(t, int64(1), countRows(t, db, &models.Tag{}))

	err = s.DeletePost(ctx, post.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetPost_NotFoundCarriesKey(t *testing.T) {
	s, _ := setupTestStore(t)

	_, err := s.GetPost(context.Background(), 42)
	require.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, map[string]uint{"post_id": 42}, apperrors.From(err).Details)
}

func TestTagPosts_ExampleScenario(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	p1 := mustCreatePost(t, s, "page1", "http://x/1", "a", "b")
	p2 := mustCreatePost(t, s, "page2", "http://x/2", "a", "c")

	tag, page, err := s.TagPosts(ctx, "a", pagination.Params{Page: 1, PerPage: 1})
	require.NoError(t, err)
	assert.Equal(t, "a", tag.Name)
	require.Len(t, page.Items, 1)
	assert.Equal(t, p2.ID, page.Items[0].ID)
	assert.True(t, page.HasMore)

	_, page, err = s.TagPosts(ctx, "a", pagination.Params{Page: 2, PerPage: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, p1.ID, page.Items[0].ID)
	assert.False(t, page.HasMore)

	_, _, err = s.TagPosts(ctx, "a", pagination.Params{Page: 3, PerPage: 1})
	assert.ErrorIs(t, err, apperrors.ErrPageNotFound)
	assert.Equal(t, map[string]any{"tag": "a", "page": 3}, apperrors.From(err).Details)

	_, _, err = s.TagPosts(ctx, "missing", pagination.Params{Page: 1, PerPage: 1})
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, map[string]string{"tag": "missing"}, apperrors.From(err).Details)
}

func TestPostListings(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	p1, err := s.CreatePost(ctx, PostInput{Title: "one", URL: "http://x/1", Categories: []string{"Reading"}})
	require.NoError(t, err)
	p2, err := s.CreatePost(ctx, PostInput{Title: "two", URL: "http://x/1", Categories: []string{"Reading"}})
	require.NoError(t, err)
	p3 := mustCreatePost(t, s, "three", "http://x/3")

	latest, err := s.LatestPosts(ctx, pagination.Params{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, []uint{p3.ID, p2.ID, p1.ID}, postIDs(latest.Items))

	u, byURL, err := s.URLPosts(ctx, "http://x/1", pagination.Params{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, "http://x/1", u.URL)
	assert.Equal(t, []uint{p2.ID, p1.ID}, postIDs(byURL.Items))

	category, byCategory, err := s.CategoryPosts(ctx, "Reading", pagination.Params{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, "Reading", category.Name)
	assert.Equal(t, []uint{p2.ID, p1.ID}, postIDs(byCategory.Items))

	_, _, err = s.URLPosts(ctx, "http://nowhere", pagination.Params{Page: 1, PerPage: 10})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = s.LatestPosts(ctx, pagination.Params{Page: 1, PerPage: 1000})
	assert.True(t, apperrors.IsValidation(err))
}

func postIDs(posts []models.Post) []uint {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestGetOrCreateTag_StableIdentity(t *testing.T) {
	s, db := setupTestStore(t)
	ctx := context.Background()

	first, err := s.GetOrCreateTag(ctx, "golang")
	require.NoError(t, err)
	second, err := s.GetOrCreateTag(ctx, "golang")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// names are case-sensitive in the store
	upper, err := s.GetOrCreateTag(ctx, "Golang")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, upper.ID)

	var wg sync.WaitGroup
	ids := make([]uint, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tag, err := s.GetOrCreateTag(ctx, "concurrent")
			errs[i] = err
			if err == nil {
				ids[i] = tag.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	var n int64
	require.NoError(t, db.Model(&models.Tag{}).Where("name = ?", "concurrent").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestLatestPosts_HugePageIsNotFound(t *testing.T) {
	s, _ := setupTestStore(t)
	for i := 1; i <= 3; i++ {
		mustCreatePost(t, s, fmt.Sprintf("page%d", i), fmt.Sprintf("http://x/%d", i))
	}

	page, err := s.LatestPosts(context.Background(), pagination.Params{Page: 1<<62 + 1, PerPage: 4})
	assert.Nil(t, page)
	assert.ErrorIs(t, err, apperrors.ErrPageNotFound)
}
