package pagination

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagetags/apperrors"
	"pagetags/models"
	"pagetags/testutils"
)

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr error
	}{
		{"first page", Params{Page: 1, PerPage: 10}, nil},
		{"max size", Params{Page: 3, PerPage: 100}, nil},
		{"page zero", Params{Page: 0, PerPage: 10}, apperrors.ErrNotFound},
		{"negative page", Params{Page: -1, PerPage: 10}, apperrors.ErrNotFound},
		{"zero size", Params{Page: 1, PerPage: 0}, apperrors.ErrValidation},
		{"size over max", Params{Page: 1, PerPage: 101}, apperrors.ErrValidation},
		{"offset overflows", Params{Page: 1<<62 + 1, PerPage: 4}, apperrors.ErrPageNotFound},
		{"largest page", Params{Page: math.MaxInt, PerPage: 1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate(100)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPaginate_ConcatenatedPagesReproduceOrder(t *testing.T) {
	db := testutils.SetupTestDB(t)
	posts := testutils.CreateTestPosts(t, db, 7)

	var expected []uint
	for i := len(posts) - 1; i >= 0; i-- {
		expected = append(expected, posts[i].ID)
	}

	for _, perPage := range []int{1, 2, 3, 7, 10} {
		var got []uint
		pages := (len(posts) + perPage - 1) / perPage
		for n := 1; n <= pages; n++ {
			page, err := Paginate[models.Post](db.Model(&models.Post{}), Params{Page: n, PerPage: perPage}, PostOrder, 100)
			require.NoError(t, err)
			assert.Equal(t, int64(len(posts)), page.Total)
			assert.Equal(t, n < pages, page.HasMore, "has_more on page %d size %d", n, perPage)
			for _, p := range page.Items {
				got = append(got, p.ID)
			}
		}
		assert.Equal(t, expected, got, "per_page %d", perPage)

		_, err := Paginate[models.Post](db.Model(&models.Post{}), Params{Page: pages + 1, PerPage: perPage}, PostOrder, 100)
		assert.ErrorIs(t, err, apperrors.ErrPageNotFound, "page past the end with per_page %d", perPage)
	}
}

func TestPaginate_TiesBrokenByID(t *testing.T) {
	db := testutils.SetupTestDB(t)
	first := testutils.CreateTestPost(t, db, "first", "http://x/1", testutils.FixedTime)
	second := testutils.CreateTestPost(t, db, "second", "http://x/2", testutils.FixedTime)

	page, err := Paginate[models.Post](db.Model(&models.Post{}), Params{Page: 1, PerPage: 10}, PostOrder, 100)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, second.ID, page.Items[0].ID)
	assert.Equal(t, first.ID, page.Items[1].ID)
}

func TestPaginate_EmptyFirstPage(t *testing.T) {
	db := testutils.SetupTestDB(t)

	page, err := Paginate[models.Post](db.Model(&models.Post{}), Params{Page: 1, PerPage: 10}, PostOrder, 100)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)
	assert.Equal(t, 0, page.NextPage())
	assert.Equal(t, 0, page.PrevPage())

	_, err = Paginate[models.Post](db.Model(&models.Post{}), Params{Page: 2, PerPage: 10}, PostOrder, 100)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMap(t *testing.T) {
	page := &Page[int]{Items: []int{1, 2}, Page: 2, PerPage: 2, Total: 5, HasMore: true}
	mapped := Map(page, func(i int) string { return string(rune('a' + i)) })

	assert.Equal(t, []string{"b", "c"}, mapped.Items)
	assert.Equal(t, 2, mapped.Page)
	assert.Equal(t, 3, mapped.NextPage())
	assert.Equal(t, 1, mapped.PrevPage())
}

func TestPaginate_HugePageNumber(t *testing.T) {
	db := testutils.SetupTestDB(t)
	testutils.CreateTestPosts(t, db, 3)

	for _, params := range []Params{
		{Page: 1<<62 + 1, PerPage: 4},
		{Page: math.MaxInt, PerPage: 1},
		{Page: math.MaxInt, PerPage: 100},
	} {
		page, err := Paginate[models.Post](db.Model(&models.Post{}), params, PostOrder, 100)
		assert.Nil(t, page, "page %d size %d", params.Page, params.PerPage)
		assert.ErrorIs(t, err, apperrors.ErrPageNotFound, "page %d size %d", params.Page, params.PerPage)
	}
}
