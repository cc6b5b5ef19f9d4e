package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pagetags/cache"
	"pagetags/config"
	"pagetags/models"
	"pagetags/pagination"
	"pagetags/store"
	"pagetags/testutils"
	"pagetags/views"
)

type testEnv struct {
	router *gin.Engine
	store  *store.Store
	db     *gorm.DB
	user   *models.User
}

func setupTestRouter(t *testing.T, pageCache cache.Store) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutils.SetupTestDB(t)
	s := store.New(db, store.WithBcryptCost(4))

	router := gin.New()
	router.Use(sessions.Sessions("test-session", cookie.NewStore([]byte("secret"))))
	router.Use(cache.InvalidateMiddleware(pageCache))
	router.SetHTMLTemplate(views.Templates())
	NewWebModule(s, config.Default().Pagination, pageCache, time.Minute).RegisterRoutes(router)

	return &testEnv{
		router: router,
		store:  s,
		db:     db,
		user:   testutils.CreateTestUser(t, db, testutils.WithUsername("user1")),
	}
}

func (e *testEnv) request(method, path string, form url.Values, cookie string) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// login returns the session cookie of user1.
func (e *testEnv) login(t *testing.T) string {
	t.Helper()

	w := e.request("POST", "/login", url.Values{
		"username": {"user1"},
		"password": {testutils.TestPassword},
	}, "")
	require.Equal(t, http.StatusFound, w.Code)

	cookie := w.Header().Get("Set-Cookie")
	require.NotEmpty(t, cookie)
	return strings.Split(cookie, ";")[0]
}

func TestRequireAuth_Redirects(t *testing.T) {
	env := setupTestRouter(t, nil)

	for _, path := range []string{"/", "/tags", "/tag/a", "/categories", "/new"} {
		w := env.request("GET", path, nil, "")
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/login", w.Header().Get("Location"), path)
	}
}

func TestLogin(t *testing.T) {
	env := setupTestRouter(t, nil)

	w := env.request("POST", "/login", url.Values{
		"username": {"user1"},
		"password": {"wrong"},
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")

	w = env.request("POST", "/login?next=//evil.example.com", url.Values{
		"username": {"user1"},
		"password": {testutils.TestPassword},
	}, "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = env.request("POST", "/login?next=/tags", url.Values{
		"username": {"user1"},
		"password": {testutils.TestPassword},
	}, "")
	assert.Equal(t, "/tags", w.Header().Get("Location"))

	cookie := env.login(t)
	w = env.request("GET", "/login", nil, cookie)
	assert.Equal(t, http.StatusFound, w.Code, "logged in users skip the form")

	w = env.request("GET", "/logout", nil, cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	cookie = strings.Split(w.Header().Get("Set-Cookie"), ";")[0]

	w = env.request("GET", "/", nil, cookie)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestRequireAuth_DeletedUser(t *testing.T) {
	env := setupTestRouter(t, nil)
	cookie := env.login(t)

	require.NoError(t, env.store.DeleteUser(context.Background(), "user1"))

	w := env.request("GET", "/", nil, cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestIndex_Pagination(t *testing.T) {
	env := setupTestRouter(t, nil)
	testutils.CreateTestPosts(t, env.db, 12, "news")
	cookie := env.login(t)

	w := env.request("GET", "/", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "page 12")
	assert.Contains(t, body, "page 3")
	assert.NotContains(t, body, ">page 2<")
	assert.Contains(t, body, `href="/?page=2"`)
	assert.NotContains(t, body, "Previous")
	assert.Contains(t, body, "user1")

	w = env.request("GET", "/?page=2", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	body = w.Body.String()
	assert.Contains(t, body, ">page 2<")
	assert.Contains(t, body, ">page 1<")
	assert.Contains(t, body, `href="/?page=1"`)
	assert.NotContains(t, body, "Next")

	for _, page := range []string{"3", "0", "abc"} {
		w = env.request("GET", "/?page="+page, nil, cookie)
		assert.Equal(t, http.StatusNotFound, w.Code, page)
	}
}

func TestIndex_Empty(t *testing.T) {
	env := setupTestRouter(t, nil)
	cookie := env.login(t)

	w := env.request("GET", "/", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No posts yet.")
}

func TestTagAndCategoryPages(t *testing.T) {
	env := setupTestRouter(t, nil)
	ctx := context.Background()
	cookie := env.login(t)

	_, err := env.store.CreatePost(ctx, store.PostInput{
		Title:      "tagged post",
		URL:        "http://www.example.com/tagged",
		Tags:       []string{"go"},
		Categories: []string{"Work"},
	})
	require.NoError(t, err)

	w := env.request("GET", "/tag/go", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tagged post")

	w = env.request("GET", "/tag/unknown", nil, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.request("GET", "/tags", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/tag/go")

	w = env.request("GET", "/category/Work", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tagged post")

	w = env.request("GET", "/categories", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Work")

	w = env.request("GET", "/url?url="+url.QueryEscape("HTTP://WWW.EXAMPLE.COM/tagged"), nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tagged post")

	w = env.request("GET", "/url?url=http://unknown", nil, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewURL(t *testing.T) {
	env := setupTestRouter(t, nil)
	ctx := context.Background()
	cookie := env.login(t)

	w := env.request("GET", "/new?url=http://www.example.com/x", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http://www.example.com/x")

	w = env.request("POST", "/new", url.Values{
		"title":      {"first"},
		"url":        {"http://www.example.com/x"},
		"tags":       {"Go, Web"},
		"categories": {"Later"},
	}, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = env.request("POST", "/new", url.Values{
		"title": {"second"},
		"url":   {"http://www.example.com/x"},
		"tags":  {"rust"},
	}, cookie)
	require.Equal(t, http.StatusFound, w.Code)

	_, page, err := env.store.URLPosts(ctx, "http://www.example.com/x", pagination.Params{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1, "adding a known url updates its latest post")
	assert.Equal(t, "second", page.Items[0].Title)
	assert.Equal(t, []string{"rust"}, page.Items[0].TagNames())
	assert.Empty(t, page.Items[0].CategoryNames())
}

func TestNewURL_Validation(t *testing.T) {
	env := setupTestRouter(t, nil)
	cookie := env.login(t)

	w := env.request("POST", "/new", url.Values{
		"title": {"no url"},
		"url":   {""},
	}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no url")

	stats, err := env.store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Posts)
}

func TestPageCache(t *testing.T) {
	pageCache, err := cache.NewFileStore(t.TempDir())
	require.NoError(t, err)
	env := setupTestRouter(t, pageCache)
	cookie := env.login(t)

	w := env.request("GET", "/", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = env.request("GET", "/", nil, cookie)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	w = env.request("POST", "/new", url.Values{
		"title": {"fresh"},
		"url":   {"http://www.example.com/fresh"},
	}, cookie)
	require.Equal(t, http.StatusFound, w.Code)

	w = env.request("GET", "/", nil, cookie)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), "fresh")
}
