// Package web serves the browser interface: paginated post listings by
// recency, tag, category and url, the add url form and the login pages.
package web

import (
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pagetags/apperrors"
	"pagetags/cache"
	"pagetags/config"
	"pagetags/normalize"
	"pagetags/pagination"
	"pagetags/store"
)

type WebModule struct {
	store     *store.Store
	conf      config.PaginationConfig
	pageCache cache.Store
	cacheTTL  time.Duration
}

func NewWebModule(s *store.Store, conf config.PaginationConfig, pageCache cache.Store, cacheTTL time.Duration) *WebModule {
	return &WebModule{
		store:     s,
		conf:      conf,
		pageCache: pageCache,
		cacheTTL:  cacheTTL,
	}
}

func (w *WebModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/login", w.loginPage)
	router.POST("/login", w.loginPost)
	router.GET("/logout", w.logout)

	pages := router.Group("/")
	pages.Use(RequireAuth(w.store), cache.CacheMiddleware(w.pageCache, w.cacheTTL, userPageKey))
	{
		pages.GET("/", w.index)
		pages.GET("/tags", w.tags)
		pages.GET("/tag/:name", w.tag)
		pages.GET("/categories", w.categories)
		pages.GET("/category/:name", w.category)
		pages.GET("/url", w.urlPosts)
		pages.GET("/new", w.newURL)
		pages.POST("/new", w.newURLPost)
	}
}

// userPageKey keys cached pages by user so the layout's user name is never
// served to someone else.
func userPageKey(c *gin.Context) string {
	user := CurrentUser(c)
	if user == nil || c.Request.URL.Path == "/new" {
		return ""
	}
	return cache.Key(strconv.FormatUint(uint64(user.ID), 10), c.Request.URL.RequestURI())
}

func (w *WebModule) index(c *gin.Context) {
	params, ok := w.pageParams(c, w.conf.FrontPageItemCount)
	if !ok {
		return
	}

	page, err := w.store.LatestPosts(c.Request.Context(), params)
	if err != nil {
		w.renderError(c, err)
		return
	}

	w.render(c, "index.html", gin.H{
		"posts": page,
		"links": pageLinks(c, page.PrevPage(), page.NextPage()),
	})
}

func (w *WebModule) tags(c *gin.Context) {
	params, ok := w.pageParams(c, w.conf.TagsPerPage)
	if !ok {
		return
	}

	page, err := w.store.ListTags(c.Request.Context(), params)
	if err != nil {
		w.renderError(c, err)
		return
	}

	w.render(c, "tags.html", gin.H{
		"tags":  page,
		"links": pageLinks(c, page.PrevPage(), page.NextPage()),
	})
}

func (w *WebModule) tag(c *gin.Context) {
	params, ok := w.pageParams(c, w.conf.TagPostsPerPage)
	if !ok {
		return
	}

	tag, page, err := w.store.TagPosts(c.Request.Context(), c.Param("name"), params)
	if err != nil {
		if apperrors.IsNotFound(err) {
			log.Printf("tag %q page %d not found", c.Param("name"), params.Page)
		}
		w.renderError(c, err)
		return
	}

	w.render(c, "tag.html", gin.H{
		"tag":   tag,
		"posts": page,
		"links": pageLinks(c, page.PrevPage(), page.NextPage()),
	})
}

func (w *WebModule) categories(c *gin.Context) {
	params, ok := w.pageParams(c, w.conf.CategoriesPerPage)
	if !ok {
		return
	}

	page, err := w.store.ListCategories(c.Request.Context(), params)
	if err != nil {
		w.renderError(c, err)
		return
	}

	w.render(c, "categories.html", gin.H{
		"categories": page,
		"links":      pageLinks(c, page.PrevPage(), page.NextPage()),
	})
}

func (w *WebModule) category(c *gin.Context) {
	params, ok := w.pageParams(c, w.conf.TagPostsPerPage)
	if !ok {
		return
	}

	category, page, err := w.store.CategoryPosts(c.Request.Context(), c.Param("name"), params)
	if err != nil {
		w.renderError(c, err)
		return
	}

	w.render(c, "category.html", gin.H{
		"category": category,
		"posts":    page,
		"links":    pageLinks(c, page.PrevPage(), page.NextPage()),
	})
}

func (w *WebModule) urlPosts(c *gin.Context) {
	params, ok := w.pageParams(c, w.conf.TagPostsPerPage)
	if !ok {
		return
	}

	u, page, err := w.store.URLPosts(c.Request.Context(), normalize.URL(c.Query("url")), params)
	if err != nil {
		w.renderError(c, err)
		return
	}

	w.render(c, "url.html", gin.H{
		"url":   u,
		"posts": page,
		"links": pageLinks(c, page.PrevPage(), page.NextPage()),
	})
}

func (w *WebModule) newURL(c *gin.Context) {
	w.render(c, "new_url.html", gin.H{
		"form": gin.H{
			"title": c.Query("title"),
			"url":   c.Query("url"),
		},
	})
}

// newURLPost stores the form with SubmitPost, so adding a known url again
// replaces the tags and categories of its latest post.
func (w *WebModule) newURLPost(c *gin.Context) {
	form := gin.H{
		"title":      c.PostForm("title"),
		"url":        c.PostForm("url"),
		"tags":       c.PostForm("tags"),
		"categories": c.PostForm("categories"),
	}

	post, created, err := w.store.SubmitPost(c.Request.Context(), store.PostInput{
		Title:      c.PostForm("title"),
		URL:        c.PostForm("url"),
		Tags:       normalize.Tags(c.PostForm("tags")),
		Categories: normalize.Categories(c.PostForm("categories")),
	})
	if apperrors.IsValidation(err) {
		w.renderStatus(c, http.StatusBadRequest, "new_url.html", gin.H{
			"form":   form,
			"errors": apperrors.From(err).Details,
		})
		return
	}
	if err != nil {
		w.renderError(c, err)
		return
	}

	if created {
		log.Printf("user %d added url %s", CurrentUser(c).ID, post.URL.URL)
	} else {
		log.Printf("user %d updated url %s", CurrentUser(c).ID, post.URL.URL)
	}
	c.Redirect(http.StatusFound, "/")
}

// pageParams reads ?page=, rendering the 404 page for values that are not
// positive integers.
func (w *WebModule) pageParams(c *gin.Context, perPage int) (pagination.Params, bool) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.HTML(http.StatusNotFound, "404.html", gin.H{"user": CurrentUser(c)})
			return pagination.Params{}, false
		}
		page = n
	}
	if perPage < 1 {
		perPage = 10
	}
	return pagination.Params{Page: page, PerPage: perPage}, true
}

// pageLinks builds the Previous and Next hrefs, keeping the other query
// parameters of the current request.
func pageLinks(c *gin.Context, prev, next int) gin.H {
	link := func(n int) string {
		if n == 0 {
			return ""
		}
		q := c.Request.URL.Query()
		q.Set("page", strconv.Itoa(n))
		return (&url.URL{Path: c.Request.URL.Path, RawQuery: q.Encode()}).String()
	}
	return gin.H{"prev": link(prev), "next": link(next)}
}

func (w *WebModule) render(c *gin.Context, name string, data gin.H) {
	w.renderStatus(c, http.StatusOK, name, data)
}

func (w *WebModule) renderStatus(c *gin.Context, status int, name string, data gin.H) {
	data["user"] = CurrentUser(c)
	c.HTML(status, name, data)
}

func (w *WebModule) renderError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	status := appErr.HTTPStatus()

	switch {
	case status == http.StatusNotFound:
		c.HTML(status, "404.html", gin.H{"user": CurrentUser(c), "error": appErr})
	case status >= http.StatusInternalServerError:
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.HTML(status, "error.html", gin.H{"user": CurrentUser(c), "error": "Something went wrong"})
	default:
		c.HTML(status, "error.html", gin.H{"user": CurrentUser(c), "error": appErr.Message})
	}
}
