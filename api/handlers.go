package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"pagetags/apperrors"
	"pagetags/models"
	"pagetags/normalize"
	"pagetags/store"
)

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type postRequest struct {
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Tags       []string  `json:"tags"`
	Categories *[]string `json:"categories"`
}

func (r postRequest) categories() []string {
	if r.Categories == nil {
		return nil
	}
	return normalize.CategoryList(*r.Categories)
}

// bindJSON decodes the request body, reporting malformed input as a
// validation error.
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		writeError(c, apperrors.ValidationWithDetails("invalid request body", map[string]string{
			"body": err.Error(),
		}))
		return false
	}
	return true
}

func (a *APIModule) authenticate(c *gin.Context) {
	var req authRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := a.store.AuthenticateUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	if user == nil {
		log.Printf("failed api authentication for user %q", req.Username)
		writeError(c, apperrors.New(apperrors.CodeInvalidCredentials, "invalid username or password"))
		return
	}

	token, err := a.issuer.Issue(user.ID, user.JTI)
	if err != nil {
		writeError(c, apperrors.Internal("sign token", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token})
}

func (a *APIModule) listTags(c *gin.Context) {
	tags, err := a.store.AllTags(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	c.JSON(http.StatusOK, gin.H{"tags": names})
}

func (a *APIModule) tagPosts(c *gin.Context) {
	params, err := pageParams(c, a.conf.TagPostsPerPage)
	if err != nil {
		writeError(c, err)
		return
	}

	tag, page, err := a.store.TagPosts(c.Request.Context(), c.Param("tag"), params)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tag_id":   tag.ID,
		"tag":      tag.Name,
		"items":    toPageResponse(page).Items,
		"has_more": page.HasMore,
		"page":     page.Page,
		"per_page": page.PerPage,
	})
}

func (a *APIModule) listCategories(c *gin.Context) {
	categories, err := a.store.AllCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	names := make([]string, 0, len(categories))
	for _, category := range categories {
		names = append(names, category.Name)
	}
	c.JSON(http.StatusOK, gin.H{"categories": names})
}

func (a *APIModule) categoryPosts(c *gin.Context) {
	params, err := pageParams(c, a.conf.TagPostsPerPage)
	if err != nil {
		writeError(c, err)
		return
	}

	category, page, err := a.store.CategoryPosts(c.Request.Context(), c.Param("category"), params)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category_id": category.ID,
		"category":    category.Name,
		"items":       toPageResponse(page).Items,
		"has_more":    page.HasMore,
		"page":        page.Page,
		"per_page":    page.PerPage,
	})
}

func (a *APIModule) urlPosts(c *gin.Context) {
	params, err := pageParams(c, a.conf.TagPostsPerPage)
	if err != nil {
		writeError(c, err)
		return
	}

	raw := normalize.URL(c.Query("url"))
	if raw == "" {
		writeError(c, apperrors.ValidationWithDetails("validation failed", map[string]string{"url": "is required"}))
		return
	}

	u, page, err := a.store.URLPosts(c.Request.Context(), raw, params)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url_id":   u.ID,
		"url":      u.URL,
		"items":    toPageResponse(page).Items,
		"has_more": page.HasMore,
		"page":     page.Page,
		"per_page": page.PerPage,
	})
}

func (a *APIModule) listPosts(c *gin.Context) {
	params, err := pageParams(c, a.conf.FrontPageItemCount)
	if err != nil {
		writeError(c, err)
		return
	}

	page, err := a.store.LatestPosts(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPageResponse(page))
}

func (a *APIModule) createPost(c *gin.Context) {
	var req postRequest
	if !bindJSON(c, &req) {
		return
	}

	post, err := a.store.CreatePost(c.Request.Context(), store.PostInput{
		Title:      req.Title,
		URL:        req.URL,
		Tags:       normalize.TagList(req.Tags),
		Categories: req.categories(),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": post.ID})
}

func (a *APIModule) getPost(c *gin.Context) {
	post, ok := a.loadPost(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toPostResponse(*post))
}

func (a *APIModule) updatePost(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var req postRequest
	if !bindJSON(c, &req) {
		return
	}

	in := store.UpdateInput{
		Title: req.Title,
		URL:   req.URL,
		Tags:  normalize.TagList(req.Tags),
	}
	if req.Categories != nil {
		categories := req.categories()
		in.Categories = &categories
	}

	post, err := a.store.UpdatePost(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPostResponse(*post))
}

func (a *APIModule) deletePost(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := a.store.DeletePost(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *APIModule) loadPost(c *gin.Context) (*models.Post, bool) {
	id, err := idParam(c)
	if err != nil {
		writeError(c, err)
		return nil, false
	}

	post, err := a.store.GetPost(c.Request.Context(), id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			log.Printf("post %d not found", id)
		}
		writeError(c, err)
		return nil, false
	}
	return post, true
}
