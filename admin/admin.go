package admin

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"pagetags/apperrors"
	"pagetags/normalize"
	"pagetags/pagination"
	"pagetags/store"
	"pagetags/web"
)

type AdminModule struct {
	store   *store.Store
	perPage int
}

func NewAdminModule(s *store.Store, perPage int) *AdminModule {
	if perPage < 1 {
		perPage = 20
	}
	return &AdminModule{
		store:   s,
		perPage: perPage,
	}
}

func (a *AdminModule) RegisterRoutes(router *gin.Engine) {
	adminGroup := router.Group("/admin")
	adminGroup.Use(web.RequireAuth(a.store))
	{
		adminGroup.GET("", a.dashboard)
		adminGroup.GET("/users", a.listUsers)
		adminGroup.POST("/users/:username/delete", a.deleteUser)
		adminGroup.GET("/tags", a.listTags)
		adminGroup.POST("/tags/:id/rename", a.renameTag)
		adminGroup.POST("/tags/:id/delete", a.deleteTag)
		adminGroup.GET("/categories", a.listCategories)
		adminGroup.POST("/categories/:id/rename", a.renameCategory)
		adminGroup.POST("/categories/:id/delete", a.deleteCategory)
		adminGroup.GET("/urls", a.listURLs)
		adminGroup.POST("/urls/:id/delete", a.deleteURL)
		adminGroup.GET("/posts", a.listPosts)
		adminGroup.GET("/posts/:id", a.editPost)
		adminGroup.POST("/posts/:id", a.updatePost)
		adminGroup.POST("/posts/:id/delete", a.deletePost)
	}
}

func (a *AdminModule) dashboard(c *gin.Context) {
	stats, err := a.store.Stats(c.Request.Context())
	if err != nil {
		a.renderError(c, err)
		return
	}

	a.render(c, "admin_dashboard.html", gin.H{"stats": stats})
}

func (a *AdminModule) listUsers(c *gin.Context) {
	users, err := a.store.ListUsers(c.Request.Context())
	if err != nil {
		a.renderError(c, err)
		return
	}

	a.render(c, "admin_users.html", gin.H{"users": users})
}

func (a *AdminModule) deleteUser(c *gin.Context) {
	username := c.Param("username")
	if current := web.CurrentUser(c); current != nil && current.Username == username {
		a.flashRedirect(c, "/admin/users", "You cannot delete your own account")
		return
	}

	if err := a.store.DeleteUser(c.Request.Context(), username); err != nil {
		a.flashError(c, "/admin/users", err)
		return
	}

	log.Printf("admin %s deleted user %s", web.CurrentUser(c).Username, username)
	a.flashRedirect(c, "/admin/users", "User "+username+" deleted")
}

func (a *AdminModule) listTags(c *gin.Context) {
	params, ok := a.pageParams(c)
	if !ok {
		return
	}

	page, err := a.store.ListTags(c.Request.Context(), params)
	if err != nil {
		a.renderError(c, err)
		return
	}

	a.render(c, "admin_tags.html", gin.H{"tags": page})
}

func (a *AdminModule) renameTag(c *gin.Context) {
	id, ok := a.idParam(c)
	if !ok {
		return
	}

	names := normalize.Tags(c.PostForm("name"))
	if len(names) != 1 {
		a.flashRedirect(c, "/admin/tags", "A tag name is a single word")
		return
	}

	tag, err := a.store.RenameTag(c.Request.Context(), id, names[0])
	if err != nil {
		a.flashError(c, "/admin/tags", err)
		return
	}
	a.flashRedirect(c, "/admin/tags", "Tag renamed to "+tag.Name)
}

func (a *AdminModule) deleteTag(c *gin.Context) {
	id, ok := a.idParam(c)
	if !ok {
		return
	}

	if err := a.store.DeleteTag(c.Request.Context(), id); err != nil {
		a.flashError(c, "/admin/tags", err)
		return
	}
	a.flashRedirect(c, "/admin/tags", "Tag deleted")
}

func (a *AdminModule) listCategories(c *gin.Context) {
	params, ok := a.pageParams(c)
	if !ok {
		return
	}

	page, err := a.store.ListCategories(c.Request.Context(), params)
	if err != nil {
		a.renderError(c, err)
		return
	}

	a.render(c, "admin_categories.html", gin.H{"categories": page})
}

func (a *AdminModule) renameCategory(c *gin.Context) {
	id, ok := a.idParam(c)
	if !ok {
		return
	}

	category, err := a.store.RenameCategory(c.Request.Context(), id, normalize.Title(c.PostForm("name")))
	if err != nil {
		a.flashError(c, "/admin/categories", err)
		return
	}
	a.flashRedirect(c, "/admin/categories", "Category renamed to "+category.Name)
}

func (a *AdminModule) deleteCategory(c *gin.Context) {
	id, ok := a.idParam(c)
	if !ok {
		return
	}

	if err := a.store.DeleteCategory(c.Request.Context(), id); err != nil {
		a.flashError(c, "/admin/categories", err)
		return
	}
	a.flashRedirect(c, "/admin/categories", "Category deleted")
}

func (a *AdminModule) listURLs(c *gin.Context) {
	params, ok := a.pageParams(c)
	if !ok {
		return
	}

	page, err := a.store.ListURLs(c.Request.Context(), params)
	if err != nil {
		a.renderError(c, err)
		return
	}

	a.render(c, "admin_urls.html", gin.H{"urls": page})
}

// deleteURL removes the url and every post pointing at it.
func (a *AdminModule) deleteURL(c *gin.Context) {
	id, ok := a.idParam(c)
	if !ok {
		return
	}

	if err := a.store.DeleteURL(c.Request.Context(), id); err != nil {
		a.flashError(c, "/admin/urls", err)
		return
	}
	a.flashRedirect(c, "/admin/urls", "Url and its posts deleted")
}

func (a *AdminModule) listPosts(c *gin.Context) {
	params, ok := a.pageParams(c)
	if !ok {
		return
	}

	page, err := a.store.LatestPosts(c.Request.Context(), params)
	if err != nil {
		a.renderError(c, err)
		return
	}

	a.render(c, "admin_posts.html", gin.H{"posts": page})
}

func (a *AdminModule) editPost(c *gin.Context) {
	id, ok := a.idParam(c)
	if !ok {
		return
	}

	post, err := a.store.GetPost(c.Request.Context(), id)
	if err != nil {
		a.renderError(c, err)
		return
	}

	a.render(c, "admin_post_edit.html", gin.H{
		"post": post,
		"form": postForm(post.Title, post.URL.URL, joinNames(post.TagNames()), joinNames(post.CategoryNames())),
	})
}

func (a *AdminModule) updatePost(c *gin.Context) {
	id, ok := a.idParam(c)
	if !ok {
		return
	}

	categories := normalize.Categories(c.PostForm("categories"))
	post, err := a.store.UpdatePost(c.Request.Context(), id, store.UpdateInput{
		Title:      c.PostForm("title"),
		URL:        c.PostForm("url"),
		Tags:       normalize.Tags(c.PostForm("tags")),
		Categories: &categories,
	})
	if apperrors.IsValidation(err) {
		a.renderStatus(c, http.StatusBadRequest, "admin_post_edit.html", gin.H{
			"post":   gin.H{"ID": id},
			"form":   postForm(c.PostForm("title"), c.PostForm("url"), c.PostForm("tags"), c.PostForm("categories")),
			"errors": apperrors.From(err).Details,
		})
		return
	}
	if err != nil {
		a.renderError(c, err)
		return
	}

	a.flashRedirect(c, "/admin/posts", "Post "+strconv.FormatUint(uint64(post.ID), 10)+" saved")
}

func (a *AdminModule) deletePost(c *gin.Context) {
	id, ok := a.idParam(c)
	if !ok {
		return
	}

	if err := a.store.DeletePost(c.Request.Context(), id); err != nil {
		a.flashError(c, "/admin/posts", err)
		return
	}
	a.flashRedirect(c, "/admin/posts", "Post deleted")
}

func postForm(title, url, tags, categories string) gin.H {
	return gin.H{
		"title":      title,
		"url":        url,
		"tags":       tags,
		"categories": categories,
	}
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}

func (a *AdminModule) idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		a.renderStatus(c, http.StatusNotFound, "404.html", gin.H{})
		return 0, false
	}
	return uint(id), true
}

func (a *AdminModule) pageParams(c *gin.Context) (pagination.Params, bool) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			a.renderStatus(c, http.StatusNotFound, "404.html", gin.H{})
			return pagination.Params{}, false
		}
		page = n
	}
	return pagination.Params{Page: page, PerPage: a.perPage}, true
}

func (a *AdminModule) render(c *gin.Context, name string, data gin.H) {
	a.renderStatus(c, http.StatusOK, name, data)
}

func (a *AdminModule) renderStatus(c *gin.Context, status int, name string, data gin.H) {
	session := sessions.Default(c)
	if flashes := session.Flashes(); len(flashes) > 0 {
		data["flashes"] = flashes
		session.Save()
	}
	data["user"] = web.CurrentUser(c)
	c.HTML(status, name, data)
}

func (a *AdminModule) renderError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	if appErr.HTTPStatus() >= http.StatusInternalServerError {
		log.Printf("admin %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	if appErr.HTTPStatus() == http.StatusNotFound {
		a.renderStatus(c, http.StatusNotFound, "404.html", gin.H{"error": appErr})
		return
	}
	a.renderStatus(c, appErr.HTTPStatus(), "error.html", gin.H{"error": appErr.Message})
}

func (a *AdminModule) flashRedirect(c *gin.Context, location, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	if err := session.Save(); err != nil {
		log.Printf("failed to save session: %v", err)
	}
	c.Redirect(http.StatusFound, location)
}

// flashError reports err on the next page. Server failures are logged and
// shown generically.
func (a *AdminModule) flashError(c *gin.Context, location string, err error) {
	appErr := apperrors.From(err)
	message := appErr.Message
	if appErr.HTTPStatus() >= http.StatusInternalServerError {
		log.Printf("admin %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		message = "Something went wrong"
	}
	a.flashRedirect(c, location, message)
}
