package api

import (
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pagetags/apperrors"
	"pagetags/models"
	"pagetags/pagination"
)

// PostResponse is the JSON shape of a post. Tags and categories are sorted.
type PostResponse struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Tags       []string  `json:"tags"`
	Categories []string  `json:"categories"`
	AddedAt    time.Time `json:"added_at"`
}

type PageResponse struct {
	Items   []PostResponse `json:"items"`
	HasMore bool           `json:"has_more"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}

func toPostResponse(post models.Post) PostResponse {
	tags := post.TagNames()
	sort.Strings(tags)
	categories := post.CategoryNames()
	sort.Strings(categories)

	return PostResponse{
		ID:         post.ID,
		Title:      post.Title,
		URL:        post.URL.URL,
		Tags:       tags,
		Categories: categories,
		AddedAt:    post.AddedAt.UTC(),
	}
}

func toPageResponse(page *pagination.Page[models.Post]) PageResponse {
	mapped := pagination.Map(page, toPostResponse)
	return PageResponse{
		Items:   mapped.Items,
		HasMore: mapped.HasMore,
		Page:    mapped.Page,
		PerPage: mapped.PerPage,
	}
}

// writeError responds with the typed error. Server side failures are
// logged with their cause and reported without it.
func writeError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	status := appErr.HTTPStatus()

	if status >= http.StatusInternalServerError {
		log.Printf("api %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, apperrors.New(appErr.Code, "internal server error"))
		return
	}
	c.JSON(status, appErr)
}

// pageParams reads ?page= and ?per_page=. Non-numeric values are
// validation errors; range checks happen in the store.
func pageParams(c *gin.Context, defaultPerPage int) (pagination.Params, error) {
	params := pagination.Params{Page: 1, PerPage: defaultPerPage}
	if params.PerPage < 1 {
		params.PerPage = 10
	}

	for _, p := range []struct {
		name string
		dest *int
	}{
		{"page", &params.Page},
		{"per_page", &params.PerPage},
	} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return params, apperrors.ValidationWithDetails("invalid query parameter", map[string]string{
				p.name: "must be an integer",
			})
		}
		*p.dest = n
	}

	return params, nil
}

func idParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NotFound("post not found").WithDetails(map[string]string{"post_id": c.Param("id")})
	}
	return uint(id), nil
}
