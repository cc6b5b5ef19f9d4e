// Package pagination slices ordered gorm queries into numbered pages.
package pagination

import (
	"fmt"
	"math"

	"gorm.io/gorm"

	"pagetags/apperrors"
)

// DefaultMaxPerPage caps per_page when no limit is configured.
const DefaultMaxPerPage = 100

// PostOrder is the order shared by every post listing. The id breaks ties
// between posts added within the same instant.
const PostOrder = "added_at DESC, id DESC"

// Params selects a 1-indexed page.
type Params struct {
	Page    int
	PerPage int
}

// Page is one slice of an ordered result.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

// Validate checks p against the configured per_page limit.
func (p Params) Validate(maxPerPage int) error {
	if maxPerPage < 1 {
		maxPerPage = DefaultMaxPerPage
	}
	if p.Page < 1 {
		return apperrors.ErrPageNotFound.WithDetails(map[string]any{"page": p.Page})
	}
	if p.PerPage < 1 || p.PerPage > maxPerPage {
		return apperrors.ValidationWithDetails("invalid page size", map[string]string{
			"per_page": fmt.Sprintf("must be between 1 and %d", maxPerPage),
		})
	}
	// the offset must fit in an int
	if p.Page-1 > math.MaxInt/p.PerPage {
		return apperrors.ErrPageNotFound.WithDetails(map[string]any{"page": p.Page})
	}
	return nil
}

// Offset is the index of the first item on the page. Only valid after
// Validate succeeded.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Paginate counts query, then loads the requested slice in the given order.
// Scopes such as preloads apply to the slice query only.
//
// Page 1 of an empty result is an empty page. Any later page starting at or
// past the end fails with apperrors.ErrPageNotFound.
func Paginate[T any](query *gorm.DB, params Params, order string, maxPerPage int, scopes ...func(*gorm.DB) *gorm.DB) (*Page[T], error) {
	if err := params.Validate(maxPerPage); err != nil {
		return nil, err
	}

	base := query.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, apperrors.Persistence("count page", err)
	}

	offset := params.Offset()
	if params.Page > 1 && int64(offset) >= total {
		return nil, apperrors.ErrPageNotFound.WithDetails(map[string]any{"page": params.Page})
	}

	items := make([]T, 0, params.PerPage)
	if total > 0 {
		if err := base.Scopes(scopes...).Order(order).Offset(offset).Limit(params.PerPage).Find(&items).Error; err != nil {
			return nil, apperrors.Persistence("load page", err)
		}
	}

	return &Page[T]{
		Items:   items,
		Page:    params.Page,
		PerPage: params.PerPage,
		Total:   total,
		HasMore: int64(offset)+int64(params.PerPage) < total,
	}, nil
}

// Map converts the items of a page, keeping its position.
func Map[T, U any](page *Page[T], fn func(T) U) *Page[U] {
	items := make([]U, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, fn(item))
	}
	return &Page[U]{
		Items:   items,
		Page:    page.Page,
		PerPage: page.PerPage,
		Total:   page.Total,
		HasMore: page.HasMore,
	}
}

// PrevPage and NextPage return 0 when there is no such page.
func (p *Page[T]) PrevPage() int {
	if p.Page > 1 {
		return p.Page - 1
	}
	return 0
}

func (p *Page[T]) NextPage() int {
	if p.HasMore {
		return p.Page + 1
	}
	return 0
}
