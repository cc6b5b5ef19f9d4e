package store

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"pagetags/models"
	"pagetags/pagination"
)

type urlValue struct {
	URL string `json:"url" validate:"required,max=1024"`
}

// GetOrCreateURL returns the Url row for the exact string url, creating it
// when missing.
func (s *Store) GetOrCreateURL(ctx context.Context, url string) (*models.URL, error) {
	url = strings.TrimSpace(url)
	if err := s.validate.Validate(urlValue{URL: url}); err != nil {
		return nil, err
	}

	var u *models.URL
	err := s.withTx(ctx, "create url", func(tx *gorm.DB) (err error) {
		u, err = getOrCreateURL(tx, url)
		return err
	})
	return u, err
}

func getOrCreateURL(tx *gorm.DB, url string) (*models.URL, error) {
	return getOrCreate(tx, "url", url, func() *models.URL {
		return &models.URL{URL: url}
	})
}

func (s *Store) GetURL(ctx context.Context, url string) (*models.URL, error) {
	var u models.URL
	if err := s.conn(ctx).Where("url = ?", url).Take(&u).Error; err != nil {
		return nil, translate(err, "url", map[string]string{"url": url})
	}
	return &u, nil
}

func (s *Store) GetURLByID(ctx context.Context, id uint) (*models.URL, error) {
	var u models.URL
	if err := s.conn(ctx).Take(&u, id).Error; err != nil {
		return nil, translate(err, "url", map[string]uint{"url_id": id})
	}
	return &u, nil
}

// ListURLs pages through urls, most recently stored first.
func (s *Store) ListURLs(ctx context.Context, params pagination.Params) (*pagination.Page[models.URL], error) {
	return pagination.Paginate[models.URL](s.conn(ctx).Model(&models.URL{}), params, "id DESC", s.maxPerPage)
}

// DeleteURL removes the url together with every post that points at it.
func (s *Store) DeleteURL(ctx context.Context, id uint) error {
	return s.withTx(ctx, "delete url", func(tx *gorm.DB) error {
		var u models.URL
		if err := tx.Take(&u, id).Error; err != nil {
			return translate(err, "url", map[string]uint{"url_id": id})
		}

		postIDs := tx.Model(&models.Post{}).Select("id").Where("url_id = ?", id)
		if err := deletePostRows(tx, postIDs); err != nil {
			return err
		}

		return tx.Delete(&u).Error
	})
}

// deletePostRows removes the posts selected by ids and their join rows.
func deletePostRows(tx *gorm.DB, ids any) error {
	if err := tx.Exec("DELETE FROM post_tags WHERE post_id IN (?)", ids).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id IN (?)", ids).Delete(&models.PostCategory{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN (?)", ids).Delete(&models.Post{}).Error
}
