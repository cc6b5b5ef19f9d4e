package store

import (
	"context"

	"gorm.io/gorm"

	"pagetags/apperrors"
	"pagetags/models"
	"pagetags/pagination"
)

type tagName struct {
	Name string `json:"name" validate:"required,max=100"`
}

type categoryName struct {
	Name string `json:"name" validate:"required,max=40"`
}

// GetOrCreateTag returns the tag called name, creating it when missing.
// The same name always yields the same identity.
func (s *Store) GetOrCreateTag(ctx context.Context, name string) (*models.Tag, error) {
	if err := s.validate.Validate(tagName{Name: name}); err != nil {
		return nil, err
	}

	var tag *models.Tag
	err := s.withTx(ctx, "create tag", func(tx *gorm.DB) (err error) {
		tag, err = getOrCreateTag(tx, name)
		return err
	})
	return tag, err
}

func getOrCreateTag(tx *gorm.DB, name string) (*models.Tag, error) {
	return getOrCreate(tx, "name", name, func() *models.Tag {
		return &models.Tag{Name: name}
	})
}

func resolveTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range uniqueNames(names) {
		tag, err := getOrCreateTag(tx, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

func (s *Store) GetTagByName(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	if err := s.conn(ctx).Where("name = ?", name).Take(&tag).Error; err != nil {
		return nil, translate(err, "tag", map[string]string{"tag": name})
	}
	return &tag, nil
}

func (s *Store) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.conn(ctx).Take(&tag, id).Error; err != nil {
		return nil, translate(err, "tag", map[string]uint{"tag_id": id})
	}
	return &tag, nil
}

// ListTags pages through tags ordered by name.
func (s *Store) ListTags(ctx context.Context, params pagination.Params) (*pagination.Page[models.Tag], error) {
	return pagination.Paginate[models.Tag](s.conn(ctx).Model(&models.Tag{}), params, "name ASC, id ASC", s.maxPerPage)
}

// AllTags returns every tag ordered by name.
func (s *Store) AllTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.conn(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, translate(err, "list tags", nil)
	}
	return tags, nil
}

func (s *Store) RenameTag(ctx context.Context, id uint, name string) (*models.Tag, error) {
	if err := s.validate.Validate(tagName{Name: name}); err != nil {
		return nil, err
	}

	var tag models.Tag
	err := s.withTx(ctx, "rename tag", func(tx *gorm.DB) error {
		if err := tx.Take(&tag, id).Error; err != nil {
			return translate(err, "tag", map[string]uint{"tag_id": id})
		}
		if err := tx.Model(&tag).Update("name", name).Error; err != nil {
			return translate(err, "tag", map[string]string{"tag": name})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// DeleteTag removes the tag and its post associations. Posts are kept.
func (s *Store) DeleteTag(ctx context.Context, id uint) error {
	return s.withTx(ctx, "delete tag", func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM post_tags WHERE tag_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Tag{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.NotFound("tag not found").WithDetails(map[string]uint{"tag_id": id})
		}
		return nil
	})
}
