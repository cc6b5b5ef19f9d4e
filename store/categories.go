package store

import (
	"context"

	"gorm.io/gorm"

	"pagetags/apperrors"
	"pagetags/models"
	"pagetags/pagination"
)

// CategoryOrder lists the newest categories first.
const CategoryOrder = "created_at DESC, id DESC"

func (s *Store) GetOrCreateCategory(ctx context.Context, name string) (*models.Category, error) {
	if err := s.validate.Validate(categoryName{Name: name}); err != nil {
		return nil, err
	}

	var category *models.Category
	err := s.withTx(ctx, "create category", func(tx *gorm.DB) (err error) {
		category, err = getOrCreateCategory(tx, name)
		return err
	})
	return category, err
}

func getOrCreateCategory(tx *gorm.DB, name string) (*models.Category, error) {
	return getOrCreate(tx, "name", name, func() *models.Category {
		return &models.Category{Name: name}
	})
}

func resolveCategories(tx *gorm.DB, names []string) ([]models.Category, error) {
	categories := make([]models.Category, 0, len(names))
	for _, name := range uniqueNames(names) {
		category, err := getOrCreateCategory(tx, name)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *category)
	}
	return categories, nil
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	if err := s.conn(ctx).Where("name = ?", name).Take(&category).Error; err != nil {
		return nil, translate(err, "category", map[string]string{"category": name})
	}
	return &category, nil
}

func (s *Store) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := s.conn(ctx).Take(&category, id).Error; err != nil {
		return nil, translate(err, "category", map[string]uint{"category_id": id})
	}
	return &category, nil
}

// ListCategories pages through categories, newest first.
func (s *Store) ListCategories(ctx context.Context, params pagination.Params) (*pagination.Page[models.Category], error) {
	return pagination.Paginate[models.Category](s.conn(ctx).Model(&models.Category{}), params, CategoryOrder, s.maxPerPage)
}

// AllCategories returns every category ordered by name.
func (s *Store) AllCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.conn(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, translate(err, "list categories", nil)
	}
	return categories, nil
}

func (s *Store) RenameCategory(ctx context.Context, id uint, name string) (*models.Category, error) {
	if err := s.validate.Validate(categoryName{Name: name}); err != nil {
		return nil, err
	}

	var category models.Category
	err := s.withTx(ctx, "rename category", func(tx *gorm.DB) error {
		if err := tx.Take(&category, id).Error; err != nil {
			return translate(err, "category", map[string]uint{"category_id": id})
		}
		if err := tx.Model(&category).Update("name", name).Error; err != nil {
			return translate(err, "category", map[string]string{"category": name})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategory removes the category and its post associations.
func (s *Store) DeleteCategory(ctx context.Context, id uint) error {
	return s.withTx(ctx, "delete category", func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", id).Delete(&models.PostCategory{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Category{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.NotFound("category not found").WithDetails(map[string]uint{"category_id": id})
		}
		return nil
	})
}
