package store

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"pagetags/apperrors"
	"pagetags/models"
	"pagetags/normalize"
	"pagetags/pagination"
)

// PostInput is a post as submitted. Tag and category names are stored as
// given apart from exact duplicates collapsing; callers normalize them.
type PostInput struct {
	Title      string   `json:"title" validate:"required,max=256"`
	URL        string   `json:"url" validate:"required,max=1024"`
	Tags       []string `json:"tags" validate:"dive,required,max=100"`
	Categories []string `json:"categories" validate:"dive,required,max=40"`
}

// UpdateInput replaces the fields of an existing post. Categories are left
// untouched when nil.
type UpdateInput struct {
	Title      string
	URL        string
	Tags       []string
	Categories *[]string
}

func (in PostInput) clean() PostInput {
	in.Title = normalize.Title(in.Title)
	in.URL = normalize.URL(in.URL)
	return in
}

// CreatePost validates in, resolves its url, tags and categories and
// stores a new post. Nothing is written when validation fails.
func (s *Store) CreatePost(ctx context.Context, in PostInput) (*models.Post, error) {
	in = in.clean()
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	var post *models.Post
	err := s.withTx(ctx, "create post", func(tx *gorm.DB) (err error) {
		post, err = createPost(tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("added post %d for %s", post.ID, post.URL.URL)
	return post, nil
}

// SubmitPost stores in the way the "add url" form does: when the url has
// posts already, the most recent one takes the new title and its tag and
// category sets are replaced. Otherwise a post is created. The boolean
// reports whether a post was created.
func (s *Store) SubmitPost(ctx context.Context, in PostInput) (*models.Post, bool, error) {
	in = in.clean()
	if err := s.validate.Validate(in); err != nil {
		return nil, false, err
	}

	var (
		post    *models.Post
		created bool
	)
	err := s.withTx(ctx, "submit post", func(tx *gorm.DB) error {
		var existing models.Post
		urlID := tx.Model(&models.URL{}).Select("id").Where("url = ?", in.URL)
		err := tx.Where("url_id = (?)", urlID).
			Order(pagination.PostOrder).
			Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created = true
			post, err = createPost(tx, in)
			return err
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&existing).Update("title", in.Title).Error; err != nil {
			return err
		}
		if err := replaceAssociations(tx, &existing, in.Tags, &in.Categories); err != nil {
			return err
		}
		post, err = loadPost(tx, existing.ID)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		log.Printf("added post %d for %s", post.ID, post.URL.URL)
	} else {
		log.Printf("updated post %d for %s", post.ID, post.URL.URL)
	}
	return post, created, nil
}

// UpdatePost replaces the title, url and tag set of post id, and its
// category set when in.Categories is not nil.
func (s *Store) UpdatePost(ctx context.Context, id uint, in UpdateInput) (*models.Post, error) {
	check := PostInput{Title: in.Title, URL: in.URL, Tags: in.Tags}
	if in.Categories != nil {
		check.Categories = *in.Categories
	}
	check = check.clean()
	if err := s.validate.Validate(check); err != nil {
		return nil, err
	}

	var post *models.Post
	err := s.withTx(ctx, "update post", func(tx *gorm.DB) error {
		var existing models.Post
		if err := tx.Take(&existing, id).Error; err != nil {
			return translate(err, "post", map[string]uint{"post_id": id})
		}

		u, err := getOrCreateURL(tx, check.URL)
		if err != nil {
			return err
		}

		err = tx.Model(&existing).Updates(map[string]any{
			"title":  check.Title,
			"url_id": u.ID,
		}).Error
		if err != nil {
			return err
		}

		var categories *[]string
		if in.Categories != nil {
			categories = &check.Categories
		}
		if err := replaceAssociations(tx, &existing, check.Tags, categories); err != nil {
			return err
		}

		post, err = loadPost(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Store) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return loadPost(s.conn(ctx), id)
}

func (s *Store) DeletePost(ctx context.Context, id uint) error {
	return s.withTx(ctx, "delete post", func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Take(&post, id).Error; err != nil {
			return translate(err, "post", map[string]uint{"post_id": id})
		}
		return deletePostRows(tx, []uint{id})
	})
}

// LatestPosts pages through every post, most recent first.
func (s *Store) LatestPosts(ctx context.Context, params pagination.Params) (*pagination.Page[models.Post], error) {
	return s.paginatePosts(s.conn(ctx).Model(&models.Post{}), params)
}

// TagPosts pages through the posts carrying the tag called name.
func (s *Store) TagPosts(ctx context.Context, name string, params pagination.Params) (*models.Tag, *pagination.Page[models.Post], error) {
	tag, err := s.GetTagByName(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	db := s.conn(ctx)
	ids := db.Table("post_tags").Select("post_id").Where("tag_id = ?", tag.ID)
	page, err := s.paginatePosts(db.Model(&models.Post{}).Where("id IN (?)", ids), params)
	if err != nil {
		return nil, nil, withKey(err, "tag", name)
	}
	return tag, page, nil
}

func (s *Store) CategoryPosts(ctx context.Context, name string, params pagination.Params) (*models.Category, *pagination.Page[models.Post], error) {
	category, err := s.GetCategoryByName(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	db := s.conn(ctx)
	ids := db.Model(&models.PostCategory{}).Select("post_id").Where("category_id = ?", category.ID)
	page, err := s.paginatePosts(db.Model(&models.Post{}).Where("id IN (?)", ids), params)
	if err != nil {
		return nil, nil, withKey(err, "category", name)
	}
	return category, page, nil
}

func (s *Store) URLPosts(ctx context.Context, url string, params pagination.Params) (*models.URL, *pagination.Page[models.Post], error) {
	u, err := s.GetURL(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	page, err := s.paginatePosts(s.conn(ctx).Model(&models.Post{}).Where("url_id = ?", u.ID), params)
	if err != nil {
		return nil, nil, withKey(err, "url", url)
	}
	return u, page, nil
}

func (s *Store) paginatePosts(query *gorm.DB, params pagination.Params) (*pagination.Page[models.Post], error) {
	return pagination.Paginate[models.Post](query, params, pagination.PostOrder, s.maxPerPage, preloadPost)
}

func preloadPost(db *gorm.DB) *gorm.DB {
	return db.
		Preload("URL").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name") }).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("categories.name") })
}

func loadPost(tx *gorm.DB, id uint) (*models.Post, error) {
	var post models.Post
	if err := tx.Scopes(preloadPost).Take(&post, id).Error; err != nil {
		return nil, translate(err, "post", map[string]uint{"post_id": id})
	}
	return &post, nil
}

func createPost(tx *gorm.DB, in PostInput) (*models.Post, error) {
	u, err := getOrCreateURL(tx, in.URL)
	if err != nil {
		return nil, err
	}

	post := &models.Post{Title: in.Title, URLID: u.ID}
	if err := tx.Omit("URL", "Tags", "Categories").Create(post).Error; err != nil {
		return nil, err
	}

	if err := replaceAssociations(tx, post, in.Tags, &in.Categories); err != nil {
		return nil, err
	}

	return loadPost(tx, post.ID)
}

// replaceAssociations sets the tag set of post to exactly tagNames, and its
// category set to categoryNames when that is not nil.
func replaceAssociations(tx *gorm.DB, post *models.Post, tagNames []string, categoryNames *[]string) error {
	tags, err := resolveTags(tx, tagNames)
	if err != nil {
		return err
	}
	if err := replace(tx.Model(post).Association("Tags"), tags); err != nil {
		return err
	}

	if categoryNames == nil {
		return nil
	}
	categories, err := resolveCategories(tx, *categoryNames)
	if err != nil {
		return err
	}
	return replace(tx.Model(post).Association("Categories"), categories)
}

func replace[T any](assoc *gorm.Association, values []T) error {
	if len(values) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(values)
}

// withKey adds the requested key to a page error so callers can report it.
func withKey(err error, key, value string) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Code == apperrors.CodeNotFound {
		details := map[string]any{key: value}
		if d, ok := appErr.Details.(map[string]any); ok {
			for k, v := range d {
				details[k] = v
			}
		}
		return appErr.WithDetails(details)
	}
	return err
}
