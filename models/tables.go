package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:20;not null;uniqueIndex" json:"username"`
	Password string `gorm:"size:128;not null" json:"-"` // bcrypt hash, never plaintext
	JTI      string `gorm:"column:jti;size:64;not null" json:"-"`
}

func (User) TableName() string { return "users" }

type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;not null;uniqueIndex" json:"name"`
}

func (Tag) TableName() string { return "tags" }

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:40;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Category) TableName() string { return "categories" }

// URL is a bookmarked address. Deleting it removes every post pointing at it.
type URL struct {
	ID  uint   `gorm:"primaryKey" json:"id"`
	URL string `gorm:"column:url;size:1024;not null;uniqueIndex" json:"url"`
}

func (URL) TableName() string { return "urls" }

type Post struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Title      string     `gorm:"size:256;not null" json:"title"`
	URLID      uint       `gorm:"column:url_id;not null;index" json:"url_id"`
	URL        URL        `gorm:"foreignKey:URLID;constraint:OnDelete:CASCADE" json:"url"`
	AddedAt    time.Time  `gorm:"not null;index" json:"added_at"`
	Tags       []Tag      `gorm:"many2many:post_tags;constraint:OnDelete:CASCADE" json:"tags"`
	Categories []Category `gorm:"many2many:post_categories;constraint:OnDelete:CASCADE" json:"categories"`
}

func (Post) TableName() string { return "posts" }

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.AddedAt.IsZero() {
		p.AddedAt = time.Now().UTC()
	}
	return nil
}

// TagNames returns the names of the post tags in association order.
func (p *Post) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		names = append(names, tag.Name)
	}
	return names
}

func (p *Post) CategoryNames() []string {
	names := make([]string, 0, len(p.Categories))
	for _, category := range p.Categories {
		names = append(names, category.Name)
	}
	return names
}

// PostCategory is the explicit join row between posts and categories.
type PostCategory struct {
	PostID     uint      `gorm:"primaryKey" json:"post_id"`
	CategoryID uint      `gorm:"primaryKey;index" json:"category_id"`
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`
}

func (PostCategory) TableName() string { return "post_categories" }

func (pc *PostCategory) BeforeCreate(tx *gorm.DB) error {
	if pc.AssignedAt.IsZero() {
		pc.AssignedAt = time.Now().UTC()
	}
	return nil
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Tag{},
		&Category{},
		&URL{},
		&Post{},
		&PostCategory{},
	}
}
