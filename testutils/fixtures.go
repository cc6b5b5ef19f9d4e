package testutils

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"pagetags/models"
)

// TestPassword is the plaintext password of users made by CreateTestUser.
const TestPassword = "password"

// CreateTestUser inserts a user with a unique name and TestPassword.
func CreateTestUser(t *testing.T, db *gorm.DB, opts ...UserOption) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		Username: "user_" + uuid.NewString()[:8],
		Password: string(hash),
		JTI:      uuid.NewString(),
	}
	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

type UserOption func(*models.User)

func WithUsername(username string) UserOption {
	return func(u *models.User) {
		u.Username = username
	}
}

// CreateTestPost inserts a post directly, bypassing the store, with the
// given tags created on demand.
func CreateTestPost(t *testing.T, db *gorm.DB, title, url string, addedAt time.Time, tags ...string) *models.Post {
	t.Helper()

	u := models.URL{URL: url}
	if err := db.Where(models.URL{URL: url}).FirstOrCreate(&u).Error; err != nil {
		t.Fatalf("Failed to create url %s: %v", url, err)
	}

	post := &models.Post{Title: title, URLID: u.ID, AddedAt: addedAt.UTC()}
	for _, name := range tags {
		tag := models.Tag{Name: name}
		if err := db.Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			t.Fatalf("Failed to create tag %s: %v", name, err)
		}
		post.Tags = append(post.Tags, tag)
	}

	if err := db.Create(post).Error; err != nil {
		t.Fatalf("Failed to create post %s: %v", title, err)
	}
	return post
}

// CreateTestPosts inserts n posts one minute apart, oldest first.
func CreateTestPosts(t *testing.T, db *gorm.DB, n int, tags ...string) []*models.Post {
	t.Helper()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := make([]*models.Post, 0, n)
	for i := 1; i <= n; i++ {
		posts = append(posts, CreateTestPost(t, db,
			fmt.Sprintf("page %d", i),
			fmt.Sprintf("http://www.example.com/page_%d", i),
			start.Add(time.Duration(i)*time.Minute),
			tags...,
		))
	}
	return posts
}

// FixedTime is a stable timestamp for posts whose order must tie.
var FixedTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
