package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"pagetags/apperrors"
	"pagetags/auth"
	"pagetags/models"
)

// ErrDuplicateUsername is returned when creating a user whose name is taken.
var ErrDuplicateUsername = apperrors.New(apperrors.CodeAlreadyExists, "username already exists")

type credentials struct {
	Username string `json:"username" validate:"required,max=20"`
	Password string `json:"password" validate:"required"`
}

// CreateUser stores a new user with a bcrypt hash of password and a fresh jti.
func (s *Store) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	in := credentials{Username: strings.TrimSpace(username), Password: password}
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.Internal("hash password", err)
	}

	user := &models.User{
		Username: in.Username,
		Password: hash,
		JTI:      auth.NewJTI(),
	}

	err = s.withTx(ctx, "create user", func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateUsername.WithDetails(map[string]string{"username": in.Username})
		}
		return tx.Create(user).Error
	})
	if apperrors.IsConflict(err) {
		// lost a race with another insert of the same name
		return nil, ErrDuplicateUsername.WithDetails(map[string]string{"username": in.Username})
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// AuthenticateUser returns the user when username and password match and
// nil otherwise. Bad credentials are not an error.
func (s *Store) AuthenticateUser(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.findUser(ctx, "username = ?", username)
	if err != nil || user == nil {
		return nil, err
	}
	if !auth.CheckPasswordHash(password, user.Password) {
		return nil, nil
	}
	return user, nil
}

// AuthenticateJTI returns the user whose id and current jti both match.
func (s *Store) AuthenticateJTI(ctx context.Context, userID uint, jti string) (*models.User, error) {
	if userID == 0 || jti == "" {
		return nil, nil
	}
	return s.findUser(ctx, "id = ? AND jti = ?", userID, jti)
}

func (s *Store) findUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	var user models.User
	err := s.conn(ctx).Where(query, args...).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "load user", nil)
	}
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Take(&user, id).Error; err != nil {
		return nil, translate(err, "user", map[string]uint{"user_id": id})
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, translate(err, "user", map[string]string{"username": username})
	}
	return &user, nil
}

// ListUsers returns every user ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.conn(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, translate(err, "list users", nil)
	}
	return users, nil
}

func (s *Store) DeleteUser(ctx context.Context, username string) error {
	return s.withTx(ctx, "delete user", func(tx *gorm.DB) error {
		result := tx.Where("username = ?", username).Delete(&models.User{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.NotFound("user not found").WithDetails(map[string]string{"username": username})
		}
		return nil
	})
}

// ChangePassword rehashes the password and rotates the jti, which revokes
// every token issued before the change.
func (s *Store) ChangePassword(ctx context.Context, username, password string) (*models.User, error) {
	if err := s.validate.Validate(credentials{Username: username, Password: password}); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.Internal("hash password", err)
	}

	var user models.User
	err = s.withTx(ctx, "change password", func(tx *gorm.DB) error {
		if err := tx.Where("username = ?", username).Take(&user).Error; err != nil {
			return translate(err, "user", map[string]string{"username": username})
		}
		user.Password = hash
		user.JTI = auth.NewJTI()
		return tx.Model(&user).Updates(map[string]any{
			"password": user.Password,
			"jti":      user.JTI,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}
