package repository

import (
	"context"
	"errors"
	"strings"

	"lufeed/internal/models"
	"lufeed/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUID(ctx context.Context, uid string) (*models.User, error)
	UpdateProfile(ctx context.Context, uid, displayName, photoURL string) (*models.User, error)
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]any{"uid": user.UID})
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", email)
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", uid)
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile sets the display name and photo. Empty values leave the field unchanged.
func (r *userRepository) UpdateProfile(ctx context.Context, uid, displayName, photoURL string) (*models.User, error) {
	updates := map[string]any{}
	if displayName != "" {
		updates["display_name"] = displayName
	}
	if photoURL != "" {
		updates["photo_url"] = photoURL
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&models.User{}).Where("uid = ?", uid).Updates(updates)
		if res.Error != nil {
			r.log.LogError(ctx, res.Error, "update_profile")
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, models.NewNotFoundError("User", uid)
		}
		r.log.LogUpdate(ctx, map[string]any{"uid": uid})
	}

	return r.GetByUID(ctx, uid)
}
