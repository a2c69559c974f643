package repository

import (
	"context"

	"gorm.io/gorm"

	"contact-reminder/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new active user. A second row for the same chat fails with ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, chatID int64, reminderTime string) (*model.User, error) {
	user := model.User{
		ChatID:       chatID,
		IsActive:     true,
		ReminderTime: reminderTime,
	}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, translate("create user", err)
	}
	return &user, nil
}

func (r *UserRepository) FindByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&user).Error; err != nil {
		return nil, translate("find user", err)
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, translate("find user", err)
	}
	return &user, nil
}

func (r *UserRepository) SetActive(ctx context.Context, userID uint, active bool) error {
	return r.update(ctx, "set active", userID, "is_active", active)
}

func (r *UserRepository) SetReminderTime(ctx context.Context, userID uint, reminderTime string) error {
	return r.update(ctx, "set reminder time", userID, "reminder_time", reminderTime)
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, translate("list users", err)
	}
	return users, nil
}

func (r *UserRepository) update(ctx context.Context, op string, userID uint, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update(column, value)
	if res.Error != nil {
		return translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return translate(op, gorm.ErrRecordNotFound)
	}
	return nil
}
