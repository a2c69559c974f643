package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"contact-reminder/internal/model"
)

// ContactRepository handles CRUD for contacts.
type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Create inserts a contact after checking the (first, last, user) name inside one transaction.
func (r *ContactRepository) Create(ctx context.Context, contact *model.Contact) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Contact{}).
			Where("first_name = ? AND last_name = ? AND user_id = ?", contact.FirstName, contact.LastName, contact.UserID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return gorm.ErrDuplicatedKey
		}
		return tx.Create(contact).Error
	})
	return translate("create contact", err)
}

func (r *ContactRepository) Find(ctx context.Context, userID uint, firstName, lastName string) (*model.Contact, error) {
	var contact model.Contact
	if err := r.db.WithContext(ctx).
		Where("first_name = ? AND last_name = ? AND user_id = ?", firstName, lastName, userID).
		First(&contact).Error; err != nil {
		return nil, translate("find contact", err)
	}
	return &contact, nil
}

// Update rewrites interval and last contact date of the named contact.
func (r *ContactRepository) Update(ctx context.Context, userID uint, firstName, lastName string, intervalDays int, lastContact time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Contact{}).
		Where("first_name = ? AND last_name = ? AND user_id = ?", firstName, lastName, userID).
		Updates(map[string]interface{}{
			"interval_days":     intervalDays,
			"last_contact_date": lastContact,
		})
	if res.Error != nil {
		return translate("update contact", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("update contact", gorm.ErrRecordNotFound)
	}
	return nil
}

// Touch sets only the last contact date.
func (r *ContactRepository) Touch(ctx context.Context, userID, contactID uint, date time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Contact{}).
		Where("id = ? AND user_id = ?", contactID, userID).
		Update("last_contact_date", date)
	if res.Error != nil {
		return translate("touch contact", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("touch contact", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *ContactRepository) ListByUser(ctx context.Context, userID uint) ([]model.Contact, error) {
	var contacts []model.Contact
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&contacts).Error; err != nil {
		return nil, translate("list contacts", err)
	}
	return contacts, nil
}
