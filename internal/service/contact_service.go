package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"contact-reminder/internal/keylock"
	"contact-reminder/internal/model"
	"contact-reminder/internal/repository"
)

// ContactService exposes typed user and contact operations over the repositories.
// Writes for one user are serialized.
type ContactService struct {
	users    *repository.UserRepository
	contacts *repository.ContactRepository
	locks    *keylock.Map[uint]
}

func NewContactService(users *repository.UserRepository, contacts *repository.ContactRepository) *ContactService {
	return &ContactService{users: users, contacts: contacts, locks: keylock.New[uint]()}
}

func (s *ContactService) FindUserByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	user, err := s.users.FindByChatID(ctx, chatID)
	if err != nil {
		return nil, mapErr("find user", err, ErrNotRegistered)
	}
	return user, nil
}

func (s *ContactService) FindUserByID(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, mapErr("find user", err, ErrNotRegistered)
	}
	return user, nil
}

// InsertUser registers a chat as an active user.
func (s *ContactService) InsertUser(ctx context.Context, chatID int64, at ReminderTime) (*model.User, error) {
	user, err := s.users.Create(ctx, chatID, at.String())
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyRegistered
		}
		return nil, &StoreError{Op: "insert user", Err: err}
	}
	return user, nil
}

func (s *ContactService) SetActive(ctx context.Context, userID uint, active bool) error {
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return mapErr("set active", err, ErrNotRegistered)
	}
	return nil
}

func (s *ContactService) SetReminderTime(ctx context.Context, userID uint, at ReminderTime) error {
	if err := s.users.SetReminderTime(ctx, userID, at.String()); err != nil {
		return mapErr("set reminder time", err, ErrNotRegistered)
	}
	return nil
}

func (s *ContactService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list users", Err: err}
	}
	return users, nil
}

func (s *ContactService) FindContact(ctx context.Context, userID uint, firstName, lastName string) (*model.Contact, error) {
	contact, err := s.contacts.Find(ctx, userID, firstName, lastName)
	if err != nil {
		return nil, mapErr("find contact", err, ErrContactNotFound)
	}
	return contact, nil
}

// FindContactByName resolves a displayed name such as "Mary Ann Smith" against the
// user's contacts. Exact matches win over case-insensitive ones.
func (s *ContactService) FindContactByName(ctx context.Context, userID uint, name string) (*model.Contact, error) {
	wanted := normalizeName(name)
	if wanted == "" {
		return nil, ErrContactNotFound
	}
	contacts, err := s.ListContacts(ctx, userID)
	if err != nil {
		return nil, err
	}
	var folded *model.Contact
	for i := range contacts {
		display := normalizeName(contacts[i].DisplayName())
		if display == wanted {
			return &contacts[i], nil
		}
		if folded == nil && strings.EqualFold(display, wanted) {
			folded = &contacts[i]
		}
	}
	if folded != nil {
		return folded, nil
	}
	return nil, ErrContactNotFound
}

// InsertContact adds a contact unless the user already has one with the same name.
// Names that split differently but display the same ("Ann Lee" "Smith" and
// "Ann" "Lee Smith") count as the same name.
func (s *ContactService) InsertContact(ctx context.Context, userID uint, firstName, lastName string, intervalDays int, lastContact time.Time) (*model.Contact, error) {
	if intervalDays < 1 {
		return nil, &ValidationError{Input: "interval", Err: ErrInvalidFrequency}
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	contact := &model.Contact{
		UserID:          userID,
		FirstName:       strings.TrimSpace(firstName),
		LastName:        strings.TrimSpace(lastName),
		IntervalDays:    intervalDays,
		LastContactDate: DateOf(lastContact),
	}

	existing, err := s.ListContacts(ctx, userID)
	if err != nil {
		return nil, err
	}
	display := normalizeName(contact.DisplayName())
	for _, c := range existing {
		if normalizeName(c.DisplayName()) == display {
			return nil, ErrDuplicateContact
		}
	}

	if err := s.contacts.Create(ctx, contact); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateContact
		}
		return nil, &StoreError{Op: "insert contact", Err: err}
	}
	return contact, nil
}

// UpdateContact rewrites interval and last contact date of an existing contact.
func (s *ContactService) UpdateContact(ctx context.Context, userID uint, firstName, lastName string, intervalDays int, lastContact time.Time) error {
	if intervalDays < 1 {
		return &ValidationError{Input: "interval", Err: ErrInvalidFrequency}
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.contacts.Update(ctx, userID, firstName, lastName, intervalDays, DateOf(lastContact)); err != nil {
		return mapErr("update contact", err, ErrContactNotFound)
	}
	return nil
}

// TouchContact records a contact on the given date.
func (s *ContactService) TouchContact(ctx context.Context, userID, contactID uint, date time.Time) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.contacts.Touch(ctx, userID, contactID, DateOf(date)); err != nil {
		return mapErr("touch contact", err, ErrContactNotFound)
	}
	return nil
}

func (s *ContactService) ListContacts(ctx context.Context, userID uint) ([]model.Contact, error) {
	contacts, err := s.contacts.ListByUser(ctx, userID)
	if err != nil {
		return nil, &StoreError{Op: "list contacts", Err: err}
	}
	return contacts, nil
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// mapErr turns repository.ErrNotFound into notFound and anything else into a StoreError.
func mapErr(op string, err, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return &StoreError{Op: op, Err: err}
}
