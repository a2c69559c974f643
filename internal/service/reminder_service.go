package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"

	"contact-reminder/internal/messenger"
	"contact-reminder/internal/model"
)

const (
	ackPrefix = "I contacted "
	ackSuffix = " today!"

	// DismissText is the last button of every reminder keyboard.
	DismissText = "Nope, that's it for today"
)

// AckLabel is the keyboard button that acknowledges a contact.
func AckLabel(c model.Contact) string {
	return ackPrefix + c.DisplayName() + ackSuffix
}

// ParseAcknowledgement extracts the contact name from an AckLabel text.
func ParseAcknowledgement(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, ackPrefix) || !strings.HasSuffix(text, ackSuffix) {
		return "", false
	}
	name := strings.TrimSpace(text[len(ackPrefix) : len(text)-len(ackSuffix)])
	if name == "" {
		return "", false
	}
	return name, true
}

// IsAcknowledgement reports whether text looks like an AckLabel.
func IsAcknowledgement(text string) bool {
	_, ok := ParseAcknowledgement(text)
	return ok
}

// DueKeyboard lists one acknowledgement button per due contact plus the dismiss button.
func DueKeyboard(due []model.Contact) *messenger.Keyboard {
	labels := make([]string, 0, len(due)+1)
	for _, c := range due {
		labels = append(labels, AckLabel(c))
	}
	labels = append(labels, DismissText)
	return messenger.Column(labels...)
}

// ReminderService sends due-contact reminders and handles the replies to them.
type ReminderService struct {
	contacts *ContactService
	sender   messenger.Messenger
	loc      *time.Location
	log      *zap.Logger
	now      func() time.Time
}

func NewReminderService(contacts *ContactService, sender messenger.Messenger, loc *time.Location, log *zap.Logger) *ReminderService {
	return &ReminderService{
		contacts: contacts,
		sender:   sender,
		loc:      loc,
		log:      log,
		now:      time.Now,
	}
}

// Today returns the current calendar date in the configured zone.
func (s *ReminderService) Today() time.Time {
	return DateOf(s.now().In(s.loc))
}

// Fire sends the list of due contacts to the user. Nothing is sent when no contact is due.
func (s *ReminderService) Fire(ctx context.Context, userID uint) error {
	user, err := s.contacts.FindUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("fire reminder: %w", err)
	}
	list, err := s.contacts.ListContacts(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("fire reminder: %w", err)
	}

	due := DueContacts(list, s.Today())
	if len(due) == 0 {
		s.log.Debug("no contacts due", zap.Uint("user_id", user.ID))
		return nil
	}

	if err := s.sender.SendMessage(ctx, user.ChatID, dueSummary(due), DueKeyboard(due)); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	s.log.Info("reminder sent", zap.Uint("user_id", user.ID), zap.Int64("chat_id", user.ChatID), zap.Int("due", len(due)))
	return nil
}

// Acknowledge marks the contact named in text as contacted today and offers the
// remaining due contacts again.
func (s *ReminderService) Acknowledge(ctx context.Context, chatID int64, text string) error {
	name, ok := ParseAcknowledgement(text)
	if !ok {
		return fmt.Errorf("not an acknowledgement: %q", text)
	}

	user, err := s.contacts.FindUserByChatID(ctx, chatID)
	if err != nil {
		return err
	}

	contact, err := s.contacts.FindContactByName(ctx, user.ID, name)
	if errors.Is(err, ErrContactNotFound) {
		s.log.Warn("acknowledged contact is missing", zap.Int64("chat_id", chatID), zap.String("name", name))
		msg := fmt.Sprintf("Unfortunately there is no contact named <b>%s</b> in your list. "+
			"Your contact list may be out of sync, please check it with /printcontacts.", html.EscapeString(name))
		return s.sender.SendMessage(ctx, chatID, msg, nil)
	}
	if err != nil {
		return err
	}

	today := s.Today()
	if err := s.contacts.TouchContact(ctx, user.ID, contact.ID, today); err != nil {
		return err
	}

	list, err := s.contacts.ListContacts(ctx, user.ID)
	if err != nil {
		return err
	}
	due := DueContacts(list, today)

	msg := fmt.Sprintf("Cool. You contacted <b>%s</b>. Great that you stay in touch! "+
		"I will let you know when it is time to reach out again. Did you contact anybody else today?",
		html.EscapeString(contact.DisplayName()))
	return s.sender.SendMessage(ctx, chatID, msg, DueKeyboard(due))
}

// Dismiss closes the reminder keyboard for the day.
func (s *ReminderService) Dismiss(ctx context.Context, chatID int64) error {
	return s.sender.SendMessage(ctx, chatID,
		"Fair enough. Tomorrow is another chance to get in touch with your friends and relatives. See you!", nil)
}

func dueSummary(due []model.Contact) string {
	var builder strings.Builder
	builder.WriteString("Hi there. Here is today's list of people you want to stay in touch with:\n")
	for i, c := range due {
		builder.WriteString(fmt.Sprintf("%d: %s\n", i+1, html.EscapeString(c.DisplayName())))
	}
	return strings.TrimSpace(builder.String())
}
