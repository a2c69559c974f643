package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"contact-reminder/internal/conversation"
	"contact-reminder/internal/messenger"
	"contact-reminder/internal/service"
)

const (
	flowRegister    conversation.Kind = "register"
	flowEditTime    conversation.Kind = "time"
	flowNewContact  conversation.Kind = "newcontact"
	flowEditContact conversation.Kind = "editcontact"
)

const maxNameButtons = 20

type registerForm struct {
	At service.ReminderTime
}

type editTimeForm struct {
	UserID  uint
	Active  bool
	Current string
	At      service.ReminderTime
}

type newContactForm struct {
	UserID       uint
	FirstName    string
	LastName     string
	IntervalDays int
	LastContact  time.Time
}

type editContactForm struct {
	UserID       uint
	FirstName    string
	LastName     string
	IntervalDays int
	LastContact  time.Time
}

func (f newContactForm) name() string {
	return strings.TrimSpace(f.FirstName + " " + f.LastName)
}

func (f editContactForm) name() string {
	return strings.TrimSpace(f.FirstName + " " + f.LastName)
}

func (b *Bot) registerFlow() *conversation.Flow[registerForm] {
	return &conversation.Flow[registerForm]{
		Kind: flowRegister,
		Name: "registration",
		Init: func(ctx context.Context, chatID int64) (registerForm, error) {
			_, err := b.contacts.FindUserByChatID(ctx, chatID)
			switch {
			case err == nil:
				return registerForm{}, service.ErrAlreadyRegistered
			case errors.Is(err, service.ErrNotRegistered):
				return registerForm{}, nil
			default:
				return registerForm{}, err
			}
		},
		Steps: []conversation.Step[registerForm]{
			{
				Prompt: func(ctx context.Context, chatID int64, _ *registerForm) error {
					return b.send(ctx, chatID, fmt.Sprintf(
						"Cool! Then I will register you.\nAt what time do you want to get your daily reminder? "+
							"Please send it as <b>HH:MM:SS</b> in 24 hour format, e.g. 08:30:00. Times are in %s.",
						escape(b.loc.String())))
				},
				Handle: func(ctx context.Context, chatID int64, text string, s *registerForm) (conversation.Outcome, error) {
					at, err := service.ParseReminderTime(text)
					if err != nil {
						return conversation.Repeat(invalidTimeText(text)), nil
					}
					s.At = at
					return conversation.Complete(), nil
				},
			},
		},
		Complete: func(ctx context.Context, chatID int64, s *registerForm) error {
			user, err := b.contacts.InsertUser(ctx, chatID, s.At)
			if errors.Is(err, service.ErrAlreadyRegistered) {
				return b.send(ctx, chatID, "You are already a registered user, so I left everything as it was.")
			}
			if err != nil {
				return err
			}
			if err := b.scheduler.ScheduleDaily(user.ID, s.At, true); err != nil {
				b.log.Error("schedule new user", zap.Uint("user_id", user.ID), zap.Error(err))
			}
			b.log.Info("user registered", zap.Uint("user_id", user.ID), zap.Int64("chat_id", chatID))
			return b.send(ctx, chatID, fmt.Sprintf(
				"Ok, that is all I need for now. You will get your reminder every day at <b>%s</b>.\n"+
					"Add the people you want to stay in touch with using /newcontact.", s.At))
		},
	}
}

func (b *Bot) editTimeFlow() *conversation.Flow[editTimeForm] {
	return &conversation.Flow[editTimeForm]{
		Kind: flowEditTime,
		Name: "reminder time change",
		Init: func(ctx context.Context, chatID int64) (editTimeForm, error) {
			user, err := b.contacts.FindUserByChatID(ctx, chatID)
			if err != nil {
				return editTimeForm{}, err
			}
			return editTimeForm{UserID: user.ID, Active: user.IsActive, Current: user.ReminderTime}, nil
		},
		Steps: []conversation.Step[editTimeForm]{
			{
				Prompt: func(ctx context.Context, chatID int64, s *editTimeForm) error {
					return b.send(ctx, chatID, fmt.Sprintf(
						"Your reminder is currently sent at <b>%s</b>. Which time do you want instead? "+
							"Please send it as <b>HH:MM:SS</b> in 24 hour format.", escape(s.Current)))
				},
				Handle: func(ctx context.Context, chatID int64, text string, s *editTimeForm) (conversation.Outcome, error) {
					at, err := service.ParseReminderTime(text)
					if err != nil {
						return conversation.Repeat(invalidTimeText(text)), nil
					}
					s.At = at
					return conversation.Complete(), nil
				},
			},
		},
		Complete: func(ctx context.Context, chatID int64, s *editTimeForm) error {
			if err := b.contacts.SetReminderTime(ctx, s.UserID, s.At); err != nil {
				return err
			}
			err := b.scheduler.Reschedule(s.UserID, s.At)
			if errors.Is(err, service.ErrJobNotFound) {
				err = b.scheduler.ScheduleDaily(s.UserID, s.At, s.Active)
			}
			if err != nil {
				return fmt.Errorf("reschedule reminder: %w", err)
			}
			return b.send(ctx, chatID, fmt.Sprintf("Done. From now on your reminder comes at <b>%s</b>.", s.At))
		},
	}
}

// newContactLastNameStep is the only step that accepts /skip.
const newContactLastNameStep = 1

func (b *Bot) newContactFlow() *conversation.Flow[newContactForm] {
	return &conversation.Flow[newContactForm]{
		Kind: flowNewContact,
		Name: "new contact",
		Init: func(ctx context.Context, chatID int64) (newContactForm, error) {
			user, err := b.contacts.FindUserByChatID(ctx, chatID)
			if err != nil {
				return newContactForm{}, err
			}
			return newContactForm{UserID: user.ID}, nil
		},
		Steps: []conversation.Step[newContactForm]{
			{
				Prompt: func(ctx context.Context, chatID int64, _ *newContactForm) error {
					return b.send(ctx, chatID, "Ok. Let's add a new contact.\nWhat is the <b>first name</b> of your contact?")
				},
				Handle: func(ctx context.Context, chatID int64, text string, s *newContactForm) (conversation.Outcome, error) {
					name := strings.TrimSpace(text)
					if name == "" || isSkip(name) {
						return conversation.Repeat("Please send me the first name of your contact."), nil
					}
					s.FirstName = name
					return conversation.Advance(newContactLastNameStep), nil
				},
			},
			{
				Prompt: func(ctx context.Context, chatID int64, s *newContactForm) error {
					return b.send(ctx, chatID, fmt.Sprintf(
						"So we will add <b>%s</b>. What is the <b>last name</b>?\nSend /skip if you don't want to give one.",
						escape(s.FirstName)))
				},
				Handle: func(ctx context.Context, chatID int64, text string, s *newContactForm) (conversation.Outcome, error) {
					if isSkip(text) {
						s.LastName = ""
					} else {
						s.LastName = strings.TrimSpace(text)
					}
					return conversation.Advance(2), nil
				},
			},
			{
				Prompt: func(ctx context.Context, chatID int64, s *newContactForm) error {
					return b.send(ctx, chatID, fmt.Sprintf(
						"Perfect, your contact is called <b>%s</b>.\nHow many times per year do you want to get in touch?",
						escape(s.name())))
				},
				Handle: func(ctx context.Context, chatID int64, text string, s *newContactForm) (conversation.Outcome, error) {
					days, err := service.ParseYearlyFrequency(text)
					if err != nil {
						return conversation.Repeat(invalidFrequencyText(text)), nil
					}
					s.IntervalDays = days
					return conversation.Advance(3), nil
				},
			},
			{
				Prompt: func(ctx context.Context, chatID int64, s *newContactForm) error {
					return b.send(ctx, chatID, fmt.Sprintf(
						"Got it. You want to get in touch with <b>%s</b> roughly every %d days.\n"+
							"When did you last contact them? Please send the date as <b>YYYY-MM-DD</b>. "+
							"If you don't remember, send anything else and I will treat them as due today.",
						escape(s.name()), s.IntervalDays))
				},
				Handle: func(ctx context.Context, chatID int64, text string, s *newContactForm) (conversation.Outcome, error) {
					date, err := service.ParseDate(text)
					if err != nil {
						date = b.reminders.Today().AddDate(0, 0, -s.IntervalDays)
					}
					s.LastContact = date
					return conversation.Complete(), nil
				},
			},
		},
		Complete: func(ctx context.Context, chatID int64, s *newContactForm) error {
			_, err := b.contacts.InsertContact(ctx, s.UserID, s.FirstName, s.LastName, s.IntervalDays, s.LastContact)
			if errors.Is(err, service.ErrDuplicateContact) {
				return b.send(ctx, chatID, fmt.Sprintf(
					"A contact named <b>%s</b> already exists, so I did not add it twice. "+
						"Use /editcontact to change it.", escape(s.name())))
			}
			if err != nil {
				return err
			}
			return b.send(ctx, chatID, fmt.Sprintf(
				"Done. <b>%s</b> has been added to your contact list. The last contact was on %s.",
				escape(s.name()), service.FormatDate(s.LastContact)))
		},
	}
}

func (b *Bot) editContactFlow() *conversation.Flow[editContactForm] {
	return &conversation.Flow[editContactForm]{
		Kind: flowEditContact,
		Name: "contact edit",
		Init: func(ctx context.Context, chatID int64) (editContactForm, error) {
			user, err := b.contacts.FindUserByChatID(ctx, chatID)
			if err != nil {
				return editContactForm{}, err
			}
			return editContactForm{UserID: user.ID}, nil
		},
		Steps: []conversation.Step[editContactForm]{
			{
				Prompt: func(ctx context.Context, chatID int64, s *editContactForm) error {
					contacts, err := b.contacts.ListContacts(ctx, s.UserID)
					if err != nil {
						return err
					}
					var kb *messenger.Keyboard
					if len(contacts) > 0 && len(contacts) <= maxNameButtons {
						names := make([]string, 0, len(contacts))
						for _, c := range contacts {
							names = append(names, c.DisplayName())
						}
						kb = messenger.Column(names...)
					}
					return b.sender.SendMessage(ctx, chatID,
						"Let's edit one of your contacts. What is their <b>full name</b>?", kb)
				},
				Handle: func(ctx context.Context, chatID int64, text string, s *editContactForm) (conversation.Outcome, error) {
					contact, err := b.contacts.FindContactByName(ctx, s.UserID, text)
					if errors.Is(err, service.ErrContactNotFound) {
						return conversation.Abort(fmt.Sprintf(
							"I am sorry. There is no contact named <b>%s</b>. Are you sure you spelled it right? "+
								"Send /printcontacts to list all of your contacts.", escape(strings.TrimSpace(text)))), nil
					}
					if err != nil {
						return conversation.Outcome{}, err
					}
					s.FirstName = contact.FirstName
					s.LastName = contact.LastName
					s.IntervalDays = contact.IntervalDays
					s.LastContact = contact.LastContactDate
					return conversation.Advance(1), nil
				},
			},
			{
				Prompt: func(ctx context.Context, chatID int64, s *editContactForm) error {
					return b.send(ctx, chatID, fmt.Sprintf(
						"Right now you want to contact <b>%s</b> roughly every %d days.\n"+
							"How many times per year do you want to get in touch from now on?",
						escape(s.name()), s.IntervalDays))
				},
				Handle: func(ctx context.Context, chatID int64, text string, s *editContactForm) (conversation.Outcome, error) {
					days, err := service.ParseYearlyFrequency(text)
					if err != nil {
						return conversation.Repeat(invalidFrequencyText(text)), nil
					}
					s.IntervalDays = days
					return conversation.Advance(2), nil
				},
			},
			{
				Prompt: func(ctx context.Context, chatID int64, s *editContactForm) error {
					return b.send(ctx, chatID, fmt.Sprintf(
						"Got it, roughly every %d days. Your last contact was on <b>%s</b>.\n"+
							"Send a new date as <b>YYYY-MM-DD</b> or anything else to keep it.",
						s.IntervalDays, service.FormatDate(s.LastContact)))
				},
				Handle: func(ctx context.Context, chatID int64, text string, s *editContactForm) (conversation.Outcome, error) {
					date, err := service.ParseDate(text)
					if err != nil {
						if err := b.send(ctx, chatID, "Ok. We will simply keep your last contact date."); err != nil {
							return conversation.Outcome{}, err
						}
						return conversation.Complete(), nil
					}
					s.LastContact = date
					return conversation.Complete(), nil
				},
			},
		},
		Complete: func(ctx context.Context, chatID int64, s *editContactForm) error {
			if err := b.contacts.UpdateContact(ctx, s.UserID, s.FirstName, s.LastName, s.IntervalDays, s.LastContact); err != nil {
				return err
			}
			return b.send(ctx, chatID, fmt.Sprintf(
				"Done. You now want to contact <b>%s</b> every %d days, last contact on %s.",
				escape(s.name()), s.IntervalDays, service.FormatDate(s.LastContact)))
		},
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) error {
	return b.sender.SendMessage(ctx, chatID, text, nil)
}

func invalidTimeText(input string) string {
	return fmt.Sprintf("Hmm, <b>%s</b> did not work. Please send the time as HH:MM:SS, for example 18:45:00.",
		escape(strings.TrimSpace(input)))
}

func invalidFrequencyText(input string) string {
	return fmt.Sprintf("You entered <b>%s</b>, but I asked how many times per year you want to get in touch. "+
		"Please send a whole number greater than zero.", escape(strings.TrimSpace(input)))
}

func isSkip(text string) bool {
	value := strings.TrimSpace(text)
	return value == "/skip" || strings.EqualFold(value, "skip")
}
