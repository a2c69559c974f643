package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"contact-reminder/internal/conversation"
	"contact-reminder/internal/messenger"
	"contact-reminder/internal/model"
	"contact-reminder/internal/service"
)

const (
	btnRegister = "Please register me!"
	btnDecline  = "No, thank you!"
)

const helpText = "Hi there. I remind you every day to stay in touch with your friends and relatives.\n" +
	"You can send me the following commands:\n" +
	"/register - register this chat for daily reminders\n" +
	"/newcontact - add a new contact\n" +
	"/editcontact - change how often you want to contact someone\n" +
	"/printcontacts - list all of your contacts\n" +
	"/activate - turn the daily reminder on\n" +
	"/deactivate - turn the daily reminder off\n" +
	"/time - set a new daily reminder time\n" +
	"/remindme - send the due contacts right now\n" +
	"/cancel - stop the current dialogue"

// Deps are the services the bot works with.
type Deps struct {
	Contacts  *service.ContactService
	Reminders *service.ReminderService
	Scheduler *service.SchedulerService
	Location  *time.Location
}

// Bot routes Telegram updates to conversation flows and standing commands.
type Bot struct {
	api       botAPI
	sender    messenger.Messenger
	contacts  *service.ContactService
	reminders *service.ReminderService
	scheduler *service.SchedulerService
	loc       *time.Location
	engine    *conversation.Engine
	log       *zap.Logger

	register    conversation.Definition
	editTime    conversation.Definition
	newContact  conversation.Definition
	editContact conversation.Definition
}

func New(api botAPI, sender messenger.Messenger, deps Deps, log *zap.Logger) *Bot {
	b := &Bot{
		api:       api,
		sender:    sender,
		contacts:  deps.Contacts,
		reminders: deps.Reminders,
		scheduler: deps.Scheduler,
		loc:       deps.Location,
		log:       log,
	}
	b.engine = conversation.NewEngine(sender, b.reportError, log)
	b.register = b.registerFlow()
	b.editTime = b.editTimeFlow()
	b.newContact = b.newContactFlow()
	b.editContact = b.editContactFlow()
	return b
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	b.log.Info("stopped polling updates")
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return
	}
	if err := b.handleMessage(ctx, msg); err != nil {
		b.log.Warn("handle message", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.log.Info("command", zap.Int64("chat_id", chatID), zap.String("command", msg.Command()))
		return b.handleCommand(ctx, chatID, msg.Command())
	}

	text := strings.TrimSpace(msg.Text)
	if text == btnRegister {
		return b.engine.Start(ctx, chatID, b.register)
	}

	if handled, err := b.engine.Handle(ctx, chatID, text); handled {
		return err
	}

	switch {
	case service.IsAcknowledgement(text):
		return b.run(ctx, chatID, b.reminders.Acknowledge(ctx, chatID, text))
	case text == service.DismissText:
		return b.reminders.Dismiss(ctx, chatID)
	case text == btnDecline:
		return b.sender.SendMessage(ctx, chatID, "No problem. If you change your mind, just send /register.", nil)
	}

	b.log.Debug("ignored message", zap.Int64("chat_id", chatID))
	return nil
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, command string) error {
	switch command {
	case "register":
		return b.engine.Start(ctx, chatID, b.register)
	case "time":
		return b.engine.Start(ctx, chatID, b.editTime)
	case "newcontact":
		return b.engine.Start(ctx, chatID, b.newContact)
	case "editcontact":
		return b.engine.Start(ctx, chatID, b.editContact)
	case "cancel":
		_, err := b.engine.Cancel(ctx, chatID)
		return err
	case "skip":
		if kind, step, ok := b.engine.Active(chatID); !ok || kind != flowNewContact || step != newContactLastNameStep {
			return b.send(ctx, chatID, "There is nothing to skip right now.")
		}
		_, err := b.engine.Handle(ctx, chatID, "/skip")
		return err
	case "start":
		return b.run(ctx, chatID, b.handleStart(ctx, chatID))
	case "help":
		return b.sender.SendMessage(ctx, chatID, helpText, nil)
	case "printcontacts":
		return b.run(ctx, chatID, b.handlePrintContacts(ctx, chatID))
	case "activate":
		return b.run(ctx, chatID, b.handleActivation(ctx, chatID, true))
	case "deactivate":
		return b.run(ctx, chatID, b.handleActivation(ctx, chatID, false))
	case "remindme":
		return b.run(ctx, chatID, b.handleRemindMe(ctx, chatID))
	default:
		return b.sender.SendMessage(ctx, chatID, "Sorry, I don't know that command. Send /help to see what I can do.", nil)
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) error {
	_, err := b.contacts.FindUserByChatID(ctx, chatID)
	switch {
	case err == nil:
		return b.sender.SendMessage(ctx, chatID,
			"Welcome back. You are registered for my stay-in-touch reminders.\n"+
				"Send /help to see how you can talk to me.", nil)
	case errors.Is(err, service.ErrNotRegistered):
		text := "Welcome! I am the stay-in-touch bot. I send you a daily reminder of the people " +
			"you want to reach out to, and you decide how often you want to contact each of them.\n" +
			"To get started I need to register this chat. Please be aware that the names you give me " +
			"are stored without encryption.\n" +
			"<b>Do you want to become an active user?</b>"
		return b.sender.SendMessage(ctx, chatID, text, messenger.Column(btnRegister, btnDecline))
	default:
		return err
	}
}

func (b *Bot) handlePrintContacts(ctx context.Context, chatID int64) error {
	user, err := b.contacts.FindUserByChatID(ctx, chatID)
	if err != nil {
		return err
	}
	contacts, err := b.contacts.ListContacts(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(contacts) == 0 {
		return b.sender.SendMessage(ctx, chatID, "You have no contacts yet. Add one with /newcontact.", nil)
	}

	var builder strings.Builder
	builder.WriteString("<b>Your contacts</b>\n")
	for _, c := range contacts {
		builder.WriteString(formatContact(c))
	}
	return b.sender.SendMessage(ctx, chatID, strings.TrimSpace(builder.String()), nil)
}

func (b *Bot) handleActivation(ctx context.Context, chatID int64, active bool) error {
	user, err := b.contacts.FindUserByChatID(ctx, chatID)
	if err != nil {
		return err
	}
	if err := b.contacts.SetActive(ctx, user.ID, active); err != nil {
		return err
	}
	if err := b.scheduler.SetEnabled(user.ID, active); errors.Is(err, service.ErrJobNotFound) {
		at, perr := service.ParseReminderTime(user.ReminderTime)
		if perr != nil {
			return fmt.Errorf("stored reminder time: %w", perr)
		}
		if err := b.scheduler.ScheduleDaily(user.ID, at, active); err != nil {
			return fmt.Errorf("schedule daily: %w", err)
		}
	} else if err != nil {
		return err
	}

	if active {
		return b.sender.SendMessage(ctx, chatID, fmt.Sprintf(
			"Your daily reminder is active. You will get it every day at <b>%s</b> (%s).\n"+
				"Use /time to change it.", escape(user.ReminderTime), escape(b.loc.String())), nil)
	}
	return b.sender.SendMessage(ctx, chatID,
		"Your daily reminder is turned off. Send /activate whenever you want it back.", nil)
}

func (b *Bot) handleRemindMe(ctx context.Context, chatID int64) error {
	user, err := b.contacts.FindUserByChatID(ctx, chatID)
	if err != nil {
		return err
	}
	if err := b.scheduler.RunOnce(user.ID); errors.Is(err, service.ErrQueueFull) {
		return b.sender.SendMessage(ctx, chatID, "I am a bit busy right now. Please try again in a minute.", nil)
	} else if err != nil {
		return err
	}
	return nil
}

// run reports err from a standing handler to the chat.
func (b *Bot) run(ctx context.Context, chatID int64, err error) error {
	if err == nil {
		return nil
	}
	b.reportError(ctx, chatID, "", err)
	return err
}

// reportError tells the user what went wrong and decides whether an active flow
// stays at its step.
func (b *Bot) reportError(ctx context.Context, chatID int64, kind conversation.Kind, err error) bool {
	var (
		text string
		keep bool
		verr *service.ValidationError
	)
	switch {
	case errors.As(err, &verr):
		text = fmt.Sprintf("Hmm, <b>%s</b> does not look right. Please try again.", escape(verr.Input))
		keep = true
	case errors.Is(err, service.ErrNotRegistered):
		text = "You don't seem to be a registered user. Please register first using the /register command."
	case errors.Is(err, service.ErrAlreadyRegistered):
		text = "You are already a registered user. Use /activate or /deactivate to switch your reminder " +
			"and /time to change when you get it."
	case errors.Is(err, service.ErrContactNotFound):
		text = "I could not find that contact. Send /printcontacts to see all of them."
	case errors.Is(err, service.ErrDuplicateContact):
		text = "A contact with that name already exists. Use /editcontact to change it."
	case service.IsStoreError(err):
		text = "Oops. Something went wrong with my database. Please send that again in a moment."
		keep = true
		b.log.Error("store failure", zap.Int64("chat_id", chatID), zap.String("flow", string(kind)), zap.Error(err))
	default:
		text = "Sorry. An error occurred. Please try again later."
		b.log.Error("unexpected error", zap.Int64("chat_id", chatID), zap.String("flow", string(kind)), zap.Error(err))
	}

	if sendErr := b.sender.SendMessage(ctx, chatID, text, nil); sendErr != nil {
		b.log.Warn("send error reply", zap.Int64("chat_id", chatID), zap.Error(sendErr))
	}
	return keep
}

func formatContact(c model.Contact) string {
	return fmt.Sprintf("%d. %s (every %d days, next on %s)\n",
		c.ID, escape(c.DisplayName()), c.IntervalDays, service.FormatDate(service.NextDue(c)))
}

func escape(s string) string {
	return html.EscapeString(s)
}
