package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"contact-reminder/internal/messenger"
	"contact-reminder/internal/messenger/messengertest"
	"contact-reminder/internal/service"
)

func TestStart_UnregisteredOffersRegistration(t *testing.T) {
	env := newTestEnv(t)

	env.say(t, 10, "/start")

	msg, ok := env.rec.Last()
	if !ok {
		t.Fatal("no reply")
	}
	if msg.Keyboard == nil || !msg.Keyboard.OneTime {
		t.Fatalf("expected a one-time keyboard, got %#v", msg.Keyboard)
	}
	rows := msg.Keyboard.Rows
	if len(rows) != 2 || rows[0][0] != btnRegister || rows[1][0] != btnDecline {
		t.Errorf("unexpected keyboard: %v", rows)
	}
}

func TestStart_Registered(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, 10, "08:00:00")

	env.say(t, 10, "/start")
	if got := env.lastText(t); !strings.Contains(got, "Welcome back") {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestActivation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerUser(t, 10, "08:00:00")

	env.say(t, 10, "/deactivate")
	stored, _ := env.contacts.FindUserByChatID(ctx, 10)
	if stored.IsActive {
		t.Errorf("user should be inactive")
	}
	if enabled, _ := env.scheduler.Enabled(user.ID); enabled {
		t.Errorf("job should be disabled")
	}

	env.say(t, 10, "/activate")
	stored, _ = env.contacts.FindUserByChatID(ctx, 10)
	if !stored.IsActive {
		t.Errorf("user should be active")
	}
	if enabled, _ := env.scheduler.Enabled(user.ID); !enabled {
		t.Errorf("job should be enabled")
	}
	if got := env.lastText(t); !strings.Contains(got, "08:00:00") {
		t.Errorf("activation reply should show the reminder time: %q", got)
	}
}

func TestActivation_WithoutJobSchedulesOne(t *testing.T) {
	env := newTestEnv(t)
	at, _ := service.ParseReminderTime("09:00:00")
	user, err := env.contacts.InsertUser(context.Background(), 10, at)
	if err != nil {
		t.Fatalf("InsertUser: %v", err)
	}

	env.say(t, 10, "/activate")
	if enabled, ok := env.scheduler.Enabled(user.ID); !ok || !enabled {
		t.Errorf("job: got %v, %v; want enabled", enabled, ok)
	}
}

func TestActivation_NotRegistered(t *testing.T) {
	env := newTestEnv(t)

	env.say(t, 10, "/activate")
	if got := env.lastText(t); !strings.Contains(got, "/register") {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestAcknowledgementRouting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerUser(t, 10, "08:00:00")
	today := env.reminders.Today()
	env.addContact(t, user.ID, "Ada", "Lovelace", 30, today.AddDate(0, 0, -60))

	env.say(t, 10, "I contacted Ada Lovelace today!")

	c, err := env.contacts.FindContact(ctx, user.ID, "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("FindContact: %v", err)
	}
	if !c.LastContactDate.Equal(today) {
		t.Errorf("LastContactDate: got %s", service.FormatDate(c.LastContactDate))
	}
	msg, _ := env.rec.Last()
	if msg.Keyboard == nil || len(msg.Keyboard.Rows) != 1 || msg.Keyboard.Rows[0][0] != service.DismissText {
		t.Errorf("only the dismiss button should remain: %#v", msg.Keyboard)
	}

	env.say(t, 10, service.DismissText)
	msg, _ = env.rec.Last()
	if msg.Keyboard != nil {
		t.Errorf("dismiss should remove the keyboard")
	}
}

func TestPrintContacts(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, 10, "08:00:00")

	env.say(t, 10, "/printcontacts")
	if got := env.lastText(t); !strings.Contains(got, "/newcontact") {
		t.Errorf("empty list reply: %q", got)
	}

	env.addContact(t, user.ID, "Ada", "Lovelace", 30, date(2024, 1, 1))
	env.addContact(t, user.ID, "Bob", "<Builder>", 7, date(2024, 1, 1))
	env.say(t, 10, "/printcontacts")

	got := env.lastText(t)
	for _, want := range []string{"Ada Lovelace", "every 30 days", "2024-01-31", "Bob &lt;Builder&gt;"} {
		if !strings.Contains(got, want) {
			t.Errorf("list should contain %q: %q", want, got)
		}
	}
}

func TestRemindMe(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, 10, "08:00:00")
	env.addContact(t, user.ID, "Ada", "Lovelace", 30, date(2020, 1, 1))
	if err := env.scheduler.SetEnabled(user.ID, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	env.scheduler.Start(context.Background())

	env.say(t, 10, "/remindme")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msg, ok := env.rec.Last(); ok && strings.Contains(msg.Text, "Ada Lovelace") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("on-demand reminder was not sent")
}

func TestUnknownCommandAndIgnoredText(t *testing.T) {
	env := newTestEnv(t)

	env.say(t, 10, "/dance")
	if got := env.lastText(t); !strings.Contains(got, "/help") {
		t.Errorf("unknown command reply: %q", got)
	}

	env.rec.Reset()
	env.say(t, 10, "hello there")
	if n := len(env.rec.Messages()); n != 0 {
		t.Errorf("free text outside a flow should be ignored, got %d replies", n)
	}
}

func TestStartLoop_OnlyPrivateChats(t *testing.T) {
	api := newFakeAPI()
	rec := &messengertest.Recorder{}
	b := New(api, rec, Deps{Location: time.UTC}, zap.NewNop())

	group := privateMessage(1, "/help")
	group.Chat.Type = "group"
	api.updates <- tgbotapi.Update{Message: group}
	api.updates <- tgbotapi.Update{Message: privateMessage(2, "/help")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	msgs := rec.Messages()
	if len(msgs) != 1 || msgs[0].ChatID != 2 {
		t.Errorf("expected one reply to chat 2, got %#v", msgs)
	}
}

func TestSender_Keyboards(t *testing.T) {
	api := newFakeAPI()
	s := NewSender(api)
	ctx := context.Background()

	kb := messenger.Column("I contacted Ada today!", service.DismissText)
	if err := s.SendMessage(ctx, 5, "hi", kb); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if err := s.SendMessage(ctx, 5, "bye", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	sent := api.messages()
	if len(sent) != 2 {
		t.Fatalf("sent: got %d, want 2", len(sent))
	}
	if sent[0].ParseMode != tgbotapi.ModeHTML || sent[0].ChatID != 5 {
		t.Errorf("unexpected message: %#v", sent[0])
	}
	markup, ok := sent[0].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	if !ok {
		t.Fatalf("ReplyMarkup: got %T", sent[0].ReplyMarkup)
	}
	if !markup.OneTimeKeyboard || len(markup.Keyboard) != 2 || markup.Keyboard[1][0].Text != service.DismissText {
		t.Errorf("unexpected keyboard: %#v", markup)
	}
	remove, ok := sent[1].ReplyMarkup.(tgbotapi.ReplyKeyboardRemove)
	if !ok || !remove.RemoveKeyboard {
		t.Errorf("nil keyboard should remove the keyboard, got %#v", sent[1].ReplyMarkup)
	}
}
