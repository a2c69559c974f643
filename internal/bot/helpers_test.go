package bot

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"contact-reminder/internal/messenger/messengertest"
	"contact-reminder/internal/model"
	"contact-reminder/internal/repository"
	"contact-reminder/internal/service"
)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	updates chan tgbotapi.Update
	stop    sync.Once
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.stop.Do(func() { close(f.updates) })
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

type testEnv struct {
	bot       *Bot
	rec       *messengertest.Recorder
	contacts  *service.ContactService
	reminders *service.ReminderService
	scheduler *service.SchedulerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "bot.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log := zap.NewNop()
	rec := &messengertest.Recorder{}
	contacts := service.NewContactService(repository.NewUserRepository(db), repository.NewContactRepository(db))
	reminders := service.NewReminderService(contacts, rec, time.UTC, log)
	scheduler := service.NewSchedulerService(time.UTC, 1, time.Second, reminders.Fire, log)
	t.Cleanup(scheduler.Stop)

	b := New(newFakeAPI(), rec, Deps{
		Contacts:  contacts,
		Reminders: reminders,
		Scheduler: scheduler,
		Location:  time.UTC,
	}, log)
	return &testEnv{bot: b, rec: rec, contacts: contacts, reminders: reminders, scheduler: scheduler}
}

func privateMessage(chatID int64, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID, Type: "private"},
		From: &tgbotapi.User{ID: chatID},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		length := len(text)
		if i := strings.IndexByte(text, ' '); i > 0 {
			length = i
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}
	return msg
}

// say delivers text as a private message from chatID.
func (e *testEnv) say(t *testing.T, chatID int64, text string) {
	t.Helper()
	e.bot.handleUpdate(context.Background(), tgbotapi.Update{Message: privateMessage(chatID, text)})
}

func (e *testEnv) lastText(t *testing.T) string {
	t.Helper()
	msg, ok := e.rec.Last()
	if !ok {
		t.Fatal("no message sent")
	}
	return msg.Text
}

func (e *testEnv) registerUser(t *testing.T, chatID int64, at string) *model.User {
	t.Helper()
	rt, err := service.ParseReminderTime(at)
	if err != nil {
		t.Fatalf("ParseReminderTime: %v", err)
	}
	user, err := e.contacts.InsertUser(context.Background(), chatID, rt)
	if err != nil {
		t.Fatalf("InsertUser: %v", err)
	}
	if err := e.scheduler.ScheduleDaily(user.ID, rt, true); err != nil {
		t.Fatalf("ScheduleDaily: %v", err)
	}
	return user
}

func (e *testEnv) addContact(t *testing.T, userID uint, first, last string, interval int, lastContact time.Time) {
	t.Helper()
	if _, err := e.contacts.InsertContact(context.Background(), userID, first, last, interval, lastContact); err != nil {
		t.Fatalf("InsertContact: %v", err)
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
