package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"contact-reminder/internal/bot"
	"contact-reminder/internal/config"
	"contact-reminder/internal/logger"
	"contact-reminder/internal/repository"
	"contact-reminder/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	db, err := repository.NewDB(cfg.DatabaseURL, lg)
	if err != nil {
		lg.Fatal("db", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	api, err := bot.Connect(cfg.TelegramToken)
	if err != nil {
		lg.Fatal("bot", zap.Error(err))
	}
	lg.Info("bot authorized", zap.String("account", api.Self.UserName))
	sender := bot.NewSender(api)

	contactSvc := service.NewContactService(repository.NewUserRepository(db), repository.NewContactRepository(db))
	reminderSvc := service.NewReminderService(contactSvc, sender, cfg.Location, lg)
	scheduler := service.NewSchedulerService(cfg.Location, cfg.ReminderWorkers, cfg.ReminderTimeout, reminderSvc.Fire, lg)

	users, err := contactSvc.ListUsers(ctx)
	if err != nil {
		lg.Fatal("load users", zap.Error(err))
	}
	lg.Info("reminder jobs seeded", zap.Int("jobs", scheduler.Seed(users)), zap.Int("users", len(users)))

	scheduler.Start(ctx)
	defer scheduler.Stop()

	telegramBot := bot.New(api, sender, bot.Deps{
		Contacts:  contactSvc,
		Reminders: reminderSvc,
		Scheduler: scheduler,
		Location:  cfg.Location,
	}, lg)

	lg.Info("contact reminder bot started", zap.String("timezone", cfg.Location.String()))
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		lg.Error("bot stopped with error", zap.Error(err))
	}
	lg.Info("shutdown complete")
}
