package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gekymedia/blacktask/internal/clock"
	"github.com/gekymedia/blacktask/internal/config"
	"github.com/gekymedia/blacktask/internal/notify"
	"github.com/gekymedia/blacktask/internal/repository"
	"github.com/gekymedia/blacktask/internal/server"
	"github.com/gekymedia/blacktask/internal/service"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.WithError(err).Fatal("timezone")
	}
	clk := clock.System(loc)

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("db")
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	taskRepo := repository.NewTaskRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	userRepo := repository.NewUserRepository(db)

	dispatcher := buildDispatcher(cfg, log)

	taskSvc := service.NewTaskService(taskRepo, categoryRepo, clk, log)
	categorySvc := service.NewCategoryService(categoryRepo, taskRepo)
	reminderSvc := service.NewReminderService(taskRepo, userRepo, dispatcher, clk, log)

	scheduler := service.NewScheduler(loc)
	if _, err := scheduler.ScheduleInterval(cfg.ReminderInterval, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		count, err := reminderSvc.SendDueReminders(jobCtx)
		if err != nil {
			log.WithError(err).Error("reminder sweep failed")
			return
		}
		if count > 0 {
			log.WithField("count", count).Info("reminders sent")
		}
	}); err != nil {
		log.WithError(err).Fatal("schedule reminders")
	}
	if _, err := scheduler.ScheduleInterval(cfg.DigestInterval, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := reminderSvc.SendDailyDigests(jobCtx); err != nil {
			log.WithError(err).Error("digest sweep failed")
		}
	}); err != nil {
		log.WithError(err).Fatal("schedule digests")
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.New(taskSvc, categorySvc, userRepo, log)
	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Router(),
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("blacktask started")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	log.Info("shutdown complete")
}

func buildDispatcher(cfg config.Config, log *logrus.Logger) notify.Dispatcher {
	fanout := notify.NewFanout(log)

	if cfg.SMTP.Host != "" {
		fanout.Mailer = notify.NewMailer(notify.MailerConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}
	if cfg.Telegram.Token != "" {
		sender, err := notify.NewTelegramSender(cfg.Telegram.Token)
		if err != nil {
			log.WithError(err).Warn("telegram channel disabled")
		} else {
			fanout.Telegram = sender
		}
	}
	if cfg.WhatsApp.URL != "" {
		fanout.WhatsApp = notify.NewWebhookClient(cfg.WhatsApp.URL, cfg.WhatsApp.Token)
	}
	if cfg.SMS.URL != "" {
		fanout.SMS = notify.NewWebhookClient(cfg.SMS.URL, cfg.SMS.Token)
	}
	if cfg.GeKyChat.URL != "" {
		fanout.GeKyChat = notify.NewWebhookClient(cfg.GeKyChat.URL, cfg.GeKyChat.Token)
	}

	return fanout
}
