package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gekymedia/blacktask/internal/clock"
	"github.com/gekymedia/blacktask/internal/model"
	"github.com/gekymedia/blacktask/internal/notify"
)

// ReminderService sweeps for due reminders and hands them to the
// notification dispatcher. Dispatch is fire-and-forget: the sweep
// marks reminded_at and channel failures never undo that mark.
type ReminderService struct {
	tasks      TaskStore
	users      UserStore
	dispatcher notify.Dispatcher
	clock      clock.Clock
	log        *logrus.Logger
}

func NewReminderService(tasks TaskStore, users UserStore, dispatcher notify.Dispatcher, clk clock.Clock, log *logrus.Logger) *ReminderService {
	return &ReminderService{tasks: tasks, users: users, dispatcher: dispatcher, clock: clk, log: log}
}

// SendDueReminders finds pending tasks whose reminder time has passed
// and has not been sent, marks them reminded and dispatches. Returns
// the number of reminders marked.
func (s *ReminderService) SendDueReminders(ctx context.Context) (int, error) {
	now := s.clock.Now()
	tasks, err := s.tasks.ListDueReminders(ctx, now)
	if err != nil {
		return 0, err
	}

	userCache := make(map[uint]*model.User)
	count := 0
	for i := range tasks {
		task := &tasks[i]

		user, ok := userCache[task.UserID]
		if !ok {
			user, err = s.users.FindByID(ctx, task.UserID)
			if err != nil {
				s.log.WithFields(logrus.Fields{
					"task_id": task.ID,
					"user_id": task.UserID,
				}).WithError(err).Error("skipping reminder, owner not resolvable")
				continue
			}
			userCache[task.UserID] = user
		}

		// Mark first so a crashed or failed dispatch cannot re-fire the
		// same reminder on the next sweep.
		if err := s.tasks.MarkReminded(ctx, task.ID, now); err != nil {
			s.log.WithField("task_id", task.ID).WithError(err).Error("mark reminded failed")
			continue
		}
		count++

		sent := s.dispatcher.SendTaskReminder(ctx, user, task)
		s.log.WithFields(logrus.Fields{
			"task_id":  task.ID,
			"user_id":  user.ID,
			"channels": sent,
		}).Info("reminder dispatched")
	}

	return count, nil
}

// SendDailyDigests mails each user their pending tasks for today. It
// is meant to run hourly; only users whose preferred notification hour
// matches the current hour receive a digest.
func (s *ReminderService) SendDailyDigests(ctx context.Context) error {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	today := s.clock.Today()
	tomorrow := today.AddDate(0, 0, 1)

	for i := range users {
		user := &users[i]
		if notificationHour(user.NotificationTime) != now.Hour() {
			continue
		}

		tasks, err := s.tasks.ListByDate(ctx, user.ID, today, tomorrow)
		if err != nil {
			s.log.WithField("user_id", user.ID).WithError(err).Error("digest query failed")
			continue
		}

		pending := tasks[:0]
		for _, task := range tasks {
			if !task.IsDone {
				pending = append(pending, task)
			}
		}
		if len(pending) == 0 {
			continue
		}

		sent := s.dispatcher.SendDailyDigest(ctx, user, pending)
		s.log.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"tasks":    len(pending),
			"channels": sent,
		}).Info("daily digest dispatched")
	}

	return nil
}

// notificationHour parses the hour out of an HH:MM preference,
// defaulting to 9 on malformed values.
func notificationHour(pref string) int {
	parts := strings.SplitN(pref, ":", 2)
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 9
	}
	return hour
}
