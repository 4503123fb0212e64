// Package notify fans reminder notifications out across the channels
// a user has enabled. Delivery is best-effort: failures are logged and
// reflected in the returned channel list, never raised to the caller.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gekymedia/blacktask/internal/model"
)

// Channel identifies one delivery mechanism.
type Channel string

const (
	ChannelBrowser  Channel = "browser"
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
	ChannelGeKyChat Channel = "gekychat"
	ChannelTelegram Channel = "telegram"
)

// Dispatcher delivers notifications for a user and reports which
// channels succeeded.
type Dispatcher interface {
	SendTaskReminder(ctx context.Context, user *model.User, task *model.Task) []Channel
	SendDailyDigest(ctx context.Context, user *model.User, tasks []model.Task) []Channel
}

// Fanout is the production Dispatcher. A nil sender disables its
// channel; user preferences gate the rest.
type Fanout struct {
	Mailer   *Mailer
	Telegram *TelegramSender
	WhatsApp *WebhookClient
	SMS      *WebhookClient
	GeKyChat *WebhookClient

	log *logrus.Logger
}

func NewFanout(log *logrus.Logger) *Fanout {
	return &Fanout{log: log}
}

// SendTaskReminder attempts delivery of a single-task reminder on
// every enabled channel.
func (f *Fanout) SendTaskReminder(ctx context.Context, user *model.User, task *model.Task) []Channel {
	var sent []Channel

	// Browser notifications are rendered by the frontend; the channel
	// is reported as reachable whenever the user has it on.
	if user.BrowserNotifications {
		sent = append(sent, ChannelBrowser)
	}

	subject := fmt.Sprintf("Reminder: %s", task.Title)
	message := reminderMessage(task)

	if user.EmailNotifications && user.Email != "" && f.Mailer != nil {
		if err := f.Mailer.Send(ctx, user.Email, subject, message); err != nil {
			f.logFailure(ChannelEmail, user, task, err)
		} else {
			sent = append(sent, ChannelEmail)
		}
	}

	if user.TelegramNotifications && user.TelegramChatID != "" && f.Telegram != nil {
		if err := f.Telegram.Send(ctx, user.TelegramChatID, message); err != nil {
			f.logFailure(ChannelTelegram, user, task, err)
		} else {
			sent = append(sent, ChannelTelegram)
		}
	}

	for _, hook := range []struct {
		channel Channel
		enabled bool
		client  *WebhookClient
	}{
		{ChannelWhatsApp, user.WhatsAppNotifications, f.WhatsApp},
		{ChannelSMS, user.SMSNotifications, f.SMS},
		{ChannelGeKyChat, user.GeKyChatNotifications, f.GeKyChat},
	} {
		if !hook.enabled || user.Phone == "" || hook.client == nil {
			continue
		}
		if err := hook.client.Send(ctx, user.Phone, message); err != nil {
			f.logFailure(hook.channel, user, task, err)
		} else {
			sent = append(sent, hook.channel)
		}
	}

	return sent
}

// SendDailyDigest emails the user a summary of their pending tasks.
// Other channels stay reminder-only.
func (f *Fanout) SendDailyDigest(ctx context.Context, user *model.User, tasks []model.Task) []Channel {
	var sent []Channel
	if len(tasks) == 0 {
		return sent
	}

	if user.EmailNotifications && user.Email != "" && f.Mailer != nil {
		body := digestMessage(tasks)
		if err := f.Mailer.Send(ctx, user.Email, "Your tasks for today", body); err != nil {
			f.log.WithFields(logrus.Fields{
				"channel": ChannelEmail,
				"user_id": user.ID,
			}).WithError(err).Error("daily digest failed")
		} else {
			sent = append(sent, ChannelEmail)
		}
	}

	return sent
}

func (f *Fanout) logFailure(channel Channel, user *model.User, task *model.Task, err error) {
	f.log.WithFields(logrus.Fields{
		"channel": channel,
		"user_id": user.ID,
		"task_id": task.ID,
	}).WithError(err).Error("notification failed")
}

func reminderMessage(task *model.Task) string {
	return fmt.Sprintf("🔔 BLACKTASK Reminder\n\nTask: %s\nDue: %s\nPriority: %s",
		task.Title, task.TaskDate.Format("Jan 2, 2006"), task.Priority)
}

func digestMessage(tasks []model.Task) string {
	var builder strings.Builder
	builder.WriteString("📋 Today's tasks\n\n")
	for _, task := range tasks {
		builder.WriteString(fmt.Sprintf("• %s", task.Title))
		if task.Category != nil && task.Category.Name != "" {
			builder.WriteString(fmt.Sprintf(" (%s)", task.Category.Name))
		}
		if task.Priority == model.PriorityHigh {
			builder.WriteString(" — high priority")
		}
		builder.WriteByte('\n')
	}
	return strings.TrimSpace(builder.String())
}
