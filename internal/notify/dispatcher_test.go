package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/gekymedia/blacktask/internal/model"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestFanoutHonorsPreferences(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fanout := NewFanout(quietLogger())
	fanout.SMS = NewWebhookClient(srv.URL, "")
	fanout.WhatsApp = NewWebhookClient(srv.URL, "")

	task := &model.Task{ID: 1, Title: "Call dentist", TaskDate: time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)}
	user := &model.User{
		ID:                   7,
		Phone:                "+15550100",
		BrowserNotifications: true,
		SMSNotifications:     true,
		// WhatsApp configured but switched off by the user.
		WhatsAppNotifications: false,
	}

	sent := fanout.SendTaskReminder(context.Background(), user, task)
	assert.ElementsMatch(t, []Channel{ChannelBrowser, ChannelSMS}, sent)
	assert.Equal(t, 1, hits)
}

func TestFanoutReportsPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	fanout := NewFanout(quietLogger())
	fanout.SMS = NewWebhookClient(srv.URL, "")

	task := &model.Task{ID: 1, Title: "Call dentist", TaskDate: time.Now()}
	user := &model.User{ID: 7, Phone: "+15550100", SMSNotifications: true}

	// Failure is logged and reflected in the result, never raised.
	sent := fanout.SendTaskReminder(context.Background(), user, task)
	assert.Empty(t, sent)
}

func TestFanoutDigestSkipsEmptyTaskList(t *testing.T) {
	fanout := NewFanout(quietLogger())
	user := &model.User{ID: 7, Email: "a@example.com", EmailNotifications: true}

	sent := fanout.SendDailyDigest(context.Background(), user, nil)
	assert.Empty(t, sent)
}
