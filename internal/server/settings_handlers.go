package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type notificationSettingsRequest struct {
	BrowserNotifications  *bool   `json:"browser_notifications"`
	EmailNotifications    *bool   `json:"email_notifications"`
	WhatsAppNotifications *bool   `json:"whatsapp_notifications"`
	SMSNotifications      *bool   `json:"sms_notifications"`
	GeKyChatNotifications *bool   `json:"gekychat_notifications"`
	PushNotifications     *bool   `json:"push_notifications"`
	TelegramNotifications *bool   `json:"telegram_notifications"`
	TelegramChatID        *string `json:"telegram_chat_id"`
	Phone                 *string `json:"phone"`
	NotificationTime      *string `json:"notification_time" binding:"omitempty,hhmm"`
}

// PATCH /settings/notifications — updates the acting user's channel
// preferences. Partial semantics: absent fields are untouched.
func (s *Server) handleUpdateNotificationSettings(c *gin.Context) {
	var req notificationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	user := currentUser(c)
	if req.BrowserNotifications != nil {
		user.BrowserNotifications = *req.BrowserNotifications
	}
	if req.EmailNotifications != nil {
		user.EmailNotifications = *req.EmailNotifications
	}
	if req.WhatsAppNotifications != nil {
		user.WhatsAppNotifications = *req.WhatsAppNotifications
	}
	if req.SMSNotifications != nil {
		user.SMSNotifications = *req.SMSNotifications
	}
	if req.GeKyChatNotifications != nil {
		user.GeKyChatNotifications = *req.GeKyChatNotifications
	}
	if req.PushNotifications != nil {
		user.PushNotifications = *req.PushNotifications
	}
	if req.TelegramNotifications != nil {
		user.TelegramNotifications = *req.TelegramNotifications
	}
	if req.TelegramChatID != nil {
		user.TelegramChatID = *req.TelegramChatID
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.NotificationTime != nil {
		user.NotificationTime = *req.NotificationTime
	}

	if err := s.users.Save(c.Request.Context(), user); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
