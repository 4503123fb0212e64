package model

import "time"

// User owns tasks and categories and carries notification preferences.
// Authentication lives outside this service; users arrive pre-resolved.
type User struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `json:"name"`
	Email string `gorm:"uniqueIndex" json:"email"`
	Phone string `json:"phone,omitempty"`

	BrowserNotifications  bool   `gorm:"default:true" json:"browser_notifications"`
	EmailNotifications    bool   `gorm:"default:true" json:"email_notifications"`
	WhatsAppNotifications bool   `gorm:"default:false" json:"whatsapp_notifications"`
	SMSNotifications      bool   `gorm:"default:false" json:"sms_notifications"`
	GeKyChatNotifications bool   `gorm:"default:false" json:"gekychat_notifications"`
	PushNotifications     bool   `gorm:"default:false" json:"push_notifications"`
	TelegramNotifications bool   `gorm:"default:false" json:"telegram_notifications"`
	TelegramChatID        string `json:"telegram_chat_id,omitempty"`

	// Preferred hour for the daily digest, HH:MM.
	NotificationTime string `gorm:"default:09:00" json:"notification_time"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
