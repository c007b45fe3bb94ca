package model

import (
	"time"

	"gorm.io/datatypes"
)

// UserRole 用户角色。
type UserRole string

const (
	RoleCandidate UserRole = "candidate"
	RoleStartup   UserRole = "startup"
)

// User 通知收件人，仅保存投递所需字段。
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	Email     string    `gorm:"size:256" json:"email" yaml:"email"`
	Role      UserRole  `gorm:"size:32" json:"role" yaml:"role"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

// NotificationAction 通知中的可点击链接。
type NotificationAction struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// NotificationPayload 引擎产出的通知内容。
type NotificationPayload struct {
	Title   string               `json:"title"`
	Message string               `json:"message"`
	Read    bool                 `json:"read"`
	Actions []NotificationAction `json:"actions"`
}

// Notification 用户收件箱中的通知记录。
type Notification struct {
	ID        uint                                    `gorm:"primaryKey" json:"id"`
	UserID    string                                  `gorm:"size:64;index" json:"userId"`
	Title     string                                  `gorm:"size:256" json:"title"`
	Message   string                                  `gorm:"type:text" json:"message"`
	Read      bool                                    `json:"read"`
	Actions   datatypes.JSONSlice[NotificationAction] `json:"actions"`
	CreatedAt time.Time                               `gorm:"index" json:"timestamp"`
}

// NewNotification 由通知内容生成收件箱记录。
func NewNotification(userID string, p NotificationPayload) Notification {
	return Notification{
		UserID:  userID,
		Title:   p.Title,
		Message: p.Message,
		Read:    p.Read,
		Actions: datatypes.JSONSlice[NotificationAction](p.Actions),
	}
}

// Payload 还原通知内容。
func (n Notification) Payload() NotificationPayload {
	return NotificationPayload{
		Title:   n.Title,
		Message: n.Message,
		Read:    n.Read,
		Actions: []NotificationAction(n.Actions),
	}
}
