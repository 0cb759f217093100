package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification is one delivered (or attempted) notification for one
// recipient. Workflow notifications fan out to one row per recipient so
// each user has their own read state.
type Notification struct {
	ID         uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid"`
	Recipient  string         `json:"recipient" gorm:"not null;index"`
	DocumentID string         `json:"document_id" gorm:"index"`
	WorkflowID string         `json:"workflow_id" gorm:""`
	Stage      string         `json:"stage" gorm:""`
	Channel    string         `json:"channel" gorm:"not null"`
	Subject    string         `json:"subject" gorm:"not null"`
	Body       string         `json:"body" gorm:""`
	Priority   string         `json:"priority" gorm:"default:normal"`
	Data       datatypes.JSON `json:"data" gorm:"type:jsonb"`
	Status     string         `json:"status" gorm:"not null"`
	ReadAt     *time.Time     `json:"read_at" gorm:""`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// DeliveryLog records each delivery attempt per channel, including
// failures, so operators can trace why a notification never arrived.
type DeliveryLog struct {
	ID             uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	NotificationID uuid.UUID `json:"notification_id" gorm:"not null;index"`
	Channel        string    `json:"channel" gorm:"not null"`
	Status         string    `json:"status" gorm:"not null"`
	Error          string    `json:"error" gorm:""`
	Timestamp      time.Time `json:"timestamp" gorm:"autoCreateTime"`
}

// Message is the frame pushed to websocket clients.
type Message struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Target    string         `json:"target,omitempty"`
}

const (
	ChannelEmail   = "email"
	ChannelInApp   = "in_app"
	ChannelWebhook = "webhook"

	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"

	MessageTypeNotification = "notification"
	MessageTypeStatus       = "status"
)
