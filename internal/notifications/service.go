// Package notifications delivers workflow notifications to users over
// in-app, email and webhook channels and keeps a per-recipient inbox.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"docflow/review-portal/review-portal-backend/internal/notifications/websocket"
	"docflow/review-portal/review-portal-backend/internal/workflow"
)

// Service fans workflow notifications out to recipients and serves the
// in-app inbox. It implements the workflow engine's Notifier.
type Service struct {
	db      *gorm.DB
	hub     *websocket.Hub
	email   *EmailChannel
	webhook *WebhookChannel
	logger  *zap.Logger
}

type Config struct {
	EmailProvider string
	EmailFrom     string
	WebhookURL    string
}

func NewService(db *gorm.DB, hub *websocket.Hub, cfg Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&Notification{}, &DeliveryLog{}); err != nil {
		return nil, fmt.Errorf("failed to migrate notification tables: %w", err)
	}
	return &Service{
		db:      db,
		hub:     hub,
		email:   NewEmailChannel(cfg.EmailProvider, cfg.EmailFrom, logger),
		webhook: NewWebhookChannel(cfg.WebhookURL, logger),
		logger:  logger,
	}, nil
}

// Notify delivers one workflow notification. Recipients are role names
// or user IDs; each gets its own inbox row so read state is per user.
// A failed channel is logged against the row but never fails the
// workflow transition that triggered it.
func (s *Service) Notify(ctx context.Context, n workflow.Notification) error {
	data, _ := json.Marshal(n.Data)
	channel := n.Channel
	if channel == "" {
		channel = ChannelInApp
	}

	if channel == ChannelWebhook {
		// A webhook fires once for the whole notification, not per
		// recipient; the inbox row records the attempt.
		err := s.webhook.Send(ctx, n)
		s.record(ctx, "webhook", channel, n, data, err)
		return err
	}

	var firstErr error
	for _, recipient := range n.Recipients {
		var err error
		switch channel {
		case ChannelEmail:
			err = s.email.Send(ctx, recipient, n)
		case ChannelInApp:
			// Stored row is the delivery; a live socket push is a bonus.
		default:
			err = fmt.Errorf("unsupported channel %q", channel)
		}
		s.record(ctx, recipient, channel, n, data, err)
		if err != nil && firstErr == nil {
			firstErr = err
		}

		if channel == ChannelInApp && s.hub != nil {
			frame := websocket.Frame{
				Type: MessageTypeNotification,
				Data: map[string]any{
					"subject":     n.Subject,
					"body":        n.Body,
					"priority":    n.Priority,
					"document_id": stringField(n.Data, "document_id"),
					"stage":       stringField(n.Data, "stage"),
				},
				Timestamp: time.Now(),
			}
			if s.hub.SendToUser(recipient, frame) == 0 {
				s.hub.SendToRole(recipient, frame)
			}
		}
	}
	return firstErr
}

// record persists the inbox row and its delivery log entry.
func (s *Service) record(ctx context.Context, recipient, channel string, n workflow.Notification, data []byte, sendErr error) {
	status := StatusDelivered
	if sendErr != nil {
		status = StatusFailed
	} else if channel == ChannelEmail {
		status = StatusSent
	}
	row := &Notification{
		ID:         uuid.New(),
		Recipient:  recipient,
		DocumentID: stringField(n.Data, "document_id"),
		WorkflowID: stringField(n.Data, "workflow_id"),
		Stage:      stringField(n.Data, "stage"),
		Channel:    channel,
		Subject:    n.Subject,
		Body:       n.Body,
		Priority:   n.Priority,
		Data:       data,
		Status:     status,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		s.logger.Error("failed to store notification", zap.Error(err), zap.String("recipient", recipient))
		return
	}
	entry := &DeliveryLog{
		ID:             uuid.New(),
		NotificationID: row.ID,
		Channel:        channel,
		Status:         status,
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
		s.logger.Warn("notification delivery failed",
			zap.String("channel", channel),
			zap.String("recipient", recipient),
			zap.Error(sendErr))
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.logger.Error("failed to store delivery log", zap.Error(err))
	}
}

// ListForUser returns the inbox for a user, newest first. Roles are
// included so role-addressed workflow notifications show up too.
func (s *Service) ListForUser(ctx context.Context, userID string, roles []string, limit, offset int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	recipients := append([]string{userID}, roles...)

	var rows []Notification
	err := s.db.WithContext(ctx).
		Where("recipient IN ?", recipients).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return rows, nil
}

// UnreadCount counts inbox rows without a read timestamp.
func (s *Service) UnreadCount(ctx context.Context, userID string, roles []string) (int64, error) {
	recipients := append([]string{userID}, roles...)
	var count int64
	err := s.db.WithContext(ctx).Model(&Notification{}).
		Where("recipient IN ? AND read_at IS NULL", recipients).
		Count(&count).Error
	return count, err
}

// MarkRead stamps the read time on one notification.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ?", id).
		Update("read_at", time.Now())
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

// DeliveryStatus returns the delivery attempts for a notification.
func (s *Service) DeliveryStatus(ctx context.Context, id uuid.UUID) ([]DeliveryLog, error) {
	var logs []DeliveryLog
	err := s.db.WithContext(ctx).
		Where("notification_id = ?", id).
		Order("timestamp DESC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery logs: %w", err)
	}
	return logs, nil
}

func (s *Service) Close() error {
	if s.hub != nil {
		s.hub.Close()
	}
	return nil
}

func stringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
