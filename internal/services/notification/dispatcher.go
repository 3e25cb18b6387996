package notification

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"garage-system/internal/database/models"
)

const EventsChannel = "notifications:events"

const (
	TypeQuoteFinalized = "quote.finalized"
	TypeQuoteAccepted  = "quote.accepted"
	TypeQuoteRefused   = "quote.refused"
	TypeRepairUpdated  = "repair.updated"
	TypeInvoiceCreated = "invoice.created"
	TypePaymentAdded   = "invoice.payment"
)

type Event struct {
	NotificationID int64  `json:"notification_id"`
	RecipientID    *int64 `json:"recipient_id,omitempty"`
	RecipientRole  string `json:"recipient_role,omitempty"`
	Type           string `json:"type"`
	Message        string `json:"message"`
	Link           string `json:"link"`
}

// Dispatcher persists notifications and fans them out over redis pub/sub.
// It is strictly fire-and-forget: delivery failures are logged and never
// surface to the state transition that triggered them.
type Dispatcher struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewDispatcher(db *gorm.DB, redisClient *redis.Client) *Dispatcher {
	return &Dispatcher{db: db, redis: redisClient}
}

// NotifyUser targets a single recipient.
func (d *Dispatcher) NotifyUser(ctx context.Context, recipientID int64, notifType, message, link string) {
	d.dispatch(ctx, &recipientID, "", notifType, message, link)
}

// NotifyRole targets every user holding the role.
func (d *Dispatcher) NotifyRole(ctx context.Context, role, notifType, message, link string) {
	d.dispatch(ctx, nil, role, notifType, message, link)
}

func (d *Dispatcher) dispatch(ctx context.Context, recipientID *int64, role, notifType, message, link string) {
	n := models.Notification{
		RecipientID:   recipientID,
		RecipientRole: role,
		Type:          notifType,
		Message:       message,
		Link:          link,
	}
	if err := d.db.WithContext(ctx).Create(&n).Error; err != nil {
		logrus.WithError(err).WithField("type", notifType).Warn("failed to persist notification")
		return
	}

	if d.redis == nil {
		return
	}
	payload, err := json.Marshal(Event{
		NotificationID: n.ID,
		RecipientID:    recipientID,
		RecipientRole:  role,
		Type:           notifType,
		Message:        message,
		Link:           link,
	})
	if err != nil {
		logrus.WithError(err).Warn("failed to encode notification event")
		return
	}
	if err := d.redis.Publish(ctx, EventsChannel, payload).Err(); err != nil {
		logrus.WithError(err).WithField("type", notifType).Warn("failed to publish notification event")
	}
}

// ListForUser returns notifications addressed to the user directly or to
// their role, newest first.
func (d *Dispatcher) ListForUser(ctx context.Context, user models.User) ([]models.Notification, error) {
	var out []models.Notification
	err := d.db.WithContext(ctx).
		Where("recipient_id = ? OR recipient_role = ?", user.ID, user.Role).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// MarkRead flags a notification as read; unknown ids are a no-op.
func (d *Dispatcher) MarkRead(ctx context.Context, id int64) error {
	return d.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read", true).Error
}
