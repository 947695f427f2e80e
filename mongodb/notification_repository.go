package mongodb

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/civica-dev/accounts/domain"
)

// NotificationRepository implements domain.NotificationRepository as a Mongo
// outbox. A separate delivery worker drains the collection; this repository
// only inserts.
type NotificationRepository struct {
	notifications *mongo.Collection
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		notifications: db.Collection(NotificationsCollection),
	}
}

// Create queues a notification for delivery.
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = bson.NewObjectID().Hex()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if _, err := r.notifications.InsertOne(ctx, n); err != nil {
		log.Error().Err(err).Str("recipient", n.Recipient).Msg("Error queuing notification in MongoDB")
		return err
	}
	return nil
}

var _ domain.NotificationRepository = (*NotificationRepository)(nil)
