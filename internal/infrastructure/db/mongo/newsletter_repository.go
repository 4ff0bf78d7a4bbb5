package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pepcraft/storefront/internal/core/domain"
)

const collectionNewsletter = "newsletter_subscribers"

type NewsletterRepository struct {
	col *mongo.Collection
}

func NewNewsletterRepository(db *mongo.Database) *NewsletterRepository {
	return &NewsletterRepository{col: db.Collection(collectionNewsletter)}
}

// Insert stores a subscriber; the unique email index turns a repeat into
// domain.ErrAlreadySubscribed.
func (r *NewsletterRepository) Insert(ctx context.Context, sub domain.Subscriber) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, bson.M{"email": sub.Email, "subscribed_at": sub.SubscribedAt})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadySubscribed
		}
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

func (r *NewsletterRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: uniqueIndex(),
	})
	return err
}
