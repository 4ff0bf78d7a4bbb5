package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pepcraft/storefront/internal/core/domain"
)

const collectionProfiles = "profiles"

type ProfileRepository struct {
	col *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{col: db.Collection(collectionProfiles)}
}

type mongoProfile struct {
	ID        string    `bson:"_id"`
	Email     string    `bson:"email"`
	Name      string    `bson:"name"`
	AvatarURL string    `bson:"avatar_url,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var p mongoProfile
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return p.toDomain(), nil
}

// Create inserts the row if no row with the same id exists and returns the
// stored row either way. Concurrent first logins converge on one row.
func (r *ProfileRepository) Create(ctx context.Context, profile domain.Profile) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	createdAt := profile.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	update := bson.M{"$setOnInsert": bson.M{
		"email":      profile.Email,
		"name":       profile.Name,
		"avatar_url": profile.AvatarURL,
		"created_at": createdAt,
	}}

	_, err := r.col.UpdateOne(ctx, bson.M{"_id": profile.ID}, update, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	var stored mongoProfile
	if err := r.col.FindOne(ctx, bson.M{"_id": profile.ID}).Decode(&stored); err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return stored.toDomain(), nil
}

func (p mongoProfile) toDomain() *domain.Profile {
	return &domain.Profile{
		ID:        p.ID,
		Email:     p.Email,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
		CreatedAt: p.CreatedAt,
	}
}
