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

const (
	collectionCartItems    = "cart_items"
	collectionCartVersions = "cart_versions"
)

// CartRepository stores one row per (user_id, product_id) plus a per-user
// version document. Replace needs a replica set for transactions.
type CartRepository struct {
	client   *mongo.Client
	items    *mongo.Collection
	versions *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{
		client:   db.Client(),
		items:    db.Collection(collectionCartItems),
		versions: db.Collection(collectionCartVersions),
	}
}

type mongoCartRow struct {
	UserID      string                  `bson:"user_id"`
	ProductID   string                  `bson:"product_id"`
	Quantity    int                     `bson:"quantity"`
	Position    int                     `bson:"position"`
	ProductData *domain.ProductSnapshot `bson:"product_data,omitempty"`
	UpdatedAt   time.Time               `bson:"updated_at"`
}

// Load returns the stored lines in cart order. Rows without product data
// cannot be rendered and are skipped.
func (r *CartRepository) Load(ctx context.Context, userID string) ([]domain.CartItem, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cur, err := r.items.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find cart rows: %w", err)
	}
	defer cur.Close(ctx)

	var rows []mongoCartRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode cart rows: %w", err)
	}

	items := make([]domain.CartItem, 0, len(rows))
	for _, row := range rows {
		if row.ProductData == nil {
			continue
		}
		items = append(items, domain.CartItem{
			ProductID: row.ProductID,
			Name:      row.ProductData.Name,
			Price:     row.ProductData.Price,
			Image:     row.ProductData.Image,
			Category:  row.ProductData.Category,
			Quantity:  row.Quantity,
		})
	}
	return items, nil
}

// Replace makes the stored cart equal to items in one transaction: the version
// guard, the upserts and the prune of lines no longer present.
func (r *CartRepository) Replace(ctx context.Context, userID string, items []domain.CartItem, version int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, r.replaceTx(sc, userID, items, version)
	})
	if errors.Is(err, domain.ErrStaleWrite) {
		return domain.ErrStaleWrite
	}
	if err != nil {
		return fmt.Errorf("replace cart: %w", err)
	}
	return nil
}

func (r *CartRepository) replaceTx(ctx mongo.SessionContext, userID string, items []domain.CartItem, version int64) error {
	now := time.Now().UTC()

	filter, update := cartVersionGuard(userID, version, now)
	_, err := r.versions.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrStaleWrite
		}
		return fmt.Errorf("version guard: %w", err)
	}

	if len(items) == 0 {
		if _, err := r.items.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
			return fmt.Errorf("delete cart rows: %w", err)
		}
		return nil
	}

	models, ids := cartUpserts(userID, items, now)
	if _, err := r.items.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("upsert cart rows: %w", err)
	}
	if _, err := r.items.DeleteMany(ctx, cartPruneFilter(userID, ids)); err != nil {
		return fmt.Errorf("prune cart rows: %w", err)
	}
	return nil
}

// cartVersionGuard matches only when the stored version is older; otherwise
// the upsert collides with the existing _id.
func cartVersionGuard(userID string, version int64, now time.Time) (filter, update bson.M) {
	filter = bson.M{"_id": userID, "version": bson.M{"$lt": version}}
	update = bson.M{"$set": bson.M{"version": version, "updated_at": now}}
	return filter, update
}

// cartUpserts builds one upsert per line, keeping cart order in position.
func cartUpserts(userID string, items []domain.CartItem, now time.Time) ([]mongo.WriteModel, []string) {
	ids := make([]string, 0, len(items))
	models := make([]mongo.WriteModel, 0, len(items))
	for i, it := range items {
		ids = append(ids, it.ProductID)
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"user_id": userID, "product_id": it.ProductID}).
			SetUpdate(bson.M{"$set": bson.M{
				"quantity":     it.Quantity,
				"position":     i,
				"product_data": domain.ProductSnapshot{Name: it.Name, Price: it.Price, Image: it.Image, Category: it.Category},
				"updated_at":   now,
			}}).
			SetUpsert(true))
	}
	return models, ids
}

// cartPruneFilter selects the user's rows for products no longer in the cart.
func cartPruneFilter(userID string, keep []string) bson.M {
	return bson.M{"user_id": userID, "product_id": bson.M{"$nin": keep}}
}

// EnsureIndexes creates the unique (user_id, product_id) index.
func (r *CartRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "product_id", Value: 1}},
		Options: uniqueIndex(),
	})
	return err
}
