package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
)

const CollectionName = "orders"

// Store keeps orders in a document collection. It has no outbox, so status
// changes are not published.
type Store struct {
	log        *slog.Logger
	collection *mongo.Collection
}

func NewStore(log *slog.Logger, db *mongo.Database) *Store {
	return &Store{log: log, collection: db.Collection(CollectionName)}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "customer.external_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("customer_created"),
	})
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, o domain.Order) (string, error) {
	o.ID = uuid.NewString()
	if _, err := s.collection.InsertOne(ctx, toDocument(o)); err != nil {
		return "", fmt.Errorf("failed to insert order: %w", err)
	}
	s.log.Debug("order stored", "order_id", o.ID)
	return o.ID, nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.Order, error) {
	var doc orderDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("failed to get order: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.collection.Find(ctx, bson.M{"customer.external_id": customerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cur.Close(ctx)

	orders := []domain.Order{}
	for cur.Next(ctx) {
		var doc orderDocument
		if err := cur.Decode(&doc); err != nil {
			s.log.Warn("skipping unreadable order document", "err", err)
			continue
		}
		orders = append(orders, doc.toDomain())
	}
	return orders, cur.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) error {
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to), "updated_at": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := s.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	if n == 0 {
		return domain.ErrOrderNotFound
	}
	return domain.ErrStatusConflict
}
