package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/azura/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type lineDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	ProductID string             `bson:"product_id"`
	Quantity  int                `bson:"quantity"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d lineDocument) toDomain() domain.CartLine {
	return domain.CartLine{
		ID:        d.ID.Hex(),
		OwnerID:   d.UserID,
		ProductID: d.ProductID,
		Quantity:  d.Quantity,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("cart_lines"),
	}
}

func (m *MongoRepository) ListLines(ctx context.Context, ownerID string) ([]domain.CartLine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := m.collection.Find(ctx, bson.M{"user_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}

	var docs []lineDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode cart lines: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(docs))
	for _, d := range docs {
		lines = append(lines, d.toDomain())
	}
	return lines, nil
}

func (m *MongoRepository) AddQuantity(ctx context.Context, ownerID, productID string, quantity int) error {
	now := time.Now().UTC()
	filter := bson.M{"user_id": ownerID, "product_id": productID}
	update := bson.M{
		"$inc":         bson.M{"quantity": quantity},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		// Two concurrent upserts raced on the unique index; the loser's retry matches the
		// winner's document and increments it.
		_, err = m.collection.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return fmt.Errorf("failed to add cart line: %w", err)
	}
	return nil
}

func (m *MongoRepository) SetQuantity(ctx context.Context, ownerID, lineID string, quantity int) error {
	id, err := primitive.ObjectIDFromHex(lineID)
	if err != nil {
		return ErrLineNotFound
	}

	filter := bson.M{"_id": id, "user_id": ownerID}
	update := bson.M{"$set": bson.M{"quantity": quantity, "updated_at": time.Now().UTC()}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update cart line: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (m *MongoRepository) SetQuantities(ctx context.Context, ownerID string, updates []domain.LineQuantity) error {
	if len(updates) == 0 {
		return nil
	}

	ids := make([]primitive.ObjectID, 0, len(updates))
	unique := make(map[primitive.ObjectID]struct{}, len(updates))
	for _, u := range updates {
		id, err := primitive.ObjectIDFromHex(u.LineID)
		if err != nil {
			return ErrLineNotFound
		}
		ids = append(ids, id)
		unique[id] = struct{}{}
	}

	owned, err := m.collection.CountDocuments(ctx, bson.M{
		"_id":     bson.M{"$in": ids},
		"user_id": ownerID,
	})
	if err != nil {
		return fmt.Errorf("failed to check cart lines: %w", err)
	}
	if owned != int64(len(unique)) {
		return ErrLineNotFound
	}

	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(updates))
	for i, u := range updates {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": ids[i], "user_id": ownerID}).
			SetUpdate(bson.M{"$set": bson.M{"quantity": u.Quantity, "updated_at": now}}))
	}

	if _, err := m.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("failed to update cart lines: %w", err)
	}
	return nil
}

func (m *MongoRepository) RemoveLine(ctx context.Context, ownerID, lineID string) error {
	id, err := primitive.ObjectIDFromHex(lineID)
	if err != nil {
		return ErrLineNotFound
	}

	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": ownerID})
	if err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (m *MongoRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	if _, err := m.collection.DeleteMany(ctx, bson.M{"user_id": ownerID}); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "product_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

var _ CartRepository = (*MongoRepository)(nil)
