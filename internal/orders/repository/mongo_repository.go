package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/azura/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type itemDocument struct {
	ProductID string               `bson:"product_id"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
}

type orderDocument struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty"`
	UserID           string               `bson:"user_id"`
	Items            []itemDocument       `bson:"items"`
	Total            primitive.Decimal128 `bson:"total"`
	Status           string               `bson:"status"`
	PaymentReference string               `bson:"payment_reference"`
	CreatedAt        time.Time            `bson:"created_at"`
	UpdatedAt        time.Time            `bson:"updated_at"`
}

func decimalToBSON(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("convert amount %s: %w", d, err)
	}
	return v, nil
}

func decimalFromBSON(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("convert amount %s: %w", v, err)
	}
	return d, nil
}

func (d orderDocument) toDomain() (*domain.Order, error) {
	total, err := decimalFromBSON(d.Total)
	if err != nil {
		return nil, err
	}
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, it := range d.Items {
		price, err := decimalFromBSON(it.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, Price: price})
	}
	return &domain.Order{
		ID:               d.ID.Hex(),
		OwnerID:          d.UserID,
		Items:            items,
		Total:            total,
		Status:           domain.OrderStatus(d.Status),
		PaymentReference: d.PaymentReference,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}, nil
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("orders"),
	}
}

func (m *MongoRepository) Create(ctx context.Context, order *domain.Order) error {
	total, err := decimalToBSON(order.Total)
	if err != nil {
		return err
	}
	items := make([]itemDocument, 0, len(order.Items))
	for _, it := range order.Items {
		price, err := decimalToBSON(it.Price)
		if err != nil {
			return err
		}
		items = append(items, itemDocument{ProductID: it.ProductID, Quantity: it.Quantity, Price: price})
	}

	now := time.Now().UTC()
	doc := orderDocument{
		ID:               primitive.NewObjectID(),
		UserID:           order.OwnerID,
		Items:            items,
		Total:            total,
		Status:           string(order.Status),
		PaymentReference: order.PaymentReference,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	order.ID = doc.ID.Hex()
	order.CreatedAt = now
	order.UpdatedAt = now
	return nil
}

func (m *MongoRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	return m.findOne(ctx, bson.M{"_id": oid})
}

func (m *MongoRepository) GetByPaymentReference(ctx context.Context, reference string) (*domain.Order, error) {
	if reference == "" {
		return nil, ErrOrderNotFound
	}
	return m.findOne(ctx, bson.M{"payment_reference": reference})
}

func (m *MongoRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var doc orderDocument
	if err := m.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return doc.toDomain()
}

func (m *MongoRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return m.find(ctx, bson.M{"user_id": ownerID}, opts)
}

func (m *MongoRepository) Latest(ctx context.Context, limit int) ([]domain.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return m.find(ctx, bson.M{}, opts)
}

func (m *MongoRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Order, error) {
	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

func (m *MongoRepository) HasPurchased(ctx context.Context, ownerID, productID string, statuses ...domain.OrderStatus) (bool, error) {
	in := make([]string, 0, len(statuses))
	for _, st := range statuses {
		in = append(in, string(st))
	}
	filter := bson.M{
		"user_id":          ownerID,
		"items.product_id": productID,
		"status":           bson.M{"$in": in},
	}
	n, err := m.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check purchase: %w", err)
	}
	return n > 0, nil
}

func (m *MongoRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, domain.OrderStatus, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, "", ErrOrderNotFound
	}

	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{"status": string(status), "updated_at": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before orderDocument
	if err := m.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&before); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, "", ErrOrderNotFound
		}
		return nil, "", fmt.Errorf("failed to update order status: %w", err)
	}

	order, err := before.toDomain()
	if err != nil {
		return nil, "", err
	}
	previous := order.Status
	order.Status = status
	order.UpdatedAt = now
	return order, previous, nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "items.product_id", Value: 1}}},
		{
			Keys: bson.D{{Key: "payment_reference", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"payment_reference": bson.M{"$gt": ""}}),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

var _ OrderRepository = (*MongoRepository)(nil)
