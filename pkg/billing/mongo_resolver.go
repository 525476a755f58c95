package billing

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoUserResolver looks users up by the provider customer id stored on the
// application's user documents.
type MongoUserResolver struct {
	users         *mongo.Collection
	customerField string
}

// NewMongoUserResolver resolves customers against users, matching customerField
// (for example "stripe_customer_id").
func NewMongoUserResolver(users *mongo.Collection, customerField string) *MongoUserResolver {
	if users == nil {
		panic("billing: users collection is required")
	}
	if customerField == "" {
		customerField = "stripe_customer_id"
	}
	return &MongoUserResolver{users: users, customerField: customerField}
}

func (r *MongoUserResolver) ResolveUserID(ctx context.Context, customerRef string) (string, error) {
	var doc struct {
		ID any `bson:"_id"`
	}
	err := r.users.FindOne(ctx,
		bson.D{{Key: r.customerField, Value: customerRef}},
		options.FindOne().SetProjection(bson.D{{Key: "_id", Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("%w: %s", ErrCustomerNotFound, customerRef)
	}
	if err != nil {
		return "", errors.Join(ErrStorage, err)
	}

	switch id := doc.ID.(type) {
	case bson.ObjectID:
		return id.Hex(), nil
	case string:
		return id, nil
	default:
		return fmt.Sprint(id), nil
	}
}
