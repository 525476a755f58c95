package billing

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultCollection is the collection subscription records live in.
const DefaultCollection = "subscriptions"

// MongoStore keeps one document per user with the ledger periods embedded
// under "subscriptions". Aggregate queries run as server-side pipelines.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore returns a store over coll. Call EnsureIndexes once at startup.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	if coll == nil {
		panic("billing: mongo collection is required")
	}
	return &MongoStore{coll: coll}
}

// EnsureIndexes creates the unique user index that backs the one-record-per-user
// invariant, plus the indexes used by report pipelines.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("user_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "subscriptions.status", Value: 1}, {Key: "subscriptions.end_date", Value: 1}},
			Options: options.Index().SetName("period_status_end"),
		},
		{
			Keys:    bson.D{{Key: "subscriptions.start_date", Value: 1}},
			Options: options.Index().SetName("period_start"),
		},
	})
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, userID string) (*Record, error) {
	var rec Record
	err := s.coll.FindOne(ctx, bson.D{{Key: "user_id", Value: userID}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return &rec, nil
}

func (s *MongoStore) Create(ctx context.Context, record *Record) error {
	now := time.Now().UTC()
	doc := record.clone()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	doc.Version = 1

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrRecordExists
		}
		return errors.Join(ErrStorage, err)
	}

	record.CreatedAt, record.UpdatedAt, record.Version = doc.CreatedAt, doc.UpdatedAt, doc.Version
	return nil
}

func (s *MongoStore) Save(ctx context.Context, record *Record) error {
	doc := record.clone()
	doc.Version = record.Version + 1
	doc.UpdatedAt = time.Now().UTC()

	res, err := s.coll.ReplaceOne(ctx, bson.D{
		{Key: "user_id", Value: record.UserID},
		{Key: "version", Value: record.Version},
	}, doc)
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}

	record.Version, record.UpdatedAt = doc.Version, doc.UpdatedAt
	return nil
}

func (s *MongoStore) DistinctUsers(ctx context.Context, filter PeriodFilter) ([]string, error) {
	cursor, err := s.coll.Aggregate(ctx, distinctUsersPipeline(filter))
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	var rows []struct {
		UserID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	users := make([]string, len(rows))
	for i, r := range rows {
		users[i] = r.UserID
	}
	return users, nil
}

func (s *MongoStore) Periods(ctx context.Context, filter PeriodFilter) ([]Period, error) {
	cursor, err := s.coll.Aggregate(ctx, periodsPipeline(filter))
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	periods := make([]Period, 0)
	if err := cursor.All(ctx, &periods); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return periods, nil
}

func distinctUsersPipeline(filter PeriodFilter) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$subscriptions"}},
		{{Key: "$match", Value: periodMatch(filter)}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$user_id"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

func periodsPipeline(filter PeriodFilter) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$subscriptions"}},
		{{Key: "$match", Value: periodMatch(filter)}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$subscriptions"}}}},
	}
}

// periodMatch translates a PeriodFilter into a $match stage over unwound periods.
func periodMatch(f PeriodFilter) bson.D {
	match := bson.D{}
	if f.Status != "" {
		match = append(match, bson.E{Key: "subscriptions.status", Value: string(f.Status)})
	}
	if f.BillingReason != "" {
		match = append(match, bson.E{Key: "subscriptions.billing_reason", Value: f.BillingReason})
	}
	if r := timeRange(f.StartFrom, f.StartBefore); len(r) > 0 {
		match = append(match, bson.E{Key: "subscriptions.start_date", Value: r})
	}
	if r := timeRange(f.EndFrom, f.EndBefore); len(r) > 0 {
		match = append(match, bson.E{Key: "subscriptions.end_date", Value: r})
	}
	if len(f.ExcludeUsers) > 0 {
		match = append(match, bson.E{Key: "user_id", Value: bson.D{{Key: "$nin", Value: f.ExcludeUsers}}})
	}
	return match
}

func timeRange(from, before time.Time) bson.D {
	r := bson.D{}
	if !from.IsZero() {
		r = append(r, bson.E{Key: "$gte", Value: from})
	}
	if !before.IsZero() {
		r = append(r, bson.E{Key: "$lt", Value: before})
	}
	return r
}
