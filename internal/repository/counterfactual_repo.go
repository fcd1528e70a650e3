package repository

import (
	"cfstudy/internal/model"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AnyRevision disables the revision check on a write
const AnyRevision int64 = -1

var (
	ErrRevisionConflict = errors.New("record revision changed")
	ErrNotFound         = errors.New("record not found")
)

// CounterfactualRepo is the document store for counterfactual records.
//
// Get normalizes every historical document shape. Set and Update always write
// the flattened shape and return the record as stored after the write. When
// expectedRevision is not AnyRevision the write only applies if the stored
// revision still matches.
type CounterfactualRepo interface {
	Get(ctx context.Context, key model.RecordKey) (*model.CounterfactualRecord, error)
	Set(ctx context.Context, key model.RecordKey, rec *model.CounterfactualRecord, expectedRevision int64) (*model.CounterfactualRecord, error)
	Update(ctx context.Context, key model.RecordKey, patch model.RecordPatch, expectedRevision int64) (*model.CounterfactualRecord, error)
	Scan(ctx context.Context, fn func(model.RecordKey) error) error
}

type counterfactualRepo struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewCounterfactualRepo creates a new counterfactual repository
func NewCounterfactualRepo(db *mongo.Database) CounterfactualRepo {
	return &counterfactualRepo{
		collection: db.Collection("recordings"),
		now:        time.Now,
	}
}

// EnsureIndexes creates the key index used by every lookup
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("recordings").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: fieldUserID, Value: 1},
			{Key: fieldSessionID, Value: 1},
			{Key: fieldRecordingID, Value: 1},
		},
		Options: options.Index().SetName("record_key"),
	})
	return err
}

func keyFilter(key model.RecordKey) bson.M {
	return bson.M{
		fieldUserID:      key.UserID,
		fieldSessionID:   key.SessionID,
		fieldRecordingID: key.RecordingID,
	}
}

func revisionFilter(key model.RecordKey, expected int64) bson.M {
	filter := keyFilter(key)
	switch {
	case expected == AnyRevision:
	case expected == 0:
		// Documents written before revisions existed have no field at all
		filter[fieldRevision] = bson.M{"$in": bson.A{0, nil}}
	default:
		filter[fieldRevision] = expected
	}
	return filter
}

func (r *counterfactualRepo) Get(ctx context.Context, key model.RecordKey) (*model.CounterfactualRecord, error) {
	var doc counterfactualDoc
	err := r.collection.FindOne(ctx, keyFilter(key)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := doc.record()
	rec.Key = key
	return rec, nil
}

func (r *counterfactualRepo) Set(ctx context.Context, key model.RecordKey, rec *model.CounterfactualRecord, expectedRevision int64) (*model.CounterfactualRecord, error) {
	update := bson.M{
		"$set": canonicalSet(key, rec, r.now().UTC()),
		"$inc": bson.M{fieldRevision: 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if expectedRevision == AnyRevision {
		update["$setOnInsert"] = bson.M{"_id": key.String()}
		opts.SetUpsert(true)
	}
	return r.findAndModify(ctx, key, revisionFilter(key, expectedRevision), update, opts, expectedRevision)
}

func (r *counterfactualRepo) Update(ctx context.Context, key model.RecordKey, patch model.RecordPatch, expectedRevision int64) (*model.CounterfactualRecord, error) {
	update := bson.M{
		"$set": patchSet(patch, r.now().UTC()),
		"$inc": bson.M{fieldRevision: 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return r.findAndModify(ctx, key, revisionFilter(key, expectedRevision), update, opts, expectedRevision)
}

func (r *counterfactualRepo) findAndModify(ctx context.Context, key model.RecordKey, filter, update bson.M, opts *options.FindOneAndUpdateOptions, expectedRevision int64) (*model.CounterfactualRecord, error) {
	var doc counterfactualDoc
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		if expectedRevision == AnyRevision {
			return nil, ErrNotFound
		}
		return nil, ErrRevisionConflict
	}
	if err != nil {
		return nil, err
	}
	rec := doc.record()
	rec.Key = key
	return rec, nil
}

// Scan calls fn with the key of every document that carries counterfactual
// fields in any shape. It stops at the first error fn returns.
func (r *counterfactualRepo) Scan(ctx context.Context, fn func(model.RecordKey) error) error {
	filter := bson.M{"$or": bson.A{
		bson.M{fieldTexts: bson.M{"$exists": true}},
		bson.M{fieldLegacyResults: bson.M{"$exists": true}},
		bson.M{fieldLegacyNested: bson.M{"$exists": true}},
	}}
	opts := options.Find().SetProjection(bson.M{
		fieldUserID:      1,
		fieldSessionID:   1,
		fieldRecordingID: 1,
	})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var key model.RecordKey
		if err := cursor.Decode(&key); err != nil {
			return err
		}
		if !key.Valid() {
			continue
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	return cursor.Err()
}
