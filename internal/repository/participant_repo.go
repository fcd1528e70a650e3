package repository

import (
	"cfstudy/internal/model"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ParticipantRepo is the source of truth for per-participant study settings
type ParticipantRepo interface {
	GetByID(ctx context.Context, id string) (*model.Participant, error)
	Upsert(ctx context.Context, participant *model.Participant) error
}

type participantRepo struct {
	collection *mongo.Collection
}

// NewParticipantRepo creates a new participant repository
func NewParticipantRepo(db *mongo.Database) ParticipantRepo {
	return &participantRepo{
		collection: db.Collection("participants"),
	}
}

func (r *participantRepo) GetByID(ctx context.Context, id string) (*model.Participant, error) {
	var participant model.Participant
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&participant)
	if err == mongo.ErrNoDocuments {
		return nil, nil // Participant not enrolled
	}
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (r *participantRepo) Upsert(ctx context.Context, participant *model.Participant) error {
	participant.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": participant.ID}, participant, options.Replace().SetUpsert(true))
	return err
}
