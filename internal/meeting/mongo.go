package meeting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "meetings"

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the unique meetingId index and the lookup indexes
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "meetingId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "creator", Value: 1}, {Key: "startTime", Value: -1}}},
		{Keys: bson.D{{Key: "participants.userId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create meeting indexes: %w", err)
	}
	return nil
}

// Insert stores a new meeting record
func (s *MongoStore) Insert(ctx context.Context, m *Meeting) error {
	if m.Participants == nil {
		m.Participants = []Participant{}
	}
	if m.Messages == nil {
		m.Messages = []Message{}
	}

	if _, err := s.coll.InsertOne(ctx, m); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to insert meeting: %w", err)
	}
	return nil
}

// FindByMeetingID retrieves a meeting by its public id
func (s *MongoStore) FindByMeetingID(ctx context.Context, meetingID string) (*Meeting, error) {
	m := &Meeting{}
	err := s.coll.FindOne(ctx, bson.M{"meetingId": meetingID}).Decode(m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return m, nil
}

// AddParticipant records a participant once; repeated joins are no-ops
func (s *MongoStore) AddParticipant(ctx context.Context, meetingID string, p Participant) error {
	filter := bson.M{
		"meetingId":           meetingID,
		"participants.userId": bson.M{"$ne": p.UserID},
	}
	update := bson.M{"$push": bson.M{"participants": p}}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.exists(ctx, meetingID)
	}
	return nil
}

func (s *MongoStore) AppendMessage(ctx context.Context, meetingID string, msg Message) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"meetingId": meetingID},
		bson.M{"$push": bson.M{"messages": msg}},
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkEnded deactivates a meeting. Ending an ended meeting keeps the first end time.
func (s *MongoStore) MarkEnded(ctx context.Context, meetingID string, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"meetingId": meetingID, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false, "endTime": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to end meeting: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.exists(ctx, meetingID)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, meetingID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"meetingId": meetingID})
	if err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForUser returns meetings the user created or took part in, newest first
func (s *MongoStore) ListForUser(ctx context.Context, userID string) ([]*Meeting, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"creator": userID},
		bson.M{"participants.userId": userID},
	}}
	opts := options.Find().
		SetSort(bson.D{{Key: "startTime", Value: -1}}).
		SetProjection(bson.M{"messages": 0})

	return s.find(ctx, filter, opts)
}

// Upcoming returns the user's scheduled meetings that start after the given time
func (s *MongoStore) Upcoming(ctx context.Context, userID string, after time.Time) ([]*Meeting, error) {
	filter := bson.M{
		"isScheduled": true,
		"isActive":    true,
		"scheduledAt": bson.M{"$gt": after},
		"$or": bson.A{
			bson.M{"creator": userID},
			bson.M{"participants.userId": userID},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "scheduledAt", Value: 1}}).
		SetProjection(bson.M{"messages": 0})

	return s.find(ctx, filter, opts)
}

func (s *MongoStore) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*Meeting, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query meetings: %w", err)
	}
	defer cursor.Close(ctx)

	meetings := []*Meeting{}
	if err := cursor.All(ctx, &meetings); err != nil {
		return nil, fmt.Errorf("failed to decode meetings: %w", err)
	}
	return meetings, nil
}

func (s *MongoStore) exists(ctx context.Context, meetingID string) error {
	n, err := s.coll.CountDocuments(ctx, bson.M{"meetingId": meetingID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to count meetings: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
