package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sociogram/chat-service/internal/apperr"
	"github.com/sociogram/chat-service/internal/models"
)

// MessageStore is the message persistence contract.
type MessageStore interface {
	Insert(ctx context.Context, m *models.Message) error
	Get(ctx context.Context, id string) (*models.Message, error)
	// ListByChat returns the page of messages visible to userID in a
	// chat, newest first, ties broken by id.
	ListByChat(ctx context.Context, chatID, userID string, page, limit int64) ([]*models.Message, error)
	// Inbox returns the newest visible message of each chat, ranked by
	// recency, paginated. Exactly one row per conversation.
	Inbox(ctx context.Context, userID string, page, limit int64) ([]*models.Message, error)
	MarkRead(ctx context.Context, messageID, userID string) (*models.Message, error)
	MarkDeleted(ctx context.Context, messageID, userID string) (*models.Message, error)
	// MarkChatDeleted tombstones every message of a chat for userID.
	MarkChatDeleted(ctx context.Context, chatID, userID string) error
}

type MessageRepository struct {
	coll *mongo.Collection
}

func NewMessageRepository(coll *mongo.Collection) *MessageRepository {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("chat_recency_idx"),
		},
		{
			Keys:    bson.D{{Key: "recipients", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("recipient_recency_idx"),
		},
	}
	_, _ = coll.Indexes().CreateMany(context.Background(), indexes)
	return &MessageRepository{coll: coll}
}

func (r *MessageRepository) Insert(ctx context.Context, m *models.Message) error {
	if _, err := r.coll.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.ErrConflict
		}
		return apperr.Unavailable(err)
	}
	return nil
}

func (r *MessageRepository) Get(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Unavailable(err)
	}
	return &m, nil
}

func (r *MessageRepository) ListByChat(ctx context.Context, chatID, userID string, page, limit int64) ([]*models.Message, error) {
	filter := bson.M{
		"chat_id":    chatID,
		"recipients": userID,
		"deleted_by": bson.M{"$ne": userID},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer cur.Close(ctx)
	return decodeMessages(ctx, cur)
}

// Inbox groups visible messages by chat, keeps each chat's newest, and
// ranks the representatives by recency. Sorting before $group makes
// $first pick the newest per chat; the id tie-break keeps pagination
// stable when two messages share a timestamp.
func (r *MessageRepository) Inbox(ctx context.Context, userID string, page, limit int64) ([]*models.Message, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"recipients": userID,
			"deleted_by": bson.M{"$ne": userID},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id": "$chat_id",
			"doc": bson.M{"$first": "$$ROOT"},
		}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$doc"}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$skip", Value: (page - 1) * limit}},
		{{Key: "$limit", Value: limit}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer cur.Close(ctx)
	return decodeMessages(ctx, cur)
}

func (r *MessageRepository) MarkRead(ctx context.Context, messageID, userID string) (*models.Message, error) {
	return r.findOneAndAdd(ctx, messageID, "read_by", userID)
}

func (r *MessageRepository) MarkDeleted(ctx context.Context, messageID, userID string) (*models.Message, error) {
	return r.findOneAndAdd(ctx, messageID, "deleted_by", userID)
}

func (r *MessageRepository) MarkChatDeleted(ctx context.Context, chatID, userID string) error {
	_, err := r.coll.UpdateMany(ctx, bson.M{"chat_id": chatID},
		bson.M{"$addToSet": bson.M{"deleted_by": userID}})
	if err != nil {
		return apperr.Unavailable(err)
	}
	return nil
}

func (r *MessageRepository) findOneAndAdd(ctx context.Context, messageID, field, userID string) (*models.Message, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var m models.Message
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": messageID},
		bson.M{"$addToSet": bson.M{field: userID}}, opts).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Unavailable(err)
	}
	return &m, nil
}

func decodeMessages(ctx context.Context, cur *mongo.Cursor) ([]*models.Message, error) {
	var out []*models.Message
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, &m)
	}
	if err := cur.Err(); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return out, nil
}
