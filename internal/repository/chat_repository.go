package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sociogram/chat-service/internal/apperr"
	"github.com/sociogram/chat-service/internal/models"
)

// ChatStore is the persistence contract the chat service consumes.
type ChatStore interface {
	// Upsert inserts the chat unless one already exists for the same
	// (is_group, participants_key); either way it returns the stored
	// document. Racing creators resolve to a single row.
	Upsert(ctx context.Context, chat *models.Chat) (*models.Chat, error)
	Get(ctx context.Context, id string) (*models.Chat, error)
	// MarkRead adds userID to read_by as an atomic element add.
	MarkRead(ctx context.Context, chatID, userID string) error
	// ResetReadBy overwrites read_by with just the sender. This is the
	// only whole-field write; concurrent resets serialize per-document.
	ResetReadBy(ctx context.Context, chatID, senderID string) error
	// MarkDeleted adds userID to deleted_by and returns the updated chat.
	MarkDeleted(ctx context.Context, chatID, userID string) (*models.Chat, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Chat, error)
}

type ChatRepository struct {
	coll *mongo.Collection
}

func NewChatRepository(coll *mongo.Collection) *ChatRepository {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "is_group", Value: 1}, {Key: "participants_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("chat_identity_idx"),
		},
		{
			Keys:    bson.D{{Key: "participants", Value: 1}},
			Options: options.Index().SetName("participants_idx"),
		},
	}
	_, _ = coll.Indexes().CreateMany(context.Background(), indexes)
	return &ChatRepository{coll: coll}
}

func (r *ChatRepository) Upsert(ctx context.Context, chat *models.Chat) (*models.Chat, error) {
	chat.CreatedAt = time.Now().UTC()

	filter := bson.M{"is_group": chat.IsGroup, "participants_key": chat.ParticipantsKey}
	update := bson.M{"$setOnInsert": chat}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out models.Chat
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	if mongo.IsDuplicateKeyError(err) {
		// lost the upsert race; the winner's row is there now
		err = r.coll.FindOne(ctx, filter).Decode(&out)
	}
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return &out, nil
}

func (r *ChatRepository) Get(ctx context.Context, id string) (*models.Chat, error) {
	var c models.Chat
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Unavailable(err)
	}
	return &c, nil
}

func (r *ChatRepository) MarkRead(ctx context.Context, chatID, userID string) error {
	res, err := r.coll.UpdateByID(ctx, chatID, bson.M{"$addToSet": bson.M{"read_by": userID}})
	if err != nil {
		return apperr.Unavailable(err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *ChatRepository) ResetReadBy(ctx context.Context, chatID, senderID string) error {
	res, err := r.coll.UpdateByID(ctx, chatID, bson.M{"$set": bson.M{"read_by": []string{senderID}}})
	if err != nil {
		return apperr.Unavailable(err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *ChatRepository) MarkDeleted(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c models.Chat
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": chatID},
		bson.M{"$addToSet": bson.M{"deleted_by": userID}}, opts).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Unavailable(err)
	}
	return &c, nil
}

func (r *ChatRepository) ListForUser(ctx context.Context, userID string) ([]*models.Chat, error) {
	cur, err := r.coll.Find(ctx, bson.M{"participants": userID})
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer cur.Close(ctx)

	var out []*models.Chat
	for cur.Next(ctx) {
		var c models.Chat
		if err := cur.Decode(&c); err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, &c)
	}
	if err := cur.Err(); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return out, nil
}
