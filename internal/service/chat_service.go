// Package service owns the chat domain rules: chat identity dedup,
// membership checks, tombstone visibility, read/unread transitions and
// inbox ranking. Persistence, realtime delivery, events and caching are
// injected collaborators.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sociogram/chat-service/internal/apperr"
	"github.com/sociogram/chat-service/internal/metrics"
	"github.com/sociogram/chat-service/internal/models"
	"github.com/sociogram/chat-service/internal/repository"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200

	fanoutTimeout = 5 * time.Second
)

// Notifier pushes events to a user's live connections. Best-effort:
// implementations must never block or fail the calling operation.
type Notifier interface {
	EmitToUser(userID, eventType string, payload any)
}

// Publisher emits durable domain events for downstream services.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// UserDirectory resolves public profile fields for inbox enrichment.
type UserDirectory interface {
	PublicProfile(ctx context.Context, userID string) (*models.PublicProfile, error)
}

// UnreadCache caches the per-user unread badge count.
type UnreadCache interface {
	GetUnreadCount(ctx context.Context, userID string) (int64, bool, error)
	SetUnreadCount(ctx context.Context, userID string, n int64) error
	InvalidateUnread(ctx context.Context, userIDs ...string) error
}

type ChatService struct {
	chats    repository.ChatStore
	messages repository.MessageStore
	users    UserDirectory
	notifier Notifier
	producer Publisher
	cache    UnreadCache
	log      *zap.Logger
}

// NewChatService wires the service. users, notifier, producer and cache
// may be nil; the corresponding side effects are then skipped.
func NewChatService(chats repository.ChatStore, messages repository.MessageStore,
	users UserDirectory, notifier Notifier, producer Publisher, cache UnreadCache,
	log *zap.Logger) *ChatService {
	return &ChatService{
		chats:    chats,
		messages: messages,
		users:    users,
		notifier: notifier,
		producer: producer,
		cache:    cache,
		log:      log,
	}
}

// CreateChat returns the chat for the given participant set, creating
// it if none exists. The creator is always part of the set; the chat
// type follows from the set size. Calling it again with the same set is
// a no-op returning the existing chat untouched.
func (s *ChatService) CreateChat(ctx context.Context, creatorID string, participantIDs []string) (*models.Chat, error) {
	set := models.NormalizeParticipants(append(participantIDs, creatorID))
	if len(set) < 2 {
		return nil, apperr.ErrBadRequest
	}

	chat := &models.Chat{
		ID:              uuid.NewString(),
		IsGroup:         len(set) > 2,
		CreatorID:       creatorID,
		Participants:    set,
		ParticipantsKey: models.ParticipantsKey(set),
		ReadBy:          []string{creatorID},
		DeletedBy:       []string{},
	}

	out, err := s.chats.Upsert(ctx, chat)
	if err != nil {
		return nil, err
	}
	metrics.ChatsCreated.Inc()
	return out, nil
}

// GetChat returns a chat to one of its participants.
func (s *ChatService) GetChat(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, apperr.ErrForbidden
	}
	return chat, nil
}

// CreateMessage persists a message in a chat the sender belongs to.
// Recipients snapshot the chat's participants at this moment. The chat's
// read_by collapses to just the sender, which marks it unread for every
// other participant in one write. Fanout to live connections and the
// event bus happens off the request path.
func (s *ChatService) CreateMessage(ctx context.Context, senderID, chatID, content string) (*models.Message, error) {
	if content == "" {
		return nil, apperr.ErrBadRequest
	}
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(senderID) {
		return nil, apperr.ErrForbidden
	}

	msg := &models.Message{
		ID:         uuid.NewString(),
		ChatID:     chatID,
		SenderID:   senderID,
		Content:    content,
		Recipients: append([]string(nil), chat.Participants...),
		// the author has seen their own message
		ReadBy:    []string{senderID},
		DeletedBy: []string{},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.chats.ResetReadBy(ctx, chatID, senderID); err != nil {
		return nil, err
	}
	metrics.MessagesCreated.Inc()

	go s.fanout(models.EventNewMessage, "message.sent", msg, othersOf(msg.Recipients, senderID))

	return msg, nil
}

// FindInboxMessages returns the newest visible message per chat, ranked
// by recency, with sender profiles attached.
func (s *ChatService) FindInboxMessages(ctx context.Context, userID string, page, limit int64) ([]*models.Message, error) {
	page, limit = normalizePage(page, limit)
	msgs, err := s.messages.Inbox(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}
	s.enrichSenders(ctx, msgs)
	return msgs, nil
}

// FindMessagesByChat returns a page of a chat's messages, newest first,
// to one of its participants. Reading marks the chat read for the
// caller, and marks only the newest returned message read — the record
// means "caught up to here", not a receipt per message.
func (s *ChatService) FindMessagesByChat(ctx context.Context, userID, chatID string, page, limit int64) ([]*models.Message, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, apperr.ErrForbidden
	}

	page, limit = normalizePage(page, limit)
	msgs, err := s.messages.ListByChat(ctx, chatID, userID, page, limit)
	if err != nil {
		return nil, err
	}

	if err := s.chats.MarkRead(ctx, chatID, userID); err != nil {
		s.log.Warn("mark chat read", zap.String("chat_id", chatID), zap.Error(err))
	}
	if len(msgs) > 0 {
		if _, err := s.messages.MarkRead(ctx, msgs[0].ID, userID); err != nil {
			s.log.Warn("mark newest message read", zap.String("message_id", msgs[0].ID), zap.Error(err))
		}
	}
	s.invalidateUnread(ctx, userID)

	return msgs, nil
}

// MarkMessageRead records that userID has read a message, and
// transitively marks the owning chat read for them.
func (s *ChatService) MarkMessageRead(ctx context.Context, userID, messageID string) (*models.Message, error) {
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !msg.HasRecipient(userID) {
		return nil, apperr.ErrForbidden
	}

	updated, err := s.messages.MarkRead(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.chats.MarkRead(ctx, updated.ChatID, userID); err != nil {
		s.log.Warn("mark chat read", zap.String("chat_id", updated.ChatID), zap.Error(err))
	}
	s.invalidateUnread(ctx, userID)
	return updated, nil
}

// DeleteChat tombstones the chat and all of its messages for userID.
// Nothing is erased; other participants keep their view.
func (s *ChatService) DeleteChat(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, apperr.ErrForbidden
	}

	updated, err := s.chats.MarkDeleted(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.messages.MarkChatDeleted(ctx, chatID, userID); err != nil {
		return nil, err
	}
	s.invalidateUnread(ctx, userID)
	return updated, nil
}

// DeleteMessage tombstones one message for userID. The chat itself is
// untouched. The event goes to the actor's own room so their other
// devices drop the message too.
func (s *ChatService) DeleteMessage(ctx context.Context, userID, messageID string) (*models.Message, error) {
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !msg.HasRecipient(userID) {
		return nil, apperr.ErrForbidden
	}

	updated, err := s.messages.MarkDeleted(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}

	go s.fanout(models.EventDeleteMessage, "message.deleted", updated, []string{userID})

	return updated, nil
}

// UnreadChatIDs lists the chats currently unread for userID, skipping
// ones they have deleted. Chat-level read_by only; no message scan.
func (s *ChatService) UnreadChatIDs(ctx context.Context, userID string) ([]string, error) {
	chats, err := s.chats.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		if c.DeletedFor(userID) || !c.UnreadFor(userID) {
			continue
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// UnreadChatCount returns the badge count, served from cache when warm.
func (s *ChatService) UnreadChatCount(ctx context.Context, userID string) (int64, error) {
	if s.cache != nil {
		if n, ok, err := s.cache.GetUnreadCount(ctx, userID); err == nil && ok {
			return n, nil
		}
	}
	ids, err := s.UnreadChatIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := int64(len(ids))
	if s.cache != nil {
		if err := s.cache.SetUnreadCount(ctx, userID, n); err != nil {
			s.log.Warn("cache unread count", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return n, nil
}

// fanout pushes a realtime event to each target user's room and
// publishes the durable domain event. It runs detached from the
// request: failures are logged, never surfaced.
func (s *ChatService) fanout(eventType, topicKey string, msg *models.Message, targets []string) {
	ctx, cancel := context.WithTimeout(context.Background(), fanoutTimeout)
	defer cancel()

	if s.notifier != nil {
		for _, uid := range targets {
			s.notifier.EmitToUser(uid, eventType, msg)
		}
	}
	if s.producer != nil {
		b, err := json.Marshal(msg)
		if err == nil {
			err = s.producer.Publish(ctx, topicKey, b)
		}
		if err != nil {
			s.log.Warn("publish domain event", zap.String("key", topicKey), zap.Error(err))
		}
	}
	s.invalidateUnread(ctx, targets...)
}

func (s *ChatService) enrichSenders(ctx context.Context, msgs []*models.Message) {
	if s.users == nil {
		return
	}
	profiles := make(map[string]*models.PublicProfile)
	for _, m := range msgs {
		p, ok := profiles[m.SenderID]
		if !ok {
			var err error
			p, err = s.users.PublicProfile(ctx, m.SenderID)
			if err != nil {
				s.log.Warn("resolve sender profile", zap.String("user_id", m.SenderID), zap.Error(err))
			}
			profiles[m.SenderID] = p
		}
		m.Sender = p
	}
}

func (s *ChatService) invalidateUnread(ctx context.Context, userIDs ...string) {
	if s.cache == nil || len(userIDs) == 0 {
		return
	}
	if err := s.cache.InvalidateUnread(ctx, userIDs...); err != nil {
		s.log.Warn("invalidate unread cache", zap.Error(err))
	}
}

func othersOf(ids []string, exclude string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}

func normalizePage(page, limit int64) (int64, int64) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}
