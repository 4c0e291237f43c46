package service

import (
	"context"
	"sort"
	"sync"

	"github.com/sociogram/chat-service/internal/apperr"
	"github.com/sociogram/chat-service/internal/models"
)

// In-memory stores mirroring the repository contracts, including the
// atomicity they promise: every mutation runs under one lock, set adds
// are element-wise, and the upsert is insert-unique-or-return-existing.

type memChatStore struct {
	mu    sync.Mutex
	chats map[string]*models.Chat
	byKey map[string]string // "group|participants_key" -> chat id
}

func newMemChatStore() *memChatStore {
	return &memChatStore{
		chats: make(map[string]*models.Chat),
		byKey: make(map[string]string),
	}
}

func identityKey(isGroup bool, key string) string {
	if isGroup {
		return "g|" + key
	}
	return "p|" + key
}

func (s *memChatStore) Upsert(_ context.Context, chat *models.Chat) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byKey[identityKey(chat.IsGroup, chat.ParticipantsKey)]; ok {
		return cloneChat(s.chats[id]), nil
	}
	c := cloneChat(chat)
	s.chats[c.ID] = c
	s.byKey[identityKey(c.IsGroup, c.ParticipantsKey)] = c.ID
	return cloneChat(c), nil
}

func (s *memChatStore) Get(_ context.Context, id string) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return cloneChat(c), nil
}

func (s *memChatStore) MarkRead(_ context.Context, chatID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return apperr.ErrNotFound
	}
	c.ReadBy = addToSet(c.ReadBy, userID)
	return nil
}

func (s *memChatStore) ResetReadBy(_ context.Context, chatID, senderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return apperr.ErrNotFound
	}
	c.ReadBy = []string{senderID}
	return nil
}

func (s *memChatStore) MarkDeleted(_ context.Context, chatID, userID string) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	c.DeletedBy = addToSet(c.DeletedBy, userID)
	return cloneChat(c), nil
}

func (s *memChatStore) ListForUser(_ context.Context, userID string) ([]*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Chat
	for _, c := range s.chats {
		if c.HasParticipant(userID) {
			out = append(out, cloneChat(c))
		}
	}
	return out, nil
}

type memMessageStore struct {
	mu   sync.Mutex
	msgs map[string]*models.Message
}

func newMemMessageStore() *memMessageStore {
	return &memMessageStore{msgs: make(map[string]*models.Message)}
}

func (s *memMessageStore) Insert(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.msgs[m.ID]; ok {
		return apperr.ErrConflict
	}
	s.msgs[m.ID] = cloneMessage(m)
	return nil
}

func (s *memMessageStore) Get(_ context.Context, id string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return cloneMessage(m), nil
}

func (s *memMessageStore) ListByChat(_ context.Context, chatID, userID string, page, limit int64) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Message
	for _, m := range s.msgs {
		if m.ChatID == chatID && m.HasRecipient(userID) && !m.DeletedFor(userID) {
			out = append(out, cloneMessage(m))
		}
	}
	sortNewestFirst(out)
	return paginate(out, page, limit), nil
}

func (s *memMessageStore) Inbox(_ context.Context, userID string, page, limit int64) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	newest := make(map[string]*models.Message)
	for _, m := range s.msgs {
		if !m.HasRecipient(userID) || m.DeletedFor(userID) {
			continue
		}
		cur, ok := newest[m.ChatID]
		if !ok || newerThan(m, cur) {
			newest[m.ChatID] = m
		}
	}
	out := make([]*models.Message, 0, len(newest))
	for _, m := range newest {
		out = append(out, cloneMessage(m))
	}
	sortNewestFirst(out)
	return paginate(out, page, limit), nil
}

func (s *memMessageStore) MarkRead(_ context.Context, messageID, userID string) (*models.Message, error) {
	return s.addToField(messageID, userID, true)
}

func (s *memMessageStore) MarkDeleted(_ context.Context, messageID, userID string) (*models.Message, error) {
	return s.addToField(messageID, userID, false)
}

func (s *memMessageStore) MarkChatDeleted(_ context.Context, chatID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if m.ChatID == chatID {
			m.DeletedBy = addToSet(m.DeletedBy, userID)
		}
	}
	return nil
}

func (s *memMessageStore) addToField(messageID, userID string, read bool) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[messageID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if read {
		m.ReadBy = addToSet(m.ReadBy, userID)
	} else {
		m.DeletedBy = addToSet(m.DeletedBy, userID)
	}
	return cloneMessage(m), nil
}

func (s *memMessageStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// fakeNotifier records emitted events.
type fakeNotifier struct {
	mu     sync.Mutex
	events []emitted
}

type emitted struct {
	UserID string
	Type   string
	Msg    *models.Message
}

func (n *fakeNotifier) EmitToUser(userID, eventType string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	msg, _ := payload.(*models.Message)
	n.events = append(n.events, emitted{UserID: userID, Type: eventType, Msg: msg})
}

func (n *fakeNotifier) recorded() []emitted {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]emitted(nil), n.events...)
}

// fakeDirectory serves canned profiles.
type fakeDirectory struct {
	profiles map[string]*models.PublicProfile
}

func (d *fakeDirectory) PublicProfile(_ context.Context, userID string) (*models.PublicProfile, error) {
	p, ok := d.profiles[userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

func addToSet(ids []string, id string) []string {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

func newerThan(a, b *models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func sortNewestFirst(msgs []*models.Message) {
	sort.Slice(msgs, func(i, j int) bool { return newerThan(msgs[i], msgs[j]) })
}

func paginate(msgs []*models.Message, page, limit int64) []*models.Message {
	start := (page - 1) * limit
	if start >= int64(len(msgs)) {
		return nil
	}
	end := start + limit
	if end > int64(len(msgs)) {
		end = int64(len(msgs))
	}
	return msgs[start:end]
}

func cloneChat(c *models.Chat) *models.Chat {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	out.ReadBy = append([]string(nil), c.ReadBy...)
	out.DeletedBy = append([]string(nil), c.DeletedBy...)
	return &out
}

func cloneMessage(m *models.Message) *models.Message {
	out := *m
	out.Recipients = append([]string(nil), m.Recipients...)
	out.ReadBy = append([]string(nil), m.ReadBy...)
	out.DeletedBy = append([]string(nil), m.DeletedBy...)
	return &out
}
