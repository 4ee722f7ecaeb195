package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bizchat/internal/domain"
)

// MemoryStore keeps all chat state in-process. It backs local development
// without Postgres and every handler test.
type MemoryStore struct {
	mu            sync.RWMutex
	businesses    map[string]domain.Business
	conversations map[int64]domain.Conversation
	messages      map[int64][]domain.Message // keyed by conversation id
	nextConvID    int64
	nextMsgID     int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		businesses:    make(map[string]domain.Business),
		conversations: make(map[int64]domain.Conversation),
		messages:      make(map[int64][]domain.Message),
	}
}

func (m *MemoryStore) GetBusiness(_ context.Context, id string) (domain.Business, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.businesses[id]
	return b, ok, nil
}

func (m *MemoryStore) UpdateBusinessStatus(_ context.Context, id string, status domain.BusinessStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.businesses[id]
	if !ok {
		return false, nil
	}
	b.Status = status
	m.businesses[id] = b
	return true, nil
}

func (m *MemoryStore) BusinessStats(_ context.Context, businessID string) (domain.BusinessStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats domain.BusinessStats
	for _, conv := range m.conversations {
		if conv.BusinessID != businessID {
			continue
		}
		stats.TotalConversations++
		switch conv.Status {
		case domain.ConversationActive:
			stats.ActiveConversations++
		case domain.ConversationResolved:
			stats.ResolvedConversations++
		}
		for _, msg := range m.messages[conv.ID] {
			stats.TotalMessages++
			switch msg.SenderType {
			case domain.SenderCustomer:
				stats.CustomerMessages++
			case domain.SenderBusiness:
				stats.BusinessMessages++
			}
		}
	}
	stats.FillDerived()
	return stats, nil
}

func (m *MemoryStore) ListConversations(ctx context.Context, businessID string) ([]domain.Conversation, error) {
	return m.SearchConversations(ctx, businessID, "")
}

func (m *MemoryStore) SearchConversations(_ context.Context, businessID, term string) ([]domain.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	term = strings.ToLower(term)

	type entry struct {
		conv      domain.Conversation
		lastAt    time.Time
		lastMsgID int64
	}
	entries := make([]entry, 0, len(m.conversations))
	for _, conv := range m.conversations {
		if conv.BusinessID != businessID {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(conv.CustomerName), term) {
			continue
		}
		e := entry{conv: m.withDerivedLocked(conv), lastAt: conv.CreatedAt}
		if msgs := m.messages[conv.ID]; len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			e.lastAt = last.CreatedAt
			e.lastMsgID = last.ID
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].lastAt.Equal(entries[j].lastAt) {
			return entries[i].lastAt.After(entries[j].lastAt)
		}
		if entries[i].lastMsgID != entries[j].lastMsgID {
			return entries[i].lastMsgID > entries[j].lastMsgID
		}
		return entries[i].conv.ID > entries[j].conv.ID
	})
	res := make([]domain.Conversation, 0, len(entries))
	for _, e := range entries {
		res = append(res, e.conv)
	}
	return res, nil
}

func (m *MemoryStore) GetConversation(_ context.Context, id int64) (domain.Conversation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.conversations[id]
	if !ok {
		return domain.Conversation{}, false, nil
	}
	return m.withDerivedLocked(conv), true, nil
}

func (m *MemoryStore) UpdateConversationStatus(_ context.Context, id int64, status domain.ConversationStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return false, nil
	}
	conv.Status = status
	conv.UpdatedAt = time.Now().UTC()
	m.conversations[id] = conv
	return true, nil
}

func (m *MemoryStore) TouchConversation(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil
	}
	conv.UpdatedAt = time.Now().UTC()
	m.conversations[id] = conv
	return nil
}

func (m *MemoryStore) ListMessages(_ context.Context, conversationID int64, limit, offset int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[conversationID]
	// Window of the most recent limit rows after skipping offset from the end.
	end := len(msgs) - offset
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	res := make([]domain.Message, end-start)
	copy(res, msgs[start:end])
	return res, nil
}

func (m *MemoryStore) CreateMessage(_ context.Context, params NewMessage) (domain.Message, error) {
	if err := params.Validate(); err != nil {
		return domain.Message{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[params.ConversationID]; !ok {
		return domain.Message{}, ErrNotFound
	}
	m.nextMsgID++
	msg := domain.Message{
		ID:             m.nextMsgID,
		ConversationID: params.ConversationID,
		SenderType:     params.SenderType,
		SenderName:     params.SenderName,
		Content:        params.Content,
		Type:           params.Type,
		FileURL:        params.FileURL,
		FileName:       params.FileName,
		Status:         domain.StatusSent,
		CreatedAt:      time.Now().UTC(),
	}
	m.messages[params.ConversationID] = append(m.messages[params.ConversationID], msg)
	return msg, nil
}

func (m *MemoryStore) UpdateMessageStatus(_ context.Context, id int64, status domain.MessageStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for convID, msgs := range m.messages {
		for i, msg := range msgs {
			if msg.ID != id {
				continue
			}
			if !msg.Status.CanTransitionTo(status) {
				return false, nil
			}
			msgs[i].Status = status
			m.messages[convID] = msgs
			return true, nil
		}
	}
	return false, ErrNotFound
}

// Seed installs the demo data once, mirroring the Postgres store.
func (m *MemoryStore) Seed(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.businesses[SentinelBusinessID]; ok {
		return nil
	}
	business := seedBusiness
	business.CreatedAt = time.Now().UTC()
	m.businesses[business.ID] = business
	for _, sc := range seedConversations() {
		m.nextConvID++
		convID := m.nextConvID
		m.conversations[convID] = domain.Conversation{
			ID:            convID,
			BusinessID:    business.ID,
			CustomerName:  sc.customerName,
			CustomerPhone: sc.customerPhone,
			Status:        sc.status,
			CreatedAt:     sc.at,
			UpdatedAt:     sc.at,
		}
		m.nextMsgID++
		m.messages[convID] = append(m.messages[convID], domain.Message{
			ID:             m.nextMsgID,
			ConversationID: convID,
			SenderType:     domain.SenderCustomer,
			SenderName:     sc.customerName,
			Content:        sc.firstMessage,
			Type:           domain.MessageText,
			Status:         domain.StatusSent,
			CreatedAt:      sc.at,
		})
	}
	return nil
}

// AddBusiness registers a business directly; used by tests and seeding.
func (m *MemoryStore) AddBusiness(b domain.Business) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	m.businesses[b.ID] = b
}

// AddConversation registers a conversation directly; used by tests and seeding.
func (m *MemoryStore) AddConversation(conv domain.Conversation) domain.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv.ID == 0 {
		m.nextConvID++
		conv.ID = m.nextConvID
	} else if conv.ID > m.nextConvID {
		m.nextConvID = conv.ID
	}
	now := time.Now().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = now
	}
	if conv.Status == "" {
		conv.Status = domain.ConversationActive
	}
	m.conversations[conv.ID] = conv
	return conv
}

// withDerivedLocked fills join-computed fields; callers hold at least a read lock.
func (m *MemoryStore) withDerivedLocked(conv domain.Conversation) domain.Conversation {
	msgs := m.messages[conv.ID]
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		conv.LastMessage = last.Content
		at := last.CreatedAt
		conv.LastMessageAt = &at
	}
	unread := 0
	for _, msg := range msgs {
		if msg.SenderType == domain.SenderCustomer && msg.Status != domain.StatusRead {
			unread++
		}
	}
	conv.UnreadCount = unread
	return conv
}
