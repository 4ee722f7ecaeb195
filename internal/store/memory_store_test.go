package store

import (
	"context"
	"errors"
	"testing"

	"bizchat/internal/domain"
)

func seededStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	if err := s.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestSeedIsIdempotent(t *testing.T) {
	s := seededStore(t)
	if err := s.Seed(context.Background()); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	convs, err := s.ListConversations(context.Background(), SentinelBusinessID)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(convs) != 5 {
		t.Fatalf("expected 5 seeded conversations, got %d", len(convs))
	}
}

func TestCreateMessageRequiresContentOrAttachment(t *testing.T) {
	s := seededStore(t)
	_, err := s.CreateMessage(context.Background(), NewMessage{
		ConversationID: 1,
		SenderType:     domain.SenderBusiness,
		SenderName:     "Agent",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// An attachment without content is fine.
	msg, err := s.CreateMessage(context.Background(), NewMessage{
		ConversationID: 1,
		SenderType:     domain.SenderBusiness,
		SenderName:     "Agent",
		Type:           domain.MessageImage,
		FileURL:        "/uploads/a.png",
		FileName:       "a.png",
	})
	if err != nil {
		t.Fatalf("attachment-only message: %v", err)
	}
	if msg.Status != domain.StatusSent {
		t.Fatalf("new message status = %q, want sent", msg.Status)
	}
}

func TestCreateMessageMissingFields(t *testing.T) {
	s := seededStore(t)
	_, err := s.CreateMessage(context.Background(), NewMessage{Content: "hi"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 3 {
		t.Fatalf("expected 3 missing fields, got %v", verr.Fields)
	}
}

func TestCreateMessageUnknownConversation(t *testing.T) {
	s := seededStore(t)
	_, err := s.CreateMessage(context.Background(), NewMessage{
		ConversationID: 999,
		SenderType:     domain.SenderCustomer,
		SenderName:     "Ghost",
		Content:        "anyone there?",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewMessageMovesConversationToFront(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	convs, err := s.ListConversations(ctx, SentinelBusinessID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	tail := convs[len(convs)-1]

	if _, err := s.CreateMessage(ctx, NewMessage{
		ConversationID: tail.ID,
		SenderType:     domain.SenderBusiness,
		SenderName:     "Agent",
		Content:        "following up",
	}); err != nil {
		t.Fatalf("create message: %v", err)
	}

	convs, err = s.ListConversations(ctx, SentinelBusinessID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if convs[0].ID != tail.ID {
		t.Fatalf("conversation %d should be first after new message, got %d", tail.ID, convs[0].ID)
	}
	if convs[0].LastMessage != "following up" {
		t.Fatalf("last message = %q", convs[0].LastMessage)
	}
	if convs[0].LastMessageAt == nil {
		t.Fatal("expected last message time")
	}
}

func TestUnreadCountTracksCustomerMessages(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	conv, ok, err := s.GetConversation(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("get conversation: ok=%v err=%v", ok, err)
	}
	if conv.UnreadCount != 1 {
		t.Fatalf("seeded unread = %d, want 1", conv.UnreadCount)
	}

	msg, err := s.CreateMessage(ctx, NewMessage{
		ConversationID: 1,
		SenderType:     domain.SenderCustomer,
		SenderName:     conv.CustomerName,
		Content:        "still broken",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	conv, _, _ = s.GetConversation(ctx, 1)
	if conv.UnreadCount != 2 {
		t.Fatalf("unread after customer message = %d, want 2", conv.UnreadCount)
	}

	// Business messages never count as unread.
	if _, err := s.CreateMessage(ctx, NewMessage{
		ConversationID: 1,
		SenderType:     domain.SenderBusiness,
		SenderName:     "Agent",
		Content:        "on it",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	conv, _, _ = s.GetConversation(ctx, 1)
	if conv.UnreadCount != 2 {
		t.Fatalf("unread after business message = %d, want 2", conv.UnreadCount)
	}

	// Reading one customer message drops the count.
	if changed, err := s.UpdateMessageStatus(ctx, msg.ID, domain.StatusRead); err != nil || !changed {
		t.Fatalf("mark read: changed=%v err=%v", changed, err)
	}
	conv, _, _ = s.GetConversation(ctx, 1)
	if conv.UnreadCount != 1 {
		t.Fatalf("unread after read = %d, want 1", conv.UnreadCount)
	}
}

func TestUpdateMessageStatusForwardOnly(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	msg, err := s.CreateMessage(ctx, NewMessage{
		ConversationID: 1,
		SenderType:     domain.SenderCustomer,
		SenderName:     "John Doe",
		Content:        "hello",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if changed, _ := s.UpdateMessageStatus(ctx, msg.ID, domain.StatusRead); !changed {
		t.Fatal("sent -> read should apply")
	}
	if changed, _ := s.UpdateMessageStatus(ctx, msg.ID, domain.StatusDelivered); changed {
		t.Fatal("read -> delivered must not apply")
	}
	if changed, _ := s.UpdateMessageStatus(ctx, msg.ID, domain.StatusRead); changed {
		t.Fatal("read -> read must be a no-op")
	}
	if _, err := s.UpdateMessageStatus(ctx, 999, domain.StatusRead); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown message, got %v", err)
	}
}

func TestSearchConversationsCaseInsensitive(t *testing.T) {
	s := seededStore(t)
	convs, err := s.SearchConversations(context.Background(), SentinelBusinessID, "sArAh")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(convs) != 1 || convs[0].CustomerName != "Sarah Johnson" {
		t.Fatalf("unexpected search result: %+v", convs)
	}
}

func TestListMessagesWindow(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	for _, content := range []string{"one", "two", "three"} {
		if _, err := s.CreateMessage(ctx, NewMessage{
			ConversationID: 1,
			SenderType:     domain.SenderBusiness,
			SenderName:     "Agent",
			Content:        content,
		}); err != nil {
			t.Fatalf("create %q: %v", content, err)
		}
	}

	// 4 messages total (1 seeded + 3). The most recent 2:
	msgs, err := s.ListMessages(ctx, 1, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "two" || msgs[1].Content != "three" {
		t.Fatalf("unexpected window: %+v", msgs)
	}

	// Skipping the most recent one:
	msgs, err = s.ListMessages(ctx, 1, 2, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Content != "two" {
		t.Fatalf("unexpected offset window: %+v", msgs)
	}
}

func TestBusinessStats(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()
	if _, err := s.CreateMessage(ctx, NewMessage{
		ConversationID: 1,
		SenderType:     domain.SenderBusiness,
		SenderName:     "Agent",
		Content:        "how can I help?",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	stats, err := s.BusinessStats(ctx, SentinelBusinessID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalConversations != 5 || stats.ActiveConversations != 4 || stats.ResolvedConversations != 1 {
		t.Fatalf("unexpected conversation counts: %+v", stats)
	}
	if stats.TotalMessages != 6 || stats.CustomerMessages != 5 || stats.BusinessMessages != 1 {
		t.Fatalf("unexpected message counts: %+v", stats)
	}
	if stats.AverageMessagesPerConversation != 1.2 {
		t.Fatalf("average = %v, want 1.2", stats.AverageMessagesPerConversation)
	}
}

func TestUpdateStatuses(t *testing.T) {
	s := seededStore(t)
	ctx := context.Background()

	changed, err := s.UpdateConversationStatus(ctx, 1, domain.ConversationResolved)
	if err != nil || !changed {
		t.Fatalf("update conversation status: changed=%v err=%v", changed, err)
	}
	conv, _, _ := s.GetConversation(ctx, 1)
	if conv.Status != domain.ConversationResolved {
		t.Fatalf("status = %q", conv.Status)
	}
	if changed, _ := s.UpdateConversationStatus(ctx, 999, domain.ConversationClosed); changed {
		t.Fatal("unknown conversation must report unchanged")
	}

	changed, err = s.UpdateBusinessStatus(ctx, SentinelBusinessID, domain.BusinessAway)
	if err != nil || !changed {
		t.Fatalf("update business status: changed=%v err=%v", changed, err)
	}
	b, _, _ := s.GetBusiness(ctx, SentinelBusinessID)
	if b.Status != domain.BusinessAway {
		t.Fatalf("business status = %q", b.Status)
	}
}
