package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"bizchat/internal/domain"
	"bizchat/internal/realtime"
	"bizchat/internal/server"
	"bizchat/internal/store"
)

func newBackend(t *testing.T) (*httptest.Server, *realtime.Hub) {
	t.Helper()
	st := store.NewMemoryStore()
	if err := st.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	hub := realtime.NewHub(realtime.DefaultTypingTimeout)
	s := server.New(server.Config{
		Store:    st,
		Hub:      hub,
		Realtime: realtime.NewHandler(hub, st, "*"),
	})
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv, hub
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestClientListAndErrors(t *testing.T) {
	srv, _ := newBackend(t)
	c := NewClient(srv.URL)
	ctx := context.Background()

	conversations, err := c.ListConversations(ctx, "tech-store", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(conversations) != 5 {
		t.Fatalf("got %d conversations, want 5", len(conversations))
	}

	_, err = c.GetConversation(ctx, 999)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != 404 || apiErr.Code != "NOT_FOUND" {
		t.Fatalf("apiErr: %+v", apiErr)
	}

	matches, err := c.ListConversations(ctx, "tech-store", "mike")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 || matches[0].CustomerName != "Mike Chen" {
		t.Fatalf("search result: %+v", matches)
	}
}

func TestConversationListRefetchTracksActivity(t *testing.T) {
	srv, _ := newBackend(t)
	c := NewClient(srv.URL)
	ctx := context.Background()

	list := NewConversationList(c, "tech-store")
	if err := list.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	first := list.Conversations()[0]
	target := list.Conversations()[2]

	if _, err := c.SendMessage(ctx, target.ID, SendMessageInput{
		Content:    "bumping this conversation",
		SenderID:   "agent-1",
		SenderType: "business",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := list.Refetch(ctx); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	reordered := list.Conversations()
	if reordered[0].ID != target.ID {
		t.Fatalf("conversation %d not first after new message (first=%d, was %d)", target.ID, reordered[0].ID, first.ID)
	}
	if reordered[0].LastMessage != "bumping this conversation" {
		t.Fatalf("lastMessage = %q", reordered[0].LastMessage)
	}
}

func TestMessageFeedReceivesBroadcast(t *testing.T) {
	srv, hub := newBackend(t)
	c := NewClient(srv.URL)
	ctx := context.Background()

	socket, err := DialSocket(ctx, srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer socket.Close()

	feed := NewMessageFeed(c, socket, 1)
	if err := feed.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !waitFor(t, 2*time.Second, func() bool {
		return hub.RoomSize(realtime.ConversationRoom(1)) == 1
	}) {
		t.Fatal("feed never joined the room")
	}
	baseline := len(feed.Messages())

	// A second participant sends over plain REST.
	other := NewClient(srv.URL)
	sent, err := other.SendMessage(ctx, 1, SendMessageInput{
		Content:    "hello from the other side",
		SenderID:   "customer-7",
		SenderType: "customer",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if !waitFor(t, 2*time.Second, func() bool {
		return len(feed.Messages()) == baseline+1
	}) {
		t.Fatalf("broadcast never arrived, have %d messages", len(feed.Messages()))
	}
	msgs := feed.Messages()
	last := msgs[len(msgs)-1]
	if last.ID != sent.ID || last.Content != sent.Content {
		t.Fatalf("feed tail %+v does not match sent %+v", last, sent)
	}

	// A reload must not duplicate what the socket already delivered.
	if err := feed.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	count := 0
	for _, m := range feed.Messages() {
		if m.ID == sent.ID {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("message %d appears %d times after reload", sent.ID, count)
	}
}

func TestMessageFeedOptimisticSendReconciles(t *testing.T) {
	srv, hub := newBackend(t)
	c := NewClient(srv.URL)
	ctx := context.Background()

	socket, err := DialSocket(ctx, srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer socket.Close()

	feed := NewMessageFeed(c, socket, 1)
	if err := feed.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !waitFor(t, 2*time.Second, func() bool {
		return hub.RoomSize(realtime.ConversationRoom(1)) == 1
	}) {
		t.Fatal("feed never joined the room")
	}

	sent, err := feed.Send(ctx, "optimistic hello", "agent-1", "business")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.ID <= 0 {
		t.Fatalf("server message id = %d", sent.ID)
	}

	// The echo for our own send races the HTTP response; either way the feed
	// must settle on exactly one copy with the server id.
	time.Sleep(300 * time.Millisecond)
	count := 0
	for _, m := range feed.Messages() {
		if m.Content == "optimistic hello" {
			count++
			if m.ID != sent.ID {
				t.Fatalf("reconciled id = %d, want %d", m.ID, sent.ID)
			}
		}
		if m.ID < 0 {
			t.Fatalf("placeholder id %d left in feed", m.ID)
		}
	}
	if count != 1 {
		t.Fatalf("message appears %d times, want 1", count)
	}
}

func TestMessageFeedStatusUpdates(t *testing.T) {
	srv, hub := newBackend(t)
	c := NewClient(srv.URL)
	ctx := context.Background()

	socket, err := DialSocket(ctx, srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer socket.Close()

	feed := NewMessageFeed(c, socket, 1)
	if err := feed.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !waitFor(t, 2*time.Second, func() bool {
		return hub.RoomSize(realtime.ConversationRoom(1)) == 1
	}) {
		t.Fatal("feed never joined the room")
	}
	target := feed.Messages()[0]

	// Another device in the room reports the message read.
	reader, err := DialSocket(ctx, srv.URL)
	if err != nil {
		t.Fatalf("dial reader: %v", err)
	}
	defer reader.Close()
	if err := reader.JoinConversation(1); err != nil {
		t.Fatalf("join: %v", err)
	}
	if !waitFor(t, 2*time.Second, func() bool {
		return hub.RoomSize(realtime.ConversationRoom(1)) == 2
	}) {
		t.Fatal("reader never joined the room")
	}
	if err := reader.MarkRead(1, target.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	if !waitFor(t, 2*time.Second, func() bool {
		for _, m := range feed.Messages() {
			if m.ID == target.ID && m.Status == domain.StatusRead {
				return true
			}
		}
		return false
	}) {
		t.Fatalf("status update never applied to message %d", target.ID)
	}
}

func TestMessageFeedCloseDetachesHandlers(t *testing.T) {
	srv, hub := newBackend(t)
	c := NewClient(srv.URL)
	ctx := context.Background()

	socket, err := DialSocket(ctx, srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer socket.Close()

	feed := NewMessageFeed(c, socket, 1)
	if err := feed.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !waitFor(t, 2*time.Second, func() bool {
		return hub.RoomSize(realtime.ConversationRoom(1)) == 1
	}) {
		t.Fatal("feed never joined the room")
	}
	baseline := len(feed.Messages())

	if err := feed.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !waitFor(t, 2*time.Second, func() bool {
		return hub.RoomSize(realtime.ConversationRoom(1)) == 0
	}) {
		t.Fatal("feed never left the room")
	}

	if _, err := c.SendMessage(ctx, 1, SendMessageInput{
		Content:    "after close",
		SenderID:   "customer-7",
		SenderType: "customer",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := len(feed.Messages()); got != baseline {
		t.Fatalf("closed feed grew from %d to %d messages", baseline, got)
	}
}
