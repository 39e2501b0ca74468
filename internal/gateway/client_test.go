package gateway

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// fakeHandler records observations on channels so tests can wait for the
// queue workers, and keeps the order they were handled in
type fakeHandler struct {
	banDelay time.Duration

	mu  sync.Mutex
	seq []string

	bans   chan [2]string // guildID, userID
	unbans chan [2]string
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{
		bans:   make(chan [2]string, 4),
		unbans: make(chan [2]string, 4),
	}
}

func (f *fakeHandler) OnBanObserved(guildID, userID, reason, moderatorID string) {
	time.Sleep(f.banDelay)
	f.mu.Lock()
	f.seq = append(f.seq, "ban")
	f.mu.Unlock()
	f.bans <- [2]string{guildID, userID}
}

func (f *fakeHandler) OnUnbanObserved(guildID, userID string) {
	f.mu.Lock()
	f.seq = append(f.seq, "unban")
	f.mu.Unlock()
	f.unbans <- [2]string{guildID, userID}
}

func (f *fakeHandler) sequence() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]string, len(f.seq))
	copy(res, f.seq)
	return res
}

func dispatchPayload(eventType string, data interface{}) *payload {
	raw, _ := json.Marshal(data)
	return &payload{Op: opDispatch, Type: eventType, Data: raw}
}

func banEventPayload(eventType, guildID, userID string) *payload {
	return dispatchPayload(eventType, map[string]interface{}{
		"guild_id": guildID,
		"user":     map[string]string{"id": userID},
	})
}

func TestClient_HandleDispatchBanAdd(t *testing.T) {
	handler := newFakeHandler()
	c := NewClient("wss://example.invalid", "token", handler)

	c.handleDispatch(banEventPayload(EventGuildBanAdd, "guild-1", "user-1"))

	select {
	case got := <-handler.bans:
		if got[0] != "guild-1" || got[1] != "user-1" {
			t.Fatalf("unexpected observation: %v", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for ban observation")
	}
}

func TestClient_HandleDispatchBanRemove(t *testing.T) {
	handler := newFakeHandler()
	c := NewClient("wss://example.invalid", "token", handler)

	c.handleDispatch(banEventPayload(EventGuildBanRemove, "guild-1", "user-1"))

	select {
	case got := <-handler.unbans:
		if got[0] != "guild-1" || got[1] != "user-1" {
			t.Fatalf("unexpected observation: %v", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for unban observation")
	}
}

func TestClient_EventsForGuildStayOrdered(t *testing.T) {
	handler := newFakeHandler()
	// handling the ban takes a while, as a real registry lookup would
	handler.banDelay = 20 * time.Millisecond
	c := NewClient("wss://example.invalid", "token", handler)

	// a moderator bans user-1 and immediately reverts it
	c.handleDispatch(banEventPayload(EventGuildBanAdd, "guild-1", "user-1"))
	c.handleDispatch(banEventPayload(EventGuildBanRemove, "guild-1", "user-1"))

	for _, ch := range []chan [2]string{handler.bans, handler.unbans} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for observations")
		}
	}

	seq := handler.sequence()
	if len(seq) != 2 || seq[0] != "ban" || seq[1] != "unban" {
		t.Fatalf("events handled out of order: %v (the unban must follow the ban it reverts)", seq)
	}
}

func TestClient_GuildsDoNotBlockEachOther(t *testing.T) {
	handler := newFakeHandler()
	handler.banDelay = 50 * time.Millisecond
	c := NewClient("wss://example.invalid", "token", handler)

	// guild-1's slow ban must not delay guild-2's unban
	c.handleDispatch(banEventPayload(EventGuildBanAdd, "guild-1", "user-1"))
	c.handleDispatch(banEventPayload(EventGuildBanRemove, "guild-2", "user-2"))

	select {
	case got := <-handler.unbans:
		if got[0] != "guild-2" {
			t.Fatalf("unexpected observation: %v", got)
		}
	case <-time.After(25 * time.Millisecond):
		t.Fatal("guild-2's event waited on guild-1's queue")
	}
}

func TestClient_HandleDispatchIgnoresOtherEvents(t *testing.T) {
	handler := newFakeHandler()
	c := NewClient("wss://example.invalid", "token", handler)

	c.handleDispatch(dispatchPayload("MESSAGE_CREATE", map[string]string{"content": "hi"}))
	c.handleDispatch(dispatchPayload(EventGuildBanAdd, map[string]interface{}{
		// missing user id
		"guild_id": "guild-1",
	}))

	select {
	case got := <-handler.bans:
		t.Fatalf("unexpected observation: %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}
