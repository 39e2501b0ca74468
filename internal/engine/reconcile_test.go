package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/guildnet/bansync/internal/models"
)

// fakeHistoryQuery serves canned latest-action maps per network
type fakeHistoryQuery struct {
	latest map[uuid.UUID]map[string]models.HistoryRecord
}

func (f *fakeHistoryQuery) LatestActions(networkID uuid.UUID) (map[string]models.HistoryRecord, error) {
	return f.latest[networkID], nil
}

// fakeSubmitter captures submitted actions
type fakeSubmitter struct {
	mu      sync.Mutex
	actions []models.PlannedAction
}

func (f *fakeSubmitter) Submit(action models.PlannedAction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
}

func (f *fakeSubmitter) snapshot() []models.PlannedAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]models.PlannedAction, len(f.actions))
	copy(res, f.actions)
	return res
}

func successRecord(networkID uuid.UUID, guildID, userID string, action models.Action, at time.Time) models.HistoryRecord {
	return models.HistoryRecord{
		ID:        uuid.New(),
		NetworkID: networkID,
		GuildID:   guildID,
		UserID:    userID,
		Action:    action,
		Reason:    "[ban sync via alpha] spam",
		Result:    models.ResultSuccess,
		CreatedAt: at,
	}
}

func TestReconciler_QueuesMissingBan(t *testing.T) {
	store, alpha, _ := newTestRegistry()
	client := newFakePlatform()
	// guild-b is missing user-1 who the network expects banned
	client.banLists["guild-b"] = []string{}

	history := &fakeHistoryQuery{latest: map[uuid.UUID]map[string]models.HistoryRecord{
		alpha.ID: {
			"user-1": successRecord(alpha.ID, "guild-c", "user-1", models.ActionBan, time.Now()),
		},
	}}
	submitter := &fakeSubmitter{}
	dedup := NewMemoryDeduplicator(time.Minute, time.Minute)

	r := NewReconciler(store, history, client, submitter, dedup, time.Hour)
	r.Sweep(context.Background())

	var forB []models.PlannedAction
	for _, a := range submitter.snapshot() {
		if a.GuildID == "guild-b" {
			forB = append(forB, a)
		}
	}
	if len(forB) != 1 {
		t.Fatalf("expected 1 corrective action for guild-b, got %d", len(forB))
	}
	if forB[0].Action != models.ActionBan || forB[0].UserID != "user-1" {
		t.Fatalf("unexpected corrective action: %+v", forB[0])
	}
}

func TestReconciler_QueuesStaleUnban(t *testing.T) {
	store, alpha, _ := newTestRegistry()
	client := newFakePlatform()
	// user-1 is still banned in guild-b although the network unbanned them
	client.banLists["guild-b"] = []string{"user-1"}

	history := &fakeHistoryQuery{latest: map[uuid.UUID]map[string]models.HistoryRecord{
		alpha.ID: {
			"user-1": successRecord(alpha.ID, "guild-c", "user-1", models.ActionUnban, time.Now()),
		},
	}}
	submitter := &fakeSubmitter{}
	dedup := NewMemoryDeduplicator(time.Minute, time.Minute)

	r := NewReconciler(store, history, client, submitter, dedup, time.Hour)
	r.Sweep(context.Background())

	var forB []models.PlannedAction
	for _, a := range submitter.snapshot() {
		if a.GuildID == "guild-b" {
			forB = append(forB, a)
		}
	}
	if len(forB) != 1 || forB[0].Action != models.ActionUnban {
		t.Fatalf("expected one unban for guild-b, got %+v", forB)
	}
}

func TestReconciler_LeavesUnrelatedBansAlone(t *testing.T) {
	store, alpha, _ := newTestRegistry()
	client := newFakePlatform()
	// guild-b banned user-9 locally; the network never acted on them
	client.banLists["guild-b"] = []string{"user-9"}

	history := &fakeHistoryQuery{latest: map[uuid.UUID]map[string]models.HistoryRecord{
		alpha.ID: {},
	}}
	submitter := &fakeSubmitter{}
	dedup := NewMemoryDeduplicator(time.Minute, time.Minute)

	r := NewReconciler(store, history, client, submitter, dedup, time.Hour)
	r.Sweep(context.Background())

	for _, a := range submitter.snapshot() {
		if a.UserID == "user-9" {
			t.Fatalf("reconciler must not touch bans the network never made: %+v", a)
		}
	}
}

func TestReconciler_InSyncGuildProducesNothing(t *testing.T) {
	store, alpha, beta := newTestRegistry()
	client := newFakePlatform()
	for _, guildID := range []string{"guild-a", "guild-b", "guild-c", "guild-d"} {
		client.banLists[guildID] = []string{"user-1"}
	}

	record := successRecord(alpha.ID, "guild-a", "user-1", models.ActionBan, time.Now())
	history := &fakeHistoryQuery{latest: map[uuid.UUID]map[string]models.HistoryRecord{
		alpha.ID: {"user-1": record},
		beta.ID:  {"user-1": record},
	}}
	submitter := &fakeSubmitter{}
	dedup := NewMemoryDeduplicator(time.Minute, time.Minute)

	r := NewReconciler(store, history, client, submitter, dedup, time.Hour)
	r.Sweep(context.Background())

	if got := submitter.snapshot(); len(got) != 0 {
		t.Fatalf("in-sync guilds should produce no actions, got %+v", got)
	}
}

func TestReconciler_DedupSuppressesDoubleSubmit(t *testing.T) {
	store, alpha, _ := newTestRegistry()
	client := newFakePlatform()
	client.banLists["guild-b"] = []string{}

	history := &fakeHistoryQuery{latest: map[uuid.UUID]map[string]models.HistoryRecord{
		alpha.ID: {
			"user-1": successRecord(alpha.ID, "guild-c", "user-1", models.ActionBan, time.Now()),
		},
	}}
	submitter := &fakeSubmitter{}
	dedup := NewMemoryDeduplicator(time.Minute, time.Minute)

	r := NewReconciler(store, history, client, submitter, dedup, time.Hour)
	r.Sweep(context.Background())
	r.Sweep(context.Background())

	var forB []models.PlannedAction
	for _, a := range submitter.snapshot() {
		if a.GuildID == "guild-b" && a.UserID == "user-1" {
			forB = append(forB, a)
		}
	}
	if len(forB) != 1 {
		t.Fatalf("back-to-back sweeps must not double-submit, got %d", len(forB))
	}
}
