package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/guildnet/bansync/internal/models"
)

// fakeNetworkStore serves a fixed registry snapshot
type fakeNetworkStore struct {
	networks []models.Network
	members  map[uuid.UUID][]string
}

func (f *fakeNetworkStore) ListNetworksForGuild(guildID string) ([]models.Network, error) {
	res := []models.Network{}
	for _, n := range f.networks {
		for _, member := range f.members[n.ID] {
			if member == guildID {
				res = append(res, n)
				break
			}
		}
	}
	return res, nil
}

func (f *fakeNetworkStore) ListMembers(networkID uuid.UUID) ([]string, error) {
	return f.members[networkID], nil
}

func (f *fakeNetworkStore) ListAllMemberGuilds() ([]string, error) {
	seen := map[string]bool{}
	res := []string{}
	for _, members := range f.members {
		for _, guildID := range members {
			if !seen[guildID] {
				seen[guildID] = true
				res = append(res, guildID)
			}
		}
	}
	return res, nil
}

func newTestRegistry() (*fakeNetworkStore, models.Network, models.Network) {
	alpha := models.Network{ID: uuid.New(), Name: "alpha", OwnerGuild: "guild-a"}
	beta := models.Network{ID: uuid.New(), Name: "beta", OwnerGuild: "guild-a"}
	store := &fakeNetworkStore{
		networks: []models.Network{alpha, beta},
		members: map[uuid.UUID][]string{
			alpha.ID: {"guild-a", "guild-b", "guild-c"},
			beta.ID:  {"guild-a", "guild-d"},
		},
	}
	return store, alpha, beta
}

func banEvent(guildID, userID string) *models.BanEvent {
	return &models.BanEvent{
		SourceGuildID: guildID,
		UserID:        userID,
		Action:        models.ActionBan,
		Reason:        "spam",
		ModeratorID:   "mod-1",
		Origin:        models.OriginLocalAdmin,
		ObservedAt:    time.Now(),
	}
}

func TestPlanner_FansOutAcrossNetworks(t *testing.T) {
	store, alpha, beta := newTestRegistry()
	dedup := NewMemoryDeduplicator(time.Minute, time.Minute)
	planner := NewPlanner(store, dedup)

	actions, err := planner.Plan(banEvent("guild-a", "user-1"))
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}

	// alpha has two other members, beta has one
	if len(actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(actions))
	}

	byGuild := map[string]models.PlannedAction{}
	for _, a := range actions {
		if a.GuildID == "guild-a" {
			t.Fatal("no action may target the source guild")
		}
		if a.Action != models.ActionBan {
			t.Fatalf("expected ban, got %s", a.Action)
		}
		byGuild[a.GuildID] = a
	}

	if byGuild["guild-b"].NetworkID != alpha.ID || byGuild["guild-d"].NetworkID != beta.ID {
		t.Fatal("actions attributed to wrong networks")
	}
	if !strings.Contains(byGuild["guild-b"].Reason, "alpha") || !strings.Contains(byGuild["guild-b"].Reason, "spam") {
		t.Fatalf("reason should carry network name and original reason, got %q", byGuild["guild-b"].Reason)
	}
}

func TestPlanner_IdempotentWithinTTL(t *testing.T) {
	store, _, _ := newTestRegistry()
	dedup := NewMemoryDeduplicator(time.Minute, time.Minute)
	planner := NewPlanner(store, dedup)

	first, err := planner.Plan(banEvent("guild-a", "user-1"))
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("first plan should produce actions")
	}

	second, err := planner.Plan(banEvent("guild-a", "user-1"))
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("duplicate event within TTL should plan nothing, got %d actions", len(second))
	}
}

func TestPlanner_UnbanSymmetric(t *testing.T) {
	store, _, _ := newTestRegistry()
	dedup := NewMemoryDeduplicator(time.Minute, time.Minute)
	planner := NewPlanner(store, dedup)

	event := banEvent("guild-a", "user-1")
	event.Action = models.ActionUnban

	actions, err := planner.Plan(event)
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(actions))
	}
	for _, a := range actions {
		if a.Action != models.ActionUnban {
			t.Fatalf("expected unban, got %s", a.Action)
		}
	}
}

func TestPlanner_GuildWithoutNetworks(t *testing.T) {
	store, _, _ := newTestRegistry()
	dedup := NewMemoryDeduplicator(time.Minute, time.Minute)
	planner := NewPlanner(store, dedup)

	actions, err := planner.Plan(banEvent("guild-z", "user-1"))
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("guild outside any network should fan out nowhere, got %d", len(actions))
	}
}
