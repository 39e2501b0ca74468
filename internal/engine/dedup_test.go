package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/guildnet/bansync/internal/models"
)

func TestMemoryDeduplicator_SuppressesWithinTTL(t *testing.T) {
	d := NewMemoryDeduplicator(time.Minute, time.Minute)
	networkID := uuid.New()

	if !d.ShouldProcess(networkID, "guild-b", "user-1", models.ActionBan) {
		t.Fatal("first call should process")
	}
	if d.ShouldProcess(networkID, "guild-b", "user-1", models.ActionBan) {
		t.Fatal("second call within TTL should be suppressed")
	}

	// different action is a different key
	if !d.ShouldProcess(networkID, "guild-b", "user-1", models.ActionUnban) {
		t.Fatal("unban should be tracked separately from ban")
	}
	// different guild is a different key
	if !d.ShouldProcess(networkID, "guild-c", "user-1", models.ActionBan) {
		t.Fatal("another guild should not be suppressed")
	}
}

func TestMemoryDeduplicator_ExpiresAfterTTL(t *testing.T) {
	d := NewMemoryDeduplicator(20*time.Millisecond, time.Minute)
	networkID := uuid.New()

	if !d.ShouldProcess(networkID, "guild-b", "user-1", models.ActionBan) {
		t.Fatal("first call should process")
	}

	time.Sleep(30 * time.Millisecond)

	if !d.ShouldProcess(networkID, "guild-b", "user-1", models.ActionBan) {
		t.Fatal("expired entry should process again")
	}
}

func TestMemoryDeduplicator_AtMostOneWinnerUnderConcurrency(t *testing.T) {
	d := NewMemoryDeduplicator(time.Minute, time.Minute)
	networkID := uuid.New()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.ShouldProcess(networkID, "guild-b", "user-1", models.ActionBan) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestMemoryDeduplicator_ExecutionMarks(t *testing.T) {
	d := NewMemoryDeduplicator(time.Minute, 20*time.Millisecond)

	if d.WasExecuted("guild-b", "user-1", models.ActionBan) {
		t.Fatal("no mark should exist yet")
	}

	d.MarkExecuted("guild-b", "user-1", models.ActionBan)

	if !d.WasExecuted("guild-b", "user-1", models.ActionBan) {
		t.Fatal("mark should be visible")
	}
	if d.WasExecuted("guild-b", "user-1", models.ActionUnban) {
		t.Fatal("mark is action-specific")
	}

	time.Sleep(30 * time.Millisecond)

	if d.WasExecuted("guild-b", "user-1", models.ActionBan) {
		t.Fatal("mark should expire")
	}
}
