package engine

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guildnet/bansync/internal/cache"
	"github.com/guildnet/bansync/internal/models"
)

// Deduplicator suppresses repeated propagation decisions and remembers which
// actions the engine itself executed. The platform reports a synced ban as an
// indistinguishable local ban event once executed, so the execution marks are
// the only reliable way to tell the two apart.
type Deduplicator interface {
	// ShouldProcess returns true at most once per (network, guild, user,
	// action) key within the TTL window, atomically.
	ShouldProcess(networkID uuid.UUID, guildID, userID string, action models.Action) bool

	// MarkExecuted remembers that the engine just executed action against
	// (guild, user) so the resulting platform event is classified as synced.
	MarkExecuted(guildID, userID string, action models.Action)

	// WasExecuted reports whether a matching execution mark is still fresh.
	WasExecuted(guildID, userID string, action models.Action) bool
}

func dedupKey(networkID uuid.UUID, guildID, userID string, action models.Action) string {
	return fmt.Sprintf("dedup:%s:%s:%s:%s", networkID, guildID, userID, action)
}

func execKey(guildID, userID string, action models.Action) string {
	return fmt.Sprintf("exec:%s:%s:%s", guildID, userID, action)
}

// MemoryDeduplicator is the single-process implementation. Entries expire
// after the TTL and are swept periodically to bound memory.
type MemoryDeduplicator struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	ttl     time.Duration
	execTTL time.Duration
}

func NewMemoryDeduplicator(ttl, execTTL time.Duration) *MemoryDeduplicator {
	d := &MemoryDeduplicator{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		execTTL: execTTL,
	}
	return d
}

// Cleanup starts a background sweep of expired entries
func (d *MemoryDeduplicator) Cleanup() {
	ticker := time.NewTicker(time.Minute)
	go func() {
		for range ticker.C {
			now := time.Now()
			d.mu.Lock()
			for key, expiry := range d.entries {
				if now.After(expiry) {
					delete(d.entries, key)
				}
			}
			d.mu.Unlock()
		}
	}()
}

func (d *MemoryDeduplicator) checkAndSet(key string, ttl time.Duration) bool {
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	if expiry, ok := d.entries[key]; ok && now.Before(expiry) {
		return false
	}
	d.entries[key] = now.Add(ttl)
	return true
}

func (d *MemoryDeduplicator) ShouldProcess(networkID uuid.UUID, guildID, userID string, action models.Action) bool {
	return d.checkAndSet(dedupKey(networkID, guildID, userID, action), d.ttl)
}

func (d *MemoryDeduplicator) MarkExecuted(guildID, userID string, action models.Action) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[execKey(guildID, userID, action)] = time.Now().Add(d.execTTL)
}

func (d *MemoryDeduplicator) WasExecuted(guildID, userID string, action models.Action) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	expiry, ok := d.entries[execKey(guildID, userID, action)]
	return ok && time.Now().Before(expiry)
}

// RedisDeduplicator shares the dedup table across bot replicas via SET NX,
// which is atomic per key on the server.
type RedisDeduplicator struct {
	redis   *cache.RedisClient
	ttl     time.Duration
	execTTL time.Duration
}

func NewRedisDeduplicator(redis *cache.RedisClient, ttl, execTTL time.Duration) *RedisDeduplicator {
	return &RedisDeduplicator{redis: redis, ttl: ttl, execTTL: execTTL}
}

func (d *RedisDeduplicator) ShouldProcess(networkID uuid.UUID, guildID, userID string, action models.Action) bool {
	ok, err := d.redis.CheckAndSet(dedupKey(networkID, guildID, userID, action), d.ttl)
	if err != nil {
		// Destination bans are idempotent on the platform, so processing
		// a duplicate is safer than dropping a real event.
		log.Printf("Dedup check failed, processing anyway: %v", err)
		return true
	}
	return ok
}

func (d *RedisDeduplicator) MarkExecuted(guildID, userID string, action models.Action) {
	if err := d.redis.Set(execKey(guildID, userID, action), d.execTTL); err != nil {
		log.Printf("Failed to record execution mark: %v", err)
	}
}

func (d *RedisDeduplicator) WasExecuted(guildID, userID string, action models.Action) bool {
	ok, err := d.redis.Exists(execKey(guildID, userID, action))
	if err != nil {
		log.Printf("Failed to check execution mark: %v", err)
		return false
	}
	return ok
}
