package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/guildnet/bansync/internal/models"
	"github.com/guildnet/bansync/internal/platform"
)

// HistoryStore receives one record per terminal dispatch outcome. Satisfied
// by repository.HistoryRepository.
type HistoryStore interface {
	RecordOutcome(rec *models.HistoryRecord) error
}

// Submitter accepts planned actions for execution
type Submitter interface {
	Submit(action models.PlannedAction)
}

// DispatcherConfig tunes retry and rate-limit behavior
type DispatcherConfig struct {
	// ActionsPerSecond is the per-destination-guild execution rate
	ActionsPerSecond float64
	Burst            int
	MaxAttempts      int
	BaseBackoff      time.Duration
	MaxBackoff       time.Duration
	QueueSize        int
}

// DefaultDispatcherConfig matches Discord's tolerance for moderation calls
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		ActionsPerSecond: 2,
		Burst:            4,
		MaxAttempts:      5,
		BaseBackoff:      time.Second,
		MaxBackoff:       30 * time.Second,
		QueueSize:        256,
	}
}

// guildQueue serializes actions for one destination guild. One worker per
// queue gives FIFO per guild; separate queues keep guilds independent.
type guildQueue struct {
	actions chan models.PlannedAction
	limiter *rate.Limiter
}

// Dispatcher executes planned actions against the platform client with
// per-guild ordering, rate limiting, and capped retries. Every action that
// enters ends as exactly one history record.
type Dispatcher struct {
	client  platform.Client
	history HistoryStore
	dedup   Deduplicator
	cfg     DispatcherConfig

	mu     sync.Mutex
	queues map[string]*guildQueue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(client platform.Client, history HistoryStore, dedup Deduplicator, cfg DispatcherConfig) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		client:  client,
		history: history,
		dedup:   dedup,
		cfg:     cfg,
		queues:  make(map[string]*guildQueue),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit enqueues an action for its destination guild. Blocks only if that
// guild's queue is full, which is the intended backpressure.
func (d *Dispatcher) Submit(action models.PlannedAction) {
	q := d.getQueue(action.GuildID)
	select {
	case q.actions <- action:
	case <-d.ctx.Done():
	}
}

// Stop drains nothing: queued actions are abandoned and the reconciliation
// sweep heals the gap on next start.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
}

func (d *Dispatcher) getQueue(guildID string) *guildQueue {
	d.mu.Lock()
	defer d.mu.Unlock()

	q, exists := d.queues[guildID]
	if !exists {
		q = &guildQueue{
			actions: make(chan models.PlannedAction, d.cfg.QueueSize),
			limiter: rate.NewLimiter(rate.Limit(d.cfg.ActionsPerSecond), d.cfg.Burst),
		}
		d.queues[guildID] = q
		d.wg.Add(1)
		go d.runQueue(guildID, q)
	}
	return q
}

func (d *Dispatcher) runQueue(guildID string, q *guildQueue) {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case action := <-q.actions:
			d.execute(q, action)
		}
	}
}

// execute runs one action to a terminal outcome
func (d *Dispatcher) execute(q *guildQueue, action models.PlannedAction) {
	attempts := 0
	backoff := d.cfg.BaseBackoff

	for {
		if err := q.limiter.Wait(d.ctx); err != nil {
			return // shutting down
		}

		err := d.run(action)
		if err == nil {
			d.dedup.MarkExecuted(action.GuildID, action.UserID, action.Action)
			d.record(action, models.ResultSuccess)
			return
		}

		var rl *platform.RateLimitedError
		if errors.As(err, &rl) {
			// Platform-directed delay; does not count as an attempt and
			// only stalls this guild's queue.
			log.Printf("Rate limited on guild %s, retrying in %s", action.GuildID, rl.RetryAfter)
			if !d.sleep(rl.RetryAfter) {
				return
			}
			continue
		}

		if platform.IsPermanent(err) {
			log.Printf("Permanent failure for %s of %s in guild %s: %v", action.Action, action.UserID, action.GuildID, err)
			d.record(action, permanentResult(err))
			return
		}

		attempts++
		if attempts >= d.cfg.MaxAttempts {
			log.Printf("Giving up on %s of %s in guild %s after %d attempts: %v", action.Action, action.UserID, action.GuildID, attempts, err)
			d.record(action, models.ResultRetriesExhausted)
			return
		}

		log.Printf("Transient failure for %s of %s in guild %s (attempt %d): %v", action.Action, action.UserID, action.GuildID, attempts, err)
		if !d.sleep(backoff) {
			return
		}
		backoff *= 2
		if backoff > d.cfg.MaxBackoff {
			backoff = d.cfg.MaxBackoff
		}
	}
}

func (d *Dispatcher) run(action models.PlannedAction) error {
	ctx, cancel := context.WithTimeout(d.ctx, 30*time.Second)
	defer cancel()

	switch action.Action {
	case models.ActionUnban:
		return d.client.ExecuteUnban(ctx, action.GuildID, action.UserID)
	default:
		return d.client.ExecuteBan(ctx, action.GuildID, action.UserID, action.Reason)
	}
}

func (d *Dispatcher) sleep(delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-d.ctx.Done():
		return false
	}
}

func (d *Dispatcher) record(action models.PlannedAction, result string) {
	rec := &models.HistoryRecord{
		NetworkID:   action.NetworkID,
		GuildID:     action.GuildID,
		UserID:      action.UserID,
		Action:      action.Action,
		Reason:      action.Reason,
		ModeratorID: action.ModeratorID,
		Result:      result,
	}
	if err := d.history.RecordOutcome(rec); err != nil {
		log.Printf("Failed to record outcome for guild %s: %v", action.GuildID, err)
	}
}

func permanentResult(err error) string {
	switch {
	case errors.Is(err, platform.ErrPermissionDenied):
		return models.ResultPermissionDenied
	case errors.Is(err, platform.ErrGuildNotFound):
		return models.ResultGuildNotFound
	case errors.Is(err, platform.ErrUserNotFound):
		return models.ResultUserNotFound
	default:
		return models.ResultRetriesExhausted
	}
}
