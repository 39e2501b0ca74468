package engine

import (
	"log"
	"time"

	"github.com/guildnet/bansync/internal/models"
)

// Engine receives ban observations from the platform gateway and drives the
// planner and dispatcher. Safe for concurrent calls; independent guilds never
// block each other.
type Engine struct {
	planner    *Planner
	dispatcher Submitter
	dedup      Deduplicator
}

func NewEngine(planner *Planner, dispatcher Submitter, dedup Deduplicator) *Engine {
	return &Engine{
		planner:    planner,
		dispatcher: dispatcher,
		dedup:      dedup,
	}
}

// OnBanObserved handles a ban the platform reported in guildID
func (e *Engine) OnBanObserved(guildID, userID, reason, moderatorID string) {
	e.observe(guildID, userID, reason, moderatorID, models.ActionBan)
}

// OnUnbanObserved handles an unban the platform reported in guildID
func (e *Engine) OnUnbanObserved(guildID, userID string) {
	e.observe(guildID, userID, "", "", models.ActionUnban)
}

func (e *Engine) observe(guildID, userID, reason, moderatorID string, action models.Action) {
	event := &models.BanEvent{
		SourceGuildID: guildID,
		UserID:        userID,
		Action:        action,
		Reason:        reason,
		ModeratorID:   moderatorID,
		Origin:        models.OriginLocalAdmin,
		ObservedAt:    time.Now(),
	}

	// A fresh execution mark means this observation is the echo of an
	// action we dispatched ourselves. Propagating it again would bounce
	// the ban around the network forever.
	if e.dedup.WasExecuted(guildID, userID, action) {
		event.Origin = models.OriginSynced
		log.Printf("Observed synced %s of %s in guild %s, not propagating", action, userID, guildID)
		return
	}

	actions, err := e.planner.Plan(event)
	if err != nil {
		log.Printf("Failed to plan fan-out for %s of %s in guild %s: %v", action, userID, guildID, err)
		return
	}
	if len(actions) == 0 {
		return
	}

	log.Printf("Propagating %s of %s from guild %s to %d guilds", action, userID, guildID, len(actions))
	for _, planned := range actions {
		e.dispatcher.Submit(planned)
	}
}
