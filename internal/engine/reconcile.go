package engine

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/guildnet/bansync/internal/models"
	"github.com/guildnet/bansync/internal/platform"
)

// HistoryQuery is the read side of the audit log used for reconciliation
type HistoryQuery interface {
	LatestActions(networkID uuid.UUID) (map[string]models.HistoryRecord, error)
}

// Reconciler heals drift between a guild's live ban list and the state its
// networks expect. It runs at startup and on a fixed interval, never
// per-event, and routes every corrective action through the dispatcher so
// corrections inherit rate limiting, retries, and auditing.
type Reconciler struct {
	networks   NetworkStore
	history    HistoryQuery
	client     platform.Client
	dispatcher Submitter
	dedup      Deduplicator
	interval   time.Duration
}

func NewReconciler(networks NetworkStore, history HistoryQuery, client platform.Client, dispatcher Submitter, dedup Deduplicator, interval time.Duration) *Reconciler {
	return &Reconciler{
		networks:   networks,
		history:    history,
		client:     client,
		dispatcher: dispatcher,
		dedup:      dedup,
		interval:   interval,
	}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled
func (r *Reconciler) Run(ctx context.Context) {
	r.Sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep reconciles every guild that belongs to at least one network. Errors
// on one guild never stop the others.
func (r *Reconciler) Sweep(ctx context.Context) {
	guilds, err := r.networks.ListAllMemberGuilds()
	if err != nil {
		log.Printf("Reconciliation sweep aborted, cannot list guilds: %v", err)
		return
	}

	submitted := 0
	for _, guildID := range guilds {
		if ctx.Err() != nil {
			return
		}
		n, err := r.reconcileGuild(ctx, guildID)
		if err != nil {
			log.Printf("Failed to reconcile guild %s: %v", guildID, err)
			continue
		}
		submitted += n
	}
	if submitted > 0 {
		log.Printf("Reconciliation sweep queued %d corrective actions across %d guilds", submitted, len(guilds))
	}
}

func (r *Reconciler) reconcileGuild(ctx context.Context, guildID string) (int, error) {
	live, err := r.client.FetchBanList(ctx, guildID)
	if err != nil {
		return 0, err
	}
	liveSet := make(map[string]bool, len(live))
	for _, userID := range live {
		liveSet[userID] = true
	}

	networks, err := r.networks.ListNetworksForGuild(guildID)
	if err != nil {
		return 0, err
	}

	submitted := 0
	for _, network := range networks {
		latest, err := r.history.LatestActions(network.ID)
		if err != nil {
			return submitted, err
		}

		for userID, rec := range latest {
			var want models.Action
			switch {
			case rec.Action == models.ActionBan && !liveSet[userID]:
				want = models.ActionBan
			case rec.Action == models.ActionUnban && liveSet[userID]:
				want = models.ActionUnban
			default:
				continue
			}

			// Same key as live fan-out, so a sweep never races a
			// propagation already in flight; anything suppressed here
			// is picked up by the next sweep.
			if !r.dedup.ShouldProcess(network.ID, guildID, userID, want) {
				continue
			}

			r.dispatcher.Submit(models.PlannedAction{
				NetworkID:   network.ID,
				NetworkName: network.Name,
				GuildID:     guildID,
				UserID:      userID,
				Action:      want,
				Reason:      rec.Reason,
				ModeratorID: rec.ModeratorID,
			})
			submitted++
		}
	}
	return submitted, nil
}
