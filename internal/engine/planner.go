package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/guildnet/bansync/internal/models"
)

// NetworkStore is the slice of the registry the engine needs. Satisfied by
// repository.NetworkRepository.
type NetworkStore interface {
	ListNetworksForGuild(guildID string) ([]models.Network, error)
	ListMembers(networkID uuid.UUID) ([]string, error)
	ListAllMemberGuilds() ([]string, error)
}

// Planner turns one observed ban event into the exact set of remote actions
// to execute. Pure fan-out computation; it never talks to the platform.
type Planner struct {
	networks NetworkStore
	dedup    Deduplicator
}

func NewPlanner(networks NetworkStore, dedup Deduplicator) *Planner {
	return &Planner{networks: networks, dedup: dedup}
}

// Plan computes the fan-out for event. Every returned action targets a guild
// other than the source, is unique per (network, guild), and has passed the
// deduplicator.
func (p *Planner) Plan(event *models.BanEvent) ([]models.PlannedAction, error) {
	networks, err := p.networks.ListNetworksForGuild(event.SourceGuildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list networks for guild %s: %w", event.SourceGuildID, err)
	}

	actions := []models.PlannedAction{}
	for _, network := range networks {
		members, err := p.networks.ListMembers(network.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list members of %s: %w", network.Name, err)
		}

		for _, guildID := range members {
			if guildID == event.SourceGuildID {
				continue
			}
			if !p.dedup.ShouldProcess(network.ID, guildID, event.UserID, event.Action) {
				continue
			}
			actions = append(actions, models.PlannedAction{
				NetworkID:   network.ID,
				NetworkName: network.Name,
				GuildID:     guildID,
				UserID:      event.UserID,
				Action:      event.Action,
				Reason:      SyncedReason(network.Name, event.Reason),
				ModeratorID: event.ModeratorID,
			})
		}
	}
	return actions, nil
}

// SyncedReason annotates a reason so target guilds can see where a ban came
// from
func SyncedReason(networkName, reason string) string {
	if reason == "" {
		reason = "no reason provided"
	}
	return fmt.Sprintf("[ban sync via %s] %s", networkName, reason)
}
