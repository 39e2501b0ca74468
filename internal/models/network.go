package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Network is a named group of guilds that share ban state
type Network struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	OwnerGuild string    `json:"owner_guild_id" db:"owner_guild_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Membership links a guild to a network
type Membership struct {
	ID        uuid.UUID `json:"id" db:"id"`
	NetworkID uuid.UUID `json:"network_id" db:"network_id"`
	GuildID   string    `json:"guild_id" db:"guild_id"`
	JoinedBy  string    `json:"joined_by" db:"joined_by"` // admin user id that issued the join
	JoinedAt  time.Time `json:"joined_at" db:"joined_at"`
}

// Validate checks network fields before creation
func (n *Network) Validate() error {
	if n.Name == "" {
		return fmt.Errorf("network name is required")
	}
	if len(n.Name) < 2 || len(n.Name) > 100 {
		return fmt.Errorf("network name must be between 2 and 100 characters")
	}
	if n.OwnerGuild == "" {
		return fmt.Errorf("owner guild is required")
	}
	return nil
}
