package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/guildnet/bansync/internal/database"
	"github.com/guildnet/bansync/internal/models"
)

// Registry-level errors surfaced verbatim to the caller
var (
	ErrNetworkNotFound = errors.New("network not found")
	ErrAlreadyMember   = errors.New("guild is already a member of this network")
	ErrNotMember       = errors.New("guild is not a member of this network")
	ErrDuplicateName   = errors.New("owner guild already has a network with this name")
)

// NetworkRepository is the durable registry of sync networks and memberships.
// All membership mutations go through it; nothing else touches these tables.
type NetworkRepository struct {
	db *database.DB
}

func NewNetworkRepository(db *database.DB) *NetworkRepository {
	return &NetworkRepository{db: db}
}

// CreateNetwork creates a network owned by ownerGuild, with the owner as the
// first member
func (r *NetworkRepository) CreateNetwork(ownerGuild, name, actingAdmin string) (*models.Network, error) {
	network := &models.Network{
		ID:         uuid.New(),
		Name:       name,
		OwnerGuild: ownerGuild,
	}
	if err := network.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRow(
		`INSERT INTO networks (id, name, owner_guild_id, created_at) VALUES ($1, $2, $3, NOW()) RETURNING created_at`,
		network.ID, network.Name, network.OwnerGuild,
	).Scan(&network.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to create network: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO network_members (id, network_id, guild_id, joined_by, joined_at) VALUES ($1, $2, $3, $4, NOW())`,
		uuid.New(), network.ID, ownerGuild, actingAdmin,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return network, nil
}

// GetNetwork fetches a network by id
func (r *NetworkRepository) GetNetwork(networkID uuid.UUID) (*models.Network, error) {
	n := &models.Network{}
	err := r.db.QueryRow(
		`SELECT id, name, owner_guild_id, created_at FROM networks WHERE id = $1`,
		networkID,
	).Scan(&n.ID, &n.Name, &n.OwnerGuild, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNetworkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get network: %w", err)
	}
	return n, nil
}

// JoinNetwork adds guildID to the network
func (r *NetworkRepository) JoinNetwork(networkID uuid.UUID, guildID, actingAdmin string) (*models.Membership, error) {
	if _, err := r.GetNetwork(networkID); err != nil {
		return nil, err
	}

	m := &models.Membership{
		ID:        uuid.New(),
		NetworkID: networkID,
		GuildID:   guildID,
		JoinedBy:  actingAdmin,
	}
	err := r.db.QueryRow(
		`INSERT INTO network_members (id, network_id, guild_id, joined_by, joined_at) VALUES ($1, $2, $3, $4, NOW()) RETURNING joined_at`,
		m.ID, m.NetworkID, m.GuildID, m.JoinedBy,
	).Scan(&m.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to join network: %w", err)
	}
	return m, nil
}

// LeaveNetwork removes guildID from the network. If the leaving guild is the
// last member the network itself is dissolved.
func (r *NetworkRepository) LeaveNetwork(networkID uuid.UUID, guildID string) error {
	if _, err := r.GetNetwork(networkID); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`DELETE FROM network_members WHERE network_id = $1 AND guild_id = $2`,
		networkID, guildID,
	)
	if err != nil {
		return fmt.Errorf("failed to leave network: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotMember
	}

	var remaining int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM network_members WHERE network_id = $1`, networkID).Scan(&remaining); err != nil {
		return fmt.Errorf("failed to count members: %w", err)
	}
	if remaining == 0 {
		if _, err := tx.Exec(`DELETE FROM networks WHERE id = $1`, networkID); err != nil {
			return fmt.Errorf("failed to dissolve network: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// ListMembers returns the guild ids belonging to the network
func (r *NetworkRepository) ListMembers(networkID uuid.UUID) ([]string, error) {
	if _, err := r.GetNetwork(networkID); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(
		`SELECT guild_id FROM network_members WHERE network_id = $1 ORDER BY joined_at`,
		networkID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var guildID string
		if err := rows.Scan(&guildID); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, guildID)
	}
	return members, nil
}

// ListNetworksForGuild returns every network the guild is a member of
func (r *NetworkRepository) ListNetworksForGuild(guildID string) ([]models.Network, error) {
	rows, err := r.db.Query(`
		SELECT n.id, n.name, n.owner_guild_id, n.created_at
		FROM networks n
		JOIN network_members m ON m.network_id = n.id
		WHERE m.guild_id = $1
		ORDER BY n.created_at`,
		guildID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query networks for guild: %w", err)
	}
	defer rows.Close()

	networks := []models.Network{}
	for rows.Next() {
		var n models.Network
		if err := rows.Scan(&n.ID, &n.Name, &n.OwnerGuild, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan network: %w", err)
		}
		networks = append(networks, n)
	}
	return networks, nil
}

// ListAllMemberGuilds returns the distinct guild ids present in any network,
// used by the reconciliation sweep to enumerate guilds to heal
func (r *NetworkRepository) ListAllMemberGuilds() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT guild_id FROM network_members`)
	if err != nil {
		return nil, fmt.Errorf("failed to query member guilds: %w", err)
	}
	defer rows.Close()

	guilds := []string{}
	for rows.Next() {
		var guildID string
		if err := rows.Scan(&guildID); err != nil {
			return nil, fmt.Errorf("failed to scan guild: %w", err)
		}
		guilds = append(guilds, guildID)
	}
	return guilds, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
