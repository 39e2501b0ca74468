package repository

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/guildnet/bansync/internal/database"
	"github.com/guildnet/bansync/internal/models"
)

// HistoryRepository is the append-only audit log of executed actions.
// There is deliberately no update or delete method.
type HistoryRepository struct {
	db *database.DB
}

func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// RecordOutcome appends one terminal dispatch outcome
func (r *HistoryRepository) RecordOutcome(rec *models.HistoryRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	err := r.db.QueryRow(
		`INSERT INTO ban_history (id, network_id, guild_id, user_id, action, reason, moderator_id, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING created_at`,
		rec.ID, rec.NetworkID, rec.GuildID, rec.UserID, rec.Action, rec.Reason, rec.ModeratorID, rec.Result,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// RecentForNetwork returns the most recent records for a network, newest first
func (r *HistoryRepository) RecentForNetwork(networkID uuid.UUID, limit int) ([]models.HistoryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT id, network_id, guild_id, user_id, action, reason, moderator_id, result, created_at
		 FROM ban_history WHERE network_id = $1 ORDER BY created_at DESC LIMIT $2`,
		networkID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	res := []models.HistoryRecord{}
	for rows.Next() {
		var h models.HistoryRecord
		if err := rows.Scan(&h.ID, &h.NetworkID, &h.GuildID, &h.UserID, &h.Action, &h.Reason, &h.ModeratorID, &h.Result, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		res = append(res, h)
	}
	return res, nil
}

// LatestActions returns, per user, the most recent successfully executed
// action anywhere in the network. The reconciliation sweep derives the
// expected ban state from it: a user whose latest action is a ban is expected
// banned, one whose latest action is an unban is expected unbanned, and users
// the network never acted on are left alone.
func (r *HistoryRepository) LatestActions(networkID uuid.UUID) (map[string]models.HistoryRecord, error) {
	rows, err := r.db.Query(
		`SELECT DISTINCT ON (user_id) id, network_id, guild_id, user_id, action, reason, moderator_id, result, created_at
		 FROM ban_history
		 WHERE network_id = $1 AND result = $2
		 ORDER BY user_id, created_at DESC`,
		networkID, models.ResultSuccess,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest actions: %w", err)
	}
	defer rows.Close()

	latest := map[string]models.HistoryRecord{}
	for rows.Next() {
		var h models.HistoryRecord
		if err := rows.Scan(&h.ID, &h.NetworkID, &h.GuildID, &h.UserID, &h.Action, &h.Reason, &h.ModeratorID, &h.Result, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		latest[h.UserID] = h
	}
	return latest, nil
}
