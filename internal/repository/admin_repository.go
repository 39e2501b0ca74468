package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/guildnet/bansync/internal/auth"
	"github.com/guildnet/bansync/internal/database"
	"github.com/guildnet/bansync/internal/models"
)

type AdminRepository struct {
	db *database.DB
}

func NewAdminRepository(db *database.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Create creates a new operator account
func (r *AdminRepository) Create(admin *models.Admin) error {
	query := `
		INSERT INTO admins (id, email, display_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		admin.ID,
		admin.Email,
		admin.DisplayName,
		admin.PasswordHash,
	).Scan(&admin.CreatedAt, &admin.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	return nil
}

// GetByID retrieves an operator account by ID
func (r *AdminRepository) GetByID(id uuid.UUID) (*models.Admin, error) {
	query := `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM admins
		WHERE id = $1
	`

	admin := &models.Admin{}
	err := r.db.QueryRow(query, id).Scan(
		&admin.ID,
		&admin.Email,
		&admin.DisplayName,
		&admin.PasswordHash,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("admin not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	return admin, nil
}

// GetByEmail retrieves an operator account by email
func (r *AdminRepository) GetByEmail(email string) (*models.Admin, error) {
	query := `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM admins
		WHERE email = $1
	`

	admin := &models.Admin{}
	err := r.db.QueryRow(query, email).Scan(
		&admin.ID,
		&admin.Email,
		&admin.DisplayName,
		&admin.PasswordHash,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("admin not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	return admin, nil
}

// EnsureBootstrapAdmin makes sure an initial operator account exists so the
// management API is usable on first start
func (r *AdminRepository) EnsureBootstrapAdmin(email, displayName, password string) (*models.Admin, error) {
	if admin, err := r.GetByEmail(email); err == nil {
		return admin, nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	admin := &models.Admin{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
	}
	if err := admin.Validate(); err != nil {
		return nil, err
	}
	if err := r.Create(admin); err != nil {
		return nil, err
	}
	return admin, nil
}
