package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Admin is an operator account for the HTTP management surface
type Admin struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks admin fields
func (a *Admin) Validate() error {
	if a.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(a.Email, "@") {
		return fmt.Errorf("invalid email format")
	}
	if len(a.DisplayName) < 2 || len(a.DisplayName) > 100 {
		return fmt.Errorf("display name must be between 2 and 100 characters")
	}
	return nil
}

// LoginRequest is the payload for operator login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned after successful login
type AuthResponse struct {
	Token string `json:"token"`
	Admin Admin  `json:"admin"`
}
