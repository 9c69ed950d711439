package auth

import "github.com/unigest/unigest/internal/models"

// SessionData represents the authenticated session context for a request
type SessionData struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
}
