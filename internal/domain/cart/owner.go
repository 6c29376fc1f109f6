package cart

import (
	"strings"

	"github.com/google/uuid"

	"github.com/recordshop/backend/internal/domain/shared"
)

// OwnerType distinguishes guest carts from signed-in ones.
type OwnerType string

const (
	// OwnerSession marks a guest cart keyed by a browser session.
	OwnerSession OwnerType = "SESSION"
	// OwnerUser marks a cart belonging to an authenticated account.
	OwnerUser OwnerType = "USER"
)

// Owner identifies who a cart belongs to. Exactly one of SessionID or
// UserID is set, matching Type. Stored flat in the carts table.
type Owner struct {
	Type      OwnerType `gorm:"column:owner_type;size:16;not null" json:"type"`
	SessionID string    `gorm:"column:owner_session_id;size:128;index" json:"session_id,omitempty"`
	UserID    uuid.UUID `gorm:"column:owner_user_id;type:uuid;index" json:"user_id,omitempty"`
}

// SessionOwner creates a guest owner from a session identifier.
func SessionOwner(sessionID string) (Owner, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Owner{}, shared.ErrInvalidInput.WithMessage("session id is required")
	}
	return Owner{Type: OwnerSession, SessionID: sessionID}, nil
}

// UserOwner creates an owner from an authenticated user ID.
func UserOwner(userID uuid.UUID) (Owner, error) {
	if userID == uuid.Nil {
		return Owner{}, shared.ErrInvalidInput.WithMessage("user id is required")
	}
	return Owner{Type: OwnerUser, UserID: userID}, nil
}

// IsUser reports whether the owner is an authenticated account.
func (o Owner) IsUser() bool {
	return o.Type == OwnerUser
}

// Equals compares two owners by type and identifier.
func (o Owner) Equals(other Owner) bool {
	if o.Type != other.Type {
		return false
	}
	if o.Type == OwnerSession {
		return o.SessionID == other.SessionID
	}
	return o.UserID == other.UserID
}
