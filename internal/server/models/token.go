package models

import "time"

// LoginToken is a single-use magic-link credential. Consumed tokens are kept
// for audit.
type LoginToken struct {
	Token     string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
	IPAddress string
	UserAgent string
}

// Session is a server-side login that a session cookie points at.
type Session struct {
	SessionID string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
}

// SessionInfo is what a resolved session yields: enough about the user that
// callers need no second lookup.
type SessionInfo struct {
	SessionID string
	UserID    int64
	Email     string
	IsAdmin   bool
	ExpiresAt time.Time
}

type InviteToken struct {
	Token           string
	Email           string
	InvitedBy       *int64
	CreatedAt       time.Time
	ExpiresAt       time.Time
	TierID          *int64
	PersonalMessage *string
	UsedAt          *time.Time
	UsedBy          *int64
}
