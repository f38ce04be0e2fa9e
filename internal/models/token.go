package models

import (
	"time"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

type IssuedToken struct {
	Value     string
	JTI       string
	ExpiresAt time.Time
}

// Token pair issued by TokenManager, AuthService
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// Session is the result of successful login
type Session struct {
	Principal Principal
	Tokens    TokenPair
}

type RevocationReason string

const (
	RevokedOnLogout   RevocationReason = "logout"
	RevokedOnRotation RevocationReason = "rotated"
)

// RevokedToken is a blacklisted refresh token
// ExpiresAt is the moment the token stops being accepted: its exp plus validation leeway
// Entries are never updated, they only may be purged after ExpiresAt
type RevokedToken struct {
	JTI       string
	UserID    int64
	Reason    RevocationReason
	RevokedAt time.Time
	ExpiresAt time.Time
}
