package models

import (
	"time"
)

type User struct {
	ID             int64
	Username       string
	Email          string
	HashedPassword string
	IsActive       bool
	DateJoined     time.Time
}

// Principal is the authenticated identity attached to a request
// It never carries the password hash
type Principal struct {
	ID         int64
	Username   string
	Email      string
	DateJoined time.Time
}

func (u User) Principal() Principal {
	return Principal{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		DateJoined: u.DateJoined,
	}
}
