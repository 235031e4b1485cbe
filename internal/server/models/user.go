// Package models defines server-side data models persisted in the database.
package models

import "time"

type User struct {
	ID        int64
	Email     string
	IsActive  bool
	IsAdmin   bool
	TierID    *int64
	CreatedAt time.Time
	LastLogin *time.Time
}

// UserSummary is a User joined with its tier and today's usage for listings.
type UserSummary struct {
	User
	TierName   string
	UsageToday int
}
