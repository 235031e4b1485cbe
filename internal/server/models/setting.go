package models

import "time"

// UserSetting is one per-user value namespaced by category (an integration
// such as "mastodon"). Encrypted is advisory metadata only.
type UserSetting struct {
	UserID    int64
	Category  string
	Key       string
	Value     string
	Encrypted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
