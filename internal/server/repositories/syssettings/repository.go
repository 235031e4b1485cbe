// Package syssettings persists system-wide flags such as registration_open.
package syssettings

import (
	"context"
	"time"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the setting was never written.
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string, now time.Time) error
}
