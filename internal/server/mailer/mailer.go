// Package mailer delivers magic links and invitations.
//
// The server ships with LogSender, which writes the link to the structured
// log. Deployments that relay mail plug in their own Sender; services depend
// only on the interface.
package mailer

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/logging"
)

// Sender defines the delivery surface used by the auth and invite services.
type Sender interface {
	SendLoginLink(ctx context.Context, to, link string, expiresAt time.Time) error
	SendInvite(ctx context.Context, to, link string, message *string, expiresAt time.Time) error
}

// LogSender logs every message instead of sending it.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "mailer")}
}

func (s *LogSender) SendLoginLink(ctx context.Context, to, link string, expiresAt time.Time) error {
	s.logger.Info(ctx, "login link", "to", to, "link", link, "expires_at", expiresAt.UTC().Format(time.RFC3339))
	return nil
}

func (s *LogSender) SendInvite(ctx context.Context, to, link string, message *string, expiresAt time.Time) error {
	args := []any{"to", to, "link", link, "expires_at", expiresAt.UTC().Format(time.RFC3339)}
	if message != nil {
		args = append(args, "message", *message)
	}
	s.logger.Info(ctx, "invite", args...)
	return nil
}

// Link joins baseURL, path and a token query parameter.
func Link(baseURL, path, token string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return base + path + "?" + url.Values{"token": {token}}.Encode()
}
