package handlers

import (
	"context"

	"livechat/pkg/media"
	"livechat/pkg/models"
	"livechat/pkg/presence"
	"livechat/pkg/reactions"
)

// Credentials is the slice of the identity provider the auth endpoints need.
type Credentials interface {
	Register(ctx context.Context, username, password, email string) error
	Login(ctx context.Context, username, password string) (models.AuthTokens, error)
}

// Notifier accepts fire-and-forget notification handoffs.
type Notifier interface {
	Dispatch(target, message, channel string)
}

// Deps carries the collaborators handlers are registered with.
type Deps struct {
	Reactions   *reactions.Aggregator
	Presence    *presence.Tracker
	Credentials Credentials
	Notifier    Notifier
	Media       media.Store

	// MaxUploadSize bounds profile image uploads, in bytes.
	MaxUploadSize int64
}
