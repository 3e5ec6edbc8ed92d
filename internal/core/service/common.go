package service

import (
	"context"
	"time"

	"github.com/gendalf/services-portal/internal/core/ports"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

func clampPage(p ports.Page) ports.Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

// withLock runs fn while holding key. A nil locker runs fn unguarded.
func withLock(ctx context.Context, locker ports.Locker, key string, fn func() error) error {
	if locker == nil {
		return fn()
	}
	release, err := locker.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Lock keys. Where two are nested, userKey is always taken first.

func userKey(userID string) string {
	return "user:" + userID
}

func clientUsersKey(clientID string) string {
	return "client:" + clientID + ":users"
}

func clientSubscriptionsKey(clientID string) string {
	return "client:" + clientID + ":subscriptions"
}

func assignmentsKey(clientServiceID string) string {
	return "client_service:" + clientServiceID + ":assignments"
}

func utcNow() time.Time { return time.Now().UTC() }
