package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = 24 * time.Hour

// UsageDedup remembers recorded usage report IDs in Redis.
// Key format: usage:dedup:<client_service_id>:<report_id>
type UsageDedup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUsageDedup creates a UsageDedup wrapping the given Redis client.
func NewUsageDedup(client *redis.Client) *UsageDedup {
	return &UsageDedup{client: client, ttl: dedupTTL}
}

// IsDuplicate reports whether this report has already been recorded.
func (d *UsageDedup) IsDuplicate(ctx context.Context, clientServiceID, reportID string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupKey(clientServiceID, reportID)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records that this report has been stored (expires after dedupTTL).
func (d *UsageDedup) Mark(ctx context.Context, clientServiceID, reportID string) error {
	return d.client.Set(ctx, dedupKey(clientServiceID, reportID), "1", d.ttl).Err()
}

func dedupKey(clientServiceID, reportID string) string {
	return fmt.Sprintf("usage:dedup:%s:%s", clientServiceID, reportID)
}
