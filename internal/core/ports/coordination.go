package ports

import "context"

// Locker serialises check-then-insert sequences (tariff limit checks) across
// replicas. Acquire blocks up to an implementation-defined wait and returns
// domain.ErrBusy when the lock stays held.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// UsageDedup remembers which usage report IDs were already recorded.
type UsageDedup interface {
	IsDuplicate(ctx context.Context, clientServiceID, reportID string) (bool, error)
	Mark(ctx context.Context, clientServiceID, reportID string) error
}
