package httpapi

import (
	"context"
	"time"

	"qcss/pkg/logger"
)

// Staleness thresholds: a real/sorry server's counters drift fastest (the
// thing an operator is actually watching), so it gets the tightest budget;
// a virtual server or the device itself changes configuration rarely, so a
// much longer budget is enough to keep reads cheap under steady load.
const (
	rsStaleAfter = 10 * time.Second
	vsStaleAfter = 300 * time.Second
	lbStaleAfter = 300 * time.Second
)

// ager reports how long ago (lb, vs, rs) was last written, mirroring
// store.Reader.Age.
type ager interface {
	Age(ctx context.Context, lb, vs, rs string) (time.Duration, bool, error)
}

// refresher triggers a collector refresh for (lb, vs, rs), mirroring
// dispatcher.Dispatcher.Refresh.
type refresher interface {
	Refresh(ctx context.Context, lb, vs, rs string) error
}

// refreshIfStale runs before a live detail read: a past-dated read is a
// point-in-time query and never refreshes anything, and a row that's
// younger than its budget is served as-is. Otherwise it blocks on a
// synchronous refresh before the read proceeds. A refresh failure is
// logged and swallowed -- the read still goes ahead against whatever
// is persisted, rather than turning a collector hiccup into a 500 for
// an otherwise servable resource.
func refreshIfStale(ctx context.Context, rd ager, rf refresher, lb, vs, rs string, asOf *time.Time, budget time.Duration) {
	if asOf != nil {
		return
	}

	age, ok, err := rd.Age(ctx, lb, vs, rs)
	if err != nil {
		logger.Log.Warn("failed to check resource age", "lb", lb, "vs", vs, "rs", rs, "error", err)
		return
	}
	if ok && age < budget {
		return
	}

	if err := rf.Refresh(ctx, lb, vs, rs); err != nil {
		logger.Log.Warn("refresh-on-read failed", "lb", lb, "vs", vs, "rs", rs, "error", err)
	}
}
