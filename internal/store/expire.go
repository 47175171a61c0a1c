package store

import (
	"context"
	"fmt"

	"qcss/pkg/database"
)

// Expirer implements dispatcher.Expirer: it closes every load balancer row
// that has gone stale.
type Expirer struct {
	db   database.DB
	days int
}

// NewExpirer returns an Expirer that closes load balancer rows untouched
// for more than days. A full device write is the only write that ever
// touches the loadbalancer row itself (see writeDevice), so its created
// timestamp already doubles as "last full refresh" without a separate
// updated column.
func NewExpirer(db database.DB, days int) *Expirer {
	if days <= 0 {
		days = 1
	}
	return &Expirer{db: db, days: days}
}

// Expire closes (in one statement) every load balancer whose last full
// refresh predates the configured staleness window.
func (e *Expirer) Expire(ctx context.Context) error {
	query := fmt.Sprintf(
		`UPDATE %s SET deleted = now() WHERE deleted = 'infinity' AND created < now() - ($1 || ' days')::interval`,
		tableLoadBalancer,
	)
	_, err := e.db.Exec(ctx, query, e.days)
	return err
}
