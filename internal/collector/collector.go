package collector

import (
	"context"

	"qcss/internal/model"
	"qcss/internal/snmpproxy"
)

// Collector is the capability set every vendor state machine implements.
// Exactly one registered Collector must claim a given device (see Probe);
// the dispatcher treats zero or more than one claim as an error.
type Collector interface {
	// Kind names the vendor family, e.g. "alteon", "f5ltm".
	Kind() string

	// Probe reports whether this collector recognises the device behind
	// proxy, typically from sysObjectID or a vendor-specific sentinel OID.
	Probe(ctx context.Context, proxy *snmpproxy.Proxy) (bool, error)

	// Collect walks the device and returns its load-balancer tree. When
	// vs (and optionally rs) is non-empty, the walk is scoped to that
	// subtree; a full collect passes both empty.
	Collect(ctx context.Context, proxy *snmpproxy.Proxy, vs, rs string) (*model.LoadBalancer, error)

	// Actions lists the action names this collector exposes, for the
	// dispatcher's actions() listing operation.
	Actions() []string

	// Execute runs action against (vs, rs) with args. It returns
	// (handled=false, nil) when action is not one this collector defines —
	// callers rely on that distinction to return 404 rather than 500.
	Execute(ctx context.Context, proxy *snmpproxy.Proxy, action, vs, rs string, args []string) (handled bool, err error)
}

// Factory constructs a fresh Collector instance, one per probed device.
type Factory func() Collector

var registry []Factory

// Register adds a vendor factory to the set the dispatcher probes. Called
// from each vendor subpackage's init().
func Register(f Factory) {
	registry = append(registry, f)
}

// Factories returns every registered factory, in registration order.
func Factories() []Factory {
	out := make([]Factory, len(registry))
	copy(out, registry)
	return out
}
