// Package dispatcher selects the right vendor collector for a device,
// serialises and coalesces refreshes, caches resolved collectors across a
// handful of scoped reads, and sweeps expired load balancers.
package dispatcher

import (
	"context"
	"sort"
	"sync"
	"time"

	"qcss/internal/collector"
	"qcss/internal/model"
	"qcss/internal/snmpproxy"
	"qcss/pkg/apperror"
	"qcss/pkg/config"
	"qcss/pkg/logger"
	"qcss/pkg/metrics"
)

// collectorCacheTTL is the fixed lifetime of a resolved (proxy, collector)
// pair kept around for callers that opt into reuse across scoped reads.
const collectorCacheTTL = 10 * time.Second

// Writer persists one collected tree, optionally scoped to a vs/rs subtree.
// A nil tree is a no-op (the action succeeded but the re-poll found
// nothing). Implemented by internal/store.
type Writer interface {
	Write(ctx context.Context, lb, vs, rs string, tree *model.LoadBalancer) error
}

// Expirer closes every load balancer row that has gone stale.
// Implemented by internal/store.
type Expirer interface {
	Expire(ctx context.Context) error
}

// ActionResult is what Actions returns for an executed (not listed) action.
type ActionResult struct {
	Actions  []string `json:"actions,omitempty"`
	Executed bool     `json:"executed"`
}

type resolved struct {
	proxy   *snmpproxy.Proxy
	coll    collector.Collector
	created time.Time
}

// Dispatcher is the C6 device dispatcher: one instance per collectord
// process, shared across the HTTP API and the periodic refresh loop.
type Dispatcher struct {
	devices map[string]config.CredentialPair
	bulk    bool
	writer  Writer
	expirer Expirer

	mu         sync.Mutex
	inflight   map[string]*inFlight
	collectors map[string]resolved
}

// New builds a Dispatcher over the collector.lb device map in cfg.
func New(cfg *config.Config, writer Writer, expirer Expirer) *Dispatcher {
	return &Dispatcher{
		devices:    cfg.Collector.LB,
		bulk:       cfg.Collector.Bulk,
		writer:     writer,
		expirer:    expirer,
		inflight:   make(map[string]*inFlight),
		collectors: make(map[string]resolved),
	}
}

// Refresh polls one device (lb != "") or the whole fleet (lb == ""). A
// fleet-wide refresh iterates devices serially, logs per-device errors
// without aborting, and finishes with an expiry sweep.
func (d *Dispatcher) Refresh(ctx context.Context, lb, vs, rs string) error {
	if lb == "" {
		names := make([]string, 0, len(d.devices))
		for name := range d.devices {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if err := d.refreshOne(ctx, name, "", ""); err != nil {
				logger.Log.Warn("refresh failed", "lb", name, "error", err)
			}
		}
		return d.expirer.Expire(ctx)
	}
	return d.refreshOne(ctx, lb, vs, rs)
}

// refreshOne coalesces concurrent refreshes of overlapping scope on the
// same device before doing the actual probe/collect/write work.
func (d *Dispatcher) refreshOne(ctx context.Context, lb, vs, rs string) error {
	key := scopeKey(lb, vs, rs)

	d.mu.Lock()
	if existing, ok := findSubsuming(d.inflight, key); ok {
		d.mu.Unlock()
		<-existing.done
		return existing.err
	}
	self := &inFlight{done: make(chan struct{})}
	d.inflight[key] = self
	d.mu.Unlock()

	err := d.doRefresh(ctx, lb, vs, rs)

	d.mu.Lock()
	delete(d.inflight, key)
	d.mu.Unlock()

	self.err = err
	close(self.done)
	return err
}

func (d *Dispatcher) doRefresh(ctx context.Context, lb, vs, rs string) error {
	start := time.Now()
	metrics.Get().RefreshInFlight.Inc()
	defer metrics.Get().RefreshInFlight.Dec()
	err := d.collectAndWrite(ctx, lb, vs, rs)
	metrics.Get().RecordRefresh(lb, err == nil, time.Since(start))
	return err
}

func (d *Dispatcher) collectAndWrite(ctx context.Context, lb, vs, rs string) error {
	proxy, coll, err := d.probe(ctx, lb)
	if err != nil {
		return err
	}

	tree, err := coll.Collect(ctx, proxy, vs, rs)
	if err != nil {
		return err
	}
	return d.writer.Write(ctx, lb, vs, rs, tree)
}

// probe resolves and caches a (proxy, collector) pair for lb: GETs sysDescr
// and sysObjectID, probes every registered factory (exactly one must
// claim the device), then upgrades the read session to v2c.
func (d *Dispatcher) probe(ctx context.Context, lb string) (*snmpproxy.Proxy, collector.Collector, error) {
	pair, ok := d.devices[lb]
	if !ok {
		return nil, nil, apperror.NewWithField(apperror.CodeConfigError, "unknown load balancer", lb)
	}

	host, err := resolveHost(ctx, lb)
	if err != nil {
		return nil, nil, err
	}

	proxy := snmpproxy.New(snmpproxy.Options{
		Host:       host,
		Community:  pair.RO,
		WCommunity: pair.RW,
		Bulk:       d.bulk,
	})

	if _, err := proxy.Get(ctx, ".1.3.6.1.2.1.1.1.0", ".1.3.6.1.2.1.1.2.0"); err != nil {
		return nil, nil, err
	}

	coll, err := selectCollector(ctx, proxy, collector.Factories())
	if err != nil {
		return nil, nil, err
	}

	proxy.UpgradeToV2()

	d.mu.Lock()
	d.collectors[lb] = resolved{proxy: proxy, coll: coll, created: time.Now()}
	d.mu.Unlock()

	return proxy, coll, nil
}

// resolve returns a (proxy, collector) pair for lb, reusing the collector
// cache when useCache is set and the cached entry is still fresh.
func (d *Dispatcher) resolve(ctx context.Context, lb string, useCache bool) (*snmpproxy.Proxy, collector.Collector, error) {
	if useCache {
		d.mu.Lock()
		r, ok := d.collectors[lb]
		d.mu.Unlock()
		if ok && time.Since(r.created) < collectorCacheTTL {
			return r.proxy, r.coll, nil
		}
	}
	return d.probe(ctx, lb)
}

// Actions lists a device's available actions (action == nil) or executes
// one. A handled==false result from the collector means the action is not
// defined for this entity; Actions reports that as (nil, nil) so callers
// can treat nil as "not found" the way spec'd. On a successful scoped
// action, the affected vs/rs is re-polled and persisted; a device-wide
// action (vs == "") is not re-polled.
func (d *Dispatcher) Actions(ctx context.Context, lb, vs, rs string, action *string, args []string, useCache bool) (*ActionResult, error) {
	proxy, coll, err := d.resolve(ctx, lb, useCache)
	if err != nil {
		return nil, err
	}

	if action == nil {
		return &ActionResult{Actions: coll.Actions()}, nil
	}

	handled, err := coll.Execute(ctx, proxy, *action, vs, rs, args)
	if err != nil {
		return nil, err
	}
	if !handled {
		return nil, nil
	}

	if vs != "" {
		tree, err := coll.Collect(ctx, proxy, vs, rs)
		if err != nil {
			return nil, err
		}
		if err := d.writer.Write(ctx, lb, vs, rs, tree); err != nil {
			return nil, err
		}
	}

	return &ActionResult{Executed: true}, nil
}
