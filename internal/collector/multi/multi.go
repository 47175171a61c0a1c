// Package multi implements the aggregator collector: it fans a single
// collect or scoped operation out across N already-selected sub-collectors
// sharing one proxy, merging their trees under "@kind"-suffixed keys.
package multi

import (
	"context"
	"strings"
	"sync"

	"qcss/internal/collector"
	"qcss/internal/model"
	"qcss/internal/snmpproxy"
)

// Collector aggregates a fixed set of sub-collectors. Unlike the vendor
// collectors it is never self-registered and is not among the factories
// the dispatcher probes, so it is not part of Probe's exactly-one
// invariant; it is built with New over an explicit set of sub-collectors.
type Collector struct {
	subs []collector.Collector
}

// New builds a Multi collector over an explicit set of sub-collectors.
func New(subs ...collector.Collector) *Collector {
	return &Collector{subs: subs}
}

func (c *Collector) Kind() string {
	kinds := make([]string, len(c.subs))
	for i, s := range c.subs {
		kinds[i] = s.Kind()
	}
	return strings.Join(kinds, " + ")
}

func (c *Collector) Probe(ctx context.Context, proxy *snmpproxy.Proxy) (bool, error) {
	return len(c.subs) > 0, nil
}

// Collect fans a full collect out to every sub-collector in parallel and
// merges the results: each sub-tree's VS and RS names are suffixed with
// "@{kind}" so collisions across sub-collectors cannot occur. A scoped
// operation (vs ending in "@K") is routed to the sub-collector whose
// kind is K instead of fanning out.
func (c *Collector) Collect(ctx context.Context, proxy *snmpproxy.Proxy, vs, rs string) (*model.LoadBalancer, error) {
	if kind, scopedVS, ok := splitScope(vs); ok {
		sub := c.find(kind)
		if sub == nil {
			return model.NewLoadBalancer("", c.Kind()), nil
		}
		tree, err := sub.Collect(ctx, proxy, scopedVS, rs)
		if err != nil {
			return nil, err
		}
		return suffixTree(tree, kind), nil
	}

	type result struct {
		kind string
		tree *model.LoadBalancer
		err  error
	}
	results := make([]result, len(c.subs))
	var wg sync.WaitGroup
	for i, sub := range c.subs {
		wg.Add(1)
		go func(i int, sub collector.Collector) {
			defer wg.Done()
			tree, err := sub.Collect(ctx, proxy, "", "")
			results[i] = result{kind: sub.Kind(), tree: tree, err: err}
		}(i, sub)
	}
	wg.Wait()

	lb := model.NewLoadBalancer("", c.Kind())
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		merged := suffixTree(r.tree, r.kind)
		for name, v := range merged.VirtualServers {
			lb.VirtualServers[name] = v
		}
	}
	return lb, nil
}

// Actions merges every sub-collector's actions, suffixed by kind so the
// dispatcher's actions() listing stays unambiguous about which
// sub-collector will execute each one.
func (c *Collector) Actions() []string {
	var out []string
	for _, sub := range c.subs {
		for _, a := range sub.Actions() {
			out = append(out, a+"@"+sub.Kind())
		}
	}
	return out
}

// Execute requires vs to carry a "@{kind}" scope so it can be routed to
// the right sub-collector; an unscoped vs is reported unhandled.
func (c *Collector) Execute(ctx context.Context, proxy *snmpproxy.Proxy, action, vs, rs string, args []string) (bool, error) {
	kind, scopedVS, ok := splitScope(vs)
	if !ok {
		return false, nil
	}
	sub := c.find(kind)
	if sub == nil {
		return false, nil
	}
	scopedRS := strings.TrimSuffix(rs, "@"+kind)
	return sub.Execute(ctx, proxy, action, scopedVS, scopedRS, args)
}

func (c *Collector) find(kind string) collector.Collector {
	for _, sub := range c.subs {
		if sub.Kind() == kind {
			return sub
		}
	}
	return nil
}

// splitScope splits a "{vs}@{kind}" id. ok is false when vs carries no
// "@" scope at all.
func splitScope(vs string) (kind, bareVS string, ok bool) {
	i := strings.LastIndex(vs, "@")
	if i < 0 {
		return "", vs, false
	}
	return vs[i+1:], vs[:i], true
}

// suffixTree rewrites every VS and RS/sorry name in tree with "@{kind}",
// returning a new LoadBalancer (the input tree's maps are not mutated).
func suffixTree(tree *model.LoadBalancer, kind string) *model.LoadBalancer {
	out := model.NewLoadBalancer(tree.Name, kind)
	out.Description = tree.Description
	out.Extra = tree.Extra
	out.Actions = tree.Actions

	for name, vs := range tree.VirtualServers {
		newVS := model.NewVirtualServer(name + "@" + kind)
		newVS.VIP = vs.VIP
		newVS.Protocol = vs.Protocol
		newVS.Mode = vs.Mode
		newVS.Extra = vs.Extra
		newVS.Actions = vs.Actions
		for rname, rs := range vs.RealServers {
			cp := *rs
			cp.Name = rname + "@" + kind
			newVS.RealServers[cp.Name] = &cp
		}
		for sname, ss := range vs.SorryServers {
			cp := *ss
			cp.Name = sname + "@" + kind
			newVS.SorryServers[cp.Name] = &cp
		}
		out.VirtualServers[newVS.Name] = newVS
	}
	return out
}
