// Package ciscocs implements the shared Arrowpoint / Cisco CS content
// switching collector: a (owner, content) virtual-service identity with
// both parts string-in-OID encoded, real servers named by service name,
// and up to two sorry servers per VS. Neither variant exposes actions.
package ciscocs

import (
	"context"
	"strconv"
	"strings"

	"qcss/internal/collector"
	"qcss/internal/model"
	"qcss/internal/snmpproxy"
	"qcss/pkg/apperror"
)

func init() {
	collector.Register(func() collector.Collector { return &Collector{kind: "arrowpoint", baseOid: BaseArrowpoint} })
	collector.Register(func() collector.Collector { return &Collector{kind: "ciscocs", baseOid: BaseCiscoCS} })
}

// Collector implements collector.Collector for one vendor variant,
// selected by baseOid.
type Collector struct {
	kind    string
	baseOid string
}

func (c *Collector) Kind() string { return c.kind }

// Probe succeeds when the device answers a GET under this variant's base
// OID without a transport error.
func (c *Collector) Probe(ctx context.Context, proxy *snmpproxy.Proxy) (bool, error) {
	_, err := proxy.Get(ctx, c.baseOid+suffixCntState)
	if err != nil {
		if apperror.Is(err, apperror.CodeTransportError) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Collector) Collect(ctx context.Context, proxy *snmpproxy.Proxy, vsFilter, _ string) (*model.LoadBalancer, error) {
	data := rawTables{
		State:          map[vsKey]int{},
		ServiceState:   map[string]int{},
		PrimarySorry:   map[vsKey]string{},
		SecondarySorry: map[vsKey]string{},
	}
	servicesByVS := map[vsKey][]string{}

	stateTable, err := proxy.Walk(ctx, c.baseOid+suffixCntState)
	if err != nil {
		return nil, err
	}
	for oid, v := range stateTable {
		key, ok := parseOwnerContent(oid, c.baseOid+suffixCntState)
		if !ok {
			continue
		}
		if n, ok := toInt(v); ok {
			data.State[key] = n
		}
	}

	serviceTable, _ := proxy.Walk(ctx, c.baseOid+suffixCntServiceState)
	for oid, v := range serviceTable {
		key, svc, ok := parseOwnerContentService(oid, c.baseOid+suffixCntServiceState)
		if !ok {
			continue
		}
		n, _ := toInt(v)
		data.ServiceState[key.Owner+"|"+key.Content+"|"+svc] = n
		servicesByVS[key] = append(servicesByVS[key], svc)
	}

	primaryTable, _ := proxy.Walk(ctx, c.baseOid+suffixPrimarySorry)
	for oid, v := range primaryTable {
		key, ok := parseOwnerContent(oid, c.baseOid+suffixPrimarySorry)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok {
			data.PrimarySorry[key] = s
		}
	}

	secondTable, _ := proxy.Walk(ctx, c.baseOid+suffixSecondSorry)
	for oid, v := range secondTable {
		key, ok := parseOwnerContent(oid, c.baseOid+suffixSecondSorry)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok {
			data.SecondarySorry[key] = s
		}
	}

	lb := model.NewLoadBalancer("", c.kind)
	for key, services := range servicesByVS {
		if vsFilter != "" && key.id() != vsFilter {
			continue
		}
		built := assembleVS(key, services, data)
		lb.VirtualServers[built.Name] = built
	}
	return lb, nil
}

func (c *Collector) Actions() []string { return nil }

func (c *Collector) Execute(ctx context.Context, proxy *snmpproxy.Proxy, action, vs, rs string, args []string) (bool, error) {
	return false, nil
}

// parseOwnerContent decodes an oid's numeric tail past base into (owner,
// content), both length-prefixed string-in-OID components.
func parseOwnerContent(oid, base string) (vsKey, bool) {
	seq, ok := tailInts(oid, base)
	if !ok {
		return vsKey{}, false
	}
	parts, err := collector.StringOID(seq)
	if err != nil || len(parts) < 2 {
		return vsKey{}, false
	}
	return vsKey{Owner: parts[0], Content: parts[1]}, true
}

// parseOwnerContentService decodes (owner, content, service).
func parseOwnerContentService(oid, base string) (vsKey, string, bool) {
	seq, ok := tailInts(oid, base)
	if !ok {
		return vsKey{}, "", false
	}
	parts, err := collector.StringOID(seq)
	if err != nil || len(parts) < 3 {
		return vsKey{}, "", false
	}
	return vsKey{Owner: parts[0], Content: parts[1]}, parts[2], true
}

func tailInts(oid, base string) ([]int, bool) {
	trimmedBase := strings.TrimPrefix(base, ".")
	if !strings.HasPrefix(oid, trimmedBase+".") {
		return nil, false
	}
	tail := strings.TrimPrefix(oid, trimmedBase+".")
	segs := strings.Split(tail, ".")
	out := make([]int, 0, len(segs))
	for _, s := range segs {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int64:
		return int(x), true
	case uint64:
		return int(x), true
	case uint:
		return int(x), true
	case int:
		return x, true
	default:
		return 0, false
	}
}
