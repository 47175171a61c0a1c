package dispatcher

import (
	"context"
	"net"

	"qcss/internal/collector"
	"qcss/internal/snmpproxy"
	"qcss/pkg/apperror"
)

// selectCollector probes every registered factory against proxy and enforces
// the exactly-one-claimant invariant: zero matches is NoPlugin, more than
// one is AmbiguousPlugin. Probe order is whatever factories iterates in.
func selectCollector(ctx context.Context, proxy *snmpproxy.Proxy, factories []collector.Factory) (collector.Collector, error) {
	var matched []collector.Collector
	for _, f := range factories {
		c := f()
		ok, err := c.Probe(ctx, proxy)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeTransportError, "probe failed").WithField(c.Kind())
		}
		if ok {
			matched = append(matched, c)
		}
	}

	switch len(matched) {
	case 0:
		return nil, apperror.New(apperror.CodeNoPlugin, "no collector plugin claimed this device")
	case 1:
		return matched[0], nil
	default:
		kinds := make([]string, len(matched))
		for i, c := range matched {
			kinds[i] = c.Kind()
		}
		return nil, apperror.New(apperror.CodeAmbiguousPlugin, "more than one collector plugin claimed this device").
			WithDetails("kinds", kinds)
	}
}

// resolveHost returns the IP to dial: a literal IP is returned unchanged
// (no lookup), anything else is resolved via the system resolver, taking
// the first address returned.
func resolveHost(ctx context.Context, name string) (string, error) {
	if net.ParseIP(name) != nil {
		return name, nil
	}
	addrs, err := net.DefaultResolver.LookupHost(ctx, name)
	if err != nil {
		return "", apperror.Wrap(err, apperror.CodeTransportError, "hostname resolution failed").WithField(name)
	}
	if len(addrs) == 0 {
		return "", apperror.New(apperror.CodeTransportError, "hostname resolved to no addresses").WithField(name)
	}
	return addrs[0], nil
}
