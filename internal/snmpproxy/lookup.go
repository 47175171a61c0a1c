package snmpproxy

import (
	"context"

	"qcss/pkg/apperror"
	"qcss/pkg/cache"
)

// Cache performs a read-only lookup of each key against the proxy's SNMP
// cache. A key that is an OID-name alone (no further dotted components
// beyond the registered base) returns a trimmed map of suffix→value for
// every cached entry under that name; a key naming a full scalar OID
// returns the exact value. A key with neither an exact hit nor any
// prefixed entries fails the whole call with NotCached.
func (p *Proxy) Cache(keys ...string) ([]any, error) {
	ctx := context.Background()
	out := make([]any, len(keys))
	for i, key := range keys {
		v, err := p.lookupOne(ctx, key)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (p *Proxy) lookupOne(ctx context.Context, key string) (any, error) {
	if b, err := p.cache.Get(ctx, key); err == nil {
		v, derr := decodeValue(b)
		if derr != nil {
			return nil, derr
		}
		return v, nil
	} else if err != cache.ErrKeyNotFound {
		return nil, err
	}

	matches, err := p.cache.Keys(ctx, key+".*")
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, apperror.New(apperror.CodeNotCached, "no cached value for key").WithField(key)
	}

	trimmed := make(map[string]any, len(matches))
	values, err := p.cache.MGet(ctx, matches)
	if err != nil {
		return nil, err
	}
	for _, full := range matches {
		b, ok := values[full]
		if !ok {
			continue
		}
		v, derr := decodeValue(b)
		if derr != nil {
			return nil, derr
		}
		suffix := full[len(key)+1:]
		trimmed[suffix] = v
	}
	return trimmed, nil
}

// CacheOrGet returns synchronously from the cache when every key is
// already present; otherwise it issues one batched GET over every
// requested key, exactly as given, and retries the lookup.
func (p *Proxy) CacheOrGet(ctx context.Context, keys ...string) ([]any, error) {
	if values, err := p.Cache(keys...); err == nil {
		return values, nil
	}

	if _, err := p.Get(ctx, oidsOf(keys)...); err != nil {
		return nil, err
	}
	return p.Cache(keys...)
}

func oidsOf(keys []string) []OID {
	out := make([]OID, len(keys))
	for i, k := range keys {
		out[i] = OID(k)
	}
	return out
}
