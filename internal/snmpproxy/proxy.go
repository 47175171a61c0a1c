// Package snmpproxy wraps github.com/gosnmp/gosnmp with OID normalisation,
// a read cache, and a lazily-constructed write session, matching the
// collector layer's expectation of a single typed client per device.
package snmpproxy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"qcss/pkg/apperror"
	"qcss/pkg/cache"
	"qcss/pkg/logger"
)

// OID is any value that can be normalised into a dotted OID string: a
// pre-joined string, or a slice of int/string components to join.
type OID any

// NormalizeOID joins a tuple/sequence of integer-or-string components with
// dots. A plain string is returned unchanged (assumed already dotted).
func NormalizeOID(o OID) (string, error) {
	switch v := o.(type) {
	case string:
		return v, nil
	case []string:
		return strings.Join(v, "."), nil
	case []int:
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, "."), nil
	case []any:
		parts := make([]string, len(v))
		for i, c := range v {
			switch cv := c.(type) {
			case string:
				parts[i] = cv
			case int:
				parts[i] = strconv.Itoa(cv)
			default:
				return "", fmt.Errorf("snmpproxy: unsupported OID component %T", c)
			}
		}
		return strings.Join(parts, "."), nil
	default:
		return "", fmt.Errorf("snmpproxy: unsupported OID value %T", o)
	}
}

// Proxy is a single device's SNMP client: one read session (started at v1
// for probing, upgradeable to v2c), a lazily-built write session, and a
// cache of every value it has observed.
type Proxy struct {
	host      string
	community string
	wcommunity string
	bulk      bool

	read  *gosnmp.GoSNMP
	write *gosnmp.GoSNMP

	cache cache.Cache
	ttl   time.Duration
}

// Options configures a new Proxy.
type Options struct {
	Host       string
	Community  string
	WCommunity string // optional write community; enables Set when non-empty
	Timeout    time.Duration
	Retries    int
	Bulk       bool // when false, GetBulk falls back to a single GETNEXT
	Cache      cache.Cache
	CacheTTL   time.Duration
}

// New builds a Proxy at SNMP v1, matching the probing phase described for
// device discovery. Call UpgradeToV2 once a collector has claimed the device.
func New(opts Options) *Proxy {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	retries := opts.Retries
	if retries == 0 {
		retries = 1
	}

	c := opts.Cache
	if c == nil {
		c = cache.MustNew(cache.DefaultOptions())
	}
	ttl := opts.CacheTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	p := &Proxy{
		host:       opts.Host,
		community:  opts.Community,
		wcommunity: opts.WCommunity,
		bulk:       opts.Bulk,
		cache:      c,
		ttl:        ttl,
	}
	p.read = p.newSession(opts.Community, gosnmp.Version1, timeout, retries)
	return p
}

func (p *Proxy) newSession(community string, version gosnmp.SnmpVersion, timeout time.Duration, retries int) *gosnmp.GoSNMP {
	return &gosnmp.GoSNMP{
		Target:    p.host,
		Port:      161,
		Community: community,
		Version:   version,
		Timeout:   timeout,
		Retries:   retries,
		MaxOids:   gosnmp.MaxOids,
	}
}

// UpgradeToV2 switches the read session to SNMP v2c, enabling efficient
// GETBULK. The dispatcher calls this once it has settled on a collector.
func (p *Proxy) UpgradeToV2() {
	p.read.Version = gosnmp.Version2c
}

func (p *Proxy) connect(s *gosnmp.GoSNMP) error {
	if s.Conn != nil {
		return nil
	}
	if err := s.Connect(); err != nil {
		return apperror.Wrap(err, apperror.CodeTransportError, "snmp connect failed").WithDetails("host", p.host)
	}
	return nil
}

// Get fetches oids and deposits every returned pair into the cache.
func (p *Proxy) Get(ctx context.Context, oids ...OID) (map[string]any, error) {
	strOids, err := normalizeAll(oids)
	if err != nil {
		return nil, err
	}
	if err := p.connect(p.read); err != nil {
		return nil, err
	}
	pkt, err := p.read.Get(strOids)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeTransportError, "snmp get failed")
	}
	out := make(map[string]any, len(pkt.Variables))
	for _, v := range pkt.Variables {
		if isEndOfMib(v) {
			continue
		}
		name := strings.TrimPrefix(v.Name, ".")
		out[name] = v.Value
		p.store(ctx, name, v.Value)
	}
	return out, nil
}

// GetNext issues an uncached GETNEXT.
func (p *Proxy) GetNext(oid OID) (name string, value any, err error) {
	s, e := NormalizeOID(oid)
	if e != nil {
		return "", nil, e
	}
	if err := p.connect(p.read); err != nil {
		return "", nil, err
	}
	pkt, err := p.read.GetNext([]string{s})
	if err != nil {
		return "", nil, apperror.Wrap(err, apperror.CodeTransportError, "snmp getnext failed")
	}
	if len(pkt.Variables) == 0 {
		return "", nil, apperror.New(apperror.CodeTransportError, "snmp getnext returned no variables")
	}
	v := pkt.Variables[0]
	if isEndOfMib(v) {
		return "", nil, apperror.New(apperror.CodeTransportError, "snmp end of mib")
	}
	return strings.TrimPrefix(v.Name, "."), v.Value, nil
}

// GetBulk issues a GETBULK, falling back to a single GETNEXT when bulk
// mode is disabled for this device (v1 or operator-configured).
func (p *Proxy) GetBulk(oid OID, maxRepetitions uint8) ([]gosnmp.SnmpPDU, error) {
	s, err := NormalizeOID(oid)
	if err != nil {
		return nil, err
	}
	if err := p.connect(p.read); err != nil {
		return nil, err
	}
	if !p.bulk || p.read.Version == gosnmp.Version1 {
		name, value, err := p.GetNext(s)
		if err != nil {
			return nil, err
		}
		return []gosnmp.SnmpPDU{{Name: "." + name, Value: value}}, nil
	}
	pkt, err := p.read.GetBulk([]string{s}, 0, maxRepetitions)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeTransportError, "snmp getbulk failed")
	}
	return pkt.Variables, nil
}

// Walk drives GetBulk in a loop over baseOid's subtree, terminating on
// loop detection (next OID lexicographically <= the last one returned),
// leaving the subtree, or an end-of-MIB marker. All pairs collected are
// deposited into the cache.
func (p *Proxy) Walk(ctx context.Context, baseOid OID) (map[string]any, error) {
	base, err := NormalizeOID(baseOid)
	if err != nil {
		return nil, err
	}
	base = strings.TrimPrefix(base, ".")

	out := make(map[string]any)
	current := base
	for {
		vars, err := p.GetBulk(current, 10)
		if err != nil {
			if apperror.Is(err, apperror.CodeTransportError) {
				break
			}
			return nil, err
		}
		if len(vars) == 0 {
			break
		}

		advanced := false
		for _, v := range vars {
			if isEndOfMib(v) {
				advanced = false
				break
			}
			name := strings.TrimPrefix(v.Name, ".")
			if !strings.HasPrefix(name, base+".") && name != base {
				advanced = false
				break
			}
			if name <= current && current != base {
				advanced = false
				break
			}
			out[name] = v.Value
			p.store(ctx, name, v.Value)
			current = name
			advanced = true
		}
		if !advanced {
			break
		}
	}
	return out, nil
}

// Set issues a write over the lazily-constructed write session, which is
// only available when a write community was configured. The read session
// never carries writable credentials.
func (p *Proxy) Set(oid OID, value any, asnType gosnmp.Asn1BER) error {
	if p.wcommunity == "" {
		return apperror.New(apperror.CodeConfigError, "no write community configured for this device")
	}
	s, err := NormalizeOID(oid)
	if err != nil {
		return err
	}
	if p.write == nil {
		p.write = p.newSession(p.wcommunity, p.read.Version, p.read.Timeout, p.read.Retries)
	}
	if err := p.connect(p.write); err != nil {
		return err
	}
	_, err = p.write.Set([]gosnmp.SnmpPDU{{Name: "." + strings.TrimPrefix(s, "."), Type: asnType, Value: value}})
	if err != nil {
		return apperror.Wrap(err, apperror.CodeTransportError, "snmp set failed").WithDetails("oid", s)
	}
	return nil
}

func (p *Proxy) store(ctx context.Context, key string, value any) {
	b, err := encodeValue(value)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, b, p.ttl); err != nil {
		logger.Log.Warn("snmpproxy: cache set failed", "key", key, "error", err)
	}
}

func isEndOfMib(v gosnmp.SnmpPDU) bool {
	return v.Type == gosnmp.EndOfMibView || v.Type == gosnmp.NoSuchObject || v.Type == gosnmp.NoSuchInstance
}

func normalizeAll(oids []OID) ([]string, error) {
	out := make([]string, len(oids))
	for i, o := range oids {
		s, err := NormalizeOID(o)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
