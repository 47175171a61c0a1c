// Package f5ltm implements the F5 BIG-IP LTM collector: HTTP-class
// virtual-server splitting, global-only profile-type walking, IPv4-only
// pool members, and the combined avail/enabled/session state rule.
package f5ltm

import (
	"context"
	"strconv"
	"strings"

	"qcss/internal/collector"
	"qcss/internal/model"
	"qcss/internal/snmpproxy"
	"qcss/pkg/apperror"
	"qcss/pkg/logger"
)

func init() {
	collector.Register(func() collector.Collector { return &Collector{} })
}

// Collector implements collector.Collector for F5 BIG-IP LTM devices.
type Collector struct{}

func (c *Collector) Kind() string { return "f5ltm" }

func (c *Collector) Probe(ctx context.Context, proxy *snmpproxy.Proxy) (bool, error) {
	values, err := proxy.Get(ctx, ".1.3.6.1.2.1.1.2.0")
	if err != nil {
		return false, err
	}
	s, ok := values["1.3.6.1.2.1.1.2.0"].(string)
	return ok && strings.Contains(s, "1.3.6.1.4.1.3375"), nil
}

func (c *Collector) Collect(ctx context.Context, proxy *snmpproxy.Proxy, vsFilter, _ string) (*model.LoadBalancer, error) {
	defaultPool := map[string]string{}
	defaultPoolTable, err := proxy.Walk(ctx, oidVirtualServDefaultPool)
	if err != nil {
		return nil, err
	}
	for oid, v := range defaultPoolTable {
		seq, ok := tailInts(oid, oidVirtualServDefaultPool)
		if !ok {
			continue
		}
		vs, _, _ := parseObjectNameSuffix(seq)
		if vs == "" {
			continue
		}
		if s, ok := v.(string); ok {
			defaultPool[vs] = s
		}
	}

	httpClasses := map[string][]string{}
	classTable, _ := proxy.Walk(ctx, oidVsHttpClassProfileName)
	for oid, v := range classTable {
		seq, ok := tailInts(oid, oidVsHttpClassProfileName)
		if !ok {
			continue
		}
		vs, _, _ := parseObjectNameSuffix(seq)
		if vs == "" {
			continue
		}
		if s, ok := v.(string); ok {
			httpClasses[vs] = append(httpClasses[vs], s)
		}
	}

	classPool := map[string]string{}
	classPoolTable, _ := proxy.Walk(ctx, oidHttpClassPoolName)
	for oid, v := range classPoolTable {
		seq, ok := tailInts(oid, oidHttpClassPoolName)
		if !ok {
			continue
		}
		class, _, _ := parseObjectNameSuffix(seq)
		if class == "" {
			continue
		}
		if s, ok := v.(string); ok {
			classPool[class] = s
		}
	}

	// ltmVirtualServProfileType is known to fail when walked per-index on
	// F5; it must be walked globally once, which proxy.Walk already does.
	protocol := map[string]string{}
	profileTable, _ := proxy.Walk(ctx, oidVirtualServProfileType)
	for oid, v := range profileTable {
		seq, ok := tailInts(oid, oidVirtualServProfileType)
		if !ok {
			continue
		}
		vs, _, _ := parseObjectNameSuffix(seq)
		if vs == "" {
			continue
		}
		if _, exists := protocol[vs]; exists {
			continue // keep only the first entry per VS
		}
		if s, ok := v.(string); ok {
			protocol[vs] = s
		}
	}

	members, err := c.walkPoolMembers(ctx, proxy)
	if err != nil {
		return nil, err
	}

	lb := model.NewLoadBalancer("", c.Kind())

	for vs, pool := range defaultPool {
		id := vsID(vs, "")
		if vsFilter != "" && id != vsFilter {
			continue
		}
		lb.VirtualServers[id] = buildVS(id, protocol[vs], members[pool])
	}

	for vs, classes := range httpClasses {
		for _, class := range classes {
			id := vsID(vs, class)
			if vsFilter != "" && id != vsFilter {
				continue
			}
			pool := classPool[class]
			lb.VirtualServers[id] = buildVS(id, protocol[vs], members[pool])
		}
	}

	return lb, nil
}

func (c *Collector) walkPoolMembers(ctx context.Context, proxy *snmpproxy.Proxy) (map[string]map[string]*model.RealServer, error) {
	avail := map[string]int{}
	enabled := map[string]int{}
	session := map[string]int{}
	poolByKey := map[string]string{}
	ipByKey := map[string]string{}
	portByKey := map[string]int{}

	availTable, err := proxy.Walk(ctx, oidPoolMbrStatusAvailState)
	if err != nil {
		return nil, err
	}
	for oid, v := range availTable {
		seq, ok := tailInts(oid, oidPoolMbrStatusAvailState)
		if !ok {
			continue
		}
		pool, ip, port, ok := parsePoolMemberSuffix(seq)
		if !ok {
			continue
		}
		if !isIPv4(ip) {
			logger.Log.Info("f5ltm: skipping non-IPv4 pool member", "pool", pool, "ip", ip)
			continue
		}
		key := pool + "|" + ip + "|" + strconv.Itoa(port)
		poolByKey[key], ipByKey[key], portByKey[key] = pool, ip, port
		if n, ok := toInt(v); ok {
			avail[key] = n
		}
	}

	enabledTable, _ := proxy.Walk(ctx, oidPoolMbrStatusEnabledState)
	for oid, v := range enabledTable {
		seq, ok := tailInts(oid, oidPoolMbrStatusEnabledState)
		if !ok {
			continue
		}
		pool, ip, port, ok := parsePoolMemberSuffix(seq)
		if !ok || !isIPv4(ip) {
			continue
		}
		key := pool + "|" + ip + "|" + strconv.Itoa(port)
		if n, ok := toInt(v); ok {
			enabled[key] = n
		}
	}

	sessionTable, _ := proxy.Walk(ctx, oidPoolMemberSessionStatus)
	for oid, v := range sessionTable {
		seq, ok := tailInts(oid, oidPoolMemberSessionStatus)
		if !ok {
			continue
		}
		pool, ip, port, ok := parsePoolMemberSuffix(seq)
		if !ok || !isIPv4(ip) {
			continue
		}
		key := pool + "|" + ip + "|" + strconv.Itoa(port)
		if n, ok := toInt(v); ok {
			session[key] = n
		}
	}

	out := map[string]map[string]*model.RealServer{}
	for key, pool := range poolByKey {
		ip, port := ipByKey[key], portByKey[key]
		rs := &model.RealServer{
			Name:  memberID(ip, port),
			RIP:   ip,
			RPort: port,
			State: memberState(avail[key], enabled[key], session[key]),
		}
		if out[pool] == nil {
			out[pool] = map[string]*model.RealServer{}
		}
		out[pool][rs.Name] = rs
	}
	return out, nil
}

func (c *Collector) Actions() []string { return []string{"enable", "disable"} }

// Execute toggles ltmPoolMemberNewSessionEnable for the pool member named
// by rs ("{ipv4}:{port}"). vs is used as the pool name in the OID index;
// it is not looked up as a virtual-server id.
func (c *Collector) Execute(ctx context.Context, proxy *snmpproxy.Proxy, action, vs, rs string, args []string) (bool, error) {
	if action != "enable" && action != "disable" {
		return false, nil
	}
	ip, port, ok := splitMemberID(rs)
	if !ok {
		return true, apperror.New(apperror.CodeParseError, "f5ltm: malformed real server id").WithField(rs)
	}

	value := newSessionUserDisabled
	if action == "enable" {
		value = newSessionEnabled
	}
	// Index is "{poolOid}.1.{ipv4Oid}.{port}" — the pool member's IPv4
	// address in dotted form already is its own OID suffix.
	oid := oidPoolMemberNewSessionEnable + "." + collector.OIDString(vs) + ".1." + ip + "." + strconv.Itoa(port)
	return true, proxy.Set(oid, value, 2)
}

func splitMemberID(rs string) (ip string, port int, ok bool) {
	i := strings.LastIndex(rs, ":")
	if i < 0 {
		return "", 0, false
	}
	ip = rs[:i]
	p, err := strconv.Atoi(rs[i+1:])
	if err != nil {
		return "", 0, false
	}
	return ip, p, true
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
