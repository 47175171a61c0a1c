// Package haproxy implements the HAProxy collector: frontend/backend
// matching by a name-convention heuristic rather than any explicit SNMP
// relation, since the stock HAProxy MIB exposes no such link. No actions.
package haproxy

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
	collector.Register(func() collector.Collector { return &Collector{} })
}

// Collector implements collector.Collector for HAProxy's stock SNMP agent.
type Collector struct{}

func (c *Collector) Kind() string { return "haproxy" }

func (c *Collector) Probe(ctx context.Context, proxy *snmpproxy.Proxy) (bool, error) {
	_, err := proxy.Get(ctx, oidProxyType+".1.0")
	if err != nil {
		if apperror.Is(err, apperror.CodeTransportError) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type proxyRow struct {
	pid  int
	name string
	kind int
}

func (c *Collector) Collect(ctx context.Context, proxy *snmpproxy.Proxy, vsFilter, _ string) (*model.LoadBalancer, error) {
	names := map[string]string{} // "pid.sid" -> name
	nameTable, err := proxy.Walk(ctx, oidProxyName)
	if err != nil {
		return nil, err
	}
	for oid, v := range nameTable {
		key, ok := pidSidKey(oid, oidProxyName)
		if s, ok2 := v.(string); ok && ok2 {
			names[key] = s
		}
	}

	types := map[string]int{}
	typeTable, _ := proxy.Walk(ctx, oidProxyType)
	for oid, v := range typeTable {
		key, ok := pidSidKey(oid, oidProxyType)
		if n, ok2 := toInt(v); ok && ok2 {
			types[key] = n
		}
	}

	var frontends, backends []proxyRow
	for key, name := range names {
		pid, sid, ok := splitPidSid(key)
		if !ok || sid != 0 {
			continue
		}
		switch types[key] {
		case proxyTypeFrontend:
			frontends = append(frontends, proxyRow{pid: pid, name: name})
		case proxyTypeBackend:
			backends = append(backends, proxyRow{pid: pid, name: name})
		}
	}

	serverNames := map[string]string{}
	serverNameTable, _ := proxy.Walk(ctx, oidServerName)
	for oid, v := range serverNameTable {
		key, ok := pidSidKey(oid, oidServerName)
		if s, ok2 := v.(string); ok && ok2 {
			serverNames[key] = s
		}
	}
	serverStatus := map[string]int{}
	statusTable, _ := proxy.Walk(ctx, oidServerStatus)
	for oid, v := range statusTable {
		key, ok := pidSidKey(oid, oidServerStatus)
		if n, ok2 := toInt(v); ok && ok2 {
			serverStatus[key] = n
		}
	}

	backendByName := map[string]int{}
	for _, b := range backends {
		backendByName[b.name] = b.pid
	}

	lb := model.NewLoadBalancer("", c.Kind())
	for _, f := range frontends {
		id := "p" + strconv.Itoa(f.pid) + ",f" + f.name
		if vsFilter != "" && id != vsFilter {
			continue
		}
		vs := model.NewVirtualServer(id)
		vs.VIP = vipOf(f.name)

		for _, b := range backends {
			if !backendServesFrontend(b.name, f.name) {
				continue
			}
			for key, sname := range serverNames {
				pid, sid, ok := splitPidSid(key)
				if !ok || pid != b.pid || sid == 0 {
					continue
				}
				name := memberAddr(sname)
				state := model.StateDown
				if serverStatus[key] == serverStatusUp {
					state = model.StateUp
				}
				vs.RealServers[name] = &model.RealServer{Name: name, State: state}
			}
		}

		lb.VirtualServers[vs.Name] = vs
	}
	return lb, nil
}

func (c *Collector) Actions() []string { return nil }

func (c *Collector) Execute(ctx context.Context, proxy *snmpproxy.Proxy, action, vs, rs string, args []string) (bool, error) {
	return false, nil
}

func pidSidKey(oid, base string) (string, bool) {
	idx := strings.TrimPrefix(strings.TrimPrefix(oid, strings.TrimPrefix(base, ".")), ".")
	parts := strings.Split(idx, ".")
	if len(parts) != 2 {
		return "", false
	}
	return parts[0] + "." + parts[1], true
}

func splitPidSid(key string) (pid, sid int, ok bool) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	p, err1 := strconv.Atoi(parts[0])
	s, err2 := strconv.Atoi(parts[1])
	return p, s, err1 == nil && err2 == nil
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
