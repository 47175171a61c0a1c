// Package keepalived implements the Keepalived/LVS collector: integer VS
// indices, fwmark/ip/group VS types with composite group VIPs, the
// weight==0 disabled override, and cross-VS enableall/disableall actions.
package keepalived

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

// Collector implements collector.Collector for Keepalived devices.
type Collector struct{}

func (c *Collector) Kind() string { return "keepalived" }

func (c *Collector) Probe(ctx context.Context, proxy *snmpproxy.Proxy) (bool, error) {
	_, err := proxy.Get(ctx, oidVirtualServerType+".1")
	if err != nil {
		if apperror.Is(err, apperror.CodeTransportError) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type tables struct {
	vsType    map[int]int
	vsFwmark  map[int]string
	vsAddress map[int]string
	vsPort    map[int]int

	groupMembers map[int][]string

	rsAddress map[string]string // "v.r" -> ip
	rsWeight  map[string]int
	rsStatus  map[string]bool
	rsType    map[string]int
}

func (c *Collector) Collect(ctx context.Context, proxy *snmpproxy.Proxy, vsFilter, _ string) (*model.LoadBalancer, error) {
	data, err := c.walk(ctx, proxy)
	if err != nil {
		return nil, err
	}

	lb := model.NewLoadBalancer("", c.Kind())
	for v, vsType := range data.vsType {
		id := strconv.Itoa(v)
		if vsFilter != "" && id != vsFilter {
			continue
		}
		vs := model.NewVirtualServer(id)
		switch vsType {
		case vsTypeGroup:
			vs.VIP = compositeVIP(data.groupMembers[v])
		default:
			if fw, ok := data.vsFwmark[v]; ok && fw != "" {
				vs.VIP = fw
			} else {
				vs.VIP = wrapAddr(data.vsAddress[v])
			}
		}

		for key, ip := range data.rsAddress {
			vv, r, ok := splitVR(key)
			if !ok || vv != v {
				continue
			}
			weight := data.rsWeight[key]
			state := realServerState(weight, data.rsStatus[key])
			name := strconv.Itoa(r)
			if data.rsType[key] == realServerTypeSorry {
				vs.SorryServers[name] = &model.SorryServer{Name: name, RIP: ip, State: state}
			} else {
				vs.RealServers[name] = &model.RealServer{Name: name, RIP: ip, Weight: weight, State: state}
			}
		}

		lb.VirtualServers[vs.Name] = vs
	}
	return lb, nil
}

func (c *Collector) walk(ctx context.Context, proxy *snmpproxy.Proxy) (tables, error) {
	data := tables{
		vsType:       map[int]int{},
		vsFwmark:     map[int]string{},
		vsAddress:    map[int]string{},
		vsPort:       map[int]int{},
		groupMembers: map[int][]string{},
		rsAddress:    map[string]string{},
		rsWeight:     map[string]int{},
		rsStatus:     map[string]bool{},
		rsType:       map[string]int{},
	}

	typeTable, err := proxy.Walk(ctx, oidVirtualServerType)
	if err != nil {
		return data, err
	}
	for oid, v := range typeTable {
		idx, ok := lastIndex(oid, oidVirtualServerType)
		if n, ok2 := toInt(v); ok && ok2 {
			data.vsType[idx] = n
		}
	}

	fwTable, _ := proxy.Walk(ctx, oidVirtualServerFwmark)
	for oid, v := range fwTable {
		idx, ok := lastIndex(oid, oidVirtualServerFwmark)
		if s, ok2 := v.(string); ok && ok2 {
			data.vsFwmark[idx] = s
		}
	}

	addrTable, _ := proxy.Walk(ctx, oidVirtualServerAddress)
	for oid, v := range addrTable {
		idx, ok := lastIndex(oid, oidVirtualServerAddress)
		if s, ok2 := v.(string); ok && ok2 {
			data.vsAddress[idx] = s
		}
	}

	groupTable, _ := proxy.Walk(ctx, oidGroupMemberAddress)
	for oid, v := range groupTable {
		idx, ok := lastIndex(oid, oidGroupMemberAddress)
		if s, ok2 := v.(string); ok && ok2 {
			data.groupMembers[idx] = append(data.groupMembers[idx], s)
		}
	}

	rsAddrTable, _ := proxy.Walk(ctx, oidRealServerAddress)
	for oid, v := range rsAddrTable {
		key, ok := lastTwoKey(oid, oidRealServerAddress)
		if s, ok2 := v.(string); ok && ok2 {
			data.rsAddress[key] = s
		}
	}

	rsWeightTable, _ := proxy.Walk(ctx, oidRealServerWeight)
	for oid, v := range rsWeightTable {
		key, ok := lastTwoKey(oid, oidRealServerWeight)
		if n, ok2 := toInt(v); ok && ok2 {
			data.rsWeight[key] = n
		}
	}

	rsStatusTable, _ := proxy.Walk(ctx, oidRealServerStatus)
	for oid, v := range rsStatusTable {
		key, ok := lastTwoKey(oid, oidRealServerStatus)
		if n, ok2 := toInt(v); ok && ok2 {
			data.rsStatus[key] = n != 0
		}
	}

	rsTypeTable, _ := proxy.Walk(ctx, oidRealServerType)
	for oid, v := range rsTypeTable {
		key, ok := lastTwoKey(oid, oidRealServerType)
		if n, ok2 := toInt(v); ok && ok2 {
			data.rsType[key] = n
		}
	}

	return data, nil
}

func (c *Collector) Actions() []string {
	return []string{"enable", "disable", "enableall", "disableall"}
}

func (c *Collector) Execute(ctx context.Context, proxy *snmpproxy.Proxy, action, vs, rs string, args []string) (bool, error) {
	switch action {
	case "enable", "disable":
		weight := 0
		if action == "enable" {
			w, ok := parseEnableArg(args)
			if !ok {
				return true, apperror.New(apperror.CodeParseError, "keepalived: invalid weight argument")
			}
			weight = w
		}
		return true, proxy.Set(oidRealServerWeight+"."+vs+"."+rs, weight, 2)
	case "enableall", "disableall":
		values, err := proxy.Get(ctx, oidRealServerAddress+"."+vs+"."+rs)
		if err != nil {
			return true, err
		}
		target, _ := values[strings.TrimPrefix(oidRealServerAddress+"."+vs+"."+rs, ".")].(string)

		addrTable, err := proxy.Walk(ctx, oidRealServerAddress)
		if err != nil {
			return true, err
		}
		addresses := map[string]string{}
		for oid, v := range addrTable {
			key, ok := lastTwoKey(oid, oidRealServerAddress)
			if s, ok2 := v.(string); ok && ok2 {
				addresses[key] = s
			}
		}

		weight := 0
		if action == "enableall" {
			weight = minWeight
		}
		for _, key := range matchingMembers(target, addresses) {
			if err := proxy.Set(oidRealServerWeight+"."+key, weight, 2); err != nil {
				return true, err
			}
		}
		return true, nil
	default:
		return false, nil
	}
}

func splitVR(key string) (v, r int, ok bool) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	v, err1 := strconv.Atoi(parts[0])
	r, err2 := strconv.Atoi(parts[1])
	return v, r, err1 == nil && err2 == nil
}

func lastIndex(oid, base string) (int, bool) {
	idx := strings.TrimPrefix(strings.TrimPrefix(oid, strings.TrimPrefix(base, ".")), ".")
	n, err := strconv.Atoi(idx)
	return n, err == nil
}

func lastTwoKey(oid, base string) (string, bool) {
	idx := strings.TrimPrefix(strings.TrimPrefix(oid, strings.TrimPrefix(base, ".")), ".")
	parts := strings.Split(idx, ".")
	if len(parts) != 2 {
		return "", false
	}
	return parts[0] + "." + parts[1], true
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
