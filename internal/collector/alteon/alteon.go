// Package alteon implements the Radware/Nortel Alteon AD collector: the
// slbCurCfg* configuration group, per-real-server and per-group backup
// flattening into sorry servers, and the two-step agApplyConfig protocol
// for configuration actions.
package alteon

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

// Collector implements collector.Collector for Alteon devices.
type Collector struct{}

func (c *Collector) Kind() string { return "alteon" }

// Probe recognises an Alteon device from its sysObjectID prefix.
func (c *Collector) Probe(ctx context.Context, proxy *snmpproxy.Proxy) (bool, error) {
	values, err := proxy.Get(ctx, ".1.3.6.1.2.1.1.2.0")
	if err != nil {
		return false, err
	}
	v, ok := values[strings.TrimPrefix(".1.3.6.1.2.1.1.2.0", ".")]
	if !ok {
		return false, nil
	}
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, strings.TrimPrefix(sysObjectIDPrefix, ".")), nil
}

// Collect walks the full slbCurCfg* group and assembles every virtual
// service into a LoadBalancer tree. When vs is non-empty the walk is
// scoped to that single virtual-service key ("v.s"); rs is accepted for
// symmetry with the dispatcher's signature but Alteon has no per-member
// collect shortcut — membership is only known after the group walk.
func (c *Collector) Collect(ctx context.Context, proxy *snmpproxy.Proxy, vs, rs string) (*model.LoadBalancer, error) {
	data, err := c.walkTables(ctx, proxy)
	if err != nil {
		return nil, err
	}

	lb := model.NewLoadBalancer("", c.Kind())

	keys := make([]string, 0, len(data.VirtServiceGroup))
	for k := range data.VirtServiceGroup {
		if vs != "" && k != vs {
			continue
		}
		keys = append(keys, k)
	}

	for _, key := range keys {
		parts := strings.SplitN(key, ".", 2)
		if len(parts) != 2 {
			continue
		}
		v, err1 := strconv.Atoi(parts[0])
		s, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			continue
		}
		built, err := assembleVS(v, s, data)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeTransportError, "alteon: assembling virtual service failed")
		}
		if vs != "" && built.Name != vs {
			continue
		}
		lb.VirtualServers[built.Name] = built
	}

	return lb, nil
}

func (c *Collector) walkTables(ctx context.Context, proxy *snmpproxy.Proxy) (rawTables, error) {
	data := rawTables{
		VirtServiceGroup:    map[string]int{},
		VirtServiceUDPBal:   map[string]int{},
		GroupMembers:        map[int][]int{},
		GroupBackupServer:   map[int]int{},
		GroupBackupGroup:    map[int]int{},
		RealServerIP:        map[int]string{},
		RealServerBackup:    map[int]int{},
		VirtServicesState:   map[string]int{},
		RealServerInfoState: map[int]int{},
	}

	groupTable, err := proxy.Walk(ctx, oidVirtServiceRealGroup)
	if err != nil {
		return data, err
	}
	for oid, v := range groupTable {
		idx := indexSuffix(oid, oidVirtServiceRealGroup)
		if n, ok := toInt(v); ok {
			data.VirtServiceGroup[idx] = n
		}
	}

	balTable, _ := proxy.Walk(ctx, oidVirtServiceUDPBal)
	for oid, v := range balTable {
		idx := indexSuffix(oid, oidVirtServiceUDPBal)
		if n, ok := toInt(v); ok {
			data.VirtServiceUDPBal[idx] = n
		}
	}

	memberTable, _ := proxy.Walk(ctx, oidGroupRealServers)
	for oid, v := range memberTable {
		idx := indexSuffix(oid, oidGroupRealServers)
		g, err := strconv.Atoi(idx)
		if err != nil {
			continue
		}
		if b, ok := v.([]byte); ok {
			data.GroupMembers[g] = groupMembersFromBitmap(b)
		}
	}

	backupSrvTable, _ := proxy.Walk(ctx, oidGroupBackupServer)
	for oid, v := range backupSrvTable {
		g, n, ok := indexIntPair(oid, oidGroupBackupServer, v)
		if ok {
			data.GroupBackupServer[g] = n
		}
	}

	backupGrpTable, _ := proxy.Walk(ctx, oidGroupBackupGroup)
	for oid, v := range backupGrpTable {
		g, n, ok := indexIntPair(oid, oidGroupBackupGroup, v)
		if ok {
			data.GroupBackupGroup[g] = n
		}
	}

	ipTable, _ := proxy.Walk(ctx, oidRealServerIP)
	for oid, v := range ipTable {
		idx := indexSuffix(oid, oidRealServerIP)
		r, err := strconv.Atoi(idx)
		if err != nil {
			continue
		}
		if s, ok := v.(string); ok {
			data.RealServerIP[r] = s
		}
	}

	backupTable, _ := proxy.Walk(ctx, oidRealServerBackup)
	for oid, v := range backupTable {
		r, n, ok := indexIntPair(oid, oidRealServerBackup, v)
		if ok {
			data.RealServerBackup[r] = n
		}
	}

	stateTable, _ := proxy.Walk(ctx, oidVirtServicesInfoState)
	for oid, v := range stateTable {
		idx := indexSuffix(oid, oidVirtServicesInfoState)
		if n, ok := toInt(v); ok {
			data.VirtServicesState[idx] = n
		}
	}

	rsStateTable, _ := proxy.Walk(ctx, oidRealServerInfoState)
	for oid, v := range rsStateTable {
		idx := indexSuffix(oid, oidRealServerInfoState)
		r, err := strconv.Atoi(idx)
		if err != nil {
			continue
		}
		if n, ok := toInt(v); ok {
			data.RealServerInfoState[r] = n
		}
	}

	return data, nil
}

func (c *Collector) Actions() []string {
	return []string{"enable", "disable", "operenable", "operdisable"}
}

// Execute parses rs as "g.r" (group index and real-server index), issues
// the appropriate SET, and for the two configuration actions drives the
// two-step apply protocol. vs is not used.
func (c *Collector) Execute(ctx context.Context, proxy *snmpproxy.Proxy, action, vs, rs string, args []string) (bool, error) {
	gr := strings.SplitN(rs, ".", 2)
	if len(gr) != 2 {
		return true, apperror.New(apperror.CodeParseError, "alteon: malformed group.real id").WithField(rs)
	}

	switch action {
	case "enable", "disable":
		state := 2
		if action == "enable" {
			state = 1
		}
		oid := oidNewGroupRealServerState + "." + gr[0] + "." + gr[1]
		if err := proxy.Set(oid, state, 2); err != nil {
			return true, err
		}
		return true, c.applyPending(ctx, proxy)
	case "operenable", "operdisable":
		state := 2
		if action == "operenable" {
			state = 1
		}
		oid := oidOperGroupRealServerState + "." + gr[0] + "." + gr[1]
		return true, proxy.Set(oid, state, 2)
	default:
		return false, nil
	}
}

// applyPending reproduces the documented apply sequence exactly: GET
// agApplyPending and agApplyConfig; if they read (2, 4), SET config to 2
// then to 1.
func (c *Collector) applyPending(ctx context.Context, proxy *snmpproxy.Proxy) error {
	values, err := proxy.Get(ctx, oidApplyPending, oidApplyConfig)
	if err != nil {
		return err
	}
	pending, _ := toInt(values[strings.TrimPrefix(oidApplyPending, ".")])
	config, _ := toInt(values[strings.TrimPrefix(oidApplyConfig, ".")])

	for _, step := range applySteps(pending, config) {
		if err := proxy.Set(oidApplyConfig, step, 2); err != nil {
			return err
		}
	}
	return nil
}

func indexSuffix(oid, base string) string {
	return strings.TrimPrefix(strings.TrimPrefix(oid, strings.TrimPrefix(base, ".")), ".")
}

func indexIntPair(oid, base string, v any) (idx, val int, ok bool) {
	idxStr := indexSuffix(oid, base)
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return 0, 0, false
	}
	n, ok := toInt(v)
	return idx, n, ok
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
