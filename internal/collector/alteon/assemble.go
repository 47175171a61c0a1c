package alteon

import (
	"fmt"

	"qcss/internal/collector"
	"qcss/internal/model"
)

// rawTables holds every slbCurCfg*/slbOper*/ag* value relevant to one
// virtual service, already walked off the device. Keys follow the same
// index grammar as the originating OID ("v.s", "g", "r", "v.s.r").
type rawTables struct {
	VirtServiceGroup    map[string]int
	VirtServiceUDPBal   map[string]int
	GroupMembers        map[int][]int
	GroupBackupServer   map[int]int
	GroupBackupGroup    map[int]int
	RealServerIP        map[int]string
	RealServerBackup    map[int]int
	VirtServicesState   map[string]int
	RealServerInfoState map[int]int
}

func stateFromSNMP(v int, ok bool) model.State {
	if !ok {
		return model.StateDisabled
	}
	switch v {
	case snmpStateUp:
		return model.StateUp
	case snmpStateDown:
		return model.StateDown
	default:
		return model.StateUnknown
	}
}

// assembleVS builds the virtual server v{v}s{s}g{g} from already-walked
// tables: its direct real-server membership from the group bitmap, plus
// every sorry server contributed by per-real-server backup pointers and
// by the group's own backup server/group.
func assembleVS(v, s int, data rawTables) (*model.VirtualServer, error) {
	key := fmt.Sprintf("%d.%d", v, s)
	g, ok := data.VirtServiceGroup[key]
	if !ok {
		return nil, fmt.Errorf("alteon: no group for virtual service %s", key)
	}

	protocol := "udp"
	if data.VirtServiceUDPBal[key] == 3 {
		protocol = "tcp"
	}

	vs := model.NewVirtualServer(fmt.Sprintf("v%ds%dg%d", v, s, g))
	vs.Protocol = protocol

	for _, r := range data.GroupMembers[g] {
		stateKey := fmt.Sprintf("%d.%d.%d", v, s, r)
		st, seen := data.VirtServicesState[stateKey]
		rs := &model.RealServer{
			Name:  fmt.Sprintf("r%d", r),
			RIP:   data.RealServerIP[r],
			State: stateFromSNMP(st, seen),
		}
		vs.RealServers[rs.Name] = rs

		if backup := data.RealServerBackup[r]; backup != 0 {
			addSorry(vs, backup, data)
		}
	}

	if backup := data.GroupBackupServer[g]; backup != 0 {
		addSorry(vs, backup, data)
	}
	if backupGroup := data.GroupBackupGroup[g]; backupGroup != 0 {
		for _, r := range data.GroupMembers[backupGroup] {
			addSorry(vs, r, data)
		}
	}

	return vs, nil
}

func addSorry(vs *model.VirtualServer, r int, data rawTables) {
	name := fmt.Sprintf("b%d", r)
	if _, exists := vs.SorryServers[name]; exists {
		return
	}
	st, seen := data.RealServerInfoState[r]
	vs.SorryServers[name] = &model.SorryServer{
		Name:  name,
		RIP:   data.RealServerIP[r],
		State: stateFromSNMP(st, seen),
	}
}

// groupMembersFromBitmap decodes a slbCurCfgGroupRealServers bitmap into
// real-server indices using the shared bit-position formula.
func groupMembersFromBitmap(b []byte) []int {
	return collector.Bitmap(b)
}
