package alteon

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"qcss/pkg/apperror"
)

func TestApplySteps_NeedsNudge(t *testing.T) {
	got := applySteps(2, 4)
	want := []int{2, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("applySteps(2,4) = %v, want %v", got, want)
	}
}

func TestApplySteps_NoOpWhenNotPendingOrNotComplete(t *testing.T) {
	cases := [][2]int{{0, 4}, {2, 1}, {2, 2}, {0, 0}}
	for _, c := range cases {
		if got := applySteps(c[0], c[1]); got != nil {
			t.Errorf("applySteps(%d,%d) = %v, want nil", c[0], c[1], got)
		}
	}
}

func TestAssembleVS_BackupFlattening(t *testing.T) {
	// slbCurCfgGroupRealServers[g=3] = 0xC0 (bits 1, 2 set per 8-r+i*8),
	// slbCurCfgRealServerBackUp[1] = 0, slbCurCfgRealServerBackUp[2] = 11.
	data := rawTables{
		VirtServiceGroup:    map[string]int{"1.1": 3},
		VirtServiceUDPBal:   map[string]int{"1.1": 3},
		GroupMembers:        map[int][]int{3: groupMembersFromBitmap([]byte{0xC0})},
		GroupBackupServer:   map[int]int{},
		GroupBackupGroup:    map[int]int{},
		RealServerIP:        map[int]string{1: "10.0.0.1", 2: "10.0.0.2", 11: "10.0.0.11"},
		RealServerBackup:    map[int]int{1: 0, 2: 11},
		VirtServicesState:   map[string]int{"1.1.1": snmpStateUp, "1.1.2": snmpStateUp},
		RealServerInfoState: map[int]int{11: snmpStateUp},
	}

	vs, err := assembleVS(1, 1, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vs.Name != "v1s1g3" {
		t.Errorf("vs name = %q, want v1s1g3", vs.Name)
	}
	if vs.Protocol != "tcp" {
		t.Errorf("protocol = %q, want tcp", vs.Protocol)
	}

	var realNames []string
	for n := range vs.RealServers {
		realNames = append(realNames, n)
	}
	sort.Strings(realNames)
	if !reflect.DeepEqual(realNames, []string{"r1", "r2"}) {
		t.Errorf("real servers = %v, want [r1 r2]", realNames)
	}

	var sorryNames []string
	for n := range vs.SorryServers {
		sorryNames = append(sorryNames, n)
	}
	if !reflect.DeepEqual(sorryNames, []string{"b11"}) {
		t.Errorf("sorry servers = %v, want [b11]", sorryNames)
	}
}

func TestAssembleVS_UnknownGroup(t *testing.T) {
	_, err := assembleVS(9, 9, rawTables{VirtServiceGroup: map[string]int{}})
	if err == nil {
		t.Fatal("expected error for unknown virtual service")
	}
}

func TestExecute_UnknownAction(t *testing.T) {
	c := &Collector{}
	handled, err := c.Execute(context.Background(), nil, "reboot", "1.1", "4.5", nil)
	if handled || err != nil {
		t.Errorf("unknown action should be unhandled with no error, got handled=%v err=%v", handled, err)
	}
}

func TestExecute_MalformedRealServerID(t *testing.T) {
	c := &Collector{}
	handled, err := c.Execute(context.Background(), nil, "enable", "1.1", "not-a-pair", nil)
	if !handled {
		t.Fatal("expected a known action to be reported as handled even on parse failure")
	}
	if !apperror.Is(err, apperror.CodeParseError) {
		t.Errorf("expected ParseError, got %v", err)
	}
}

func TestCollectorActions(t *testing.T) {
	c := &Collector{}
	want := []string{"enable", "disable", "operenable", "operdisable"}
	if !reflect.DeepEqual(c.Actions(), want) {
		t.Errorf("Actions() = %v, want %v", c.Actions(), want)
	}
}
