package f5ltm

import (
	"reflect"
	"testing"
)

func TestVSID(t *testing.T) {
	if got := vsID("vsA", ""); got != "vsA" {
		t.Errorf("vsID(vsA, \"\") = %q", got)
	}
	if got := vsID("vsA", "classX"); got != "vsA;classX" {
		t.Errorf("vsID(vsA, classX) = %q", got)
	}
}

func TestMemberID(t *testing.T) {
	if got := memberID("10.0.0.5", 8080); got != "10.0.0.5:8080" {
		t.Errorf("memberID = %q", got)
	}
}

func TestIsIPv4(t *testing.T) {
	if !isIPv4("10.0.0.1") {
		t.Error("expected 10.0.0.1 to be IPv4")
	}
	if isIPv4("fe80::1") {
		t.Error("expected fe80::1 to be rejected as IPv6")
	}
	if isIPv4("not-an-ip") {
		t.Error("expected garbage input to be rejected")
	}
}

func TestMemberState(t *testing.T) {
	tests := []struct {
		name                            string
		avail, enabledState, session int
		want                            string
	}{
		{"fully up", availStateUp, enabledStateEnabled, sessionStatusEnabled, "up"},
		{"avail down", availStateDown, enabledStateEnabled, sessionStatusEnabled, "down"},
		{"session not enabled forces disabled", availStateUp, enabledStateEnabled, 99, "disabled"},
		{"enabledState not enabled forces disabled", availStateUp, 99, sessionStatusEnabled, "disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := memberState(tt.avail, tt.enabledState, tt.session)
			if string(got) != tt.want {
				t.Errorf("memberState(%d,%d,%d) = %v, want %v", tt.avail, tt.enabledState, tt.session, got, tt.want)
			}
		})
	}
}

func TestReadStringAndPoolMemberSuffix(t *testing.T) {
	// "classPool" (9 bytes) string-in-OID, followed by address type 1,
	// 10.0.0.5, port 8080.
	seq := []int{9}
	for _, c := range []byte("classPool") {
		seq = append(seq, int(c))
	}
	seq = append(seq, 1, 10, 0, 0, 5, 8080)

	pool, ip, port, ok := parsePoolMemberSuffix(seq)
	if !ok {
		t.Fatal("expected successful parse")
	}
	if pool != "classPool" || ip != "10.0.0.5" || port != 8080 {
		t.Errorf("got pool=%q ip=%q port=%d", pool, ip, port)
	}
}

func TestBuildVS_HTTPClassSplit(t *testing.T) {
	// Scenario: ltmVirtualServDefaultPool[vsA]=defaultPool,
	// ltmVsHttpClassProfileName[vsA]={classX}, ltmHttpClassPoolName[classX]=classPool
	// yields two VS entries: vsA (pool defaultPool) and vsA;classX (pool classPool).
	defaultVS := buildVS(vsID("vsA", ""), "tcp", nil)
	classVS := buildVS(vsID("vsA", "classX"), "tcp", nil)

	ids := []string{defaultVS.Name, classVS.Name}
	want := []string{"vsA", "vsA;classX"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}
