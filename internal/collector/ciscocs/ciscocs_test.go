package ciscocs

import (
	"reflect"
	"sort"
	"testing"
)

func TestVSKeyID_LiteralPipeSplit(t *testing.T) {
	k := vsKey{Owner: "ownerA", Content: "contentB"}
	id := k.id()
	if id != "ownerA|contentB" {
		t.Fatalf("id() = %q", id)
	}

	got, err := parseVSID(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != k {
		t.Errorf("parseVSID round trip = %+v, want %+v", got, k)
	}
}

func TestParseVSID_Errors(t *testing.T) {
	if _, err := parseVSID("noseparator"); err == nil {
		t.Error("expected error for missing separator")
	}
	if _, err := parseVSID("a|b|c"); err == nil {
		t.Error("expected error for multiple separators")
	}
}

func TestAssembleVS(t *testing.T) {
	key := vsKey{Owner: "o1", Content: "c1"}
	data := rawTables{
		State: map[vsKey]int{key: snmpStateUp},
		ServiceState: map[string]int{
			"o1|c1|svcA": snmpStateUp,
			"o1|c1|svcB": snmpStateDown,
		},
		PrimarySorry:   map[vsKey]string{key: "sorryA"},
		SecondarySorry: map[vsKey]string{key: "sorryB"},
	}

	vs := assembleVS(key, []string{"svcA", "svcB"}, data)
	if vs.Name != "o1|c1" {
		t.Errorf("vs name = %q, want o1|c1", vs.Name)
	}
	if vs.RealServers["svcA"].State != "up" {
		t.Errorf("svcA state = %v", vs.RealServers["svcA"].State)
	}
	if vs.RealServers["svcB"].State != "down" {
		t.Errorf("svcB state = %v", vs.RealServers["svcB"].State)
	}

	var sorryNames []string
	for n := range vs.SorryServers {
		sorryNames = append(sorryNames, n)
	}
	sort.Strings(sorryNames)
	if !reflect.DeepEqual(sorryNames, []string{"sorryA", "sorryB"}) {
		t.Errorf("sorry servers = %v", sorryNames)
	}
}

func TestCollectorHasNoActions(t *testing.T) {
	c := &Collector{kind: "arrowpoint", baseOid: BaseArrowpoint}
	if c.Actions() != nil {
		t.Errorf("expected no actions, got %v", c.Actions())
	}
	handled, err := c.Execute(nil, nil, "enable", "o|c", "svc", nil)
	if handled || err != nil {
		t.Errorf("expected unhandled no-op execute, got handled=%v err=%v", handled, err)
	}
}
