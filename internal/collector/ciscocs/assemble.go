package ciscocs

import (
	"fmt"

	"qcss/internal/model"
)

// vsKey is a decoded (owner, content) pair — the VS identity for both
// vendor variants of this MIB.
type vsKey struct {
	Owner   string
	Content string
}

// id renders the VS identifier using a literal "|" separator, matching
// the documented (non-regex) interpretation of the upstream VS-id parser.
func (k vsKey) id() string {
	return k.Owner + "|" + k.Content
}

// parseVSID splits an id produced by vsKey.id back into its parts. It
// fails if the id does not contain exactly one literal "|".
func parseVSID(id string) (vsKey, error) {
	sep := -1
	for i := 0; i < len(id); i++ {
		if id[i] == '|' {
			if sep != -1 {
				return vsKey{}, fmt.Errorf("ciscocs: more than one '|' in vs id %q", id)
			}
			sep = i
		}
	}
	if sep == -1 {
		return vsKey{}, fmt.Errorf("ciscocs: missing '|' separator in vs id %q", id)
	}
	return vsKey{Owner: id[:sep], Content: id[sep+1:]}, nil
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

// rawTables holds the already-walked apCnt* values for every (owner,
// content) virtual service this device exposes.
type rawTables struct {
	State           map[vsKey]int
	ServiceState    map[string]int // key "owner|content|service"
	PrimarySorry    map[vsKey]string
	SecondarySorry  map[vsKey]string
}

// assembleVS builds one virtual server from the walked tables. Member
// real servers are discovered purely from ServiceState keys scoped to
// this VS, since the MIB carries no separate membership list.
func assembleVS(key vsKey, services []string, data rawTables) *model.VirtualServer {
	vs := model.NewVirtualServer(key.id())

	for _, svc := range services {
		stKey := key.Owner + "|" + key.Content + "|" + svc
		s, ok := data.ServiceState[stKey]
		vs.RealServers[svc] = &model.RealServer{
			Name:  svc,
			State: stateFromSNMP(s, ok),
		}
	}

	if primary, ok := data.PrimarySorry[key]; ok && primary != "" {
		vs.SorryServers[primary] = &model.SorryServer{Name: primary, State: model.StateUp}
	}
	if second, ok := data.SecondarySorry[key]; ok && second != "" {
		vs.SorryServers[second] = &model.SorryServer{Name: second, State: model.StateUp}
	}

	return vs
}
