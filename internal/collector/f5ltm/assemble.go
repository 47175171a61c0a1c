package f5ltm

import (
	"fmt"
	"net"

	"qcss/internal/model"
)

// vsID renders the VS identifier: the bare object name, or
// "{vs};{class}" when this entry represents an HTTP-class override.
func vsID(vs, class string) string {
	if class == "" {
		return vs
	}
	return vs + ";" + class
}

// memberID renders a pool member's real-server id as "{ipv4}:{port}".
func memberID(ip string, port int) string {
	return fmt.Sprintf("%s:%d", ip, port)
}

// isIPv4 reports whether addr parses as an IPv4 address; IPv6 members
// are skipped entirely per the documented behaviour.
func isIPv4(addr string) bool {
	ip := net.ParseIP(addr)
	return ip != nil && ip.To4() != nil
}

// memberState combines the three pool-member status objects: a member
// that is not session-enabled or not enabled-state-enabled is always
// reported disabled regardless of availability; otherwise the avail
// mapping determines up/down/unknown.
func memberState(avail, enabledState, sessionStatus int) model.State {
	if sessionStatus != sessionStatusEnabled || enabledState != enabledStateEnabled {
		return model.StateDisabled
	}
	switch avail {
	case availStateUp:
		return model.StateUp
	case availStateDown, availStateOffline:
		return model.StateDown
	default:
		return model.StateUnknown
	}
}

// buildVS assembles one virtual server entry (either the bare VS or one
// of its HTTP-class overrides), attaching the pool's IPv4 members.
func buildVS(id, protocol string, members map[string]*model.RealServer) *model.VirtualServer {
	vs := model.NewVirtualServer(id)
	vs.Protocol = protocol
	for name, rs := range members {
		vs.RealServers[name] = rs
	}
	return vs
}
