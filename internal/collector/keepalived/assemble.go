package keepalived

import (
	"strconv"
	"strings"

	"qcss/internal/model"
)

// wrapAddr brackets an IPv6 literal for use inside a composite VIP
// string, leaving IPv4 and fwmark values unchanged.
func wrapAddr(addr string) string {
	if strings.Contains(addr, ":") {
		return "[" + addr + "]"
	}
	return addr
}

// compositeVIP joins a group virtual server's member addresses with " + ",
// matching every member being an ip, iprange, or fwmark string.
func compositeVIP(members []string) string {
	wrapped := make([]string, len(members))
	for i, m := range members {
		wrapped[i] = wrapAddr(m)
	}
	return strings.Join(wrapped, " + ")
}

// realServerState applies the weight==0 override: a zero weight always
// reports disabled regardless of the observed up/down status.
func realServerState(weight int, up bool) model.State {
	if weight == 0 {
		return model.StateDisabled
	}
	if up {
		return model.StateUp
	}
	return model.StateDown
}

// parseEnableArg parses the optional weight argument to the "enable"
// action ("enable" alone defaults to 1; "enable/{w}" requires w in 1..5).
func parseEnableArg(args []string) (int, bool) {
	if len(args) == 0 {
		return minWeight, true
	}
	w, err := strconv.Atoi(args[0])
	if err != nil || w < minWeight || w > maxWeight {
		return 0, false
	}
	return w, true
}

// matchingMembers returns every "v.r" key whose recorded address equals
// target, for the enableall/disableall cross-VS actions.
func matchingMembers(target string, addresses map[string]string) []string {
	var out []string
	for key, addr := range addresses {
		if addr == target {
			out = append(out, key)
		}
	}
	return out
}
