package haproxy

import "strings"

// vipOf returns the substring before the first "--" in a proxy name, or
// the whole name when there is no "--".
func vipOf(name string) string {
	if i := strings.Index(name, "--"); i >= 0 {
		return name[:i]
	}
	return name
}

// memberAddr returns the substring before the first "--" in a server
// name — the "IP:port" the server row represents.
func memberAddr(name string) string {
	return vipOf(name)
}

// backendServesFrontend applies the heuristic name-convention match: a
// backend serves a frontend if it equals the frontend's full name, equals
// the frontend's VIP-stripped suffix, or begins with either of those
// followed by "--".
func backendServesFrontend(backend, frontend string) bool {
	vip := vipOf(frontend)
	suffix := ""
	if trimmed := strings.TrimPrefix(frontend, vip+"--"); trimmed != frontend {
		suffix = trimmed
	}

	switch {
	case backend == frontend:
		return true
	case suffix != "" && backend == suffix:
		return true
	case strings.HasPrefix(backend, frontend+"--"):
		return true
	case suffix != "" && strings.HasPrefix(backend, suffix+"--"):
		return true
	default:
		return false
	}
}
