package haproxy

// HAProxy's SNMP MIB (enterprise 1.3.6.1.4.1.41315, haProxy tree) exposes
// one flat table per proxy (frontend or backend) and one per server row
// within a backend.
const (
	oidProxyName    = ".1.3.6.1.4.1.41315.1.1.1.1.2" // indexed by (pid, sid==0)
	oidProxyType    = ".1.3.6.1.4.1.41315.1.1.1.1.3" // 0=frontend, 1=backend
	oidServerName   = ".1.3.6.1.4.1.41315.1.1.1.1.4" // indexed by (pid, sid)
	oidServerStatus = ".1.3.6.1.4.1.41315.1.1.1.1.17"
)

const (
	proxyTypeFrontend = 0
	proxyTypeBackend  = 1

	serverStatusUp = 2
)
