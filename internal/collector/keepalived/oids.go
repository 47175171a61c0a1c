package keepalived

// Keepalived's SNMP MIB, grouped under the enterprise 1.3.6.1.4.1.9586
// tree (KEEPALIVED-MIB), as exposed by the stock SNMP sub-agent.
const (
	oidVirtualServerType    = ".1.3.6.1.4.1.9586.100.5.2.3.1.4"
	oidVirtualServerFwmark  = ".1.3.6.1.4.1.9586.100.5.2.3.1.5"
	oidVirtualServerAddress = ".1.3.6.1.4.1.9586.100.5.2.3.1.2"
	oidVirtualServerPort    = ".1.3.6.1.4.1.9586.100.5.2.3.1.3"

	oidGroupMemberAddress = ".1.3.6.1.4.1.9586.100.5.2.4.1.3"

	oidRealServerAddress = ".1.3.6.1.4.1.9586.100.5.2.6.1.2"
	oidRealServerWeight  = ".1.3.6.1.4.1.9586.100.5.2.6.1.4"
	oidRealServerStatus  = ".1.3.6.1.4.1.9586.100.5.2.6.1.5"
	oidRealServerType    = ".1.3.6.1.4.1.9586.100.5.2.6.1.7"
)

const (
	vsTypeGroup = 3

	realServerTypeSorry = 2

	minWeight = 1
	maxWeight = 5
)
