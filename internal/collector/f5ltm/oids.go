package f5ltm

// F5 BIG-IP LTM MIB object bases (enterprise 3375, ltmVirtualServ and
// ltmPool groups). Index components are string-in-OID (object names) or
// dotted IPv4-in-OID (pool member addresses).
const (
	oidVirtualServDefaultPool  = ".1.3.6.1.4.1.3375.2.2.10.1.2.1.19"
	oidVsHttpClassProfileName  = ".1.3.6.1.4.1.3375.2.2.10.8.2.1.3"
	oidHttpClassPoolName       = ".1.3.6.1.4.1.3375.2.2.6.1.2.1.25"
	oidVirtualServProfileType  = ".1.3.6.1.4.1.3375.2.2.10.13.2.1.4"

	oidPoolMbrStatusAvailState  = ".1.3.6.1.4.1.3375.2.2.5.5.2.1.3"
	oidPoolMbrStatusEnabledState = ".1.3.6.1.4.1.3375.2.2.5.5.2.1.4"
	oidPoolMemberSessionStatus  = ".1.3.6.1.4.1.3375.2.2.5.6.2.1.3"
	oidPoolMemberNewSessionEnable = ".1.3.6.1.4.1.3375.2.2.5.3.2.1.10"
)

const (
	availStateOffline = 0
	availStateUp      = 1
	availStateDown    = 4

	enabledStateEnabled = 0
	sessionStatusEnabled = 0

	newSessionEnabled      = 2
	newSessionUserDisabled = 1
)
