package alteon

// Numeric bases for the slbCurCfg* / slbNewCfg* / slbOper* / ag* object
// groups under the Alteon enterprise tree. Index components (v.s, g, r,
// v.s.r) are appended by the caller.
const (
	sysObjectIDPrefix = ".1.3.6.1.4.1.1872.1"

	oidVirtServiceRealGroup = ".1.3.6.1.4.1.1872.2.5.4.2.2.1.2.1.3"
	oidVirtServiceUDPBal    = ".1.3.6.1.4.1.1872.2.5.4.2.2.1.2.1.4"

	oidGroupRealServers  = ".1.3.6.1.4.1.1872.2.5.4.3.1.1.1.2"
	oidGroupBackupServer = ".1.3.6.1.4.1.1872.2.5.4.3.1.1.1.5"
	oidGroupBackupGroup  = ".1.3.6.1.4.1.1872.2.5.4.3.1.1.1.6"

	oidRealServerIP     = ".1.3.6.1.4.1.1872.2.5.4.1.1.2.1.3"
	oidRealServerBackup = ".1.3.6.1.4.1.1872.2.5.4.1.1.2.1.10"

	oidVirtServicesInfoState = ".1.3.6.1.4.1.1872.2.5.4.2.4.1.1.6"
	oidRealServerInfoState   = ".1.3.6.1.4.1.1872.2.5.4.1.3.1.1.2"

	oidNewGroupRealServerState  = ".1.3.6.1.4.1.1872.2.5.4.3.2.1.1.3"
	oidOperGroupRealServerState = ".1.3.6.1.4.1.1872.2.5.4.3.3.1.1.3"

	oidApplyPending = ".1.3.6.1.4.1.1872.2.5.1.1.2.0"
	oidApplyConfig  = ".1.3.6.1.4.1.1872.2.5.1.1.3.0"
)

// snmpStateUp/snmpStateDown are the slbVirtServicesInfoState / slbRealServerInfoState encodings.
const (
	snmpStateUp   = 2
	snmpStateDown = 3
)
