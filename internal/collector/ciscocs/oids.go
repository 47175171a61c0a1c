package ciscocs

// Base enterprise OIDs for the two vendor variants of the same apCnt*
// content-switching MIB: Arrowpoint's native tree and Cisco's CS/CSS
// re-numbering of the same objects after the Arrowpoint acquisition.
const (
	BaseArrowpoint = ".1.3.6.1.4.1.2467"
	BaseCiscoCS    = ".1.3.6.1.4.1.9.9.368"

	suffixCntState          = ".1.1.3"  // apCntState[owner.content]
	suffixCntServiceState   = ".1.2.3"  // apCntServiceState[owner.content.service]
	suffixPrimarySorry      = ".1.1.4"  // apCntPrimarySorryServer[owner.content]
	suffixSecondSorry       = ".1.1.5"  // apCntSecondSorryServer[owner.content]
)

const (
	snmpStateUp   = 1
	snmpStateDown = 2
)
