// Package store is the bitemporal persistence layer (C5): it reconciles one
// collected tree against Postgres inside a single transaction, and answers
// both live and as-of reads for the HTTP API and federation tier.
//
// Every mutable table (loadbalancer, virtualserver, virtualserver_extra,
// realserver, realserver_extra, action) carries an implicit created and an
// explicit deleted column seeded with the sentinel 'infinity'. Closing a row
// sets deleted to now() in place; the table is never pruned, so a *_past
// view (WHERE deleted <> 'infinity') and a *_full view (the bare table) are
// enough to expose history without a separate archive table or trigger.
// Application code only ever writes the live rows of a table directly;
// history reads always go through the matching *_full view.
package store

const (
	tableLoadBalancer  = "loadbalancer"
	tableVirtualServer = "virtualserver"
	tableVSExtra       = "virtualserver_extra"
	tableRealServer    = "realserver"
	tableRSExtra       = "realserver_extra"
	tableAction        = "action"
)

const (
	viewLoadBalancer  = "loadbalancer_full"
	viewVirtualServer = "virtualserver_full"
	viewVSExtra       = "virtualserver_extra_full"
	viewRealServer    = "realserver_full"
	viewRSExtra       = "realserver_extra_full"
	viewAction        = "action_full"
)

// KindReal and KindSorry discriminate the RealServer/SorryServer tagged
// union in realserver.kind; the two share one table since they share every
// column but weight.
const (
	KindReal  = "real"
	KindSorry = "sorry"
)
