package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5"

	"qcss/internal/model"
	"qcss/pkg/apperror"
	"qcss/pkg/database"
	"qcss/pkg/logger"
)

// Reader answers live and as-of reads against the *_full views: asOf == nil
// means "as it is live right now" (deleted = 'infinity'); a non-nil asOf
// means "as it stood at that instant" (created <= asOf < deleted).
type Reader struct {
	db database.DB
}

// NewReader returns a Reader backed by db.
func NewReader(db database.DB) *Reader {
	return &Reader{db: db}
}

func timeCondition(asOf *time.Time, argIdx int) (string, []any) {
	if asOf == nil {
		return "deleted = 'infinity'", nil
	}
	return fmt.Sprintf("created <= $%d AND $%d < deleted", argIdx, argIdx), []any{*asOf}
}

// GetLoadBalancer assembles the full tree for name as of asOf, including
// every live virtual/real/sorry server and their extra attributes and
// actions. It returns apperror.CodeNotFound when no row matches.
//
// There is deliberately no loadbalancer_extra table (the persisted schema
// names only loadbalancer, virtualserver[_extra], realserver[_extra] and
// action), so a load balancer's own Extra map is never round-tripped
// through storage; it always reads back empty.
func (r *Reader) GetLoadBalancer(ctx context.Context, name string, asOf *time.Time) (*model.LoadBalancer, error) {
	cond, extraArgs := timeCondition(asOf, 2)
	query := fmt.Sprintf(`SELECT name, kind, description FROM %s WHERE name = $1 AND %s`, viewLoadBalancer, cond)

	lb := model.NewLoadBalancer(name, "")
	err := r.db.QueryRow(ctx, query, append([]any{name}, extraArgs...)...).Scan(&lb.Name, &lb.Kind, &lb.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewWithField(apperror.CodeNotFound, "load balancer not found", name)
		}
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to read load balancer")
	}

	lb.Actions, err = r.readActions(ctx, name, "", "", asOf)
	if err != nil {
		return nil, err
	}

	vsNames, err := r.readScopedKeys(ctx, viewVirtualServer, "name", []string{"lb"}, []any{name}, asOf)
	if err != nil {
		return nil, err
	}
	for _, vsName := range vsNames {
		vs, err := r.GetVirtualServer(ctx, name, vsName, asOf)
		if err != nil {
			return nil, err
		}
		lb.VirtualServers[vsName] = vs
	}
	return lb, nil
}

// GetVirtualServer assembles one virtual server (and its real/sorry server
// membership) as of asOf, without its owning load balancer's fields.
func (r *Reader) GetVirtualServer(ctx context.Context, lb, vsName string, asOf *time.Time) (*model.VirtualServer, error) {
	cond, extraArgs := timeCondition(asOf, 3)
	query := fmt.Sprintf(`SELECT vip, protocol, mode FROM %s WHERE lb = $1 AND name = $2 AND %s`, viewVirtualServer, cond)

	vs := model.NewVirtualServer(vsName)
	args := append([]any{lb, vsName}, extraArgs...)
	if err := r.db.QueryRow(ctx, query, args...).Scan(&vs.VIP, &vs.Protocol, &vs.Mode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewWithField(apperror.CodeNotFound, "virtual server not found", vsName)
		}
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to read virtual server")
	}

	var err error
	vs.Extra, err = r.readKeyValue(ctx, viewVSExtra, []string{"lb", "vs_name"}, []any{lb, vsName}, asOf)
	if err != nil {
		return nil, err
	}
	vs.Actions, err = r.readActions(ctx, lb, vsName, "", asOf)
	if err != nil {
		return nil, err
	}

	rows, err := r.readRealServers(ctx, lb, vsName, asOf)
	if err != nil {
		return nil, err
	}
	for name, rs := range rows {
		if rs.kind == KindSorry {
			vs.SorryServers[name] = &model.SorryServer{
				Name: name, RIP: rs.rip, RPort: rs.rport, Protocol: rs.protocol,
				State: model.State(rs.state), Extra: rs.extra, Actions: rs.actions,
			}
			continue
		}
		vs.RealServers[name] = &model.RealServer{
			Name: name, RIP: rs.rip, RPort: rs.rport, Protocol: rs.protocol, Weight: rs.weight,
			State: model.State(rs.state), Extra: rs.extra, Actions: rs.actions,
		}
	}
	return vs, nil
}

// GetRealServer fetches one real server (kind == "real") under (lb, vsName),
// returning apperror.CodeNotFound if it doesn't exist live (or, under asOf,
// didn't exist at that instant) as that kind.
func (r *Reader) GetRealServer(ctx context.Context, lb, vsName, rsName string, asOf *time.Time) (*model.RealServer, error) {
	row, err := r.getMember(ctx, lb, vsName, rsName, KindReal, asOf)
	if err != nil {
		return nil, err
	}
	return &model.RealServer{
		Name: rsName, RIP: row.rip, RPort: row.rport, Protocol: row.protocol, Weight: row.weight,
		State: model.State(row.state), Extra: row.extra, Actions: row.actions,
	}, nil
}

// GetSorryServer is GetRealServer's counterpart for kind == "sorry".
func (r *Reader) GetSorryServer(ctx context.Context, lb, vsName, rsName string, asOf *time.Time) (*model.SorryServer, error) {
	row, err := r.getMember(ctx, lb, vsName, rsName, KindSorry, asOf)
	if err != nil {
		return nil, err
	}
	return &model.SorryServer{
		Name: rsName, RIP: row.rip, RPort: row.rport, Protocol: row.protocol,
		State: model.State(row.state), Extra: row.extra, Actions: row.actions,
	}, nil
}

func (r *Reader) getMember(ctx context.Context, lb, vsName, rsName, kind string, asOf *time.Time) (*realServerRow, error) {
	cond, extraArgs := timeCondition(asOf, 5)
	query := fmt.Sprintf(
		`SELECT rip, rport, protocol, weight, state FROM %s WHERE lb = $1 AND vs_name = $2 AND name = $3 AND kind = $4 AND %s`,
		viewRealServer, cond,
	)
	args := append([]any{lb, vsName, rsName, kind}, extraArgs...)

	var row realServerRow
	row.kind = kind
	var weight *int
	err := r.db.QueryRow(ctx, query, args...).Scan(&row.rip, &row.rport, &row.protocol, &weight, &row.state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewWithField(apperror.CodeNotFound, "real server not found", rsName)
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to read real server")
	}
	if weight != nil {
		row.weight = *weight
	}

	row.extra, err = r.readKeyValue(ctx, viewRSExtra, []string{"lb", "vs_name", "rs_name"}, []any{lb, vsName, rsName}, asOf)
	if err != nil {
		return nil, err
	}
	row.actions, err = r.readActions(ctx, lb, vsName, rsName, asOf)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// MemberSummary is the {name, state} pair the realserver/sorryserver list
// endpoints return.
type MemberSummary struct {
	Name  string
	State model.State
}

// ListMembers lists every real (kind == "real") or sorry (kind == "sorry")
// server under (lb, vsName) as of asOf, with just the fields the list
// endpoints expose.
func (r *Reader) ListMembers(ctx context.Context, lb, vsName, kind string, asOf *time.Time) ([]MemberSummary, error) {
	cond, extraArgs := timeCondition(asOf, 4)
	query := fmt.Sprintf(
		`SELECT name, state FROM %s WHERE lb = $1 AND vs_name = $2 AND kind = $3 AND %s ORDER BY name`,
		viewRealServer, cond,
	)
	rows, err := r.db.Query(ctx, query, append([]any{lb, vsName, kind}, extraArgs...)...)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to list members")
	}
	defer rows.Close()

	var out []MemberSummary
	for rows.Next() {
		var m MemberSummary
		var state string
		if err := rows.Scan(&m.Name, &state); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to scan member")
		}
		m.State = model.State(state)
		out = append(out, m)
	}
	return out, rows.Err()
}

// VSSummary is the {name, vip, aggregatedState} triple the virtualserver
// list endpoint returns.
type VSSummary struct {
	Name            string
	VIP             string
	AggregatedState model.AggregatedState
}

// ListVirtualServers lists every virtual server under lb as of asOf, with
// its aggregated state computed from its live real server membership
// (sorry servers don't participate in aggregation: they're a fallback tier,
// not part of the serving set being measured).
func (r *Reader) ListVirtualServers(ctx context.Context, lb string, asOf *time.Time) ([]VSSummary, error) {
	names, err := r.readScopedKeys(ctx, viewVirtualServer, "name", []string{"lb"}, []any{lb}, asOf)
	if err != nil {
		return nil, err
	}

	out := make([]VSSummary, 0, len(names))
	for _, name := range names {
		cond, extraArgs := timeCondition(asOf, 3)
		query := fmt.Sprintf(`SELECT vip FROM %s WHERE lb = $1 AND name = $2 AND %s`, viewVirtualServer, cond)
		var vip string
		if err := r.db.QueryRow(ctx, query, append([]any{lb, name}, extraArgs...)...).Scan(&vip); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to read virtual server vip")
		}

		members, err := r.ListMembers(ctx, lb, name, KindReal, asOf)
		if err != nil {
			return nil, err
		}
		states := make([]model.State, len(members))
		for i, m := range members {
			states[i] = m.State
		}

		out = append(out, VSSummary{Name: name, VIP: vip, AggregatedState: model.AggregateState(states)})
	}
	return out, nil
}

type realServerRow struct {
	kind, rip, protocol, state string
	rport, weight              int
	extra, actions             map[string]string
}

func (r *Reader) readRealServers(ctx context.Context, lb, vsName string, asOf *time.Time) (map[string]realServerRow, error) {
	cond, extraArgs := timeCondition(asOf, 3)
	query := fmt.Sprintf(
		`SELECT name, kind, rip, rport, protocol, weight, state FROM %s WHERE lb = $1 AND vs_name = $2 AND %s`,
		viewRealServer, cond,
	)
	rows, err := r.db.Query(ctx, query, append([]any{lb, vsName}, extraArgs...)...)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to read real servers")
	}
	defer rows.Close()

	out := make(map[string]realServerRow)
	for rows.Next() {
		var name string
		var row realServerRow
		var weight *int
		if err := rows.Scan(&name, &row.kind, &row.rip, &row.rport, &row.protocol, &weight, &row.state); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to scan real server")
		}
		if weight != nil {
			row.weight = *weight
		}
		out[name] = row
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to read real servers")
	}

	for name, row := range out {
		extra, err := r.readKeyValue(ctx, viewRSExtra, []string{"lb", "vs_name", "rs_name"}, []any{lb, vsName, name}, asOf)
		if err != nil {
			return nil, err
		}
		actions, err := r.readActions(ctx, lb, vsName, name, asOf)
		if err != nil {
			return nil, err
		}
		row.extra, row.actions = extra, actions
		out[name] = row
	}
	return out, nil
}

func (r *Reader) readActions(ctx context.Context, lb, vs, rs string, asOf *time.Time) (map[string]string, error) {
	return r.readKeyValue(ctx, viewAction, []string{"lb", "vs_name", "rs_name"}, []any{lb, vs, rs}, asOf)
}

func (r *Reader) readKeyValue(ctx context.Context, view string, whereCols []string, whereVals []any, asOf *time.Time) (map[string]string, error) {
	cond, extraArgs := timeCondition(asOf, len(whereCols)+1)
	query := fmt.Sprintf(`SELECT key, value FROM %s WHERE %s AND %s`, view, whereClause(whereCols, 1), cond)
	rows, err := r.db.Query(ctx, query, append(append([]any{}, whereVals...), extraArgs...)...)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to read "+view)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to scan "+view)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to read "+view)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (r *Reader) readScopedKeys(ctx context.Context, view, col string, whereCols []string, whereVals []any, asOf *time.Time) ([]string, error) {
	cond, extraArgs := timeCondition(asOf, len(whereCols)+1)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s AND %s`, col, view, whereClause(whereCols, 1), cond)
	rows, err := r.db.Query(ctx, query, append(append([]any{}, whereVals...), extraArgs...)...)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to list "+view)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to scan "+view)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Age returns how long ago the live row identified by (lb, vs, rs) was last
// written -- a full device write for vs == "" && rs == "", a VS write for
// rs == "", an RS write otherwise -- and false if no live row exists yet.
// The refresh-on-read decorator in internal/httpapi uses this to decide
// whether a GET needs to trigger a collector refresh before it reads.
func (r *Reader) Age(ctx context.Context, lb, vs, rs string) (time.Duration, bool, error) {
	var table string
	var cols []string
	var vals []any
	switch {
	case rs != "":
		table, cols, vals = tableRealServer, []string{"lb", "vs_name", "name"}, []any{lb, vs, rs}
	case vs != "":
		table, cols, vals = tableVirtualServer, []string{"lb", "name"}, []any{lb, vs}
	default:
		table, cols, vals = tableLoadBalancer, []string{"name"}, []any{lb}
	}

	query := fmt.Sprintf(`SELECT created FROM %s WHERE %s AND deleted = 'infinity'`, table, whereClause(cols, 1))
	var created time.Time
	err := r.db.QueryRow(ctx, query, vals...).Scan(&created)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperror.Wrap(err, apperror.CodeInternal, "failed to read row age")
	}
	return time.Since(created), true, nil
}

// ListLoadBalancers returns every load balancer name live as of asOf.
func (r *Reader) ListLoadBalancers(ctx context.Context, asOf *time.Time) ([]string, error) {
	cond, extraArgs := timeCondition(asOf, 1)
	query := fmt.Sprintf(`SELECT name FROM %s WHERE %s ORDER BY name`, viewLoadBalancer, cond)
	rows, err := r.db.Query(ctx, query, extraArgs...)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to list load balancers")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to scan load balancer name")
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Search runs six independent, parameterised fragments over the fleet --
// ILIKE on load balancer name/description/kind, ILIKE on VS and RS extra
// values, and an equality match on VIP/RIP when q parses as an IP -- and
// returns the deduplicated union as resource paths relative to the API
// root (e.g. "loadbalancer/lb1/" or
// "loadbalancer/lb1/virtualserver/vs1/realserver/rs1/").
// A fragment that errors is logged and skipped rather than failing the
// whole search: a bad index or a transient error on one table shouldn't
// hide matches the other five fragments already found.
func (r *Reader) Search(ctx context.Context, q string, asOf *time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}

	fragments := []func(context.Context, string, *time.Time) ([]string, error){
		r.searchLBField("name"),
		r.searchLBField("description"),
		r.searchLBField("kind"),
		r.searchVSExtra,
		r.searchRSExtra,
		r.searchByIP,
	}

	seen := make(map[string]bool)
	var out []string
	for _, frag := range fragments {
		paths, err := frag(ctx, q, asOf)
		if err != nil {
			logger.Log.Warn("search fragment failed", "error", err)
			continue
		}
		for _, p := range paths {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
			if len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (r *Reader) searchLBField(field string) func(context.Context, string, *time.Time) ([]string, error) {
	return func(ctx context.Context, q string, asOf *time.Time) ([]string, error) {
		cond, extraArgs := timeCondition(asOf, 2)
		query := fmt.Sprintf(`SELECT name FROM %s WHERE %s AND %s ILIKE $1`, viewLoadBalancer, cond, field)
		rows, err := r.db.Query(ctx, query, append([]any{"%" + q + "%"}, extraArgs...)...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, err
			}
			out = append(out, fmt.Sprintf("loadbalancer/%s/", name))
		}
		return out, rows.Err()
	}
}

func (r *Reader) searchVSExtra(ctx context.Context, q string, asOf *time.Time) ([]string, error) {
	cond, extraArgs := timeCondition(asOf, 2)
	query := fmt.Sprintf(`SELECT lb, vs_name FROM %s WHERE %s AND value ILIKE $1`, viewVSExtra, cond)
	rows, err := r.db.Query(ctx, query, append([]any{"%" + q + "%"}, extraArgs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var lb, vs string
		if err := rows.Scan(&lb, &vs); err != nil {
			return nil, err
		}
		out = append(out, fmt.Sprintf("loadbalancer/%s/virtualserver/%s/", lb, vs))
	}
	return out, rows.Err()
}

func (r *Reader) searchRSExtra(ctx context.Context, q string, asOf *time.Time) ([]string, error) {
	var reCond, rsCond string
	var extraArgs []any
	if asOf == nil {
		reCond = "re.deleted = 'infinity'"
		rsCond = "rs.deleted = 'infinity'"
	} else {
		reCond = "re.created <= $2 AND $2 < re.deleted"
		rsCond = "rs.created <= $2 AND $2 < rs.deleted"
		extraArgs = []any{*asOf}
	}
	query := fmt.Sprintf(`SELECT re.lb, re.vs_name, re.rs_name, rs.kind FROM %s re JOIN %s rs
	                       ON rs.lb = re.lb AND rs.vs_name = re.vs_name AND rs.name = re.rs_name
	                       WHERE %s AND re.value ILIKE $1 AND %s`,
		viewRSExtra, viewRealServer, reCond, rsCond)
	rows, err := r.db.Query(ctx, query, append([]any{"%" + q + "%"}, extraArgs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var lb, vs, rs, kind string
		if err := rows.Scan(&lb, &vs, &rs, &kind); err != nil {
			return nil, err
		}
		out = append(out, fmt.Sprintf("loadbalancer/%s/virtualserver/%s/%s/%s/", lb, vs, resourceSegment(kind), rs))
	}
	return out, rows.Err()
}

// searchByIP matches q against VIPs and RIPs when it parses as an IP
// literal; a free-text term that isn't an address contributes nothing.
func (r *Reader) searchByIP(ctx context.Context, q string, asOf *time.Time) ([]string, error) {
	if net.ParseIP(q) == nil {
		return nil, nil
	}

	var out []string

	vsCond, vsArgs := timeCondition(asOf, 2)
	vsRows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT lb, name FROM %s WHERE %s AND vip = $1`, viewVirtualServer, vsCond),
		append([]any{q}, vsArgs...)...,
	)
	if err != nil {
		return nil, err
	}
	defer vsRows.Close()
	for vsRows.Next() {
		var lb, vs string
		if err := vsRows.Scan(&lb, &vs); err != nil {
			return nil, err
		}
		out = append(out, fmt.Sprintf("loadbalancer/%s/virtualserver/%s/", lb, vs))
	}
	if err := vsRows.Err(); err != nil {
		return nil, err
	}

	rsCond, rsArgs := timeCondition(asOf, 2)
	rsRows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT lb, vs_name, name, kind FROM %s WHERE %s AND rip = $1`, viewRealServer, rsCond),
		append([]any{q}, rsArgs...)...,
	)
	if err != nil {
		return nil, err
	}
	defer rsRows.Close()
	for rsRows.Next() {
		var lb, vs, name, kind string
		if err := rsRows.Scan(&lb, &vs, &name, &kind); err != nil {
			return nil, err
		}
		out = append(out, fmt.Sprintf("loadbalancer/%s/virtualserver/%s/%s/%s/", lb, vs, resourceSegment(kind), name))
	}
	return out, rsRows.Err()
}

func resourceSegment(kind string) string {
	if kind == KindSorry {
		return "sorryserver"
	}
	return "realserver"
}
