package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"qcss/internal/model"
	"qcss/pkg/database"
)

// Writer implements dispatcher.Writer: it reconciles one collected tree
// against persisted state inside a single transaction. Every write closes
// whatever was live at the touched scope, inserts the fresh rows, recurses
// into contained entities, and rewrites each entity's action set.
type Writer struct {
	db database.DB
}

// NewWriter returns a Writer backed by db.
func NewWriter(db database.DB) *Writer {
	return &Writer{db: db}
}

// Write persists tree scoped to (lb) when vs == "", to (lb, vs) when
// rs == "", or to (lb, vs, rs) otherwise. A nil tree is a no-op: the caller's
// poll (typically following a successful action) found nothing to persist.
func (w *Writer) Write(ctx context.Context, lb, vs, rs string, tree *model.LoadBalancer) error {
	if tree == nil {
		return nil
	}
	return database.WithTransaction(ctx, w.db, func(tx pgx.Tx) error {
		switch {
		case rs != "":
			vsNode, ok := tree.VirtualServers[vs]
			if !ok {
				return nil
			}
			return w.writeRSScope(ctx, tx, lb, vs, rs, vsNode)
		case vs != "":
			vsNode, ok := tree.VirtualServers[vs]
			if !ok {
				return nil
			}
			return w.writeVS(ctx, tx, lb, vs, vsNode)
		default:
			return w.writeDevice(ctx, tx, lb, tree)
		}
	})
}

// writeDevice closes and reinserts the load balancer row itself, rewrites
// its device-wide actions, then reconciles every virtual server: one not
// present in tree is closed without reinsertion, every other is written
// (and, through writeVS, recursed into).
func (w *Writer) writeDevice(ctx context.Context, tx pgx.Tx, lb string, tree *model.LoadBalancer) error {
	if err := closeLive(ctx, tx, tableLoadBalancer, []string{"name"}, []any{lb}); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (name, kind, description) VALUES ($1, $2, $3)`, tableLoadBalancer),
		lb, tree.Kind, tree.Description,
	); err != nil {
		return err
	}
	if err := w.writeActions(ctx, tx, lb, "", "", tree.Actions); err != nil {
		return err
	}

	keep := make(map[string]bool, len(tree.VirtualServers))
	for name := range tree.VirtualServers {
		keep[name] = true
	}
	closedVS, err := closeAbsent(ctx, tx, tableVirtualServer, "name", []string{"lb"}, []any{lb}, keep)
	if err != nil {
		return err
	}
	for _, vsName := range closedVS {
		if err := w.closeVSSubtree(ctx, tx, lb, vsName); err != nil {
			return err
		}
	}

	for name, vsNode := range tree.VirtualServers {
		if err := w.writeVS(ctx, tx, lb, name, vsNode); err != nil {
			return err
		}
	}
	return nil
}

// writeVS closes and reinserts one virtual server row, its extra attributes
// and actions, then reconciles its real/sorry server membership the same
// way writeDevice reconciles virtual servers.
func (w *Writer) writeVS(ctx context.Context, tx pgx.Tx, lb, vsName string, vs *model.VirtualServer) error {
	if err := closeLive(ctx, tx, tableVirtualServer, []string{"lb", "name"}, []any{lb, vsName}); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (lb, name, vip, protocol, mode) VALUES ($1, $2, $3, $4, $5)`, tableVirtualServer),
		lb, vsName, vs.VIP, vs.Protocol, vs.Mode,
	); err != nil {
		return err
	}
	if err := w.writeVSExtra(ctx, tx, lb, vsName, vs.Extra); err != nil {
		return err
	}
	if err := w.writeActions(ctx, tx, lb, vsName, "", vs.Actions); err != nil {
		return err
	}

	keep := make(map[string]bool, len(vs.RealServers)+len(vs.SorryServers))
	for name := range vs.RealServers {
		keep[name] = true
	}
	for name := range vs.SorryServers {
		keep[name] = true
	}
	closedRS, err := closeAbsent(ctx, tx, tableRealServer, "name", []string{"lb", "vs_name"}, []any{lb, vsName}, keep)
	if err != nil {
		return err
	}
	for _, rsName := range closedRS {
		if err := w.closeRSSubtree(ctx, tx, lb, vsName, rsName); err != nil {
			return err
		}
	}

	for name, r := range vs.RealServers {
		weight := r.Weight
		if err := w.writeRS(ctx, tx, lb, vsName, name, KindReal, r.RIP, r.RPort, r.Protocol, &weight, string(r.State), r.Extra, r.Actions); err != nil {
			return err
		}
	}
	for name, s := range vs.SorryServers {
		if err := w.writeRS(ctx, tx, lb, vsName, name, KindSorry, s.RIP, s.RPort, s.Protocol, nil, string(s.State), s.Extra, s.Actions); err != nil {
			return err
		}
	}
	return nil
}

// writeRSScope reconciles exactly one real/sorry server, identified by name
// within vs, leaving its siblings untouched. Absence from the (single-entry)
// re-poll is treated as that entity no longer existing and is closed without
// reinsertion, matching the device/VS-scoped reconciliation above.
func (w *Writer) writeRSScope(ctx context.Context, tx pgx.Tx, lb, vsName, rsName string, vs *model.VirtualServer) error {
	if r, ok := vs.RealServers[rsName]; ok {
		weight := r.Weight
		return w.writeRS(ctx, tx, lb, vsName, rsName, KindReal, r.RIP, r.RPort, r.Protocol, &weight, string(r.State), r.Extra, r.Actions)
	}
	if s, ok := vs.SorryServers[rsName]; ok {
		return w.writeRS(ctx, tx, lb, vsName, rsName, KindSorry, s.RIP, s.RPort, s.Protocol, nil, string(s.State), s.Extra, s.Actions)
	}
	if err := closeLive(ctx, tx, tableRealServer, []string{"lb", "vs_name", "name"}, []any{lb, vsName, rsName}); err != nil {
		return err
	}
	return w.closeRSSubtree(ctx, tx, lb, vsName, rsName)
}

func (w *Writer) writeRS(ctx context.Context, tx pgx.Tx, lb, vsName, rsName, kind, rip string, rport int, protocol string, weight *int, state string, extra, actions map[string]string) error {
	if err := closeLive(ctx, tx, tableRealServer, []string{"lb", "vs_name", "name"}, []any{lb, vsName, rsName}); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (lb, vs_name, name, kind, rip, rport, protocol, weight, state) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, tableRealServer),
		lb, vsName, rsName, kind, rip, rport, protocol, weight, state,
	); err != nil {
		return err
	}
	if err := w.writeRSExtra(ctx, tx, lb, vsName, rsName, extra); err != nil {
		return err
	}
	return w.writeActions(ctx, tx, lb, vsName, rsName, actions)
}

// closeVSSubtree tears down everything under a virtual server that just got
// closed because it was absent from a fresh device snapshot: its own extra
// attributes and actions, and every real/sorry server (and their extra
// attributes and actions) still live under it.
func (w *Writer) closeVSSubtree(ctx context.Context, tx pgx.Tx, lb, vsName string) error {
	if _, err := closeAbsent(ctx, tx, tableVSExtra, "key", []string{"lb", "vs_name"}, []any{lb, vsName}, nil); err != nil {
		return err
	}
	if _, err := closeAbsent(ctx, tx, tableAction, "key", []string{"lb", "vs_name"}, []any{lb, vsName}, nil); err != nil {
		return err
	}
	closedRS, err := closeAbsent(ctx, tx, tableRealServer, "name", []string{"lb", "vs_name"}, []any{lb, vsName}, nil)
	if err != nil {
		return err
	}
	for _, rsName := range closedRS {
		if err := w.closeRSSubtree(ctx, tx, lb, vsName, rsName); err != nil {
			return err
		}
	}
	return nil
}

// closeRSSubtree tears down the extra attributes and actions of a real/sorry
// server that just got closed, whether directly (absent from its VS's fresh
// snapshot) or transitively (its owning VS disappeared).
func (w *Writer) closeRSSubtree(ctx context.Context, tx pgx.Tx, lb, vsName, rsName string) error {
	if _, err := closeAbsent(ctx, tx, tableRSExtra, "key", []string{"lb", "vs_name", "rs_name"}, []any{lb, vsName, rsName}, nil); err != nil {
		return err
	}
	_, err := closeAbsent(ctx, tx, tableAction, "key", []string{"lb", "vs_name", "rs_name"}, []any{lb, vsName, rsName}, nil)
	return err
}

func (w *Writer) writeVSExtra(ctx context.Context, tx pgx.Tx, lb, vsName string, extra map[string]string) error {
	return writeKeyValue(ctx, tx, tableVSExtra, []string{"lb", "vs_name"}, []any{lb, vsName}, extra)
}

func (w *Writer) writeRSExtra(ctx context.Context, tx pgx.Tx, lb, vsName, rsName string, extra map[string]string) error {
	return writeKeyValue(ctx, tx, tableRSExtra, []string{"lb", "vs_name", "rs_name"}, []any{lb, vsName, rsName}, extra)
}

// writeActions rewrites the action set visible at the scope (lb, vs, rs):
// the device-wide scope uses vs == "" and rs == "", a VS-wide scope uses
// rs == "" alone. Every key/value table in this package shares this same
// delete-then-reinsert shape, so writeKeyValue backs this too.
func (w *Writer) writeActions(ctx context.Context, tx pgx.Tx, lb, vs, rs string, actions map[string]string) error {
	return writeKeyValue(ctx, tx, tableAction, []string{"lb", "vs_name", "rs_name"}, []any{lb, vs, rs}, actions)
}

// writeKeyValue reconciles a key/value child table (virtualserver_extra,
// realserver_extra, action) scoped by scopeCols/scopeVals: keys absent from
// fresh are closed, every key in fresh is closed-then-reinserted so its
// value (and the row's created/deleted bracket) always reflects this write.
func writeKeyValue(ctx context.Context, tx pgx.Tx, table string, scopeCols []string, scopeVals []any, fresh map[string]string) error {
	keep := make(map[string]bool, len(fresh))
	for k := range fresh {
		keep[k] = true
	}
	if _, err := closeAbsent(ctx, tx, table, "key", scopeCols, scopeVals, keep); err != nil {
		return err
	}

	for k, v := range fresh {
		keyCols := append(append([]string{}, scopeCols...), "key")
		keyVals := append(append([]any{}, scopeVals...), k)
		if err := closeLive(ctx, tx, table, keyCols, keyVals); err != nil {
			return err
		}

		insertCols := append(append([]string{}, scopeCols...), "key", "value")
		placeholders := make([]string, len(insertCols))
		for i := range placeholders {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, table, strings.Join(insertCols, ", "), strings.Join(placeholders, ", "))
		if _, err := tx.Exec(ctx, query, append(append([]any{}, keyVals...), v)...); err != nil {
			return err
		}
	}
	return nil
}
