package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

func whereClause(cols []string, startAt int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("%s = $%d", c, startAt+i)
	}
	return strings.Join(parts, " AND ")
}

// closeLive closes (sets deleted = now()) the single live row matching
// keyCols/keyVals in table, if one exists. It is a no-op if none is live.
func closeLive(ctx context.Context, tx pgx.Tx, table string, keyCols []string, keyVals []any) error {
	query := fmt.Sprintf(
		`UPDATE %s SET deleted = now() WHERE %s AND deleted = 'infinity'`,
		table, whereClause(keyCols, 1),
	)
	_, err := tx.Exec(ctx, query, keyVals...)
	return err
}

// liveKeys returns the distinct values of col currently live in table under
// the scope described by whereCols/whereVals, for diffing a fresh snapshot
// against what is already persisted.
func liveKeys(ctx context.Context, tx pgx.Tx, table string, col string, whereCols []string, whereVals []any) (map[string]bool, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s AND deleted = 'infinity'`,
		col, table, whereClause(whereCols, 1),
	)
	rows, err := tx.Query(ctx, query, whereVals...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

// closeAbsent closes every row in table, scoped by whereCols/whereVals, whose
// keyCol value is not present in keep, and returns the keys it closed.
// Absence from a fresh snapshot means the entity is dead: it gets closed and
// not reinserted. A nil keep closes everything live in scope -- used to tear
// down a whole subtree (extra/action rows, or everything under an entity
// that itself just got closed).
func closeAbsent(ctx context.Context, tx pgx.Tx, table, keyCol string, whereCols []string, whereVals []any, keep map[string]bool) ([]string, error) {
	existing, err := liveKeys(ctx, tx, table, keyCol, whereCols, whereVals)
	if err != nil {
		return nil, err
	}
	var closed []string
	for name := range existing {
		if keep[name] {
			continue
		}
		keyCols := append(append([]string{}, whereCols...), keyCol)
		keyVals := append(append([]any{}, whereVals...), name)
		if err := closeLive(ctx, tx, table, keyCols, keyVals); err != nil {
			return nil, err
		}
		closed = append(closed, name)
	}
	return closed, nil
}
