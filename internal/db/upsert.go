package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// maxParams is the Postgres limit on bind parameters per statement.
const maxParams = 65535

// Upsert describes an INSERT ... ON CONFLICT DO UPDATE into Table.
type Upsert struct {
	Table   string   // optionally schema-qualified
	Columns []string // inserted columns, in row order
	Keys    []string // unique constraint columns
	Update  []string // columns replaced on conflict; nil means every non-key column
}

// UpsertRows writes rows with multi-row VALUES statements, split so no
// statement exceeds the bind parameter limit. All statements share one
// transaction. It returns the number of rows inserted or updated.
func UpsertRows(ctx context.Context, pool Pool, u Upsert, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(u.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns")
	}
	if len(u.Keys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys")
	}
	for i, r := range rows {
		if len(r) != len(u.Columns) {
			return 0, eris.Errorf("db: upsert: row %d has %d values, want %d", i, len(r), len(u.Columns))
		}
	}

	perStmt := maxParams / len(u.Columns)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	var total int64
	for start := 0; start < len(rows); start += perStmt {
		chunk := rows[start:min(start+perStmt, len(rows))]
		args := make([]any, 0, len(chunk)*len(u.Columns))
		for _, r := range chunk {
			args = append(args, r...)
		}
		tag, err := tx.Exec(ctx, u.statement(len(chunk)), args...)
		if err != nil {
			return 0, eris.Wrapf(err, "db: upsert into %s", u.Table)
		}
		total += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit")
	}
	committed = true
	return total, nil
}

// statement renders the upsert for n rows.
func (u Upsert) statement(n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", sanitizeTable(u.Table), quoteAndJoin(u.Columns))

	p := 1
	for i := range n {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range u.Columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", p)
			p++
		}
		b.WriteByte(')')
	}

	fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET ", quoteAndJoin(u.Keys))
	for i, col := range u.updateColumns() {
		if i > 0 {
			b.WriteString(", ")
		}
		c := pgx.Identifier{col}.Sanitize()
		fmt.Fprintf(&b, "%s = EXCLUDED.%s", c, c)
	}
	return b.String()
}

func (u Upsert) updateColumns() []string {
	if u.Update != nil {
		return u.Update
	}
	keys := make(map[string]bool, len(u.Keys))
	for _, k := range u.Keys {
		keys[k] = true
	}
	var cols []string
	for _, c := range u.Columns {
		if !keys[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

// sanitizeTable quotes a table name, keeping a schema qualifier.
func sanitizeTable(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
