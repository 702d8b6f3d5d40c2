// Package migrations embeds the schema of the MySQL and ClickHouse stores.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed mysql/*.sql clickhouse/*.sql
var files embed.FS

const (
	MySQL      = "mysql"
	ClickHouse = "clickhouse"
)

// Statements returns every statement of dir's files, in file name order.
func Statements(dir string) ([]string, error) {
	names, err := fs.Glob(files, dir+"/*.sql")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no migrations for %q", dir)
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		b, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Split(string(b))...)
	}
	return out, nil
}

// Split cuts a script into statements on ';' and drops '--' comment lines.
// The schema files contain no ';' inside literals.
func Split(script string) []string {
	var lines []string
	for _, l := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(l), "--") {
			continue
		}
		lines = append(lines, l)
	}

	var out []string
	for _, stmt := range strings.Split(strings.Join(lines, "\n"), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Apply runs dir's statements one by one; every statement is idempotent.
func Apply(ctx context.Context, db *sqlx.DB, dir string) (int, error) {
	stmts, err := Statements(dir)
	if err != nil {
		return 0, err
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return i, fmt.Errorf("%s migration statement %d: %w", dir, i+1, err)
		}
	}
	return len(stmts), nil
}
