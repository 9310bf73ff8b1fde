package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/viniciusrubens/featurepipe/pkg/dataset"
	"github.com/viniciusrubens/featurepipe/pkg/errs"
)

// dialect captures the SQL differences between the supported backends.
type dialect struct {
	name   string
	driver string

	// maxConns caps the pool; SQLite in-memory databases live per connection.
	maxConns int

	floatType string
	intType   string

	placeholder func(i int) string
	tableExists string
	orderBy     string
}

var (
	sqliteDialect = dialect{
		name:        "sqlite",
		driver:      "sqlite3",
		maxConns:    1,
		floatType:   "REAL",
		intType:     "INTEGER",
		placeholder: func(int) string { return "?" },
		// sqlite identifiers are case-insensitive, quoted or not.
		tableExists: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE`,
		orderBy:     "rowid",
	}

	postgresDialect = dialect{
		name:        "postgres",
		driver:      "pgx",
		floatType:   "DOUBLE PRECISION",
		intType:     "BIGINT",
		placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
		tableExists: `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`,
		orderBy:     "ctid",
	}
)

// parseURI maps a connection string to a dialect and driver DSN.
//
//	sqlite://                      in-memory
//	sqlite:///:memory:             in-memory
//	sqlite:///relative/path.db     file relative to the working directory
//	sqlite:////absolute/path.db    absolute file
//	postgres://... postgresql://...
func parseURI(uri string) (dialect, string, error) {
	const op = "store.Open"
	switch {
	case strings.HasPrefix(uri, "sqlite://"):
		rest := strings.TrimPrefix(uri, "sqlite://")
		if rest == "" {
			return sqliteDialect, ":memory:", nil
		}
		if !strings.HasPrefix(rest, "/") {
			return dialect{}, "", errs.New(errs.StoreUnavailable, op, "sqlite uri %q must not name a host", uri)
		}
		path := rest[1:]
		if path == "" || path == ":memory:" {
			return sqliteDialect, ":memory:", nil
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return dialect{}, "", errs.Wrap(errs.StoreUnavailable, op, err)
			}
		}
		return sqliteDialect, path, nil
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return postgresDialect, uri, nil
	default:
		return dialect{}, "", errs.New(errs.StoreUnavailable, op, "unsupported store uri %q", uri)
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validTable(name string) bool { return identRe.MatchString(name) }

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d dialect) columnType(k dataset.Kind) string {
	if k == dataset.Int {
		return d.intType
	}
	return d.floatType
}

// kindOf recovers a column kind from the driver's database type name.
func kindOf(dbType string) dataset.Kind {
	switch strings.ToUpper(dbType) {
	case "INTEGER", "INT", "INT2", "INT4", "INT8", "BIGINT", "SMALLINT":
		return dataset.Int
	default:
		return dataset.Float
	}
}

func (d dialect) createTable(table string, s dataset.Schema) string {
	defs := make([]string, len(s.Names))
	for i, name := range s.Names {
		defs[i] = quote(name) + " " + d.columnType(s.Kinds[i])
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quote(table), strings.Join(defs, ", "))
}

func (d dialect) insert(table string, s dataset.Schema) string {
	cols := make([]string, len(s.Names))
	marks := make([]string, len(s.Names))
	for i, name := range s.Names {
		cols[i] = quote(name)
		marks[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

func (d dialect) selectAll(table string) string {
	return fmt.Sprintf("SELECT * FROM %s ORDER BY %s", quote(table), d.orderBy)
}
