package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/saxenasajal03/ConnectX/pkg/config"
)

// Dialect papers over the SQL differences between the supported drivers.
// Queries are written with ? placeholders and passed through Rebind.
type Dialect string

const (
	SQLite   Dialect = config.DriverSQLite
	Postgres Dialect = config.DriverPostgres
	MySQL    Dialect = config.DriverMySQL
)

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case config.DriverSQLite, "":
		return SQLite, nil
	case config.DriverPostgres:
		return Postgres, nil
	case config.DriverMySQL:
		return MySQL, nil
	}
	return "", fmt.Errorf("unsupported driver %q", driver)
}

// Rebind rewrites ? placeholders into $1..$n for Postgres.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IgnoreConflict returns the clause that turns an INSERT into a no-op when a
// unique key on the given columns already holds the row. MySQL has no
// conflict target, so its no-op assignment uses the first column.
func (d Dialect) IgnoreConflict(columns ...string) string {
	if d == MySQL {
		return fmt.Sprintf(" ON DUPLICATE KEY UPDATE %s = %s", columns[0], columns[0])
	}
	return fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(columns, ", "))
}

// Upsert returns the clause that overwrites the listed columns when the
// conflict key already exists.
func (d Dialect) Upsert(conflict string, columns ...string) string {
	sets := make([]string, len(columns))
	for i, c := range columns {
		if d == MySQL {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
		} else {
			sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
		}
	}
	if d == MySQL {
		return " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", conflict, strings.Join(sets, ", "))
}

// ForUpdate returns the row-locking suffix for SELECTs inside a transaction.
// SQLite locks the whole database when an immediate transaction begins.
func (d Dialect) ForUpdate() string {
	if d == SQLite {
		return ""
	}
	return " FOR UPDATE"
}

// GooseDialect is the dialect name understood by goose.
func (d Dialect) GooseDialect() string {
	return string(d)
}
