package storage

import (
	"strconv"
	"strings"
)

// dialect captures the SQL differences between the supported drivers
type dialect struct {
	name string
	// containsOp is a case-insensitive LIKE
	containsOp string
	numbered   bool
}

var (
	postgresDialect = dialect{name: DriverPostgres, containsOp: "ILIKE", numbered: true}
	// sqlite LIKE is already case-insensitive for ASCII
	sqliteDialect = dialect{name: DriverSQLite, containsOp: "LIKE"}
)

// sqliteDSN enables foreign keys and a sortable time format on every connection
func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// query accumulates arguments and renders the matching placeholders
type query struct {
	d    dialect
	args []any
}

// arg binds v and returns its placeholder
func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	if q.d.numbered {
		return "$" + strconv.Itoa(len(q.args))
	}
	return "?"
}

// list binds every value and returns a comma separated placeholder list
func (q *query) list(values []string) string {
	ph := make([]string, len(values))
	for i, v := range values {
		ph[i] = q.arg(v)
	}
	return strings.Join(ph, ", ")
}

func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
