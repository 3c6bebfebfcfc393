package repo

import (
	"fmt"
	"strconv"
	"strings"
)

// dialect captures the few SQL differences between the supported engines.
type dialect struct {
	name       string
	driverName string
	forUpdate  string // suffix for row-locking reads
	returning  bool   // ids come back via RETURNING instead of LastInsertId
	numbered   bool   // $1, $2 ... placeholders
}

var dialects = map[string]dialect{
	"mysql": {
		name:       "mysql",
		driverName: "mysql",
		forUpdate:  " FOR UPDATE",
	},
	"postgres": {
		name:       "postgres",
		driverName: "pgx",
		forUpdate:  " FOR UPDATE",
		returning:  true,
		numbered:   true,
	},
	// SQLite has no row locks; writers are serialized by the single
	// connection the store keeps open.
	"sqlite": {
		name:       "sqlite",
		driverName: "sqlite",
	},
}

func lookupDialect(name string) (dialect, error) {
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return dialect{}, fmt.Errorf("repo: unsupported database driver %q", name)
	}
	return d, nil
}

// rebind rewrites ? placeholders for engines that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
