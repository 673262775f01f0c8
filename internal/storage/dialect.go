package storage

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/tableroute/internal/schema"
)

// dialect captures the SQL differences between backends.
type dialect struct {
	name string

	// identQuote wraps identifiers; doubling it inside escapes.
	identQuote string

	// numbered placeholders ($1, $2) instead of ?.
	numbered bool

	// returning inserts read the generated id via RETURNING instead of
	// LastInsertId.
	returning bool

	// sequences creates one sequence per table for the identity column.
	sequences bool

	idType      string
	emptyInsert string
	types       map[schema.ColumnType]string
}

var (
	postgresDialect = dialect{
		name:        "postgres",
		identQuote:  `"`,
		numbered:    true,
		returning:   true,
		idType:      "BIGSERIAL PRIMARY KEY",
		emptyInsert: " DEFAULT VALUES",
		types: map[schema.ColumnType]string{
			schema.TypeText:    "TEXT",
			schema.TypeInteger: "BIGINT",
			schema.TypeReal:    "DOUBLE PRECISION",
			schema.TypeBlob:    "BYTEA",
			schema.TypeBoolean: "BOOLEAN",
		},
	}

	sqliteDialect = dialect{
		name:        "sqlite3",
		identQuote:  `"`,
		idType:      "INTEGER PRIMARY KEY AUTOINCREMENT",
		emptyInsert: " DEFAULT VALUES",
		types: map[schema.ColumnType]string{
			schema.TypeText:    "TEXT",
			schema.TypeInteger: "INTEGER",
			schema.TypeReal:    "REAL",
			schema.TypeBlob:    "BLOB",
			schema.TypeBoolean: "BOOLEAN",
		},
	}

	mysqlDialect = dialect{
		name:        "mysql",
		identQuote:  "`",
		idType:      "BIGINT AUTO_INCREMENT PRIMARY KEY",
		emptyInsert: " () VALUES ()",
		types: map[schema.ColumnType]string{
			// VARCHAR so that UNIQUE works without a key prefix length.
			schema.TypeText:    "VARCHAR(255)",
			schema.TypeInteger: "BIGINT",
			schema.TypeReal:    "DOUBLE",
			schema.TypeBlob:    "LONGBLOB",
			schema.TypeBoolean: "BOOLEAN",
		},
	}

	duckdbDialect = dialect{
		name:        "duckdb",
		identQuote:  `"`,
		returning:   true,
		sequences:   true,
		idType:      "BIGINT PRIMARY KEY",
		emptyInsert: " DEFAULT VALUES",
		types: map[schema.ColumnType]string{
			schema.TypeText:    "VARCHAR",
			schema.TypeInteger: "BIGINT",
			schema.TypeReal:    "DOUBLE",
			schema.TypeBlob:    "BLOB",
			schema.TypeBoolean: "BOOLEAN",
		},
	}
)

// quote quotes a SQL identifier to prevent injection.
func (d dialect) quote(name string) string {
	q := d.identQuote
	return q + strings.ReplaceAll(name, q, q+q) + q
}

func (d dialect) quoteColumns(cols []string) []string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = d.quote(col)
	}
	return quoted
}

func (d dialect) sequenceName(table string) string {
	return table + "_" + schema.IDColumn + "_seq"
}

// rebind rewrites ? placeholders into the dialect's form. Question marks
// inside quoted strings or identifiers are left alone.
func (d dialect) rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	var inQuote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
			b.WriteByte(c)
		case c == '\'' || c == '"':
			inQuote = c
			b.WriteByte(c)
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
