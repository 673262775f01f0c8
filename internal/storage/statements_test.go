package storage

import (
	"reflect"
	"testing"

	"github.com/JonMunkholm/tableroute/internal/schema"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name  string
		d     dialect
		query string
		want  string
	}{
		{"postgres numbers placeholders", postgresDialect, `a = ? AND b = ?`, `a = $1 AND b = $2`},
		{"postgres skips quoted text", postgresDialect, `a = '?' AND "b?" = ?`, `a = '?' AND "b?" = $1`},
		{"sqlite keeps question marks", sqliteDialect, `a = ? AND b = ?`, `a = ? AND b = ?`},
		{"no placeholders", postgresDialect, `a = 1`, `a = 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.rebind(tt.query); got != tt.want {
				t.Errorf("rebind(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		d    dialect
		in   string
		want string
	}{
		{postgresDialect, "items", `"items"`},
		{postgresDialect, `we"ird`, `"we""ird"`},
		{mysqlDialect, "items", "`items`"},
		{mysqlDialect, "we`ird", "`we``ird`"},
	}

	for _, tt := range tests {
		if got := tt.d.quote(tt.in); got != tt.want {
			t.Errorf("%s quote(%q) = %q, want %q", tt.d.name, tt.in, got, tt.want)
		}
	}
}

func TestCreateTableSQL(t *testing.T) {
	table := schema.NewTable("items",
		schema.Text("name").NotNullable(),
		schema.Integer("qty"),
	)

	got := createTableSQL(sqliteDialect, table)
	want := []string{
		`CREATE TABLE IF NOT EXISTS "items" ("_id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" TEXT NOT NULL, "qty" INTEGER)`,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("createTableSQL(sqlite) = %q, want %q", got, want)
	}

	got = createTableSQL(duckdbDialect, table)
	if len(got) != 2 {
		t.Fatalf("createTableSQL(duckdb) returned %d statements, want 2", len(got))
	}
	if got[0] != `CREATE SEQUENCE IF NOT EXISTS "items__id_seq"` {
		t.Errorf("sequence statement = %q", got[0])
	}
	wantTable := `CREATE TABLE IF NOT EXISTS "items" ("_id" BIGINT PRIMARY KEY DEFAULT nextval('items__id_seq'), "name" VARCHAR NOT NULL, "qty" BIGINT)`
	if got[1] != wantTable {
		t.Errorf("table statement = %q, want %q", got[1], wantTable)
	}
}

func TestSelectSQL(t *testing.T) {
	q := SelectQuery{
		Table:   "items",
		Columns: []string{"_id", "name"},
		Where:   `"qty" > ?`,
		Args:    []any{3},
		OrderBy: `"name" ASC`,
	}

	got, args := selectSQL(postgresDialect, q)
	want := `SELECT "_id", "name" FROM "items" WHERE "qty" > $1 ORDER BY "name" ASC`
	if got != want {
		t.Errorf("selectSQL = %q, want %q", got, want)
	}
	if !reflect.DeepEqual(args, []any{3}) {
		t.Errorf("args = %v, want [3]", args)
	}

	got, _ = selectSQL(sqliteDialect, SelectQuery{Table: "items"})
	if got != `SELECT * FROM "items"` {
		t.Errorf("selectSQL(all) = %q", got)
	}
}

func TestInsertSQL(t *testing.T) {
	row := Row{"qty": 2, "name": "bolt"}

	got, args := insertSQL(postgresDialect, "items", row)
	want := `INSERT INTO "items" ("name", "qty") VALUES ($1, $2) RETURNING "_id"`
	if got != want {
		t.Errorf("insertSQL(postgres) = %q, want %q", got, want)
	}
	if !reflect.DeepEqual(args, []any{"bolt", 2}) {
		t.Errorf("args = %v, want [bolt 2]", args)
	}

	tests := []struct {
		d    dialect
		want string
	}{
		{sqliteDialect, `INSERT INTO "items" DEFAULT VALUES`},
		{mysqlDialect, "INSERT INTO `items` () VALUES ()"},
		{postgresDialect, `INSERT INTO "items" DEFAULT VALUES RETURNING "_id"`},
	}
	for _, tt := range tests {
		got, args := insertSQL(tt.d, "items", Row{})
		if got != tt.want {
			t.Errorf("%s empty insert = %q, want %q", tt.d.name, got, tt.want)
		}
		if len(args) != 0 {
			t.Errorf("%s empty insert args = %v, want none", tt.d.name, args)
		}
	}
}

func TestUpdateSQL(t *testing.T) {
	got, args, err := updateSQL(postgresDialect, "items", Row{"qty": 5}, `_id = ?`, []any{int64(1)})
	if err != nil {
		t.Fatalf("updateSQL error = %v", err)
	}
	want := `UPDATE "items" SET "qty" = $1 WHERE _id = $2`
	if got != want {
		t.Errorf("updateSQL = %q, want %q", got, want)
	}
	if !reflect.DeepEqual(args, []any{5, int64(1)}) {
		t.Errorf("args = %v, want [5 1]", args)
	}

	if _, _, err := updateSQL(sqliteDialect, "items", Row{}, "", nil); err != ErrNoValues {
		t.Errorf("updateSQL(empty) error = %v, want ErrNoValues", err)
	}
}

func TestDeleteSQL(t *testing.T) {
	got, _ := deleteSQL(sqliteDialect, "items", "", nil)
	if got != `DELETE FROM "items"` {
		t.Errorf("deleteSQL(all) = %q", got)
	}

	got, _ = deleteSQL(postgresDialect, "items", `_id = ?`, []any{int64(2)})
	if got != `DELETE FROM "items" WHERE _id = $1` {
		t.Errorf("deleteSQL = %q", got)
	}
}
