// Package templates renders the server's HTML views.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// TableView is one table on the schema page.
type TableView struct {
	Name           string       `json:"name"`
	CollectionPath string       `json:"collectionPath"`
	CollectionCode int          `json:"collectionCode"`
	RowPattern     string       `json:"rowPattern"`
	RowCode        int          `json:"rowCode"`
	CollectionType string       `json:"collectionType"`
	RowType        string       `json:"rowType"`
	Columns        []ColumnView `json:"columns"`
}

// ColumnView is one column of a TableView.
type ColumnView struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NotNull bool   `json:"notNull,omitempty"`
	Unique  bool   `json:"unique,omitempty"`
}

// SchemaView is the data behind SchemaPage and the schema API.
type SchemaView struct {
	Provider     string      `json:"provider"`
	StoreName    string      `json:"storeName"`
	StoreVersion int         `json:"storeVersion"`
	Driver       string      `json:"driver"`
	Ready        bool        `json:"ready"`
	Tables       []TableView `json:"tables"`
}

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2937}
table{border-collapse:collapse;margin-bottom:1.5rem}
th,td{border:1px solid #d1d5db;padding:.35rem .6rem;text-align:left}
th{background:#f3f4f6}
code{background:#f3f4f6;padding:0 .25rem}
.status-ok{color:#047857}.status-down{color:#b91c1c}
.alert{border:1px solid #fca5a5;background:#fef2f2;padding:.75rem;border-radius:.25rem}`

// SchemaPage lists every table with its addresses, resource codes and
// columns.
func SchemaPage(v SchemaView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		b.WriteString("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">")
		fmt.Fprintf(&b, "<title>%s</title>", templ.EscapeString(v.Provider))
		fmt.Fprintf(&b, "<style>%s</style></head><body>", pageStyle)

		fmt.Fprintf(&b, "<h1>%s</h1>", templ.EscapeString(v.Provider))
		status, class := "not ready", "status-down"
		if v.Ready {
			status, class = "ready", "status-ok"
		}
		fmt.Fprintf(&b, "<p>Store <code>%s</code> version %d on %s: <span class=\"%s\">%s</span></p>",
			templ.EscapeString(v.StoreName), v.StoreVersion, templ.EscapeString(v.Driver), class, status)

		for _, t := range v.Tables {
			fmt.Fprintf(&b, "<h2>%s</h2>", templ.EscapeString(t.Name))
			b.WriteString("<table><tr><th>Address</th><th>Code</th><th>Type</th></tr>")
			fmt.Fprintf(&b, "<tr><td><a href=\"/api/resources/%s\"><code>%s</code></a></td><td>%d</td><td>%s</td></tr>",
				templ.EscapeString(t.CollectionPath), templ.EscapeString(t.CollectionPath), t.CollectionCode, templ.EscapeString(t.CollectionType))
			fmt.Fprintf(&b, "<tr><td><code>%s</code></td><td>%d</td><td>%s</td></tr></table>",
				templ.EscapeString(t.RowPattern), t.RowCode, templ.EscapeString(t.RowType))

			b.WriteString("<table><tr><th>Column</th><th>Type</th><th>Constraints</th></tr>")
			for _, c := range t.Columns {
				var cons []string
				if c.NotNull {
					cons = append(cons, "not null")
				}
				if c.Unique {
					cons = append(cons, "unique")
				}
				fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>",
					templ.EscapeString(c.Name), templ.EscapeString(c.Type), strings.Join(cons, ", "))
			}
			b.WriteString("</table>")
		}

		b.WriteString("</body></html>")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// ErrorAlert renders a user-facing error fragment.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="alert" role="alert">`)
		fmt.Fprintf(&b, "<strong>%s</strong>", templ.EscapeString(message))
		if action != "" {
			fmt.Fprintf(&b, "<p>%s</p>", templ.EscapeString(action))
		}
		fmt.Fprintf(&b, "<small>Code: %s</small></div>", templ.EscapeString(code))
		_, err := io.WriteString(w, b.String())
		return err
	})
}
