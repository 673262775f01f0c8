package address

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Scheme is the scheme of full content addresses.
const Scheme = "content"

// URI is a parsed content address: content://<provider>/<path>.
type URI struct {
	Provider string
	Path     string // table or table/id, without leading slash
}

// Parse splits a content address into provider and path.
func Parse(raw string) (URI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URI{}, fmt.Errorf("parse address: %w", err)
	}
	if u.Scheme != Scheme {
		return URI{}, fmt.Errorf("parse address: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return URI{}, fmt.Errorf("parse address: missing provider in %q", raw)
	}
	return URI{Provider: u.Host, Path: strings.Trim(u.Path, "/")}, nil
}

// String renders the address in content://provider/path form.
func (u URI) String() string {
	return ContentURI(u.Provider, u.Path)
}

// ContentURI builds the full address for a table ("items") or a row
// ("items/3") path under provider.
func ContentURI(provider, path string) string {
	return Scheme + "://" + provider + "/" + strings.Trim(path, "/")
}

// Collection returns the path of a table's collection resource.
func Collection(table string) string {
	return table
}

// Item returns the path of a single row.
func Item(table string, id int64) string {
	return table + "/" + strconv.FormatInt(id, 10)
}

// Path returns the canonical bare path of a match.
func (m Match) Path() string {
	if m.Scope == ScopeRow {
		return Item(m.Table, m.ID)
	}
	return Collection(m.Table)
}

// MIMEType returns the content type of a resolved address:
// vnd.<provider>.dir/<table> for collections, vnd.<provider>.item/<table>
// for single rows.
func MIMEType(provider string, m Match) string {
	kind := "dir"
	if m.Scope == ScopeRow {
		kind = "item"
	}
	return "vnd." + provider + "." + kind + "/" + m.Table
}

// IsDescendant reports whether child lies strictly beneath parent in the
// path hierarchy ("items/3" is a descendant of "items").
func IsDescendant(parent, child string) bool {
	parent = strings.Trim(parent, "/")
	child = strings.Trim(child, "/")
	return parent != "" && strings.HasPrefix(child, parent+"/")
}
