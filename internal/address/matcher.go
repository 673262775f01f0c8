// Package address maps resource paths to the table and scope they address.
//
// Every registered table yields two resources: the collection, addressed by
// the bare table name, and a single row, addressed by the table name followed
// by a positive integer id. Each resource is identified by a ResourceCode.
package address

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/tableroute/internal/schema"
	"github.com/go-chi/chi/v5"
)

// ResourceCode identifies one (table, scope) pair.
type ResourceCode int

// NoMatch is never assigned to a resource.
const NoMatch ResourceCode = -1

// Scope distinguishes a whole table from a single row of it.
type Scope int

const (
	ScopeCollection Scope = iota
	ScopeRow
)

func (s Scope) String() string {
	if s == ScopeRow {
		return "row"
	}
	return "collection"
}

// Code derives the ResourceCode for the table at registration index i.
// Collections get odd codes and rows the following even code, so the mapping
// is injective for any number of tables.
func Code(i int, scope Scope) ResourceCode {
	return ResourceCode(2*i + 1 + int(scope))
}

// Route is what a ResourceCode stands for.
type Route struct {
	Code    ResourceCode
	Table   string
	Scope   Scope
	Pattern string
}

// Match is a resolved address.
type Match struct {
	Route
	// ID is the row id for ScopeRow matches and 0 otherwise.
	ID int64
}

// ErrUnmatchedAddress matches any *UnmatchedAddressError.
var ErrUnmatchedAddress = errors.New("unmatched address")

// UnmatchedAddressError is returned when a path resolves to no resource.
type UnmatchedAddressError struct {
	Path string
}

func (e *UnmatchedAddressError) Error() string {
	return fmt.Sprintf("unknown uri: %s", e.Path)
}

func (e *UnmatchedAddressError) Is(target error) bool { return target == ErrUnmatchedAddress }

const idParam = "id"

// Matcher resolves paths against the patterns derived from a table list.
// It is built once and is read-only afterwards, so concurrent Resolve calls
// need no locking.
type Matcher struct {
	provider  string
	mux       *chi.Mux
	routes    map[ResourceCode]Route
	byPattern map[string]ResourceCode
	order     []ResourceCode
}

// NewMatcher registers a collection and a row pattern for every table.
// provider is the authority accepted in full content addresses; it may be
// empty when only bare paths are resolved.
func NewMatcher(provider string, tables []schema.Table) *Matcher {
	m := &Matcher{
		provider:  provider,
		mux:       chi.NewRouter(),
		routes:    make(map[ResourceCode]Route, 2*len(tables)),
		byPattern: make(map[string]ResourceCode, 2*len(tables)),
	}

	noop := func(http.ResponseWriter, *http.Request) {}

	for i, t := range tables {
		// The row pattern is registered first; chi prefers static segments
		// anyway, but the order documents the intended precedence.
		for _, scope := range []Scope{ScopeRow, ScopeCollection} {
			pattern := "/" + t.Name
			if scope == ScopeRow {
				pattern += "/{" + idParam + ":[0-9]+}"
			}
			code := Code(i, scope)
			m.mux.Get(pattern, noop)
			m.routes[code] = Route{Code: code, Table: t.Name, Scope: scope, Pattern: pattern}
			m.byPattern[pattern] = code
		}
		m.order = append(m.order, Code(i, ScopeCollection), Code(i, ScopeRow))
	}

	return m
}

// Provider returns the authority this matcher accepts.
func (m *Matcher) Provider() string {
	return m.provider
}

// Resolve maps a path to its resource. path may be bare ("items",
// "/items/3") or a full address ("content://provider/items/3").
func (m *Matcher) Resolve(path string) (Match, error) {
	p, ok := m.normalize(path)
	if !ok {
		return Match{}, &UnmatchedAddressError{Path: path}
	}

	rctx := chi.NewRouteContext()
	if !m.mux.Match(rctx, http.MethodGet, p) {
		return Match{}, &UnmatchedAddressError{Path: path}
	}

	code, ok := m.byPattern[rctx.RoutePattern()]
	if !ok {
		return Match{}, &UnmatchedAddressError{Path: path}
	}
	route := m.routes[code]

	match := Match{Route: route}
	if route.Scope == ScopeRow {
		id, err := strconv.ParseInt(rctx.URLParam(idParam), 10, 64)
		if err != nil || id <= 0 {
			return Match{}, &UnmatchedAddressError{Path: path}
		}
		match.ID = id
	}

	return match, nil
}

// normalize strips scheme and authority and returns a rooted path without a
// trailing slash.
func (m *Matcher) normalize(path string) (string, bool) {
	if strings.Contains(path, "://") {
		u, err := Parse(path)
		if err != nil {
			return "", false
		}
		if m.provider != "" && u.Provider != m.provider {
			return "", false
		}
		path = u.Path
	}

	path = strings.Trim(path, "/")
	if path == "" {
		return "", false
	}
	return "/" + path, true
}

// Route returns the route registered under code.
func (m *Matcher) Route(code ResourceCode) (Route, bool) {
	r, ok := m.routes[code]
	return r, ok
}

// Routes returns every route, collection before row, in table order.
func (m *Matcher) Routes() []Route {
	out := make([]Route, len(m.order))
	for i, code := range m.order {
		out[i] = m.routes[code]
	}
	return out
}

// Code returns the code of table's resource with the given scope.
func (m *Matcher) Code(table string, scope Scope) ResourceCode {
	pattern := "/" + table
	if scope == ScopeRow {
		pattern += "/{" + idParam + ":[0-9]+}"
	}
	if code, ok := m.byPattern[pattern]; ok {
		return code
	}
	return NoMatch
}
