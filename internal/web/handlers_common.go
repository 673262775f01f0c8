package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/JonMunkholm/tableroute/internal/core"
	"github.com/go-chi/chi/v5"
)

// MaxBodySize bounds JSON request bodies (10MB).
const MaxBodySize = 10 * 1024 * 1024

// resourcePath returns the address captured by a "/*" route.
func resourcePath(r *http.Request) string {
	return strings.Trim(chi.URLParam(r, "*"), "/")
}

// parseColumns reads the comma-separated "columns" projection.
func parseColumns(r *http.Request) []string {
	raw := r.URL.Query().Get("columns")
	if raw == "" {
		return nil
	}

	var cols []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// parseOrder turns "sort=a,b&dir=asc,desc" into "a ASC, b DESC". Missing
// directions default to ascending.
func parseOrder(r *http.Request) string {
	sortStr := r.URL.Query().Get("sort")
	if sortStr == "" {
		return ""
	}
	dirs := strings.Split(r.URL.Query().Get("dir"), ",")

	var terms []string
	for i, col := range strings.Split(sortStr, ",") {
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		dir := "ASC"
		if i < len(dirs) && strings.EqualFold(strings.TrimSpace(dirs[i]), "desc") {
			dir = "DESC"
		}
		terms = append(terms, col+" "+dir)
	}
	return strings.Join(terms, ", ")
}

// parseFilters reads filter[col]=op:value parameters. A value without an
// operator prefix is an equality test. Columns are sorted so the compiled
// expression is stable.
func parseFilters(r *http.Request) []core.ColumnFilter {
	query := r.URL.Query()

	keys := make([]string, 0, len(query))
	for key := range query {
		if strings.HasPrefix(key, "filter[") && strings.HasSuffix(key, "]") && len(key) > len("filter[]") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var filters []core.ColumnFilter
	for _, key := range keys {
		col := key[len("filter[") : len(key)-1]
		for _, val := range query[key] {
			op, value := core.OpEquals, val
			if before, after, ok := strings.Cut(val, ":"); ok {
				if parsed, known := core.ParseFilterOperator(before); known {
					op, value = parsed, after
				}
			}
			filters = append(filters, core.ColumnFilter{Column: col, Operator: op, Value: value})
		}
	}
	return filters
}

// compileFilters parses and compiles the request's filters for path.
func (s *Server) compileFilters(r *http.Request, path string) (core.Filter, error) {
	filters := parseFilters(r)
	if len(filters) == 0 {
		return core.Filter{}, nil
	}
	return s.provider.CompileFilters(path, filters)
}

// queryRequest builds a read from the request's query string.
func (s *Server) queryRequest(r *http.Request, path string) (core.QueryRequest, error) {
	filter, err := s.compileFilters(r, path)
	if err != nil {
		return core.QueryRequest{}, err
	}
	return core.QueryRequest{
		Columns: parseColumns(r),
		Filter:  filter,
		OrderBy: parseOrder(r),
	}, nil
}

// decodeRows reads a JSON object or array of objects. Numbers are kept as
// json.Number so integers survive untouched.
func decodeRows(w http.ResponseWriter, r *http.Request) (rows []map[string]any, single bool, err error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", errBadBody, err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("%w: empty body", errBadBody)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	switch trimmed[0] {
	case '{':
		var row map[string]any
		if err := dec.Decode(&row); err != nil {
			return nil, false, fmt.Errorf("%w: %v", errBadBody, err)
		}
		return []map[string]any{row}, true, nil
	case '[':
		if err := dec.Decode(&rows); err != nil {
			return nil, false, fmt.Errorf("%w: %v", errBadBody, err)
		}
		for i, row := range rows {
			if row == nil {
				return nil, false, fmt.Errorf("%w: element %d is not an object", errBadBody, i)
			}
		}
		return rows, false, nil
	default:
		return nil, false, fmt.Errorf("%w: expected a JSON object or array", errBadBody)
	}
}

// decodeRow reads a single JSON object.
func decodeRow(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	rows, single, err := decodeRows(w, r)
	if err != nil {
		return nil, err
	}
	if !single {
		return nil, fmt.Errorf("%w: expected a JSON object", errBadBody)
	}
	return rows[0], nil
}
