package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/tableroute/internal/address"
	"github.com/JonMunkholm/tableroute/internal/notify"
	"github.com/JonMunkholm/tableroute/internal/schema"
	"github.com/JonMunkholm/tableroute/internal/storage"
)

// ContextCheckInterval is how often (in rows) an import checks for
// cancellation.
var ContextCheckInterval = 100

// numericRegex matches a plain decimal after currency and separators are
// stripped.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// FailedRow is a CSV record that could not be inserted.
type FailedRow struct {
	Line   int      `json:"line"` // 1-based line in the source file
	Reason string   `json:"reason"`
	Record []string `json:"record"`
}

// ImportResult summarises an ImportCSV run.
type ImportResult struct {
	Address  string      `json:"address"`
	Inserted int         `json:"inserted"`
	Skipped  int         `json:"skipped"` // blank lines
	Failed   []FailedRow `json:"failed"`
}

// ImportCSV inserts the records of a CSV document into the collection at
// path. The first record is the header and must name table columns; header
// matching ignores case, surrounding spaces and a spreadsheet "=" prefix.
// Empty cells are stored as NULL.
//
// Unlike BulkInsert, a bad record does not stop the import: it is reported
// in ImportResult.Failed and the next record is tried. Header problems,
// cancellation and read errors abort the import. One change is published if
// anything was inserted.
func (p *Provider) ImportCSV(ctx context.Context, path string, r io.Reader) (*ImportResult, error) {
	m, t, err := p.insertTarget(path)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header row", ErrInvalidCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrInvalidCSV, err)
	}

	columns, err := mapHeader(t, header)
	if err != nil {
		return nil, err
	}
	if err := p.checkOpen(); err != nil {
		return nil, err
	}

	res := &ImportResult{Address: m.Path(), Failed: []FailedRow{}}
	for i := 0; ; i++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Failed = append(res.Failed, FailedRow{Line: perr.StartLine, Reason: perr.Err.Error(), Record: record})
				continue
			}
			return res, fmt.Errorf("csv import: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				p.publishImport(ctx, m, res)
				return res, fmt.Errorf("import cancelled at line %d: %w", line, err)
			}
		}

		if blankRecord(record) {
			res.Skipped++
			continue
		}

		row, err := buildRow(t, columns, record)
		if err != nil {
			res.Failed = append(res.Failed, FailedRow{Line: line, Reason: err.Error(), Record: record})
			continue
		}

		if _, err := p.store.Insert(ctx, t.Name, row); err != nil {
			res.Failed = append(res.Failed, FailedRow{Line: line, Reason: "db error: " + err.Error(), Record: record})
			continue
		}
		res.Inserted++
	}

	p.publishImport(ctx, m, res)
	p.logger.Info("csv import finished",
		"path", res.Address,
		"inserted", res.Inserted,
		"failed", len(res.Failed),
		"skipped", res.Skipped,
	)
	return res, nil
}

func (p *Provider) publishImport(ctx context.Context, m address.Match, res *ImportResult) {
	if res.Inserted > 0 {
		p.publish(ctx, m, notify.KindInsert, int64(res.Inserted))
	}
}

// mapHeader resolves every header cell to a declared column. Blank header
// cells are ignored along with their data.
func mapHeader(t schema.Table, header []string) ([]string, error) {
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	var unknown []string

	for i, h := range header {
		key := CleanHeader(h)
		if key == "" {
			continue
		}
		col, ok := lookupColumn(t, key)
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		if seen[col] {
			return nil, fmt.Errorf("%w: duplicate header %q", ErrInvalidCSV, col)
		}
		seen[col] = true
		columns[i] = col
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &InvalidProjectionError{Table: t.Name, Unknown: unknown}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("%w: header names no columns", ErrInvalidCSV)
	}
	return columns, nil
}

// lookupColumn matches key against declared columns case-insensitively,
// treating spaces as underscores. The identity column never matches.
func lookupColumn(t schema.Table, key string) (string, bool) {
	key = strings.ReplaceAll(key, " ", "_")
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, key) {
			return c.Name, true
		}
	}
	return "", false
}

// CleanHeader normalises a CSV header cell: byte order mark, surrounding
// quotes, a leading "=" from spreadsheet exports and case are removed.
func CleanHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.TrimSpace(h)
	h = strings.TrimPrefix(h, "=")
	h = strings.Trim(h, `"`)
	return strings.ToLower(strings.TrimSpace(h))
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// buildRow converts one record into typed column values.
func buildRow(t schema.Table, columns []string, record []string) (storage.Row, error) {
	row := make(storage.Row, len(columns))
	for i, col := range columns {
		if col == "" || i >= len(record) {
			continue
		}
		raw := strings.TrimSpace(record[i])
		if raw == "" {
			continue
		}

		c, _ := t.Column(col)
		v, err := parseCell(c.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s for %q: %q", c.Type, col, raw)
		}
		row[col] = v
	}
	return row, nil
}

// parseCell converts a non-empty CSV cell to the column's Go type.
func parseCell(t schema.ColumnType, raw string) (any, error) {
	switch t {
	case schema.TypeInteger:
		s, ok := cleanNumeric(raw)
		if !ok {
			return nil, strconv.ErrSyntax
		}
		return strconv.ParseInt(s, 10, 64)
	case schema.TypeReal:
		s, ok := cleanNumeric(raw)
		if !ok {
			return nil, strconv.ErrSyntax
		}
		return strconv.ParseFloat(s, 64)
	case schema.TypeBoolean:
		switch strings.ToLower(raw) {
		case "true", "t", "yes", "y", "1":
			return true, nil
		case "false", "f", "no", "n", "0":
			return false, nil
		}
		return nil, strconv.ErrSyntax
	case schema.TypeBlob:
		return []byte(raw), nil
	default:
		return raw, nil
	}
}

// cleanNumeric strips currency symbols and thousands separators and turns
// accounting negatives "(12.50)" into "-12.50".
func cleanNumeric(s string) (string, bool) {
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(s)
	s = strings.TrimSpace(s)
	if negative {
		s = "-" + s
	}
	return s, numericRegex.MatchString(s)
}
