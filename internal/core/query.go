package core

import (
	"context"

	"github.com/JonMunkholm/tableroute/internal/address"
	"github.com/JonMunkholm/tableroute/internal/storage"
)

// QueryRequest is a read against an address.
type QueryRequest struct {
	Columns []string // projection; empty reads every column
	Filter  Filter
	OrderBy string // "col [ASC|DESC], ..."
}

// Result is a materialised read.
type Result struct {
	Address string        `json:"address"`
	Type    string        `json:"type"`
	Columns []string      `json:"columns"`
	Rows    []storage.Row `json:"rows"`
}

// Query reads every matching row of the addressed table into memory.
func (p *Provider) Query(ctx context.Context, path string, req QueryRequest) (*Result, error) {
	res := &Result{Rows: []storage.Row{}}
	m, cols, err := p.stream(ctx, path, req, func(row storage.Row) error {
		res.Rows = append(res.Rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Address = address.ContentURI(p.opts.ProviderName, m.Path())
	res.Type = address.MIMEType(p.opts.ProviderName, m)
	res.Columns = cols
	return res, nil
}

// Stream reads matching rows and hands them to fn one at a time. Iteration
// stops at the first error fn returns.
func (p *Provider) Stream(ctx context.Context, path string, req QueryRequest, fn func(storage.Row) error) error {
	_, _, err := p.stream(ctx, path, req, fn)
	return err
}

func (p *Provider) stream(ctx context.Context, path string, req QueryRequest, fn func(storage.Row) error) (address.Match, []string, error) {
	m, t, err := p.resolve(path)
	if err != nil {
		return address.Match{}, nil, err
	}

	columns := req.Columns
	if err := ValidateProjection(columns, t); err != nil {
		if !p.opts.LenientProjection {
			return address.Match{}, nil, err
		}
		p.logger.Warn("ignoring invalid projection", "path", path, "error", err)
		columns = nil
	}
	if len(columns) == 0 {
		columns = t.AllColumns()
	}

	orderBy, err := validateOrder(t, req.OrderBy, p.store.QuoteIdentifier)
	if err != nil {
		return address.Match{}, nil, err
	}

	if err := p.checkOpen(); err != nil {
		return address.Match{}, nil, err
	}

	filter := p.scopeFilter(m, req.Filter)
	err = p.store.Select(ctx, storage.SelectQuery{
		Table:   t.Name,
		Columns: columns,
		Where:   filter.Expr,
		Args:    filter.Args,
		OrderBy: orderBy,
	}, fn)
	if err != nil {
		return address.Match{}, nil, err
	}
	return m, columns, nil
}
