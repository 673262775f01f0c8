package core

import (
	"context"

	"github.com/JonMunkholm/tableroute/internal/address"
	"github.com/JonMunkholm/tableroute/internal/notify"
	"github.com/JonMunkholm/tableroute/internal/schema"
	"github.com/JonMunkholm/tableroute/internal/storage"
)

// Insert adds row to the collection at path and returns the address of the
// new row as "table/id". Row addresses are rejected: identity is always
// assigned by the store.
func (p *Provider) Insert(ctx context.Context, path string, row map[string]any) (string, error) {
	m, t, err := p.insertTarget(path)
	if err != nil {
		return "", err
	}

	values, err := p.prepareRow(t, row)
	if err != nil {
		return "", err
	}
	if err := p.checkOpen(); err != nil {
		return "", err
	}

	id, err := p.store.Insert(ctx, t.Name, values)
	if err != nil {
		return "", err
	}

	p.publish(ctx, m, notify.KindInsert, 1)
	return address.Item(t.Name, id), nil
}

// BulkInsert inserts rows in order and stops at the first failure. It
// returns how many rows were inserted before it stopped. One change is
// published if anything was inserted.
func (p *Provider) BulkInsert(ctx context.Context, path string, rows []map[string]any) (int, error) {
	m, t, err := p.insertTarget(path)
	if err != nil {
		return 0, err
	}

	prepared := make([]storage.Row, len(rows))
	for i, row := range rows {
		values, err := p.prepareRow(t, row)
		if err != nil {
			return 0, err
		}
		prepared[i] = values
	}
	if err := p.checkOpen(); err != nil {
		return 0, err
	}

	inserted := 0
	var insertErr error
	for _, values := range prepared {
		if _, err := p.store.Insert(ctx, t.Name, values); err != nil {
			insertErr = err
			break
		}
		inserted++
	}

	if inserted > 0 {
		p.publish(ctx, m, notify.KindInsert, int64(inserted))
	}
	return inserted, insertErr
}

// Update sets row's columns on the records selected by path and filter. A
// row address narrows the filter to that row. Zero affected rows is not an
// error.
func (p *Provider) Update(ctx context.Context, path string, row map[string]any, filter Filter) (int64, error) {
	m, t, err := p.resolve(path)
	if err != nil {
		return 0, err
	}

	values, err := p.prepareRow(t, row)
	if err != nil {
		return 0, err
	}
	if err := p.checkOpen(); err != nil {
		return 0, err
	}

	scoped := p.scopeFilter(m, filter)
	n, err := p.store.Update(ctx, t.Name, values, scoped.Expr, scoped.Args...)
	if err != nil {
		return 0, err
	}

	p.publish(ctx, m, notify.KindUpdate, n)
	return n, nil
}

// Delete removes the records selected by path and filter and returns how
// many were removed.
func (p *Provider) Delete(ctx context.Context, path string, filter Filter) (int64, error) {
	m, t, err := p.resolve(path)
	if err != nil {
		return 0, err
	}
	if err := p.checkOpen(); err != nil {
		return 0, err
	}

	scoped := p.scopeFilter(m, filter)
	n, err := p.store.Delete(ctx, t.Name, scoped.Expr, scoped.Args...)
	if err != nil {
		return 0, err
	}

	p.publish(ctx, m, notify.KindDelete, n)
	return n, nil
}

func (p *Provider) insertTarget(path string) (address.Match, schema.Table, error) {
	m, t, err := p.resolve(path)
	if err != nil {
		return address.Match{}, schema.Table{}, err
	}
	if m.Scope == address.ScopeRow {
		return address.Match{}, schema.Table{}, &UnsupportedScopeError{Op: "insert", Path: m.Path()}
	}
	return m, t, nil
}

// prepareRow validates row's keys and converts its values to column types.
func (p *Provider) prepareRow(t schema.Table, row map[string]any) (storage.Row, error) {
	if err := validateRow(t, row); err != nil {
		return nil, err
	}
	values := make(storage.Row, len(row))
	for k, v := range row {
		col, _ := t.Column(k)
		values[k] = coerceValue(col, v)
	}
	return values, nil
}
