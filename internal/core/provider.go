package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/JonMunkholm/tableroute/internal/address"
	"github.com/JonMunkholm/tableroute/internal/notify"
	"github.com/JonMunkholm/tableroute/internal/schema"
	"github.com/JonMunkholm/tableroute/internal/storage"
)

// Options configures a Provider.
type Options struct {
	// ProviderName is the authority of full content addresses.
	ProviderName string

	// StoreName and StoreVersion identify the backing database.
	StoreName    string
	StoreVersion int

	// LenientProjection logs unknown projection columns and reads every
	// column instead of failing the read.
	LenientProjection bool

	// Hub receives a change after every successful mutation. Nil disables
	// notification.
	Hub *notify.Hub

	Logger *slog.Logger
}

// Provider routes address-based CRUD requests to a Store. It replaces
// process-wide state: registry, matcher and store all hang off one handle.
//
// A Provider is safe for concurrent use.
type Provider struct {
	opts     Options
	store    storage.Store
	registry *schema.Registry
	matcher  *address.Matcher
	hub      *notify.Hub
	logger   *slog.Logger

	mu    sync.RWMutex
	ready bool
	err   error
}

// New validates tables and builds the routing tables. It does not touch the
// store; call Open to create the tables.
func New(opts Options, store storage.Store, tables ...schema.Table) (*Provider, error) {
	if store == nil {
		return nil, errors.New("provider: nil store")
	}

	registry, err := schema.NewRegistry(tables...)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Provider{
		opts:     opts,
		store:    store,
		registry: registry,
		matcher:  address.NewMatcher(opts.ProviderName, registry.Tables()),
		hub:      opts.Hub,
		logger:   logger.With("provider", opts.ProviderName),
	}, nil
}

// Open creates every registered table and reports whether storage is ready.
// It may be called again after a failure.
func (p *Provider) Open(ctx context.Context) bool {
	err := p.registry.CreateAll(ctx, p.store)

	p.mu.Lock()
	p.ready = err == nil
	p.err = err
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("storage initialization failed",
			"store", p.opts.StoreName,
			"version", p.opts.StoreVersion,
			"error", err,
		)
		return false
	}

	p.logger.Info("storage ready",
		"store", p.opts.StoreName,
		"version", p.opts.StoreVersion,
		"driver", p.store.Driver(),
		"tables", p.registry.TableCount(),
	)
	return true
}

// Ready reports the outcome of the last Open.
func (p *Provider) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// Err returns the error of the last Open, if any.
func (p *Provider) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// Schema describes the provider's tables.
func (p *Provider) Schema() schema.Schema {
	return schema.Schema{
		Provider: p.opts.ProviderName,
		Name:     p.opts.StoreName,
		Version:  p.opts.StoreVersion,
		Tables:   p.registry.Tables(),
	}
}

func (p *Provider) Registry() *schema.Registry { return p.registry }

func (p *Provider) Matcher() *address.Matcher { return p.matcher }

func (p *Provider) Store() storage.Store { return p.store }

// Type returns the MIME type of the resource at path.
func (p *Provider) Type(path string) (string, error) {
	m, err := p.matcher.Resolve(path)
	if err != nil {
		return "", err
	}
	return address.MIMEType(p.opts.ProviderName, m), nil
}

// CompileFilters checks structured filters against the table at path and
// compiles them into a Filter for Query, Update or Delete.
func (p *Provider) CompileFilters(path string, filters []ColumnFilter) (Filter, error) {
	_, t, err := p.resolve(path)
	if err != nil {
		return Filter{}, err
	}

	wb := NewWhereBuilderQuoted(p.store.QuoteIdentifier)
	for _, f := range filters {
		if !t.HasColumn(f.Column) {
			return Filter{}, &InvalidFilterError{Column: f.Column, Reason: "unknown column"}
		}
		op, ok := ParseFilterOperator(string(f.Operator))
		if !ok {
			return Filter{}, &InvalidFilterError{Column: f.Column, Reason: "unknown operator " + string(f.Operator)}
		}
		f.Operator = op
		if col, ok := t.Column(f.Column); ok {
			f.Type = col.Type
		} else {
			f.Type = schema.TypeInteger
		}
		wb.AddFilter(f)
	}
	return wb.Filter(), nil
}

// resolve maps path to its match and table.
func (p *Provider) resolve(path string) (address.Match, schema.Table, error) {
	m, err := p.matcher.Resolve(path)
	if err != nil {
		return address.Match{}, schema.Table{}, err
	}
	t, err := p.registry.TableByName(m.Table)
	if err != nil {
		return address.Match{}, schema.Table{}, err
	}
	return m, t, nil
}

// scopeFilter restricts filter to the addressed row. The id is bound as the
// first argument.
func (p *Provider) scopeFilter(m address.Match, filter Filter) Filter {
	if m.Scope != address.ScopeRow {
		return filter
	}
	idFilter := Filter{
		Expr: p.store.QuoteIdentifier(schema.IDColumn) + " = ?",
		Args: []any{m.ID},
	}
	return And(idFilter, filter)
}

func (p *Provider) checkOpen() error {
	if !p.Ready() {
		return ErrNotOpen
	}
	return nil
}

// publish emits a change for a successful mutation. Delivery failures never
// surface to the caller.
func (p *Provider) publish(ctx context.Context, m address.Match, kind notify.Kind, count int64) {
	if p.hub == nil {
		return
	}
	p.hub.Publish(notify.Change{
		Address: m.Path(),
		Table:   m.Table,
		Kind:    kind,
		Count:   count,
		Origin:  OriginFromContext(ctx),
	})
}
