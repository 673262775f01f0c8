// Command tablectl drives a provider from the command line: create the
// tables of a schema file and read or change rows by address.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JonMunkholm/tableroute/internal/address"
	"github.com/JonMunkholm/tableroute/internal/core"
	"github.com/JonMunkholm/tableroute/internal/logging"
	"github.com/JonMunkholm/tableroute/internal/schema"
	"github.com/JonMunkholm/tableroute/internal/storage"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	driver   string
	dsn      string
	schema   string
	provider string
	logLevel string
}

// selectFlags narrow a read, update or delete.
type selectFlags struct {
	where   string
	args    []string
	filters []string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "tablectl",
		Short:         "Read and change rows of a schema by address",
		Long:          `tablectl opens a store, registers the tables of a JSON schema file and routes address-based requests such as "items" or "items/3" to them. Results are printed as JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.driver, "driver", "sqlite3", "Store driver: "+strings.Join(storage.Drivers, ", "))
	root.PersistentFlags().StringVar(&g.dsn, "dsn", "", "Store connection string or file path")
	root.PersistentFlags().StringVar(&g.schema, "schema", "", "JSON schema file")
	root.PersistentFlags().StringVar(&g.provider, "provider", "", "Provider name (default: from schema file)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level written to stderr")

	root.AddCommand(
		newInitCmd(g),
		newTablesCmd(g),
		newTypeCmd(g),
		newGetCmd(g),
		newInsertCmd(g),
		newUpdateCmd(g),
		newDeleteCmd(g),
		newImportCmd(g),
	)
	return root
}

func newInitCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create every table of the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeFn, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeFn()

			ready := p.Open(cmd.Context())
			out := map[string]any{
				"ready":  ready,
				"tables": p.Registry().TableCount(),
			}
			if !ready {
				out["error"] = p.Err().Error()
			}
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if !ready {
				return fmt.Errorf("storage not ready: %w", p.Err())
			}
			return nil
		},
	}
}

func newTablesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List addresses, resource codes and types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeFn, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeFn()

			type routeView struct {
				Code    int    `json:"code"`
				Table   string `json:"table"`
				Scope   string `json:"scope"`
				Pattern string `json:"pattern"`
				Type    string `json:"type"`
			}

			provider := p.Matcher().Provider()
			var routes []routeView
			for _, r := range p.Matcher().Routes() {
				routes = append(routes, routeView{
					Code:    int(r.Code),
					Table:   r.Table,
					Scope:   r.Scope.String(),
					Pattern: r.Pattern,
					Type:    address.MIMEType(provider, address.Match{Route: r}),
				})
			}
			return printJSON(cmd.OutOrStdout(), routes)
		},
	}
}

func newTypeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "type <path>",
		Short: "Print the MIME type of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeFn, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeFn()

			t, err := p.Type(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"type": t})
		},
	}
}

func newGetCmd(g *globalFlags) *cobra.Command {
	sf := &selectFlags{}
	var columns []string
	var order string

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Read rows at an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeFn, err := g.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			filter, err := sf.build(p, args[0])
			if err != nil {
				return err
			}

			res, err := p.Query(cmd.Context(), args[0], core.QueryRequest{
				Columns: columns,
				Filter:  filter,
				OrderBy: order,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns to read (default: all)")
	cmd.Flags().StringVar(&order, "order", "", `Sort order, e.g. "qty DESC, name"`)
	sf.register(cmd)
	return cmd
}

func newInsertCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <path> column=value...",
		Short: "Insert a row into a table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}

			p, closeFn, err := g.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			path, err := p.Insert(cmd.Context(), args[0], row)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"path":    path,
				"address": address.ContentURI(p.Matcher().Provider(), path),
			})
		},
	}
}

func newUpdateCmd(g *globalFlags) *cobra.Command {
	sf := &selectFlags{}

	cmd := &cobra.Command{
		Use:   "update <path> column=value...",
		Short: "Update rows at an address",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}

			p, closeFn, err := g.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			filter, err := sf.build(p, args[0])
			if err != nil {
				return err
			}

			n, err := p.Update(cmd.Context(), args[0], row, filter)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]int64{"updated": n})
		},
	}
	sf.register(cmd)
	return cmd
}

func newDeleteCmd(g *globalFlags) *cobra.Command {
	sf := &selectFlags{}

	cmd := &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete rows at an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, closeFn, err := g.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			filter, err := sf.build(p, args[0])
			if err != nil {
				return err
			}

			n, err := p.Delete(cmd.Context(), args[0], filter)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]int64{"deleted": n})
		},
	}
	sf.register(cmd)
	return cmd
}

func newImportCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <path> <file.csv>",
		Short: "Insert the records of a CSV file; use - for stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src io.Reader = cmd.InOrStdin()
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return fmt.Errorf("failed to open csv: %w", err)
				}
				defer f.Close()
				src = f
			}

			p, closeFn, err := g.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := p.ImportCSV(cmd.Context(), args[0], src)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

// open builds a provider from the global flags. With create set the tables
// are created first and a failure to do so is an error.
func (g *globalFlags) open(ctx context.Context, create bool) (*core.Provider, func(), error) {
	if g.dsn == "" {
		return nil, nil, fmt.Errorf("--dsn must be specified")
	}
	if g.schema == "" {
		return nil, nil, fmt.Errorf("--schema must be specified")
	}

	sch, err := schema.LoadFile(g.schema)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.Open(ctx, storage.Options{Driver: g.driver, DSN: g.dsn, MaxConns: 1, MinConns: 1})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close store: %v\n", err)
		}
	}

	name := g.provider
	if name == "" {
		name = sch.Provider
	}

	p, err := core.New(core.Options{
		ProviderName: name,
		StoreName:    sch.Name,
		StoreVersion: sch.Version,
		Logger:       logging.NewLogger(os.Stderr, g.logLevel, "text"),
	}, store, sch.Tables...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	if create && !p.Open(ctx) {
		closeFn()
		return nil, nil, p.Err()
	}
	return p, closeFn, nil
}

func (sf *selectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sf.where, "where", "", `Raw predicate with ? placeholders, e.g. "qty > ?"`)
	cmd.Flags().StringSliceVar(&sf.args, "args", nil, "Values bound to the --where placeholders")
	cmd.Flags().StringArrayVar(&sf.filters, "filter", nil, "Column filter column=op:value (repeatable)")
}

// build compiles --filter flags and ANDs them with --where.
func (sf *selectFlags) build(p *core.Provider, path string) (core.Filter, error) {
	if sf.where == "" && len(sf.args) > 0 {
		return core.Filter{}, fmt.Errorf("--args given without --where")
	}

	raw := core.Filter{Expr: sf.where}
	for _, a := range sf.args {
		raw.Args = append(raw.Args, bindValue(parseValue(a)))
	}

	if len(sf.filters) == 0 {
		return raw, nil
	}

	columnFilters, err := parseFilterFlags(sf.filters)
	if err != nil {
		return core.Filter{}, err
	}
	compiled, err := p.CompileFilters(path, columnFilters)
	if err != nil {
		return core.Filter{}, err
	}
	return core.And(raw, compiled), nil
}

// parseFilterFlags reads column=op:value terms. A value without a known
// operator prefix is an equality test.
func parseFilterFlags(terms []string) ([]core.ColumnFilter, error) {
	filters := make([]core.ColumnFilter, 0, len(terms))
	for _, term := range terms {
		col, val, ok := strings.Cut(term, "=")
		if !ok || strings.TrimSpace(col) == "" {
			return nil, fmt.Errorf("invalid filter %q: want column=op:value", term)
		}

		op := core.OpEquals
		if before, after, found := strings.Cut(val, ":"); found {
			if parsed, known := core.ParseFilterOperator(before); known {
				op, val = parsed, after
			}
		}
		filters = append(filters, core.ColumnFilter{Column: strings.TrimSpace(col), Operator: op, Value: val})
	}
	return filters, nil
}

// parseAssignments turns column=value arguments into a row.
func parseAssignments(args []string) (map[string]any, error) {
	row := make(map[string]any, len(args))
	for _, arg := range args {
		col, val, ok := strings.Cut(arg, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid assignment %q: want column=value", arg)
		}
		row[col] = parseValue(val)
	}
	return row, nil
}

// parseValue reads v as a JSON scalar when it is one (5, 2.5, true, null,
// "quoted") and as a plain string otherwise.
func parseValue(v string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(v)))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil || dec.More() {
		return v
	}
	switch out.(type) {
	case map[string]any, []any:
		return v
	}
	return out
}

// bindValue turns a json.Number into an int64 or float64 so drivers bind
// it as a number.
func bindValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", core.FormatUserError(err))
		fmt.Fprintf(os.Stderr, "detail: %v\n", err)
		os.Exit(1)
	}
}
