package web

import (
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/tableroute/internal/address"
	"github.com/JonMunkholm/tableroute/internal/web/templates"
)

// schemaView describes every table with its routes and column types.
func (s *Server) schemaView() templates.SchemaView {
	sch := s.provider.Schema()
	matcher := s.provider.Matcher()
	provider := matcher.Provider()

	view := templates.SchemaView{
		Provider:     provider,
		StoreName:    sch.Name,
		StoreVersion: sch.Version,
		Driver:       s.provider.Store().Driver(),
		Ready:        s.provider.Ready(),
		Tables:       make([]templates.TableView, 0, len(sch.Tables)),
	}

	for _, t := range sch.Tables {
		coll := address.Match{Route: address.Route{Table: t.Name, Scope: address.ScopeCollection}}
		item := address.Match{Route: address.Route{Table: t.Name, Scope: address.ScopeRow}}

		tv := templates.TableView{
			Name:           t.Name,
			CollectionPath: address.Collection(t.Name),
			CollectionCode: int(matcher.Code(t.Name, address.ScopeCollection)),
			RowPattern:     address.Collection(t.Name) + "/{id}",
			RowCode:        int(matcher.Code(t.Name, address.ScopeRow)),
			CollectionType: address.MIMEType(provider, coll),
			RowType:        address.MIMEType(provider, item),
		}
		for _, c := range t.Columns {
			tv.Columns = append(tv.Columns, templates.ColumnView{
				Name:    c.Name,
				Type:    string(c.Type),
				NotNull: c.NotNull,
				Unique:  c.Unique,
			})
		}
		view.Tables = append(view.Tables, tv)
	}
	return view
}

// handleSchemaPage renders the HTML schema overview.
func (s *Server) handleSchemaPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.SchemaPage(s.schemaView()).Render(r.Context(), w); err != nil {
		slog.Error("render schema page failed", "error", err)
	}
}

// handleSchema returns the schema overview as JSON.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.schemaView())
}

// handleHealth reports 200 once storage is ready and 503 before.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.provider.Ready() {
		body := map[string]string{"status": "unavailable"}
		if err := s.provider.Err(); err != nil {
			body["error"] = err.Error()
		}
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
