package web

import (
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/tableroute/internal/logging"
	"github.com/JonMunkholm/tableroute/internal/storage"
)

// handleExport streams the rows at an address as CSV. It accepts the same
// columns, filter and sort parameters as a read.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	path := resourcePath(r)

	m, err := s.provider.Matcher().Resolve(path)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	t, err := s.provider.Registry().TableByName(m.Table)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	req, err := s.queryRequest(r, path)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	columns := req.Columns
	for _, c := range columns {
		if !t.HasColumn(c) {
			// Strict mode fails in Stream; lenient mode reads every column.
			columns = nil
			break
		}
	}
	if len(columns) == 0 {
		columns = t.AllColumns()
	}

	// Headers go out with the first row so that validation and storage
	// errors can still produce a JSON error response.
	var cw *csv.Writer
	start := func() error {
		filename := fmt.Sprintf("%s_%s.csv", m.Table, time.Now().Format("2006-01-02"))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		cw = csv.NewWriter(w)
		return cw.Write(columns)
	}

	record := make([]string, len(columns))
	err = s.provider.Stream(r.Context(), path, req, func(row storage.Row) error {
		if cw == nil {
			if err := start(); err != nil {
				return err
			}
		}
		for i, col := range columns {
			record[i] = formatCell(row[col])
		}
		return cw.Write(record)
	})

	if err != nil {
		if cw == nil {
			s.respondError(w, r, err)
			return
		}
		// Too late for an error response; the client sees a truncated file.
		logging.WithFields(r.Context(), "path", path).Error("export failed", "error", err)
		cw.Flush()
		return
	}

	if cw == nil {
		if err := start(); err != nil {
			logging.FromContext(r.Context()).Error("export failed", "error", err)
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logging.FromContext(r.Context()).Error("export flush failed", "error", err)
	}
}

// formatCell renders a stored value for CSV.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return base64.StdEncoding.EncodeToString(val)
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}
