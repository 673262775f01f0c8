package web

import (
	"net/http"

	"github.com/JonMunkholm/tableroute/internal/address"
)

// handleQuery reads rows at the address.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	path := resourcePath(r)

	req, err := s.queryRequest(r, path)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.provider.Query(r.Context(), path, req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleInsert creates one row from a JSON object, or many from an array.
func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	path := resourcePath(r)
	ctx := WithRequestMetadata(r.Context(), r)

	rows, single, err := decodeRows(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if single {
		itemPath, err := s.provider.Insert(ctx, path, rows[0])
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		w.Header().Set("Location", "/api/resources/"+itemPath)
		writeJSON(w, http.StatusCreated, map[string]string{
			"path":    itemPath,
			"address": address.ContentURI(s.provider.Matcher().Provider(), itemPath),
		})
		return
	}

	n, err := s.provider.BulkInsert(ctx, path, rows)
	if err != nil {
		s.respondBulkError(w, r, err, n)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{"inserted": n})
}

// handleUpdate applies a JSON object to every row matching the address and
// filters.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	path := resourcePath(r)

	filter, err := s.compileFilters(r, path)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	row, err := decodeRow(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	n, err := s.provider.Update(WithRequestMetadata(r.Context(), r), path, row, filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// handleDelete removes every row matching the address and filters.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	path := resourcePath(r)

	filter, err := s.compileFilters(r, path)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	n, err := s.provider.Delete(WithRequestMetadata(r.Context(), r), path, filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// handleType returns the MIME type of an address.
func (s *Server) handleType(w http.ResponseWriter, r *http.Request) {
	t, err := s.provider.Type(resourcePath(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"type": t})
}
