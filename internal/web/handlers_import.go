package web

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tableroute/internal/logging"
)

// defaultMaxImportSize applies when no import limit is configured (100MB).
const defaultMaxImportSize = 100 * 1024 * 1024

// handleImport loads a CSV document into the collection at the address. The
// file is either the "file" field of a multipart form or the raw body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	path := resourcePath(r)

	maxSize := s.cfg.Import.MaxFileSize
	if maxSize <= 0 {
		maxSize = defaultMaxImportSize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: %v", errBadBody, err))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			s.respondError(w, r, fmt.Errorf("%w: no file provided", errBadBody))
			return
		}
		defer file.Close()
		src = file
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.provider.ImportCSV(ctx, path, src)
	if err != nil {
		if res != nil {
			logging.WithFields(r.Context(), "path", path).Warn("csv import aborted", "inserted", res.Inserted)
		}
		s.respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Inserted > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}
