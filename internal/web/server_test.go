package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/tableroute/internal/address"
	"github.com/JonMunkholm/tableroute/internal/config"
	"github.com/JonMunkholm/tableroute/internal/core"
	"github.com/JonMunkholm/tableroute/internal/notify"
	"github.com/JonMunkholm/tableroute/internal/schema"
	"github.com/JonMunkholm/tableroute/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *core.Provider) {
	t.Helper()

	st, err := storage.Open(context.Background(), storage.Options{Driver: "sqlite3", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hub := notify.NewHub(16, nil)
	p, err := core.New(core.Options{
		ProviderName: "com.example.inventory",
		StoreName:    "inventory.db",
		StoreVersion: 1,
		Hub:          hub,
	}, st, schema.NewTable("items", schema.Text("name").NotNullable(), schema.Integer("qty")))
	if err != nil {
		t.Fatalf("core.New() error = %v", err)
	}
	if !p.Open(context.Background()) {
		t.Fatalf("Open() = false, err = %v", p.Err())
	}

	cfg := &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
	}
	s := NewServer(p, hub, cfg)
	s.heartbeat = 50 * time.Millisecond
	return s, p
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestServer_CRUD(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/resources/items", `{"name":"Pen","qty":5}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body)
	}
	if got := rec.Header().Get("Location"); got != "/api/resources/items/1" {
		t.Errorf("Location = %q, want %q", got, "/api/resources/items/1")
	}
	created := decode[map[string]string](t, rec)
	if created["address"] != "content://com.example.inventory/items/1" {
		t.Errorf("address = %q", created["address"])
	}

	rec = do(t, s, http.MethodPost, "/api/resources/items", `[{"name":"Ink","qty":2},{"name":"Pad","qty":9}]`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("bulk POST status = %d (body %s)", rec.Code, rec.Body)
	}
	if got := decode[map[string]int](t, rec)["inserted"]; got != 2 {
		t.Errorf("inserted = %d, want 2", got)
	}

	rec = do(t, s, http.MethodGet, "/api/resources/items?columns=name&filter[qty]=gte:3&sort=qty&dir=desc", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d (body %s)", rec.Code, rec.Body)
	}
	res := decode[core.Result](t, rec)
	var names []string
	for _, row := range res.Rows {
		names = append(names, row["name"].(string))
	}
	if want := []string{"Pad", "Pen"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	if res.Type != "vnd.com.example.inventory.dir/items" {
		t.Errorf("type = %q", res.Type)
	}

	rec = do(t, s, http.MethodPatch, "/api/resources/items/1", `{"qty":6}`)
	if got := decode[map[string]int64](t, rec)["updated"]; got != 1 {
		t.Errorf("updated = %d, want 1", got)
	}

	rec = do(t, s, http.MethodGet, "/api/resources/items/1", "")
	res = decode[core.Result](t, rec)
	if len(res.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(res.Rows))
	}
	if qty, _ := res.Rows[0]["qty"].(float64); qty != 6 {
		t.Errorf("qty = %v, want 6", res.Rows[0]["qty"])
	}

	rec = do(t, s, http.MethodDelete, "/api/resources/items?filter[name]=eq:Ink", "")
	if got := decode[map[string]int64](t, rec)["deleted"]; got != 1 {
		t.Errorf("deleted = %d, want 1", got)
	}
	rec = do(t, s, http.MethodDelete, "/api/resources/items/2", "")
	if got := decode[map[string]int64](t, rec)["deleted"]; got != 0 {
		t.Errorf("second delete = %d, want 0", got)
	}
}

func TestServer_BulkInsertReportsPartialProgress(t *testing.T) {
	s, p := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/resources/items", `[{"name":"Ink"},{"qty":1},{"name":"Pad"}]`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("bulk POST status = %d, want %d (body %s)", rec.Code, http.StatusInternalServerError, rec.Body)
	}
	resp := decode[ErrorResponse](t, rec)
	if resp.Code != "DB003" {
		t.Errorf("code = %q, want DB003", resp.Code)
	}
	if resp.Inserted == nil || *resp.Inserted != 1 {
		t.Errorf("inserted = %v, want 1", resp.Inserted)
	}

	res, err := p.Query(context.Background(), "items", core.QueryRequest{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(res.Rows) != 1 {
		t.Errorf("stored rows = %d, want 1", len(res.Rows))
	}
}

func TestServer_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		wantCode int
		wantErr  string
	}{
		{"unmatched address", http.MethodGet, "/api/resources/ghosts", "", http.StatusNotFound, "ADDR001"},
		{"non numeric id", http.MethodGet, "/api/resources/items/abc", "", http.StatusNotFound, "ADDR001"},
		{"bogus projection", http.MethodGet, "/api/resources/items?columns=bogus", "", http.StatusBadRequest, "PROJ001"},
		{"bogus sort", http.MethodGet, "/api/resources/items?sort=bogus", "", http.StatusBadRequest, "PROJ001"},
		{"bogus filter column", http.MethodGet, "/api/resources/items?filter[bogus]=eq:1", "", http.StatusBadRequest, "FLT001"},
		{"insert at row", http.MethodPost, "/api/resources/items/1", `{"name":"x"}`, http.StatusBadRequest, "SCOPE001"},
		{"unknown key", http.MethodPost, "/api/resources/items", `{"color":"red"}`, http.StatusBadRequest, "PROJ001"},
		{"malformed body", http.MethodPost, "/api/resources/items", `{"name":`, http.StatusBadRequest, "REQ003"},
		{"scalar body", http.MethodPost, "/api/resources/items", `42`, http.StatusBadRequest, "REQ003"},
		{"array update", http.MethodPut, "/api/resources/items", `[{"qty":1}]`, http.StatusBadRequest, "REQ003"},
		{"empty update", http.MethodPut, "/api/resources/items", `{}`, http.StatusBadRequest, "ROW001"},
		{"not null violation", http.MethodPost, "/api/resources/items", `{"qty":1}`, http.StatusInternalServerError, "DB003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.target, tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body)
			}
			resp := decode[ErrorResponse](t, rec)
			if resp.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantErr)
			}
		})
	}
}

func TestServer_NotOpen(t *testing.T) {
	st, err := storage.Open(context.Background(), storage.Options{Driver: "sqlite3", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	defer st.Close()

	p, err := core.New(core.Options{ProviderName: "p"}, st, schema.NewTable("items", schema.Text("name")))
	if err != nil {
		t.Fatalf("core.New() error = %v", err)
	}
	s := NewServer(p, nil, &config.Config{})

	rec := do(t, s, http.MethodGet, "/api/resources/items", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	rec = do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	rec = do(t, s, http.MethodGet, "/api/watch/items", "")
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("watch status = %d, want %d", rec.Code, http.StatusNotImplemented)
	}
}

func TestServer_SchemaAndHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/schema", "")
	var view struct {
		Provider string `json:"provider"`
		Driver   string `json:"driver"`
		Tables   []struct {
			Name           string `json:"name"`
			CollectionCode int    `json:"collectionCode"`
			RowCode        int    `json:"rowCode"`
			RowType        string `json:"rowType"`
		} `json:"tables"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	if view.Provider != "com.example.inventory" || view.Driver != "sqlite3" {
		t.Errorf("schema = %+v", view)
	}
	if len(view.Tables) != 1 || view.Tables[0].CollectionCode != 1 || view.Tables[0].RowCode != 2 {
		t.Errorf("tables = %+v", view.Tables)
	}
	if view.Tables[0].RowType != "vnd.com.example.inventory.item/items" {
		t.Errorf("rowType = %q", view.Tables[0].RowType)
	}

	rec = do(t, s, http.MethodGet, "/", "")
	if !strings.Contains(rec.Body.String(), "<h2>items</h2>") {
		t.Errorf("schema page missing table heading")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("security headers not set")
	}

	rec = do(t, s, http.MethodGet, "/api/type/items/4", "")
	if got := decode[map[string]string](t, rec)["type"]; got != "vnd.com.example.inventory.item/items" {
		t.Errorf("type = %q", got)
	}
}

func TestServer_Export(t *testing.T) {
	s, p := newTestServer(t)
	ctx := context.Background()
	for _, name := range []string{"Pen", "Ink, blue"} {
		if _, err := p.Insert(ctx, "items", map[string]any{"name": name, "qty": 1}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	rec := do(t, s, http.MethodGet, "/api/export/items?columns=name&sort=name", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d (body %s)", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}

	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	want := [][]string{{"name"}, {"Ink, blue"}, {"Pen"}}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("records = %v, want %v", records, want)
	}

	rec = do(t, s, http.MethodGet, "/api/export/items?columns=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus export status = %d, want 400", rec.Code)
	}
}

func TestServer_Watch(t *testing.T) {
	s, p := newTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/watch/items?descendants=true", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("watch request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	br := bufio.NewReader(resp.Body)
	first, err := br.ReadString('\n')
	if err != nil || !strings.HasPrefix(first, ": watching items") {
		t.Fatalf("first line = %q, err = %v", first, err)
	}

	if _, err := p.Insert(context.Background(), "items", map[string]any{"name": "Pen"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, err := p.Update(context.Background(), "items/1", map[string]any{"qty": 3}, core.Filter{}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	var changes []notify.Change
	for len(changes) < 2 {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: ")
		if !ok {
			continue
		}
		var c notify.Change
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			t.Fatalf("decode change: %v", err)
		}
		changes = append(changes, c)
	}

	if changes[0].Kind != notify.KindInsert || changes[0].Address != "items" {
		t.Errorf("first change = %+v", changes[0])
	}
	if changes[1].Kind != notify.KindUpdate || changes[1].Address != "items/1" {
		t.Errorf("second change = %+v", changes[1])
	}
}

func TestServer_WatchUnmatched(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/watch/ghosts", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServer_RateLimit(t *testing.T) {
	s, _ := newTestServer(t)

	cfg := &config.Config{Rate: config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}}
	limited := NewServer(s.provider, s.hub, cfg)
	defer limited.Shutdown(context.Background())

	var codes []int
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, limited, http.MethodGet, "/healthz", "").Code)
	}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("codes = %v, want %v", codes, want)
	}
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"", ""},
		{"sort=name", "name ASC"},
		{"sort=name,qty&dir=desc", "name DESC, qty ASC"},
		{"sort=name,,qty&dir=asc,x,DESC", "name ASC, qty DESC"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		if got := parseOrder(r); got != tt.want {
			t.Errorf("parseOrder(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestParseFilters(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?filter[qty]=gte:3&filter[name]=Pen&filter[note]=at:noon&filter[]=x&other=1", nil)
	got := parseFilters(r)
	want := []core.ColumnFilter{
		{Column: "name", Operator: core.OpEquals, Value: "Pen"},
		{Column: "note", Operator: core.OpEquals, Value: "at:noon"},
		{Column: "qty", Operator: core.OpGreaterEq, Value: "3"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseFilters() = %+v, want %+v", got, want)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&address.UnmatchedAddressError{Path: "x"}, http.StatusNotFound},
		{&schema.UnknownTableError{Name: "x"}, http.StatusNotFound},
		{&core.InvalidProjectionError{Table: "t"}, http.StatusBadRequest},
		{&core.UnsupportedScopeError{Op: "insert", Path: "t/1"}, http.StatusBadRequest},
		{storage.ErrNoValues, http.StatusBadRequest},
		{errBadBody, http.StatusBadRequest},
		{core.ErrNotOpen, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestServer_Import(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/import/items", "name,qty\nPen,5\nInk,lots\n")
	if rec.Code != http.StatusCreated {
		t.Fatalf("import status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body)
	}
	res := decode[core.ImportResult](t, rec)
	if res.Inserted != 1 || len(res.Failed) != 1 || res.Failed[0].Line != 3 {
		t.Errorf("import result = %+v, want 1 inserted and line 3 failed", res)
	}

	var body bytes.Buffer
	mpw := multipart.NewWriter(&body)
	fw, _ := mpw.CreateFormFile("file", "items.csv")
	fw.Write([]byte("Name\nPad\n"))
	mpw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import/items", &body)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("multipart import status = %d (body %s)", rec.Code, rec.Body)
	}

	rec = do(t, s, http.MethodPost, "/api/import/items", "color\nred\n")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad header status = %d, want 400", rec.Code)
	}
	rec = do(t, s, http.MethodPost, "/api/import/items", "")
	if got := decode[ErrorResponse](t, rec).Code; got != "CSV001" {
		t.Errorf("empty import code = %q, want CSV001", got)
	}
}

func TestServer_ShutdownStopsStart(t *testing.T) {
	s, _ := newTestServer(t)

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Start() error = %v, want http.ErrServerClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Shutdown")
	}
}
