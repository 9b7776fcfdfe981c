package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlog/internal/services"
	"spendlog/internal/storage"
)

type envelope struct {
	Result *struct {
		Data json.RawMessage `json:"data"`
	} `json:"result"`
	Error *Error `json:"error"`
}

type testClient struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "rpc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	router := NewRouter(nil)
	Register(router, services.NewCategoryService(repo, nil, nil), services.NewExpenseService(repo, nil, nil))

	mux := http.NewServeMux()
	mux.Handle("/rpc/{procedure}", router)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testClient{t: t, srv: srv}
}

func (c *testClient) do(method, proc, input string) (int, envelope) {
	c.t.Helper()
	target := c.srv.URL + "/rpc/" + proc
	var body *strings.Reader
	if method == http.MethodGet {
		if input != "" {
			target += "?input=" + url.QueryEscape(input)
		}
		body = strings.NewReader("")
	} else {
		body = strings.NewReader(input)
	}
	req, err := http.NewRequest(method, target, body)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (c *testClient) ok(method, proc, input string, out any) {
	c.t.Helper()
	status, env := c.do(method, proc, input)
	require.Equal(c.t, http.StatusOK, status, "error: %+v", env.Error)
	require.NotNil(c.t, env.Result)
	if out != nil {
		require.NoError(c.t, json.Unmarshal(env.Result.Data, out))
	}
}

type wireCategory struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type wireExpense struct {
	ID          int64        `json:"id"`
	Amount      json.Number  `json:"amount"`
	Description string       `json:"description"`
	Date        string       `json:"date"`
	CategoryID  int64        `json:"category_id"`
	CreatedAt   string       `json:"created_at"`
	Category    wireCategory `json:"category"`
}

func TestHealthcheck(t *testing.T) {
	c := newTestClient(t)
	var h struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	c.ok(http.MethodGet, ProcHealthcheck, "", &h)
	assert.Equal(t, "ok", h.Status)
	assert.NotEmpty(t, h.Timestamp)
}

func TestExpenseFlowOverWire(t *testing.T) {
	c := newTestClient(t)

	var food wireCategory
	c.ok(http.MethodPost, ProcCreateCategory, `{"name":"Food"}`, &food)
	assert.Positive(t, food.ID)
	assert.NotEmpty(t, food.CreatedAt)

	var created wireExpense
	c.ok(http.MethodPost, ProcCreateExpense,
		`{"amount":25.5,"description":"Lunch","date":"2024-01-15","category_id":`+jsonInt(food.ID)+`}`, &created)
	assert.Equal(t, "25.50", created.Amount.String())
	assert.Equal(t, "2024-01-15", created.Date)

	var list []wireExpense
	c.ok(http.MethodGet, ProcGetExpenses, "", &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Food", list[0].Category.Name)
	assert.Equal(t, "25.50", list[0].Amount.String())

	c.ok(http.MethodGet, ProcGetExpenses, `{"start_date":"2024-01-16"}`, &list)
	assert.Empty(t, list)
	c.ok(http.MethodPost, ProcGetExpenses, `{"category_id":`+jsonInt(food.ID)+`,"end_date":"2024-01-15"}`, &list)
	assert.Len(t, list, 1)

	var updated wireExpense
	c.ok(http.MethodPost, ProcUpdateExpense, `{"id":`+jsonInt(created.ID)+`,"description":"Brunch"}`, &updated)
	assert.Equal(t, "Brunch", updated.Description)
	assert.Equal(t, "25.50", updated.Amount.String())
	assert.Equal(t, "2024-01-15", updated.Date)

	status, env := c.do(http.MethodPost, ProcDeleteCategory, jsonInt(food.ID))
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeConflict, env.Error.Code)
	assert.Equal(t, ProcDeleteCategory, env.Error.Procedure)

	status, env = c.do(http.MethodPost, ProcDeleteExpense, jsonInt(created.ID))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "null", string(env.Result.Data))

	c.ok(http.MethodPost, ProcDeleteCategory, jsonInt(food.ID), nil)

	var cats []wireCategory
	c.ok(http.MethodGet, ProcGetCategories, "", &cats)
	assert.Empty(t, cats)
}

func TestErrorMapping(t *testing.T) {
	c := newTestClient(t)

	tests := []struct {
		name   string
		method string
		proc   string
		input  string
		status int
		code   string
		msg    string
	}{
		{"validation", http.MethodPost, ProcCreateCategory, `{"name":""}`, http.StatusBadRequest, CodeBadRequest, "Category name is required"},
		{"non positive amount", http.MethodPost, ProcCreateExpense, `{"amount":0,"description":"x","date":"2024-01-01","category_id":1}`, http.StatusBadRequest, CodeBadRequest, "Amount must be positive"},
		{"bad date", http.MethodPost, ProcCreateExpense, `{"amount":1,"description":"x","date":"nope","category_id":1}`, http.StatusBadRequest, CodeBadRequest, ""},
		{"wrong type", http.MethodPost, ProcCreateCategory, `{"name":5}`, http.StatusBadRequest, CodeBadRequest, ""},
		{"malformed json", http.MethodPost, ProcCreateCategory, `{"name":`, http.StatusBadRequest, CodeParseError, ""},
		{"missing category", http.MethodPost, ProcCreateExpense, `{"amount":1,"description":"x","date":"2024-01-01","category_id":9}`, http.StatusNotFound, CodeNotFound, "Category with id 9 does not exist"},
		{"missing expense", http.MethodPost, ProcDeleteExpense, `999`, http.StatusNotFound, CodeNotFound, "Expense with id 999 not found"},
		{"missing category update", http.MethodPost, ProcUpdateCategory, `{"id":3,"name":"x"}`, http.StatusNotFound, CodeNotFound, "Category with id 3 not found"},
		{"unknown procedure", http.MethodPost, "dropTables", `{}`, http.StatusNotFound, CodeNotFound, ""},
		{"mutation over get", http.MethodGet, ProcCreateCategory, `{"name":"x"}`, http.StatusMethodNotAllowed, CodeMethodNotSupported, ""},
		{"put not allowed", http.MethodPut, ProcGetCategories, ``, http.StatusMethodNotAllowed, CodeMethodNotSupported, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := c.do(tt.method, tt.proc, tt.input)
			assert.Equal(t, tt.status, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, tt.status, env.Error.HTTPStatus)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, env.Error.Message)
			}
		})
	}
}

func TestValidationIssuesListed(t *testing.T) {
	c := newTestClient(t)
	status, env := c.do(http.MethodPost, ProcCreateExpense, `{"amount":-1,"description":"","category_id":0}`)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Len(t, env.Error.Issues, 4)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	r := NewRouter(nil)
	Query(r, "x", func(context.Context, Void) (Void, error) { return Void{}, nil })
	assert.Panics(t, func() {
		Query(r, "x", func(context.Context, Void) (Void, error) { return Void{}, nil })
	})
	kind, ok := r.Kind("x")
	assert.True(t, ok)
	assert.Equal(t, KindQuery, kind)
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
