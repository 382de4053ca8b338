package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/auth"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

const testSpreadsheet = "sheet-id"

// fakeSheets implements the slice of the Sheets v4 API the client uses.
type fakeSheets struct {
	*httptest.Server

	mu         sync.Mutex
	sheets     map[string][][]string
	calls      []string
	writes     int
	failWrite  int // 1-based write request to fail, 0 for none
	valueInput []string
}

func newFakeSheets(t *testing.T) *fakeSheets {
	t.Helper()
	f := &fakeSheets{sheets: map[string][][]string{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func unquote(name string) string {
	return strings.ReplaceAll(strings.TrimSuffix(strings.TrimPrefix(name, "'"), "'"), "''", "'")
}

func (f *fakeSheets) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer sheet-token" {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	base := "/v4/spreadsheets/" + testSpreadsheet
	path := r.URL.Path
	f.calls = append(f.calls, r.Method+" "+strings.TrimPrefix(path, base))

	switch {
	case r.Method == http.MethodGet && path == base:
		sheets := []map[string]any{}
		for title := range f.sheets {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})

	case r.Method == http.MethodPost && path == base+":batchUpdate":
		var req struct {
			Requests []struct {
				AddSheet struct {
					Properties struct {
						Title string `json:"title"`
					} `json:"properties"`
				} `json:"addSheet"`
			} `json:"requests"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			f.sheets[rq.AddSheet.Properties.Title] = nil
		}
		_, _ = w.Write([]byte(`{}`))

	case r.Method == http.MethodPost && path == base+"/values:batchUpdate":
		f.writes++
		if f.writes == f.failWrite {
			http.Error(w, "backend error", http.StatusInternalServerError)
			return
		}
		var req batchUpdateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.valueInput = append(f.valueInput, req.ValueInputOption)
		for _, d := range req.Data {
			name, cells, _ := strings.Cut(d.Range, "!")
			var start int
			_, _ = fmt.Sscanf(cells, "A%d", &start)
			rows := f.sheets[unquote(name)]
			for len(rows) < start-1+len(d.Values) {
				rows = append(rows, nil)
			}
			copy(rows[start-1:], d.Values)
			f.sheets[unquote(name)] = rows
		}
		_, _ = w.Write([]byte(`{}`))

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		name := strings.TrimSuffix(strings.TrimPrefix(path, base+"/values/"), ":clear")
		f.sheets[unquote(name)] = nil
		_, _ = w.Write([]byte(`{}`))

	case r.Method == http.MethodGet && strings.HasPrefix(path, base+"/values/"):
		name, _, _ := strings.Cut(strings.TrimPrefix(path, base+"/values/"), "!")
		_ = json.NewEncoder(w).Encode(valuesResponse{Values: f.sheets[unquote(name)]})

	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func (f *fakeSheets) rows(name string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sheets[name]
}

func (f *fakeSheets) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSheets) set(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
}

func newTestSheetsClient(f *fakeSheets, name string, opts ...Option) *Client {
	opts = append([]Option{WithBaseURL(f.URL + "/v4/spreadsheets")}, opts...)
	return New(auth.Static("sheet-token"), testSpreadsheet, name, opts...)
}

func TestClientOverwriteCreatesSheet(t *testing.T) {
	f := newFakeSheets(t)
	c := newTestSheetsClient(f, "list")

	rows := [][]string{{"ID", "삭제"}, {"1", ""}, {"2", ""}}
	require.NoError(t, c.Overwrite(context.Background(), rows))

	assert.Equal(t, rows, f.rows("list"))
	assert.Equal(t, []string{
		"GET ",
		"POST :batchUpdate",
		"POST /values/'list':clear",
		"POST /values:batchUpdate",
	}, f.callLog())
	f.set(func() { assert.Equal(t, []string{"RAW"}, f.valueInput) })

	got, err := c.Values(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestClientOverwriteReplacesContent(t *testing.T) {
	f := newFakeSheets(t)
	f.set(func() { f.sheets["list"] = [][]string{{"old"}, {"old"}, {"old"}, {"old"}} })
	c := newTestSheetsClient(f, "list")

	rows := [][]string{{"ID"}, {"1"}}
	require.NoError(t, c.Overwrite(context.Background(), rows))
	assert.Equal(t, rows, f.rows("list"))
	assert.NotContains(t, f.callLog(), "POST :batchUpdate")
}

func TestClientOverwriteBatches(t *testing.T) {
	f := newFakeSheets(t)
	c := newTestSheetsClient(f, "list", WithBatchSize(2))

	rows := [][]string{{"ID"}, {"1"}, {"2"}, {"3"}, {"4"}}
	require.NoError(t, c.Overwrite(context.Background(), rows))
	assert.Equal(t, rows, f.rows("list"))
	f.set(func() { assert.Equal(t, 3, f.writes) })
}

func TestClientOverwritePartialFailure(t *testing.T) {
	f := newFakeSheets(t)
	f.set(func() { f.failWrite = 2 })
	c := newTestSheetsClient(f, "list", WithBatchSize(2))

	rows := [][]string{{"ID"}, {"1"}, {"2"}, {"3"}, {"4"}}
	err := c.Overwrite(context.Background(), rows)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, rows[:2], f.rows("list"), "rows written before the failure stay")
}

func TestClientValuesMissingSheet(t *testing.T) {
	f := newFakeSheets(t)
	c := newTestSheetsClient(f, "list")

	_, err := c.Values(context.Background())
	assert.True(t, errors.Is(err, ErrSheetNotFound))
}

func TestClientQuotesSheetName(t *testing.T) {
	f := newFakeSheets(t)
	c := newTestSheetsClient(f, "Bob's list")

	require.NoError(t, c.Overwrite(context.Background(), [][]string{{"ID"}}))
	assert.Equal(t, [][]string{{"ID"}}, f.rows("Bob's list"))
}

func TestClientAuthFailure(t *testing.T) {
	f := newFakeSheets(t)
	c := New(auth.Static("wrong"), testSpreadsheet, "list", WithBaseURL(f.URL+"/v4/spreadsheets"))

	_, err := c.Values(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestOpenSelectsBackend(t *testing.T) {
	_, isTSV := Open("contacts.tsv", "", "list", nil).(*TSVTable)
	assert.True(t, isTSV)

	_, isClient := Open("", testSpreadsheet, "list", auth.Static("x")).(*Client)
	assert.True(t, isClient)
}
