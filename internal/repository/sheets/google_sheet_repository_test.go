package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestRepository(t *testing.T, handler http.HandlerFunc) *GoogleSheetRepository {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	repo, err := newGoogleSheetRepository(context.Background(), "sheet-1", nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return repo
}

func TestWriteRowAppends(t *testing.T) {
	var body map[string]any
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, ":append"), r.URL.Path)
		assert.Equal(t, "USER_ENTERED", r.URL.Query().Get("valueInputOption"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	require.NoError(t, repo.WriteRow(context.Background(), "Bookings!A:H", []interface{}{"65f1", "Sara"}))
	assert.Equal(t, []any{[]any{"65f1", "Sara"}}, body["values"])
}

func TestReadRange(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"range":"Bookings!A1:H1","values":[["ID","Created At"]]}`))
	})

	rows, err := repo.ReadRange(context.Background(), "Bookings!A1:H1")
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{{"ID", "Created At"}}, rows)
}

func TestRangeRequired(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})

	assert.Error(t, repo.WriteRow(context.Background(), "", nil))
	_, err := repo.ReadRange(context.Background(), "")
	assert.Error(t, err)
}

func TestRepositoryRequiresSpreadsheetID(t *testing.T) {
	_, err := newGoogleSheetRepository(context.Background(), "", nil, option.WithoutAuthentication())
	assert.Error(t, err)
}
