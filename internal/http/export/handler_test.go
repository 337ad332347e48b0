package export_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/bananas/internal/export"
	exportHandler "github.com/MrJamesThe3rd/bananas/internal/http/export"
	"github.com/MrJamesThe3rd/bananas/internal/production"
)

type rangeLedger struct {
	start, end *time.Time
}

func (l *rangeLedger) Range(_ context.Context, start, end *time.Time) ([]*production.Record, error) {
	l.start, l.end = start, end

	return []*production.Record{
		{ID: 1, Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Produced: 10, Stock: 10, Sales: 4, Remains: 6},
	}, nil
}

func serve(t *testing.T, ledger *rangeLedger, target string) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	exportHandler.NewHandler(export.NewService(ledger)).Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	return rec
}

func TestHandler_Download(t *testing.T) {
	ledger := &rangeLedger{}

	rec := serve(t, ledger, "/?startDate=2024-05-01&endDate=2024-05-31")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2024-05-01,0,10,10,4,6,,0", lines[1])

	require.NotNil(t, ledger.start)
	require.NotNil(t, ledger.end)
	assert.Equal(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), *ledger.end)
}

func TestHandler_Download_BadDate(t *testing.T) {
	rec := serve(t, &rangeLedger{}, "/?startDate=May")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Summary(t *testing.T) {
	ledger := &rangeLedger{}

	rec := serve(t, ledger, "/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Records int    `json:"records"`
			Summary string `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	assert.True(t, env.Success)
	assert.Equal(t, 1, env.Data.Records)
	assert.Contains(t, env.Data.Summary, "* 2024-05-01 | produced 10")
	assert.Nil(t, ledger.start)
	assert.Nil(t, ledger.end)
}
