package importcsv_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/bananas/internal/http/importcsv"
	"github.com/MrJamesThe3rd/bananas/internal/importer"
	"github.com/MrJamesThe3rd/bananas/internal/production"
)

type stubLedger struct{}

func (stubLedger) CreateBatch(_ context.Context, params []production.CreateParams) (*production.Batch, error) {
	var batch production.Batch

	for _, p := range params {
		if p.Date.Day() == 2 {
			batch.Conflicts = append(batch.Conflicts, p.Date)
			continue
		}

		batch.Created = append(batch.Created, &production.Record{ID: 11, Date: p.Date, Stock: p.Produced, Remains: p.Produced - p.Sales})
	}

	return &batch, nil
}

func upload(t *testing.T, field, content string, maxBytes int64) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "ledger.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	r := chi.NewRouter()
	importcsv.NewHandler(importer.NewService(stubLedger{}), maxBytes).Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	return rec, env
}

func TestHandler_Import(t *testing.T) {
	rec, env := upload(t, "file", "date;purchased;produced;sales\n2024-01-01;0;50;20\n2024-01-02;0;10;0\n", 1<<20)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, env["success"])

	data := env["data"].(map[string]any)
	assert.EqualValues(t, 1, data["imported"])
	assert.Equal(t, []any{"2024-01-02"}, data["conflicts"])
	assert.NotEmpty(t, data["batchId"])
}

func TestHandler_Import_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		content  string
		maxBytes int64
	}{
		{name: "MissingFile", field: "upload", content: "date;purchased;produced;sales\n", maxBytes: 1 << 20},
		{name: "UnknownLayout", field: "file", content: "a;b;c\n1;2;3\n", maxBytes: 1 << 20},
		{name: "TooLarge", field: "file", content: string(bytes.Repeat([]byte("x"), 4096)), maxBytes: 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := upload(t, tt.field, tt.content, tt.maxBytes)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, env["success"])
		})
	}
}
