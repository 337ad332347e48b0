package importcsv

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bananas/internal/http/respond"
	"github.com/MrJamesThe3rd/bananas/internal/importer"
)

type Handler struct {
	importSvc *importer.Service
	maxBytes  int64
}

func NewHandler(importSvc *importer.Service, maxBytes int64) *Handler {
	return &Handler{
		importSvc: importSvc,
		maxBytes:  maxBytes,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
}

type importedRecord struct {
	ID      int64  `json:"id"`
	Date    string `json:"date"`
	Stock   int64  `json:"stock"`
	Remains int64  `json:"remains"`
}

type importResponse struct {
	BatchID   uuid.UUID        `json:"batchId"`
	Imported  int              `json:"imported"`
	Records   []importedRecord `json:"records"`
	Conflicts []string         `json:"conflicts"`
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.CodeValidation, "failed to parse form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.CodeValidation, "file field is required")
		return
	}
	defer file.Close()

	result, err := h.importSvc.Import(r.Context(), file)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := importResponse{
		BatchID:   result.BatchID,
		Imported:  len(result.Imported),
		Records:   make([]importedRecord, 0, len(result.Imported)),
		Conflicts: make([]string, 0, len(result.Conflicts)),
	}

	for _, rec := range result.Imported {
		resp.Records = append(resp.Records, importedRecord{
			ID:      rec.ID,
			Date:    rec.Date.Format(time.DateOnly),
			Stock:   rec.Stock,
			Remains: rec.Remains,
		})
	}

	for _, d := range result.Conflicts {
		resp.Conflicts = append(resp.Conflicts, d.Format(time.DateOnly))
	}

	respond.JSON(w, http.StatusCreated, resp,
		fmt.Sprintf("Imported %d production records, skipped %d existing dates", resp.Imported, len(resp.Conflicts)))
}
