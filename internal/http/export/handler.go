package export

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/bananas/internal/export"
	"github.com/MrJamesThe3rd/bananas/internal/http/respond"
	"github.com/MrJamesThe3rd/bananas/internal/production"
)

type Handler struct {
	svc *export.Service
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.download)
	r.Get("/summary", h.summary)
}

type summaryResponse struct {
	Records int    `json:"records"`
	Summary string `json:"summary"`
}

// dateRange reads the optional startDate and endDate query parameters.
func dateRange(r *http.Request) (start, end *time.Time, err error) {
	q := r.URL.Query()

	if s := q.Get("startDate"); s != "" {
		t, err := production.ParseDate(s)
		if err != nil {
			return nil, nil, err
		}

		start = &t
	}

	if s := q.Get("endDate"); s != "" {
		t, err := production.ParseDate(s)
		if err != nil {
			return nil, nil, err
		}

		end = &t
	}

	return start, end, nil
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	recs, err := h.svc.Records(r.Context(), start, end)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"production_%s.csv\"", time.Now().Format("20060102")))

	if err := h.svc.WriteCSV(w, recs); err != nil {
		slog.Error("failed to write csv export", "error", err)
	}
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	start, end, err := dateRange(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	recs, err := h.svc.Records(r.Context(), start, end)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, summaryResponse{
		Records: len(recs),
		Summary: h.svc.GenerateSummary(recs),
	}, "")
}
