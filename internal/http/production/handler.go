package production

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/bananas/internal/http/respond"
	"github.com/MrJamesThe3rd/bananas/internal/production"
)

type Handler struct {
	svc *production.Service
}

func NewHandler(svc *production.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type expenditureRequest struct {
	ID     *int64 `json:"id,omitempty"`
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

type createRequest struct {
	Date         *apiDate             `json:"date"`
	Purchased    int64                `json:"purchased"`
	Produced     int64                `json:"produced"`
	Sales        int64                `json:"sales"`
	Expenditures []expenditureRequest `json:"expenditures"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
		return
	}

	params := production.CreateParams{
		Purchased: req.Purchased,
		Produced:  req.Produced,
		Sales:     req.Sales,
	}

	if req.Date != nil {
		params.Date = time.Time(*req.Date)
	}

	for _, e := range req.Expenditures {
		params.Expenditures = append(params.Expenditures, production.NewExpenditure{
			Name:   e.Name,
			Amount: e.Amount,
		})
	}

	rec, err := h.svc.Create(r.Context(), params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(rec), "Production data created successfully")
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
		return
	}

	page, err := h.svc.List(r.Context(), q)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toListResponse(page), "")
}

func parseQuery(v url.Values) (production.Query, error) {
	q := production.Query{
		SortBy:    production.SortField(v.Get("sortBy")),
		SortOrder: production.SortOrder(v.Get("sortOrder")),
	}

	for _, d := range []struct {
		key  string
		dest **time.Time
	}{
		{"startDate", &q.StartDate},
		{"endDate", &q.EndDate},
	} {
		s := v.Get(d.key)
		if s == "" {
			continue
		}

		t, err := production.ParseDate(s)
		if err != nil {
			return q, fmt.Errorf("%s: %w", d.key, err)
		}

		*d.dest = &t
	}

	for _, n := range []struct {
		key  string
		dest *int
	}{
		{"page", &q.Page},
		{"pageSize", &q.PageSize},
	} {
		s := v.Get(n.key)
		if s == "" {
			continue
		}

		i, err := strconv.Atoi(s)
		if err != nil {
			return q, fmt.Errorf("%s must be an integer", n.key)
		}

		// Zero means "use the default" to the service, so reject it here.
		if i < 1 {
			return q, fmt.Errorf("%s must be at least 1", n.key)
		}

		*n.dest = i
	}

	for _, f := range []struct {
		key  string
		dest **int64
	}{
		{"purchased", &q.Purchased},
		{"produced", &q.Produced},
		{"stock", &q.Stock},
		{"sales", &q.Sales},
		{"remains", &q.Remains},
	} {
		s := v.Get(f.key)
		if s == "" {
			continue
		}

		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return q, fmt.Errorf("%s must be an integer", f.key)
		}

		*f.dest = &i
	}

	return q, nil
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id")
	}

	return id, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
		return
	}

	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(rec), "")
}

type updateRequest struct {
	Date         *apiDate              `json:"date,omitempty"`
	Purchased    *int64                `json:"purchased,omitempty"`
	Produced     *int64                `json:"produced,omitempty"`
	Sales        *int64                `json:"sales,omitempty"`
	Expenditures *[]expenditureRequest `json:"expenditures,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
		return
	}

	params := production.UpdateParams{
		Purchased: req.Purchased,
		Produced:  req.Produced,
		Sales:     req.Sales,
	}

	if req.Date != nil {
		params.Date = new(time.Time(*req.Date))
	}

	// Absent and empty expenditures mean different things.
	if req.Expenditures != nil {
		exps := make([]production.ExpenditureInput, 0, len(*req.Expenditures))
		for _, e := range *req.Expenditures {
			exps = append(exps, production.ExpenditureInput{
				ID:     e.ID,
				Name:   e.Name,
				Amount: e.Amount,
			})
		}

		params.Expenditures = &exps
	}

	rec, err := h.svc.Update(r.Context(), id, params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(rec), "Production data updated successfully")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, nil, "Production data deleted successfully")
}
