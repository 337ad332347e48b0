package production

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/bananas/internal/production"
)

// apiDate is a calendar day on the wire. It is written as YYYY-MM-DD and
// read from either that form or an RFC 3339 timestamp.
type apiDate time.Time

func (d apiDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d).Format(time.DateOnly))
}

func (d *apiDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}

	t, err := production.ParseDate(s)
	if err != nil {
		return err
	}

	*d = apiDate(t)

	return nil
}

type expenditureResponse struct {
	ID           int64  `json:"id"`
	ProductionID int64  `json:"productionId"`
	Name         string `json:"name"`
	Amount       int64  `json:"amount"`
}

type recordResponse struct {
	ID           int64                 `json:"id"`
	Date         apiDate               `json:"date"`
	Purchased    int64                 `json:"purchased"`
	Produced     int64                 `json:"produced"`
	Stock        int64                 `json:"stock"`
	Sales        int64                 `json:"sales"`
	Remains      int64                 `json:"remains"`
	Expenditures []expenditureResponse `json:"expenditures"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

type paginationResponse struct {
	Total       int `json:"total"`
	PageCount   int `json:"pageCount"`
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	From        int `json:"from"`
	To          int `json:"to"`
}

type listResponse struct {
	Items      []recordResponse   `json:"items"`
	Pagination paginationResponse `json:"pagination"`
}

func toResponse(rec *production.Record) recordResponse {
	resp := recordResponse{
		ID:           rec.ID,
		Date:         apiDate(rec.Date),
		Purchased:    rec.Purchased,
		Produced:     rec.Produced,
		Stock:        rec.Stock,
		Sales:        rec.Sales,
		Remains:      rec.Remains,
		Expenditures: make([]expenditureResponse, len(rec.Expenditures)),
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}

	for i, e := range rec.Expenditures {
		resp.Expenditures[i] = expenditureResponse{
			ID:           e.ID,
			ProductionID: e.ProductionID,
			Name:         e.Name,
			Amount:       e.Amount,
		}
	}

	return resp
}

func toListResponse(page *production.Page) listResponse {
	resp := listResponse{
		Items: make([]recordResponse, len(page.Items)),
		Pagination: paginationResponse{
			Total:       page.Pagination.Total,
			PageCount:   page.Pagination.PageCount,
			CurrentPage: page.Pagination.CurrentPage,
			PageSize:    page.Pagination.PageSize,
			From:        page.Pagination.From,
			To:          page.Pagination.To,
		},
	}

	for i, rec := range page.Items {
		resp.Items[i] = toResponse(rec)
	}

	return resp
}
