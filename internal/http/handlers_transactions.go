package http

import (
	"net/http"

	"finance/internal/core"
	"finance/internal/listing"
)

type transactionsResponse struct {
	Transactions []core.Transaction `json:"transactions"`
	Total        int                `json:"total"`
	Page         int                `json:"page"`
	PageSize     int                `json:"pageSize"`
	TotalPages   int                `json:"totalPages"`
}

type billsResponse struct {
	Bills      []core.Bill      `json:"bills"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
	Summary    core.BillSummary `json:"summary"`
}

type importResponse struct {
	Inserted int `json:"inserted"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	opts := ParseListOptions(r.URL.Query())
	page, err := s.svc.Transactions.List(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	items := page.Items
	if items == nil {
		items = []core.Transaction{}
	}
	NewJSONResponse().JSON(transactionsResponse{
		Transactions: items,
		Total:        page.Total,
		Page:         opts.Page,
		PageSize:     listing.PageSize,
		TotalPages:   page.TotalPages(),
	}).Write(w)
}

// handleImportTransactions bulk inserts a JSON array; either every record is
// stored or none is.
func (s *Server) handleImportTransactions(w http.ResponseWriter, r *http.Request) {
	var txs []core.Transaction
	if err := decodeJSON(w, r, &txs); err != nil {
		s.writeError(w, r, err)
		return
	}

	inserted, err := s.svc.Transactions.Import(r.Context(), txs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	NewJSONResponse().Status(http.StatusCreated).JSON(importResponse{Inserted: len(inserted)}).Write(w)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	opts := ParseListOptions(r.URL.Query())
	view, err := s.svc.Bills.List(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	items := view.Page.Items
	if items == nil {
		items = []core.Bill{}
	}
	NewJSONResponse().JSON(billsResponse{
		Bills:      items,
		Total:      view.Page.Total,
		Page:       opts.Page,
		PageSize:   listing.PageSize,
		TotalPages: view.Page.TotalPages(),
		Summary:    view.Summary,
	}).Write(w)
}
