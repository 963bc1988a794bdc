package http

import (
	"net/http"

	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/services"
)

type budgetRequest struct {
	Category string      `json:"category"`
	Maximum  *core.Money `json:"maximum"`
	Theme    string      `json:"theme"`
}

func (req budgetRequest) input() (services.BudgetInput, error) {
	if err := required("category", req.Category, "theme", req.Theme); err != nil {
		return services.BudgetInput{}, err
	}
	if req.Maximum == nil {
		return services.BudgetInput{}, badRequest("missing required field %q", "maximum")
	}
	category, err := core.ParseCategory(req.Category)
	if err != nil {
		return services.BudgetInput{}, err
	}
	return services.BudgetInput{
		Category: category,
		Maximum:  *req.Maximum,
		Theme:    core.Theme(req.Theme),
	}, nil
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	if view, ok := s.budgetsCache.Get(budgetsCacheKey); ok {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Budgets cache hit")
		NewJSONResponse().JSON(view).Write(w)
		return
	}

	view, err := s.svc.Budgets.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.budgetsCache.Set(budgetsCacheKey, view)
	NewJSONResponse().JSON(view).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	category, ok := pathCategory(r)
	if !ok {
		NotFoundError("budget not found").Write(w)
		return
	}
	b, err := s.svc.Budgets.Get(r.Context(), category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(b).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	b, err := s.svc.Budgets.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	NewJSONResponse().Status(http.StatusCreated).JSON(b).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	category, ok := pathCategory(r)
	if !ok {
		NotFoundError("budget not found").Write(w)
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	b, err := s.svc.Budgets.Update(r.Context(), category, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	NewJSONResponse().JSON(b).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	category, ok := pathCategory(r)
	if !ok {
		NotFoundError("budget not found").Write(w)
		return
	}
	if err := s.svc.Budgets.Delete(r.Context(), category); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	NoContent().Write(w)
}
