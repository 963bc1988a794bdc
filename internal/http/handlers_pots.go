package http

import (
	"context"
	"net/http"

	"finance/internal/core"
	"finance/internal/services"
)

type potRequest struct {
	Name   string      `json:"name"`
	Target *core.Money `json:"target"`
	Theme  string      `json:"theme"`
}

func (req potRequest) input() (services.PotInput, error) {
	if err := required("name", req.Name, "theme", req.Theme); err != nil {
		return services.PotInput{}, err
	}
	if req.Target == nil {
		return services.PotInput{}, badRequest("missing required field %q", "target")
	}
	return services.PotInput{
		Name:   sanitizeInput(req.Name),
		Target: *req.Target,
		Theme:  core.Theme(req.Theme),
	}, nil
}

type amountRequest struct {
	Amount *core.Money `json:"amount"`
}

type potsResponse struct {
	Pots []core.Pot `json:"pots"`
}

func (s *Server) handleListPots(w http.ResponseWriter, r *http.Request) {
	pots, err := s.svc.Pots.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if pots == nil {
		pots = []core.Pot{}
	}
	NewJSONResponse().JSON(potsResponse{Pots: pots}).Write(w)
}

func (s *Server) handleGetPot(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Pots.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(p).Write(w)
}

func (s *Server) handleCreatePot(w http.ResponseWriter, r *http.Request) {
	var req potRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.svc.Pots.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	NewJSONResponse().Status(http.StatusCreated).JSON(p).Write(w)
}

func (s *Server) handleUpdatePot(w http.ResponseWriter, r *http.Request) {
	var req potRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.svc.Pots.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	NewJSONResponse().JSON(p).Write(w)
}

func (s *Server) handleDeletePot(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Pots.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	NoContent().Write(w)
}

func (s *Server) handleAddMoney(w http.ResponseWriter, r *http.Request) {
	s.movePotMoney(w, r, s.svc.Pots.AddMoney)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.movePotMoney(w, r, s.svc.Pots.Withdraw)
}

func (s *Server) movePotMoney(w http.ResponseWriter, r *http.Request, move func(ctx context.Context, id string, amount core.Money) (core.Pot, error)) {
	var req amountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Amount == nil {
		s.writeError(w, r, badRequest("missing required field %q", "amount"))
		return
	}

	p, err := move(r.Context(), r.PathValue("id"), *req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidate()
	NewJSONResponse().JSON(p).Write(w)
}
