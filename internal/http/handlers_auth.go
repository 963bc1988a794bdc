package http

import (
	"errors"
	"net/http"

	"finance/internal/auth"
	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/services"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User core.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := required("name", req.Name, "email", req.Email, "password", req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.svc.Auth.Register(r.Context(), services.RegisterInput{
		Name:     sanitizeInput(req.Name),
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.logAuthFailure(r, log.OpRegister, req.Email, err)
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(userResponse{User: u}).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := required("email", req.Email, "password", req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}

	session, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.logAuthFailure(r, log.OpLogin, req.Email, err)
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Cookie(auth.SessionCookie(session.Token, session.ExpiresAt, s.cookieSecure)).
		JSON(session).
		Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	NoContent().Cookie(auth.ClearedCookie(s.cookieSecure)).Write(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		UnauthorizedError("unauthorized").Write(w)
		return
	}
	u, err := s.svc.Auth.User(r.Context(), claims.Subject)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(userResponse{User: u}).Write(w)
}

// logAuthFailure records rejected credentials. Unexpected errors are left to writeError.
func (s *Server) logAuthFailure(r *http.Request, op, email string, err error) {
	var (
		errType string
		limited *services.RateLimitError
	)
	switch {
	case errors.As(err, &limited):
		errType = log.ErrorTypeRateLimit
	case errors.Is(err, services.ErrUserNotFound):
		errType = log.ErrorTypeNotFound
	case errors.Is(err, services.ErrInvalidCredentials):
		errType = log.ErrorTypeAuth
	case errors.Is(err, services.ErrEmailTaken):
		errType = log.ErrorTypeConflict
	case services.IsValidation(err):
		errType = log.ErrorTypeValidation
	default:
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogAuthFailure(r.Context(), op, core.NormalizeEmail(email), s.securityDetector.ExtractClientIP(r), errType)
}
