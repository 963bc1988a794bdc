package http

import (
	"errors"
	"net/http"

	"finance/internal/log"
	"finance/internal/middleware/ratelimit"
	"finance/internal/services"
	"finance/internal/store"
)

// writeError maps err onto the API error taxonomy. Anything unclassified is
// logged and answered with a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		badReq  *BadRequest
		limited *services.RateLimitError
	)
	switch {
	case errors.As(err, &badReq):
		BadRequestError(badReq.Message).Write(w)
	case errors.As(err, &limited):
		TooManyRequestsError(ratelimit.RetryAfterSeconds(limited.RetryAfter)).Write(w)
	case errors.Is(err, services.ErrUserNotFound):
		NotFoundError("user not found").Write(w)
	case errors.Is(err, store.ErrNotFound):
		NotFoundError("not found").Write(w)
	case errors.Is(err, services.ErrInvalidCredentials):
		UnauthorizedError("invalid credentials").Write(w)
	case errors.Is(err, services.ErrEmailTaken):
		UnprocessableEntityError("email already registered").Write(w)
	case errors.Is(err, store.ErrConflict):
		UnprocessableEntityError("already exists").Write(w)
	case services.IsValidation(err):
		UnprocessableEntityError(err.Error()).Write(w)
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		InternalServerError().Write(w)
	}
}
