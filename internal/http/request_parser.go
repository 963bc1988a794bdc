// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finance/internal/core"
	"finance/internal/listing"
	"finance/internal/services"
)

// maxBodyBytes caps JSON request bodies. Bulk transaction imports are the largest.
const maxBodyBytes = 1 << 20

// BadRequest marks a request that could not be read: malformed JSON, a body
// that is too large or a missing required field.
type BadRequest struct {
	Message string
}

func (e *BadRequest) Error() string { return e.Message }

func badRequest(format string, args ...any) error {
	return &BadRequest{Message: fmt.Sprintf(format, args...)}
}

// decodeJSON reads exactly one JSON value from the body into dst. Domain
// errors raised while decoding, such as an unparsable amount, are returned
// unchanged so they map to 422 like any other validation failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case services.IsValidation(err):
			return err
		case errors.As(err, &maxErr):
			return badRequest("request body too large")
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		default:
			return badRequest("malformed JSON: %v", err)
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON value")
	}
	return nil
}

// required reports the first empty field among name/value pairs.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return badRequest("missing required field %q", pairs[i])
		}
	}
	return nil
}

// ParseListOptions reads page, search, sort and category from a query string.
// Unparsable pages fall back to the first page; unknown sorts to Latest.
func ParseListOptions(query url.Values) listing.Options {
	page := 1
	if v := strings.TrimSpace(query.Get("page")); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	return listing.Options{
		Category: sanitizeInput(query.Get("category")),
		Search:   sanitizeInput(query.Get("search")),
		Sort:     listing.ParseSort(query.Get("sort")),
		Page:     page,
	}
}

// pathCategory resolves the {category} path segment. Unknown categories
// cannot have a budget, so they report not found.
func pathCategory(r *http.Request) (core.Category, bool) {
	c, err := core.ParseCategory(r.PathValue("category"))
	return c, err == nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
