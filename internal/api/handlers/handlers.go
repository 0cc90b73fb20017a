// Package handlers implements the JSON HTTP API. Every handler except the
// auth and health endpoints expects middleware.Auth to have run.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/lifeledger/internal/api/middleware"
	"github.com/dvloznov/lifeledger/internal/auth"
	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/finance"
	"github.com/dvloznov/lifeledger/internal/jobs"
	"github.com/dvloznov/lifeledger/internal/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// statusOf maps service errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, finance.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError answers with the status matching err. Client errors
// carry the error text; server errors are logged and answered with msg.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := statusOf(err)
	switch {
	case status == http.StatusNotFound:
		middleware.WriteError(w, status, "Not found")
	case status < http.StatusInternalServerError:
		middleware.WriteError(w, status, clientMessage(err))
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, status, msg)
	}
}

// clientMessage strips operation prefixes from errors users should read.
func clientMessage(err error) string {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, auth.ErrEmailInUse):
		return auth.ErrEmailInUse.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return auth.ErrInvalidCredentials.Error()
	case errors.Is(err, auth.ErrInvalidToken):
		return auth.ErrInvalidToken.Error()
	case errors.Is(err, auth.ErrWeakPassword):
		return auth.ErrWeakPassword.Error()
	case errors.Is(err, finance.ErrInsufficientFunds):
		return finance.ErrInsufficientFunds.Error()
	}
	return err.Error()
}

// decode reads a JSON body into v, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func userID(r *http.Request) string {
	return auth.UserID(r.Context())
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (civil.Date, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, domain.Invalid(name, "must be YYYY-MM-DD")
	}
	return d, nil
}

// queryMonth parses an optional YYYY-MM query parameter into the first day
// of that month.
func queryMonth(r *http.Request, name string) (*civil.Date, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(s + "-01")
	if err != nil {
		return nil, domain.Invalid(name, "must be YYYY-MM")
	}
	return &d, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, domain.Invalid(name, fmt.Sprintf("must be a non-negative integer, got %q", s))
	}
	return n, nil
}

// list wraps a collection response, never emitting null for empty results.
func list[T any](items []T) map[string]any {
	if items == nil {
		items = []T{}
	}
	return map[string]any{"items": items, "count": len(items)}
}
