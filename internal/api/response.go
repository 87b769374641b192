package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/erazemk/fieldstock/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case model.IsDuplicate(err),
		errors.Is(err, model.ErrAlreadyAssigned),
		errors.Is(err, model.ErrNotEmpty),
		errors.Is(err, model.ErrCodeInUse),
		errors.Is(err, model.ErrBatchExhausted):
		return http.StatusConflict
	case errors.Is(err, model.ErrInsufficientStock),
		errors.Is(err, model.ErrInsufficientHolding),
		errors.Is(err, model.ErrNotHeldByCrew),
		errors.Is(err, model.ErrNotAssigned),
		errors.Is(err, model.ErrNoCrewAssigned):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, model.ErrInvalidQuantity),
		errors.Is(err, model.ErrReasonRequired),
		errors.Is(err, model.ErrInvalidItemType):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError reports a service error. Domain errors carry their message and
// kind; anything else is logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(op+" failed", zap.Error(err))
		jsonError(w, status, "internal error")
		return
	}
	jsonResponse(w, status, map[string]string{"error": err.Error(), "kind": model.KindOf(err)})
}

// pathID parses a numeric path parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// queryID parses an optional numeric query parameter. Missing values are 0.
func queryID(r *http.Request, name string) (int64, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	return id, err == nil && id >= 0
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
