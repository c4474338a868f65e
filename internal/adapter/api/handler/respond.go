package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/adapter/api/httpx"
	"github.com/V4T54L/leadhub/internal/domain"
)

// writeUseCaseError translates a use case failure into the HTTP error taxonomy.
// fallback is the message sent for unexpected failures.
func writeUseCaseError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: "Invalid request.", Details: verr.Fields})
	case errors.Is(err, domain.ErrNoTenant):
		httpx.WriteError(w, http.StatusForbidden, "Your profile is not associated with an agency.")
	case errors.Is(err, domain.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "You do not have permission to perform this action.")
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, domain.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, "Conflicting update, please retry.")
	case errors.Is(err, domain.ErrUnavailable):
		logger.Warn(fallback, "error", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, fallback)
	default:
		logger.Error(fallback, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, fallback)
	}
}

// decodeJSON reads a JSON body of at most maxBytes into dst.
// It returns the status and message to send when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) (int, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return http.StatusRequestEntityTooLarge, "Request body too large.", false
		}
		return http.StatusBadRequest, "Invalid JSON body.", false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return http.StatusBadRequest, "Invalid JSON body.", false
	}
	return 0, "", true
}

// agencyParam reads the optional ?agency_id= query parameter.
func agencyParam(r *http.Request) (uuid.UUID, error) {
	raw := r.URL.Query().Get("agency_id")
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}

func intParam(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
