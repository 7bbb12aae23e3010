package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/attendancetracker/internal/attendance"
)

const connectionErrorMessage = "Connection error: Unable to connect to the database. Please check your internet connection and store configuration."

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if wantsJSON(r) {
		_ = writeJSON(w, status, errorResponse{Error: message})
		return
	}
	http.Error(w, message, status)
}

// storeErrorStatus maps a store error to a response status and a message for the user.
func storeErrorStatus(action string, err error) (int, string) {
	switch {
	case errors.Is(err, attendance.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, connectionErrorMessage
	case errors.Is(err, attendance.ErrStoreOperationFailed):
		message := err.Error()
		var storeErr *attendance.StoreError
		if errors.As(err, &storeErr) && storeErr.Err != nil {
			message = storeErr.Err.Error()
		}
		return http.StatusBadGateway, fmt.Sprintf("Error %s: %s", action, message)
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Error %s", action)
	}
}

func writeStoreError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, action string, err error) {
	status, message := storeErrorStatus(action, err)
	logger.Error(action, "error", err, "request_id", requestIDFromContext(r.Context()))
	writeError(w, r, status, message)
}
