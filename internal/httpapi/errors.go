package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"chatd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

type clientConnectedError struct{}

func (clientConnectedError) Error() string   { return "another client is connected" }
func (clientConnectedError) StatusCode() int { return http.StatusConflict }

// ErrClientConnected is returned by Attach while the client slot is taken.
func ErrClientConnected() error { return clientConnectedError{} }

// IsClientConnected reports whether err is ErrClientConnected.
func IsClientConnected(err error) bool {
	var e clientConnectedError
	return errors.As(err, &e)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func statusFor(err error) int {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

type shuttingDownError struct{}

func (shuttingDownError) Error() string   { return "server is shutting down" }
func (shuttingDownError) StatusCode() int { return http.StatusServiceUnavailable }

// ErrShuttingDown refuses new clients once the base context is done.
func ErrShuttingDown() error { return shuttingDownError{} }
