package middleware

import (
	"encoding/json"
	"fmt"
	"go-cms-app/internal/logger"
	"net/http"
)

// AppError represents a custom error type for the application.
type AppError struct {
	Error   error
	Message string
	Code    int
	// Kind is the machine readable error code sent to clients.
	Kind string
}

// AppHandler is a custom handler function type that returns an AppError.
type AppHandler func(http.ResponseWriter, *http.Request) *AppError

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, code int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorBody{Error: kind, Message: message, Status: code})
}

// Error is a middleware that converts handler errors into JSON error responses.
// Server errors are logged; client errors are only reported back.
func Error(log logger.Logger) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err, ok := rec.(error)
					if !ok {
						err = fmt.Errorf("%v", rec)
					}
					log.Error(err, "Panic recovered")
					WriteError(w, http.StatusInternalServerError, "internal", "Internal Server Error")
				}
			}()

			appErr := next(w, r)
			if appErr == nil {
				return
			}
			if appErr.Code >= http.StatusInternalServerError && appErr.Error != nil {
				log.Error(appErr.Error, appErr.Message)
			}
			kind := appErr.Kind
			if kind == "" {
				kind = "internal"
			}
			WriteError(w, appErr.Code, kind, appErr.Message)
		})
	}
}
