package handler

import (
	"encoding/json"
	"errors"
	"go-cms-app/internal/middleware"
	"go-cms-app/internal/service"
	"net/http"
)

const maxBodyBytes = 1 << 20

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) *middleware.AppError {
	body, err := json.Marshal(v)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to encode response", Code: http.StatusInternalServerError}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
	return nil
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) *middleware.AppError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid JSON body: " + err.Error(), Code: http.StatusBadRequest, Kind: service.KindValidation}
	}
	return nil
}

// appErrorFrom maps service errors onto HTTP responses.
func appErrorFrom(err error, message string) *middleware.AppError {
	var (
		notFound   *service.NotFoundError
		conflict   *service.ConflictError
		concurrent *service.ConcurrentModificationError
		invalid    *service.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		return &middleware.AppError{Error: err, Message: err.Error(), Code: http.StatusNotFound, Kind: notFound.Kind()}
	case errors.As(err, &conflict):
		return &middleware.AppError{Error: err, Message: err.Error(), Code: http.StatusConflict, Kind: conflict.Kind()}
	case errors.As(err, &concurrent):
		return &middleware.AppError{Error: err, Message: err.Error(), Code: http.StatusConflict, Kind: concurrent.Kind()}
	case errors.As(err, &invalid):
		return &middleware.AppError{Error: err, Message: err.Error(), Code: http.StatusBadRequest, Kind: invalid.Kind()}
	}
	return &middleware.AppError{Error: err, Message: message, Code: http.StatusInternalServerError}
}

// actorFrom describes the user behind the request for audit purposes.
func actorFrom(r *http.Request) service.Actor {
	return service.Actor{
		UserID:    middleware.GetUserInfo(r.Context()).Subject,
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
