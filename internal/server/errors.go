package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/54b3r/rolerag/internal/auth"
	"github.com/54b3r/rolerag/internal/index"
	"github.com/54b3r/rolerag/internal/logging"
	"github.com/54b3r/rolerag/internal/pipeline"
	"github.com/54b3r/rolerag/internal/rag"
)

// Client-facing failure messages. Token failures share one message so the
// response never reveals which check failed.
const (
	msgInvalidCredentials = "invalid credentials"
	msgInvalidToken       = "invalid or expired token"
	msgForbidden          = "access denied for your role"
	msgNoDocuments        = "no documents available for role"
	msgIndexUnavailable   = "document index unavailable"
	msgEmbedding          = "embedding service unavailable"
	msgEmptyQuery         = "query must not be empty"
	msgTimeout            = "request timed out"
	msgInternal           = "internal server error"
)

// statusFor maps a pipeline error onto an HTTP status and client message.
func statusFor(err error) (int, string) {
	var te *auth.TokenError
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.As(err, &te):
		return http.StatusUnauthorized, msgInvalidToken
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, msgForbidden
	case errors.Is(err, pipeline.ErrEmptyQuery):
		return http.StatusBadRequest, msgEmptyQuery
	case errors.Is(err, index.ErrPartitionNotFound):
		return http.StatusInternalServerError, msgNoDocuments
	case errors.Is(err, index.ErrIndexCorrupt), errors.Is(err, index.ErrModelMismatch):
		return http.StatusInternalServerError, msgIndexUnavailable
	case errors.Is(err, rag.ErrEmbedding):
		return http.StatusBadGateway, msgEmbedding
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, msgTimeout
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// writeError logs err with its real cause and writes the mapped client-safe
// response. Server-side failures log at ERROR, client failures at INFO.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)

	log := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.Int("status", status), slog.Any("error", err))
	} else {
		log.Info("request rejected", slog.Int("status", status), slog.Any("error", err))
	}

	if status == http.StatusUnauthorized && msg == msgInvalidToken {
		w.Header().Set("WWW-Authenticate", `Bearer realm="rolerag" error="invalid_token"`)
	}
	writeDetail(w, r, status, msg)
}

// writeDetail writes a {"detail": msg} JSON body with status.
func writeDetail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Detail: msg})
}

// writeJSON encodes v as the response body with status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("response encode error", slog.Any("error", err))
	}
}
