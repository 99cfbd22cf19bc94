// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package server

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	parleyerr "github.com/parley-chat/parley/pkg/errors"
)

// APIError is the body of every error response: {"error": "..."}.
type APIError struct {
	status  int
	Message string `json:"error" doc:"Human-readable error message"`
}

func (e *APIError) Error() string  { return e.Message }
func (e *APIError) GetStatus() int { return e.status }

var _ huma.StatusError = (*APIError)(nil)

func init() {
	// Validation and decoding failures raised by huma share the same shape.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		for _, err := range errs {
			if err != nil && msg != "" {
				msg += ": " + err.Error()
				break
			}
		}
		return &APIError{status: status, Message: msg}
	}
}

// toAPIError maps a coded error to its HTTP status. Internal failures are
// logged and reported without detail.
func toAPIError(err error, op string) *APIError {
	status := parleyerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"op", op,
			"code", parleyerr.CodeOf(err),
			"fields", parleyerr.FieldsOf(err),
			"error", err)
		return &APIError{status: status, Message: http.StatusText(status)}
	}
	if parleyerr.IsInvalidInput(err) {
		slog.Debug("request rejected", "op", op, "code", parleyerr.CodeOf(err))
	}
	return &APIError{status: status, Message: err.Error()}
}

