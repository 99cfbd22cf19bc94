// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
// The last dotted segment is the reason used by the Is* classifiers.
type Code string

const (
	CodeChatTurnInvalidInput Code = "chat.turn.invalid_input"
	CodeChatTurnFailure      Code = "chat.turn.failure"
	CodeChatLaneClosed       Code = "chat.lane.closed"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeProviderRequestInvalid       Code = "provider.request.invalid"
	CodeProviderResponseInvalid      Code = "provider.response.invalid"
	CodeProviderUpstreamFailure      Code = "provider.upstream.failure"
	CodeProviderUpstreamUnauthorized Code = "provider.upstream.unauthorized"
	CodeProviderUpstreamRateLimited  Code = "provider.upstream.rate_limited"
	CodeProviderUpstreamTimeout      Code = "provider.upstream.timeout"

	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerConfigInvalid   Code = "server.config.invalid"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"

	CodeCLIServerNotRunning Code = "cli.server.not_running"
	CodeCLIRequestFailure   Code = "cli.request.failure"
	CodeCLIResponseInvalid  Code = "cli.response.invalid"
	CodeCLISetupFailure     Code = "cli.setup.failure"
	CodeCLIInputInvalid     Code = "cli.input.invalid"

	CodeSecretInvalidInput   Code = "secret.input.invalid"
	CodeSecretNotFound       Code = "secret.get.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretDeleteFailure  Code = "secret.delete.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldConversationID(value string) Attr {
	return Field("conversation_id", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldModel(value string) Attr {
	return Field("model", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// reasonStatus maps the reason segment of a code to an HTTP status.
var reasonStatus = map[string]int{
	"not_found":      http.StatusNotFound,
	"invalid":        http.StatusBadRequest,
	"invalid_input":  http.StatusBadRequest,
	"invalid_value":  http.StatusBadRequest,
	"invalid_format": http.StatusBadRequest,
	"unauthorized":   http.StatusUnauthorized,
	"forbidden":      http.StatusUnauthorized,
	"denied":         http.StatusUnauthorized,
	"rate_limited":   http.StatusTooManyRequests,
	"timeout":        http.StatusGatewayTimeout,
}

func IsNotFound(err error) bool {
	return statusOfReason(err) == http.StatusNotFound
}

func IsInvalidInput(err error) bool {
	return statusOfReason(err) == http.StatusBadRequest
}

func IsUnauthorized(err error) bool {
	return statusOfReason(err) == http.StatusUnauthorized
}

func IsRateLimited(err error) bool {
	return statusOfReason(err) == http.StatusTooManyRequests
}

func IsTimeout(err error) bool {
	return statusOfReason(err) == http.StatusGatewayTimeout
}

// IsUpstreamFailure reports whether err came from a dependency outside the
// process, e.g. the chat-completion endpoint.
func IsUpstreamFailure(err error) bool {
	return strings.Contains(string(CodeOf(err)), ".upstream.")
}

// HTTPStatus picks the response status for err from its code. Uncoded
// errors are internal failures.
func HTTPStatus(err error) int {
	if status := statusOfReason(err); status != 0 {
		return status
	}
	if IsUpstreamFailure(err) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func statusOfReason(err error) int {
	code := string(CodeOf(err))
	if code == "" {
		return 0
	}
	return reasonStatus[code[strings.LastIndex(code, ".")+1:]]
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}
