package httputil

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPErrorInfo contains the HTTP status code and message for an error.
type HTTPErrorInfo struct {
	Status  int
	Message string
}

// ErrorMapping maps one sentinel error to a response.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string
	// Detail appends the error text to Message, used for validation failures shown inline.
	Detail bool
}

// ErrorMapper maps domain errors to HTTP status codes and messages.
type ErrorMapper struct {
	mappings       []ErrorMapping
	defaultStatus  int
	defaultMessage string
}

func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{
		defaultStatus:  http.StatusInternalServerError,
		defaultMessage: "something went wrong, please try again",
	}
}

func (m *ErrorMapper) WithMapping(err error, status int, message string) *ErrorMapper {
	m.mappings = append(m.mappings, ErrorMapping{Error: err, Status: status, Message: message})
	return m
}

// WithDetail maps err to status and exposes the wrapped error text to the caller.
func (m *ErrorMapper) WithDetail(err error, status int) *ErrorMapper {
	m.mappings = append(m.mappings, ErrorMapping{Error: err, Status: status, Detail: true})
	return m
}

func (m *ErrorMapper) WithDefault(status int, message string) *ErrorMapper {
	m.defaultStatus = status
	m.defaultMessage = message
	return m
}

// Map converts an error to HTTP status and message. Context errors take precedence.
func (m *ErrorMapper) Map(err error) HTTPErrorInfo {
	if err == nil {
		return HTTPErrorInfo{Status: http.StatusOK}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return HTTPErrorInfo{Status: http.StatusGatewayTimeout, Message: "request timeout"}
	}
	if errors.Is(err, context.Canceled) {
		return HTTPErrorInfo{Status: http.StatusServiceUnavailable, Message: "request cancelled"}
	}
	for _, mapping := range m.mappings {
		if !errors.Is(err, mapping.Error) {
			continue
		}
		if mapping.Detail {
			return HTTPErrorInfo{Status: mapping.Status, Message: err.Error()}
		}
		return HTTPErrorInfo{Status: mapping.Status, Message: mapping.Message}
	}
	return HTTPErrorInfo{Status: m.defaultStatus, Message: m.defaultMessage}
}

// Respond logs err and converts it into an echo HTTP error.
func (m *ErrorMapper) Respond(c echo.Context, op string, err error) error {
	info := m.Map(err)
	attrs := []any{slog.String("op", op), slog.String("path", c.Path()), slog.Int("status", info.Status), slog.Any("error", err)}
	if info.Status >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
	} else {
		slog.Warn("request rejected", attrs...)
	}
	return echo.NewHTTPError(info.Status, info.Message)
}
