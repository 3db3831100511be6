package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorKind classifies a failure of the completion service
type ErrorKind string

const (
	KindAuthFailure      ErrorKind = "auth_failure"
	KindQuotaExceeded    ErrorKind = "quota_exceeded"
	KindModelUnavailable ErrorKind = "model_unavailable"
	KindTimeout          ErrorKind = "timeout"
	KindUnknown          ErrorKind = "unknown"
)

// ServiceError is returned by every Client operation that fails
type ServiceError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString("gemini: ")
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// KindOf extracts the error kind from err, defaulting to KindUnknown
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// apiError mirrors the error body returned by the REST API
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// classifyStatus maps an HTTP status plus the API error text to a kind
func classifyStatus(status int, text string) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthFailure
	case http.StatusTooManyRequests:
		return KindQuotaExceeded
	case http.StatusNotFound:
		return KindModelUnavailable
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return KindTimeout
	}
	return classifyText(text)
}

func classifyText(text string) ErrorKind {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "api key"), strings.Contains(lower, "api_key"),
		strings.Contains(lower, "authentication"):
		return KindAuthFailure
	case strings.Contains(lower, "quota"), strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "resource_exhausted"):
		return KindQuotaExceeded
	case strings.Contains(lower, "model") && strings.Contains(lower, "not found"):
		return KindModelUnavailable
	case strings.Contains(lower, "deadline exceeded"), strings.Contains(lower, "timed out"):
		return KindTimeout
	}
	return KindUnknown
}

// transportError wraps a failure that happened before any HTTP status was read
func transportError(err error) *ServiceError {
	kind := KindUnknown
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	default:
		kind = classifyText(err.Error())
	}
	return &ServiceError{Kind: kind, Err: err}
}
