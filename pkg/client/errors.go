package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a non-success Reports API response.
type Kind string

const (
	// KindBadRequest represents 400 responses (invalid parameters).
	KindBadRequest Kind = "bad_request"

	// KindUnauthorized represents 401 responses (missing or bad token).
	KindUnauthorized Kind = "unauthorized"

	// KindPaymentRequired represents 402 responses (quota exceeded).
	KindPaymentRequired Kind = "payment_required"

	// KindForbidden represents 403 responses (no access to the counter).
	KindForbidden Kind = "forbidden"

	// KindNotFound represents 404 responses (unknown counter or resource).
	KindNotFound Kind = "not_found"

	// KindPayloadTooLarge represents 413 responses (request too large).
	KindPayloadTooLarge Kind = "payload_too_large"

	// KindRateLimited represents 429 responses (request rate exceeded).
	KindRateLimited Kind = "rate_limited"

	// KindServer represents 5xx responses.
	KindServer Kind = "server"

	// KindUnknown represents any other non-success status.
	KindUnknown Kind = "unknown"
)

// ErrConnection is returned when the Reports API cannot be reached.
var ErrConnection = errors.New("connection to Reports API failed")

// APIError is a classified non-success response from the Reports API.
type APIError struct {
	StatusCode int
	Kind       Kind
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("metrika %s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
}

// classifyStatus maps an HTTP status code to its error kind.
func classifyStatus(code int) Kind {
	switch {
	case code == http.StatusBadRequest:
		return KindBadRequest
	case code == http.StatusUnauthorized:
		return KindUnauthorized
	case code == http.StatusPaymentRequired:
		return KindPaymentRequired
	case code == http.StatusForbidden:
		return KindForbidden
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusRequestEntityTooLarge:
		return KindPayloadTooLarge
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// errorBody is the shape of a Reports API error payload.
type errorBody struct {
	Message string `json:"message"`
	Errors  []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// apiMessage extracts the upstream message from an error response body.
// Falls back to the raw body when the payload is not parseable.
func apiMessage(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if len(parsed.Errors) > 0 && parsed.Errors[0].Message != "" {
			return parsed.Errors[0].Message
		}
	}
	return strings.TrimSpace(string(body))
}
