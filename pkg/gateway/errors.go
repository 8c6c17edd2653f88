package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"octane/relay/pkg/relay"
)

// StatusFor maps an error from the taxonomy to its HTTP status.
func StatusFor(err error) int {
	var (
		malformed *relay.MalformedRequestError
		authErr   *relay.AuthError
		notFound  *relay.ModelNotFoundError
		quota     *relay.QuotaExceededError
		rate      *relay.RateLimitedError
		upstream  *relay.UpstreamError
		timeout   *relay.TimeoutError
		parse     *relay.ParseError
	)

	switch {
	case errors.As(err, &malformed):
		return http.StatusBadRequest
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &quota), errors.As(err, &rate):
		return http.StatusTooManyRequests
	case errors.As(err, &upstream), errors.As(err, &timeout), errors.As(err, &parse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// openAIError is the OpenAI error envelope, also used for the Responses
// format.
type openAIError struct {
	Error openAIErrorBody `json:"error"`
}

type openAIErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

// anthropicError is the Anthropic error envelope.
type anthropicError struct {
	Type  string             `json:"type"`
	Error anthropicErrorBody `json:"error"`
}

type anthropicErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func openAIErrorType(status int) (errType, code string) {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request_error", ""
	case http.StatusUnauthorized:
		return "authentication_error", "invalid_api_key"
	case http.StatusNotFound:
		return "invalid_request_error", "model_not_found"
	case http.StatusTooManyRequests:
		return "rate_limit_error", "rate_limit_exceeded"
	default:
		return "api_error", ""
	}
}

func anthropicErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request_error"
	case http.StatusUnauthorized:
		return "authentication_error"
	case http.StatusNotFound:
		return "not_found_error"
	case http.StatusTooManyRequests:
		return "rate_limit_error"
	default:
		return "api_error"
	}
}

// WriteError renders err in the client's wire format. The message is the
// classified error text; channel secrets never appear in it.
func WriteError(w http.ResponseWriter, format relay.Format, err error) {
	status := StatusFor(err)
	message := clientMessage(err, status)

	var rate *relay.RateLimitedError
	if errors.As(err, &rate) && rate.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(rate.RetryAfter.Seconds())))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var envelope any
	if format == relay.FormatAnthropic {
		envelope = anthropicError{
			Type: "error",
			Error: anthropicErrorBody{
				Type:    anthropicErrorType(status),
				Message: message,
			},
		}
	} else {
		errType, code := openAIErrorType(status)
		envelope = openAIError{Error: openAIErrorBody{
			Message: message,
			Type:    errType,
			Code:    code,
		}}
	}
	_ = json.NewEncoder(w).Encode(envelope)
}

// clientMessage picks the text shown to the client. Internal errors get
// a generic message; taxonomy errors describe themselves safely.
func clientMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal server error"
	}

	var quota *relay.QuotaExceededError
	if errors.As(err, &quota) {
		return "quota exceeded"
	}
	var rate *relay.RateLimitedError
	if errors.As(err, &rate) {
		return "rate limit exceeded"
	}
	var notFound *relay.ModelNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Sprintf("model %q not found", notFound.Model)
	}
	return err.Error()
}
