package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// APIError is a non-success response from the auth API
type APIError struct {
	StatusCode int
	Status     string            // status text, e.g. "Bad Gateway"
	Message    string            // plain message from the body, if any
	Fields     map[string]string // per-field validation errors, if any
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("request failed (status %d): %s", e.StatusCode, e.Message)
	case len(e.Fields) > 0:
		return fmt.Sprintf("request failed (status %d): %s", e.StatusCode, e.FirstFieldError())
	default:
		return fmt.Sprintf("request failed (status %d): %s", e.StatusCode, e.Status)
	}
}

// FirstFieldError returns the validation message of the alphabetically first field
func (e *APIError) FirstFieldError() string {
	if len(e.Fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return e.Fields[keys[0]]
}

// errorBody is the error envelope used by the auth API. message is either a
// string or an object keyed by field name.
type errorBody struct {
	Message json.RawMessage `json:"message"`
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     statusText(resp),
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Message) == 0 {
		return apiErr
	}

	var msg string
	if err := json.Unmarshal(envelope.Message, &msg); err == nil {
		apiErr.Message = msg
		return apiErr
	}

	var fields map[string]string
	if err := json.Unmarshal(envelope.Message, &fields); err == nil {
		apiErr.Fields = fields
	}
	return apiErr
}

// statusText strips the numeric code from resp.Status ("502 Bad Gateway" -> "Bad Gateway")
func statusText(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// UserMessage picks the single message shown to the user for a failed login
// or registration. Specific status codes win over the body, and the body
// wins over the transport's status text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		if errors.Is(err, ErrMalformedResponse) {
			return "Unexpected response from auth service"
		}
		return "Auth service inaccessible"
	}

	switch {
	case apiErr.StatusCode == http.StatusUnauthorized:
		return "Wrong username or password"
	case apiErr.StatusCode == http.StatusBadGateway:
		return "Auth service inaccessible"
	case apiErr.Message != "":
		return apiErr.Message
	case len(apiErr.Fields) > 0:
		return apiErr.FirstFieldError()
	default:
		return apiErr.Status
	}
}
