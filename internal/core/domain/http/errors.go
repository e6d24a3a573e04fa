package httpdomain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrSessionExpired means the refresh call failed and the session was cleared.
	ErrSessionExpired = errors.New("session expired, please log in again")
	// ErrNotLoggedIn means no refresh token was available.
	ErrNotLoggedIn = errors.New("not logged in")
)

// APIError is a non-2xx backend response.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Body    []byte
	// Err is set when the failure has an underlying cause, e.g. a failed refresh
	// behind a 401.
	Err error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: API error %d: %s: %v", e.Method, e.Path, e.Status, msg, e.Err)
	}
	return fmt.Sprintf("%s %s: API error %d: %s", e.Method, e.Path, e.Status, msg)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError builds an APIError from a response, extracting the server message.
func NewAPIError(method, path string, resp *Response) *APIError {
	return &APIError{
		Method:  method,
		Path:    path,
		Status:  resp.Status,
		Message: ExtractMessage(resp.Body),
		Body:    resp.Body,
	}
}

// NetworkError is a transport failure where no response was received.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: HTTP request failed: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusCode returns the status of an APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsStatus reports whether err carries the given HTTP status
func IsStatus(err error, status int) bool {
	return StatusCode(err) == status
}

// ExtractMessage pulls a human readable message out of an error body.
// It understands {"detail": ...}, {"message": ...}, {"error": ...} and
// field error maps such as {"email": ["already taken"]}.
func ExtractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return truncate(trimmed, 200)
	}

	for _, key := range []string{"detail", "message", "error"} {
		if raw, ok := obj[key]; ok {
			if s := flatten(raw); s != "" {
				return s
			}
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s := flatten(obj[k]); s != "" {
			return k + ": " + s
		}
	}
	return truncate(trimmed, 200)
}

func flatten(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
