package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// FetchError is a failed call to a lookup or computation endpoint
// (price, distance, autocomplete, postal code). Callers keep their last good state.
type FetchError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a FetchError.
func IsTransient(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// ServiceError is a failed quote, booking or payment call. Payload is the
// server's error body, passed to the caller unchanged.
type ServiceError struct {
	Endpoint string
	Status   int
	Message  string
	Body     json.RawMessage
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, http.StatusText(e.Status))
}

// StatusCode returns the upstream HTTP status, or 502 when there was no response.
func (e *ServiceError) StatusCode() int {
	if e.Status == 0 {
		return http.StatusBadGateway
	}
	return e.Status
}

// Payload returns the server's error body: decoded JSON when possible, else the raw text.
func (e *ServiceError) Payload() interface{} {
	if len(e.Body) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(e.Body, &v); err == nil {
		return v
	}
	return string(e.Body)
}

func newServiceError(endpoint string, status int, body []byte) *ServiceError {
	se := &ServiceError{Endpoint: endpoint, Status: status}
	if json.Valid(body) {
		se.Body = json.RawMessage(body)
		var msg struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(body, &msg); err == nil {
			se.Message = msg.Message
			if se.Message == "" {
				se.Message = msg.Error
			}
		}
	} else if len(body) > 0 {
		quoted, _ := json.Marshal(string(body))
		se.Body = quoted
		se.Message = string(body)
	}
	return se
}
