// Package classify maps backend and transport failures to a user-facing
// disposition: either the request is worth retrying later, or the
// conversation cannot continue and a fresh one should be started.
package classify

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Statuses treated as retryable: rate limited, internal error,
// unavailable, gateway timeout.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Statuses that are always terminal: the user must rephrase or start a
// fresh conversation.
var terminalStatuses = map[int]bool{
	http.StatusBadRequest: true,
}

// UpstreamError is raised whenever the backend answers with a non-2xx
// status or reports a failed generation through the event stream.
type UpstreamError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// NewUpstreamError builds an UpstreamError from a status and raw body,
// pulling a human message out of the body when one is present.
func NewUpstreamError(status int, body []byte) *UpstreamError {
	e := &UpstreamError{Status: status, Body: body}
	var payload struct {
		Message      string `json:"message"`
		ErrorMessage string `json:"error_message"`
		Error        string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		switch {
		case payload.ErrorMessage != "":
			e.Message = payload.ErrorMessage
		case payload.Message != "":
			e.Message = payload.Message
		case payload.Error != "":
			e.Message = payload.Error
		}
	}
	return e
}

// Advice is the user-visible disposition a classified error maps to.
type Advice int

const (
	// AdviceRetryLater tells the user to wait and try the same question again.
	AdviceRetryLater Advice = iota
	// AdviceStartNew tells the user this conversation cannot continue.
	AdviceStartNew
)

// Classified is the normalized view of an error after classification.
type Classified struct {
	Status      int
	IsRetryable bool
	Details     map[string]any
}

// Advice returns which of the two user messages this classification selects.
func (c Classified) Advice() Advice {
	if c.IsRetryable {
		return AdviceRetryLater
	}
	return AdviceStartNew
}

// Classify normalizes any error from the backend or the transport.
//
// The status is taken from the UpstreamError when one is in the chain,
// then from a statusCode field inside the upstream body, falling back to
// 500. Connection-level timeouts carry no HTTP status at all and classify
// as non-retryable on purpose: the outcome of the original request is
// unknown, so the UI must not imply a retry will work.
func Classify(err error) Classified {
	c := Classified{Status: http.StatusInternalServerError, Details: map[string]any{}}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		if upstream.Status != 0 {
			c.Status = upstream.Status
		}
		if len(upstream.Body) > 0 {
			var details map[string]any
			if json.Unmarshal(upstream.Body, &details) == nil {
				c.Details = details
			}
		}
		if c.Status == http.StatusInternalServerError && upstream.Status == 0 {
			if sc, ok := c.Details["statusCode"].(float64); ok {
				c.Status = int(sc)
			}
		}
		c.IsRetryable = isRetryable(c.Status)
		return c
	}

	// No HTTP response at all: network failure or connection timeout.
	c.IsRetryable = false
	return c
}

func isRetryable(status int) bool {
	if terminalStatuses[status] {
		return false
	}
	if retryableStatuses[status] {
		return true
	}
	return status >= 500
}
