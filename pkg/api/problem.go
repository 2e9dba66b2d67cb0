package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Problem implements RFC 9457
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`

	// RetryAfter is sent as the Retry-After header when set.
	RetryAfter time.Duration `json:"-"`

	Log error `json:"-"`
}

func (p *Problem) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

func (p *Problem) MarshalJSON() ([]byte, error) {
	type Alias Problem

	data := make(map[string]interface{})

	for k, v := range p.Extensions {
		data[k] = v
	}

	stdJSON, err := json.Marshal(Alias(*p))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stdJSON, &data); err != nil {
		return nil, err
	}

	return json.Marshal(data)
}

// RetryAfterHeader renders RetryAfter in whole seconds, rounded up.
func (p *Problem) RetryAfterHeader() string {
	secs := int((p.RetryAfter + time.Second - 1) / time.Second)
	return strconv.Itoa(secs)
}

type ProblemOption func(*Problem)

// NewProblem creates a generic Problem
func NewProblem(status int, title, detail string, opts ...ProblemOption) *Problem {
	p := &Problem{
		Type:       "about:blank", // Default as per RFC
		Title:      title,
		Status:     status,
		Detail:     detail,
		Extensions: make(map[string]interface{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithExtension adds a custom key-value pair to the response
func WithExtension(key string, value interface{}) ProblemOption {
	return func(p *Problem) {
		p.Extensions[key] = value
	}
}

// WithLog attaches an internal error for server-side logging
func WithLog(err error) ProblemOption {
	return func(p *Problem) {
		p.Log = err
	}
}

// WithType sets the RFC "type" URI
func WithType(uri string) ProblemOption {
	return func(p *Problem) {
		p.Type = uri
	}
}

func WithRetryAfter(d time.Duration) ProblemOption {
	return func(p *Problem) {
		p.RetryAfter = d
	}
}

// ValidationError creates a rich validation error
func ValidationError(validationErrors map[string]string) *Problem {
	return NewProblem(
		http.StatusBadRequest,
		"Validation Error",
		"One or more fields failed validation",
		WithExtension("errors", validationErrors),
	)
}

// BadRequestError creates a standard error for a bad request
func BadRequestError(detail string, opts ...ProblemOption) *Problem {
	return NewProblem(http.StatusBadRequest, "Bad Request", detail, opts...)
}

// InternalError creates a standard error for any internal server error
func InternalError(err error) *Problem {
	return NewProblem(http.StatusInternalServerError, "Internal Server Error",
		"An unexpected error occurred.", WithLog(err))
}

// BadGatewayError is returned when the analytics database query fails.
func BadGatewayError(detail string, err error) *Problem {
	return NewProblem(http.StatusBadGateway, "Bad Gateway", detail, WithLog(err))
}

func GatewayTimeoutError(detail string, retryAfter time.Duration, err error) *Problem {
	return NewProblem(http.StatusGatewayTimeout, "Gateway Timeout", detail,
		WithLog(err), WithRetryAfter(retryAfter))
}

func UnavailableError(detail string, retryAfter time.Duration, err error) *Problem {
	return NewProblem(http.StatusServiceUnavailable, "Service Unavailable", detail,
		WithLog(err), WithRetryAfter(retryAfter))
}

// RateLimitError creates standard 429 rate limit error
func RateLimitError(retryAfter time.Duration) *Problem {
	return NewProblem(http.StatusTooManyRequests, "Too Many Requests",
		"Rate limit exceeded.", WithRetryAfter(retryAfter))
}
