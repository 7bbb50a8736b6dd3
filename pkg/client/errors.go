package client

import (
	"errors"
	"fmt"
)

// ErrorClass represents a classification of review API failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport failures and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses and other non-success statuses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRejected represents a well-formed body with success=false.
	ErrorClassRejected ErrorClass = "rejected"

	// ErrorClassDecode represents a body that is not valid review JSON.
	ErrorClassDecode ErrorClass = "decode"
)

// APIError represents a failed page request with additional context.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("review API %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("review API %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ClassOf returns the class of an *APIError anywhere in err's chain,
// or "" if there is none.
func ClassOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ""
}
