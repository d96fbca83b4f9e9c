package dto

import "time"

// ErrorResponse is the JSON body of every non-validation error.
//
// Fields:
//   - Message: human readable message, serialized as "error".
//   - Status: HTTP status code repeated in the body.
//   - ErrorDetails: underlying error text; left empty in production.
//   - Timestamp: when the error was produced.
type ErrorResponse struct {
	Message      string    `json:"error" example:"ticker not found"`
	Status       int       `json:"status" example:"404"`
	ErrorDetails string    `json:"details,omitempty" example:"sql: no rows in result set"`
	Timestamp    time.Time `json:"timestamp" example:"2024-05-01T12:00:00Z"`
}

// Error implements the error interface.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails == "" {
		return e.Message
	}
	return e.Message + ": " + e.ErrorDetails
}

// NewErrorResponse builds an ErrorResponse. err may be nil.
func NewErrorResponse(message string, status int, err error) ErrorResponse {
	resp := ErrorResponse{
		Message:   message,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}

// WithoutDetails strips the underlying error text.
func (e ErrorResponse) WithoutDetails() ErrorResponse {
	e.ErrorDetails = ""
	return e
}

// FieldError describes one rejected query parameter.
type FieldError struct {
	Field   string `json:"field" example:"limit"`
	Message string `json:"message" example:"must be at most 100"`
}

// ValidationErrorResponse is the 400 body for invalid query parameters.
type ValidationErrorResponse struct {
	Errors []FieldError `json:"errors"`
}
