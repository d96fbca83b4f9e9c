package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/coinpulse/internal/domain/dto"
	"github.com/guttosm/coinpulse/internal/logger"
)

// ErrorBody builds the standard error payload. The underlying error text is
// dropped when gin runs in release mode.
func ErrorBody(message string, status int, err error) dto.ErrorResponse {
	resp := dto.NewErrorResponse(message, status, err)
	if gin.Mode() == gin.ReleaseMode {
		return resp.WithoutDetails()
	}
	return resp
}

// AbortWithError records err on the context and aborts with a JSON error body.
//
// Parameters:
//   - c (*gin.Context): current request context.
//   - status (int): HTTP status code to send.
//   - message (string): client-facing message, serialized as "error".
//   - err (error): optional underlying cause; may be nil.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, ErrorBody(message, status, err))
}

// ErrorHandler renders errors attached with c.Error() when the handler chain
// finished without writing a response.
//
// Behavior:
//   - Runs the rest of the chain first.
//   - Skips when no error was recorded or a body is already written.
//   - Uses the recorded status when it is an error status, 500 otherwise.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	err := c.Errors.Last().Err
	status := c.Writer.Status()
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}

	logger.L().Error().
		Err(err).
		Str("path", c.Request.URL.Path).
		Int("status", status).
		Msg("request failed")

	c.JSON(status, ErrorBody(http.StatusText(status), status, err))
}

// NotFound answers unknown routes with the standard error payload.
func NotFound(c *gin.Context) {
	logger.L().Warn().
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("route not found")
	AbortWithError(c, http.StatusNotFound, "Route not found: "+c.Request.URL.Path, nil)
}
