package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/draftforge/server/internal/shared/errors"
)

// ErrorResponse represents a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error sends an error response with the given status code.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// ErrorWithCode sends an error response with an error code.
func ErrorWithCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// BadRequest sends a 400 Bad Request response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "unauthorized"
	}
	Error(c, http.StatusUnauthorized, message)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "not found"
	}
	Error(c, http.StatusNotFound, message)
}

// InternalError sends a 500 Internal Server Error response.
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "internal error"
	}
	Error(c, http.StatusInternalServerError, message)
}

// ErrorMapping maps a domain error to an HTTP status code.
type ErrorMapping struct {
	Err     error
	Status  int
	Code    string
	Message string
}

// HandleError handles an error using the provided mappings.
// Returns true if the error was handled, false otherwise.
func HandleError(c *gin.Context, err error, mappings []ErrorMapping) bool {
	for _, m := range mappings {
		if errors.Is(err, m.Err) {
			msg := m.Message
			if msg == "" {
				msg = m.Err.Error()
			}
			if m.Code != "" {
				ErrorWithCode(c, m.Status, m.Code, msg)
			} else {
				Error(c, m.Status, msg)
			}
			return true
		}
	}
	return false
}

// HandleErrorWithDefault handles an error with a fallback for unmapped errors.
// AppError instances that no mapping matched are rendered from their own
// status code and payload.
func HandleErrorWithDefault(c *gin.Context, err error, mappings []ErrorMapping) {
	if HandleError(c, err, mappings) {
		return
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}
	InternalError(c, "")
}
