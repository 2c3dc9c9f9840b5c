package httpkit

import (
	"errors"
	"net/http"

	"crm_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx response.
// RequestID echoes X-Request-ID so a client report can be matched to the logs.
type ErrorResponse struct {
	Error     string      `json:"error"`
	Kind      string      `json:"kind,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
}

func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// Error writes an ErrorResponse without a kind.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details, RequestID: requestID(c)})
}

// HandleError writes err and reports whether there was one.
// An *apperr.Error anywhere in the chain picks the status through its Kind.
// Anything else is a store or infrastructure failure: 500, message withheld.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Wrap(apperr.KindInternal, "internal error", err)
	}
	c.JSON(appErr.HTTPStatus(), ErrorResponse{
		Error:     appErr.Message,
		Kind:      appErr.Kind.String(),
		Details:   appErr.Details,
		RequestID: requestID(c),
	})
	return true
}

func requestID(c *gin.Context) string {
	return c.Writer.Header().Get(HeaderRequestID)
}
