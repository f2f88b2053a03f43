package helpers

import (
	"net/http"

	"github.com/farellandr/rollcall/internal/apperror"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error    string            `json:"error"`
	Code     string            `json:"code,omitempty"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
	})
}

// RespondWithAppError writes err using its apperror code. Anything else is
// logged and reported as a 500 without leaking details.
func RespondWithAppError(c *gin.Context, log *zap.Logger, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return
	}

	status := appErr.Code.HTTPStatus()
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:    HTTPStatusText(status),
		Code:     string(appErr.Code),
		Message:  appErr.Message,
		Metadata: appErr.Metadata,
	})
}
