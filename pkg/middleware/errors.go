package middleware

import (
	"net/http"

	"github.com/docchat/backend/pkg/apperr"
	"github.com/docchat/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// RespondError aborts the request with {"detail": message} and the status
// mapped from the error code. Unauthorized responses carry WWW-Authenticate.
func RespondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"detail": apperr.MessageOf(err)})
}
