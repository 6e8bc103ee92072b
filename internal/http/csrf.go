package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library-manager/internal/auth"
)

// CSRFToken handles GET /api/csrf so browser clients can fetch the token
// before their first unsafe request.
func CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"token":  auth.GetCSRFToken(c),
		"header": auth.CSRFTokenHeader,
	})
}
