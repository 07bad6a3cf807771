package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError sends unified error payload {"error": {"code", "message"}}.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// respondAuthFailure maps an authentication error to its HTTP status:
// rejections become 401 without revealing which check failed, store
// failures become 500 so operators can tell "wrong password" from
// "backing store down".
func respondAuthFailure(c *gin.Context, err error) {
	if IsAuthRejection(err) {
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "incorrect username or password")
		return
	}
	respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "authentication backend unavailable")
}
