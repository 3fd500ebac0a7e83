package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// sessionRequired guards page routes; browsers without a session are sent to
// the login form.
func (h *Handler) sessionRequired(c *gin.Context) {
	if h.sessionUserID(c) == 0 {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return
	}
	c.Next()
}

// adminRequired guards admin-only API routes.
func (h *Handler) adminRequired(c *gin.Context) {
	if h.sessionUserID(c) == 0 || !h.sessionIsAdmin(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}
	c.Next()
}
