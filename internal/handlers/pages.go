package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) dashboardPage(c *gin.Context) {
	c.HTML(http.StatusOK, "dashboard.tmpl", gin.H{
		"IsAdmin": h.sessionIsAdmin(c),
	})
}

func (h *Handler) settingsPage(c *gin.Context) {
	c.HTML(http.StatusOK, "settings.tmpl", gin.H{
		"IsAdmin": h.sessionIsAdmin(c),
	})
}
