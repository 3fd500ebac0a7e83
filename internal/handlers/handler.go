package handlers

import (
	"crypto/sha256"
	"embed"
	"html/template"
	"net/http"

	"github.com/Mb29661/LV418/internal/logger"
	"github.com/Mb29661/LV418/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const sessionName = "lv418-session"

// Handler wires the HTTP layer to services, sessions and logging.
type Handler struct {
	services *service.Service
	store    *sessions.CookieStore
	log      *logger.Logger
}

// NewHandler constructs the HTTP handler. Signing and encryption keys for the
// session cookie are derived from the configured secret.
func NewHandler(services *service.Service, sessionKey string, log *logger.Logger) *Handler {
	authKey := sha256.Sum256([]byte(sessionKey + "auth"))
	encKey := sha256.Sum256([]byte(sessionKey + "encryption"))

	store := sessions.NewCookieStore(authKey[:], encKey[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &Handler{services: services, store: store, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.tmpl")))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerPageRoutes(router)
	h.registerAPIRoutes(router)

	// Live parameter push over the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	r.GET("/login", h.loginPage)
	r.POST("/login", h.login)
	r.GET("/register", h.registerPage)
	r.POST("/register", h.register)
	r.GET("/logout", h.logout)

	// Email-link actions, reachable without a session
	r.GET("/verify/:token", h.verifyEmail)
	r.GET("/admin/approve/:id", h.approveUser)
}

func (h *Handler) registerPageRoutes(r *gin.Engine) {
	pages := r.Group("/", h.sessionRequired)
	{
		pages.GET("/", h.dashboardPage)
		pages.GET("/settings", h.settingsPage)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		// /status and /control are reachable without a session. The UI only
		// calls them from authenticated pages, so they look like they should
		// sit behind sessionRequired; kept open to preserve the established
		// trust boundary for existing automation clients.
		api.GET("/status", h.status)
		api.POST("/control", h.control)

		api.GET("/device-status", h.deviceStatus)
		api.GET("/history", h.history)
		api.GET("/energy", h.energy)
		api.GET("/local-history", h.localHistory)
		api.GET("/db-stats", h.dbStats)
		api.GET("/events", h.events)

		api.GET("/import-cloud", h.adminRequired, h.importCloud)
	}
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"polling": h.services.Poller.Running(),
	})
}
