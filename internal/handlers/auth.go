package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Mb29661/LV418/internal/service"

	"github.com/gin-gonic/gin"
)

// --- session helpers ---

func (h *Handler) setSession(c *gin.Context, userID int, isAdmin bool) {
	session, _ := h.store.Get(c.Request, sessionName)
	session.Values["userID"] = userID
	session.Values["isAdmin"] = isAdmin
	if err := session.Save(c.Request, c.Writer); err != nil && h.log != nil {
		h.log.Errorw("session_save_failed", "err", err)
	}
}

func (h *Handler) clearSession(c *gin.Context) {
	session, _ := h.store.Get(c.Request, sessionName)
	session.Options.MaxAge = -1
	_ = session.Save(c.Request, c.Writer)
}

func (h *Handler) sessionUserID(c *gin.Context) int {
	session, _ := h.store.Get(c.Request, sessionName)
	if id, ok := session.Values["userID"].(int); ok {
		return id
	}
	return 0
}

func (h *Handler) sessionIsAdmin(c *gin.Context) bool {
	session, _ := h.store.Get(c.Request, sessionName)
	if v, ok := session.Values["isAdmin"].(bool); ok {
		return v
	}
	return false
}

// renderMessage shows the shared info/error page used by the account flow.
func (h *Handler) renderMessage(c *gin.Context, status int, title, message, class string) {
	c.HTML(status, "message.tmpl", gin.H{
		"Title":    title,
		"Message":  message,
		"MsgClass": class,
	})
}

// --- login ---

func (h *Handler) loginPage(c *gin.Context) {
	if h.sessionUserID(c) != 0 {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "login.tmpl", gin.H{})
}

func (h *Handler) login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	user, err := h.services.Authorization.Authenticate(c.Request.Context(), email, password)
	if err != nil {
		if h.log != nil {
			h.log.Infow("login_failed", "email", email, "err", err)
		}
		c.HTML(http.StatusUnauthorized, "login.tmpl", gin.H{"Error": loginErrorMessage(err)})
		return
	}

	h.setSession(c, user.ID, user.IsAdmin)
	c.Redirect(http.StatusFound, "/")
}

func loginErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrEmailNotVerified):
		return "Din e-postadress är inte verifierad. Kolla din inkorg."
	case errors.Is(err, service.ErrNotApproved):
		return "Ditt konto väntar på godkännande av en administratör."
	default:
		return "Fel e-post eller lösenord."
	}
}

// --- register ---

func (h *Handler) registerPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.tmpl", gin.H{})
}

func (h *Handler) register(c *gin.Context) {
	name := c.PostForm("name")
	email := c.PostForm("email")
	password := c.PostForm("password")

	_, err := h.services.Authorization.Register(c.Request.Context(), name, email, password)
	if err != nil {
		if h.log != nil {
			h.log.Infow("register_failed", "email", email, "err", err)
		}
		c.HTML(http.StatusBadRequest, "register.tmpl", gin.H{"Error": registerErrorMessage(err)})
		return
	}

	h.renderMessage(c, http.StatusOK, "Registrering mottagen",
		"Ett verifieringsmejl har skickats. Klicka på länken i mejlet, "+
			"därefter måste en administratör godkänna ditt konto.", "success")
}

func registerErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrMissingFields):
		return "Alla fält måste fyllas i."
	case errors.Is(err, service.ErrWeakPassword):
		return "Lösenordet måste vara minst 6 tecken."
	case errors.Is(err, service.ErrEmailTaken):
		return "E-postadressen är redan registrerad."
	default:
		return "Registreringen misslyckades. Försök igen."
	}
}

// --- logout ---

func (h *Handler) logout(c *gin.Context) {
	h.clearSession(c)
	c.Redirect(http.StatusFound, "/login")
}

// --- email-link actions ---

func (h *Handler) verifyEmail(c *gin.Context) {
	user, err := h.services.Authorization.VerifyEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.renderMessage(c, http.StatusBadRequest, "Ogiltig länk",
			"Verifieringslänken är ogiltig eller har gått ut.", "error")
		return
	}
	h.renderMessage(c, http.StatusOK, "E-post verifierad",
		user.Email+" är nu verifierad. En administratör måste godkänna kontot innan du kan logga in.",
		"success")
}

func (h *Handler) approveUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		h.renderMessage(c, http.StatusBadRequest, "Fel", "Ogiltigt användar-id.", "error")
		return
	}

	user, err := h.services.Authorization.Approve(c.Request.Context(), id)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("approve_failed", "user_id", id, "err", err)
		}
		h.renderMessage(c, http.StatusBadRequest, "Fel",
			"Ett fel uppstod vid godkännande.", "error")
		return
	}

	h.renderMessage(c, http.StatusOK, "Användare godkänd",
		user.Name+" ("+user.Email+") har nu godkänts och kan logga in.", "success")
}
