package web

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neilberkman/escriba/internal/core/auth"
)

// oauth combines the configured app credentials with the ones saved in settings
func (s *Server) oauth(c *gin.Context) (*auth.OAuth, error) {
	cfg := s.Config()
	o := &auth.OAuth{
		ClientID:     cfg.GitHub.ClientID,
		ClientSecret: cfg.GitHub.ClientSecret,
		BaseURL:      cfg.GitHub.OAuthURL,
		RedirectURL:  cfg.PublicURL + "/auth/callback",
	}
	if o.Enabled() {
		return o, nil
	}
	st, err := s.state.Load(c.Request.Context())
	if err != nil {
		return nil, err
	}
	if o.ClientID == "" {
		o.ClientID = st.Settings.GitHubClientID
	}
	if o.ClientSecret == "" {
		o.ClientSecret = st.Settings.GitHubClientSecret
	}
	return o, nil
}

func (s *Server) handleAuthStatus(c *gin.Context) {
	mode := "oauth"
	if s.sessions.Static() {
		mode = "token"
	}
	cookie, _ := c.Cookie(sessionCookie)
	id, err := s.sessions.Resolve(cookie)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"authenticated": false,
			"mode":          mode,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"authenticated": true,
		"mode":          mode,
		"login":         id.Login,
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	if s.sessions.Static() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	o, err := s.oauth(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !o.Enabled() {
		badRequest(c, "GitHub OAuth app is not configured")
		return
	}

	state, err := auth.NewState()
	if err != nil {
		respondError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, o.AuthorizeURL(state))
}

func (s *Server) handleCallback(c *gin.Context) {
	expected, _ := c.Cookie(stateCookie)
	if expected == "" || c.Query("state") != expected {
		badRequest(c, "OAuth state mismatch")
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		badRequest(c, "missing code")
		return
	}

	o, err := s.oauth(c)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := o.Exchange(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := s.newGitHub(token).GetUser(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	id, expires, err := s.sessions.Create(token, user.Login)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("User %s logged in", user.Login)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id.SessionID, int(time.Until(expires).Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) handleLogout(c *gin.Context) {
	cookie, _ := c.Cookie(sessionCookie)
	if id, err := s.sessions.Resolve(cookie); err == nil {
		s.inflight.CancelAll(id.Login)
		if !s.sessions.Static() {
			s.editors.Drop(id.Login)
		}
	}
	if err := s.sessions.Delete(cookie); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
