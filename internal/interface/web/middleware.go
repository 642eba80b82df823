package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neilberkman/escriba/internal/core/auth"
	"github.com/neilberkman/escriba/internal/core/errs"
	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/session"
	"github.com/neilberkman/escriba/internal/core/state"
)

const (
	sessionCookie = "escriba_session"
	stateCookie   = "escriba_oauth_state"

	identityKey = "identity"
	githubKey   = "github"

	// statusClientClosedRequest answers a cancelled completion
	statusClientClosedRequest = 499
)

// requireAuth resolves the session cookie to a GitHub identity
func (s *Server) requireAuth(c *gin.Context) {
	cookie, _ := c.Cookie(sessionCookie)
	id, err := s.sessions.Resolve(cookie)
	if err != nil {
		respondError(c, err)
		c.Abort()
		return
	}
	c.Set(identityKey, id)
	c.Set(githubKey, s.newGitHub(id.Token))
	c.Next()
}

func identity(c *gin.Context) *auth.Identity {
	return c.MustGet(identityKey).(*auth.Identity)
}

func gh(c *gin.Context) GitHub {
	return c.MustGet(githubKey).(GitHub)
}

// statusFor maps an error to the HTTP status the API answers with
func statusFor(err error) int {
	var invalid *models.InvalidValueError
	var unknown *state.UnknownProjectError
	switch {
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoFile), errors.As(err, &invalid), errors.As(err, &unknown):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	}
	return errs.HTTPStatus(err)
}

func respondError(c *gin.Context, err error) {
	body := gin.H{
		"success": false,
		"error":   err.Error(),
	}
	var e *errs.Error
	if errors.As(err, &e) {
		body["kind"] = e.Kind
		if e.Status != 0 {
			body["upstream_status"] = e.Status
		}
	} else if errors.Is(err, session.ErrBusy) {
		body["kind"] = "busy"
	}
	c.JSON(statusFor(err), body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   msg,
	})
}
