package web

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neilberkman/escriba/internal/core/db"
	"github.com/neilberkman/escriba/internal/core/history"
	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/state"
)

func (s *Server) handleGetSettings(c *gin.Context) {
	st, err := s.state.Load(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": st.Settings.Redacted()})
}

// keepSecret leaves a stored secret in place when the browser echoes back
// the redacted value or leaves the field blank
func keepSecret(incoming, stored string) string {
	if incoming == "" || strings.HasPrefix(incoming, "****") {
		return stored
	}
	return incoming
}

func (s *Server) handlePutSettings(c *gin.Context) {
	var in models.Settings
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if in.MaxTokens < 0 {
		badRequest(c, "max_tokens must not be negative")
		return
	}
	if in.Temperature != nil && (*in.Temperature < 0 || *in.Temperature > 2) {
		badRequest(c, "temperature must be between 0 and 2")
		return
	}

	st, err := s.state.Update(c.Request.Context(), func(st *state.State) error {
		in.LLMAPIKey = keepSecret(in.LLMAPIKey, st.Settings.LLMAPIKey)
		in.GitHubClientSecret = keepSecret(in.GitHubClientSecret, st.Settings.GitHubClientSecret)
		st.Settings = in
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": st.Settings.Redacted()})
}

func (s *Server) handleExportSettings(c *gin.Context) {
	st, err := s.state.Load(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("escriba-%s.json", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Header("Content-Type", "application/json")
	c.Status(http.StatusOK)
	if err := state.Export(c.Writer, st); err != nil {
		c.Error(err) //nolint:errcheck
	}
}

func (s *Server) handleImportSettings(c *gin.Context) {
	var r io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("file")
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		f, err := file.Open()
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		defer f.Close()
		r = f
	}

	imported, err := state.Import(r)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	st, err := s.state.Update(c.Request.Context(), func(st *state.State) error {
		*st = *imported
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// open sessions pick up the imported selection for their project
	if h, err := s.editor(c).Handle(); err == nil {
		s.editor(c).SetContext(st.Context[h.Project.Key()])
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"projects": len(st.Projects),
		"settings": st.Settings.Redacted(),
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "history": []models.HistoryEntry{}})
		return
	}

	since, err := history.ParseSince(c.Query("since"), time.Now())
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "invalid limit: "+raw)
			return
		}
		limit = n
	}

	entries, err := s.db.ListHistory(db.HistoryFilter{
		Project: c.Query("project"),
		Since:   since,
		Limit:   limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": entries})
}
