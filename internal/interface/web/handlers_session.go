package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/neilberkman/escriba/internal/core/library"
	"github.com/neilberkman/escriba/internal/core/llm"
	"github.com/neilberkman/escriba/internal/core/metadata"
	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/session"
	"github.com/neilberkman/escriba/internal/core/state"
	"github.com/neilberkman/escriba/internal/core/syncflow"
)

func (s *Server) editor(c *gin.Context) *session.Session {
	return s.editors.Get(identity(c).Login)
}

// handleClose drops the open file; unsaved edits are discarded
func (s *Server) handleClose(c *gin.Context) {
	if err := s.editor(c).Close(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "open": false})
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess := s.editor(c)
	h, err := sess.Handle()
	if errors.Is(err, session.ErrNoFile) {
		c.JSON(http.StatusOK, gin.H{"success": true, "open": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"open":    true,
		"handle":  h,
		"busy":    sess.Busy(),
		"context": sess.ContextPaths(),
	})
}

type openRequest struct {
	Project string `json:"project" binding:"required"`
	Path    string `json:"path" binding:"required"`
	Ref     string `json:"ref"`
}

func (s *Server) handleOpen(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := models.ParseProject(req.Project)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	path := strings.TrimPrefix(req.Path, "/")
	if !library.IsMarkdown(path) {
		badRequest(c, "only markdown files can be edited: "+path)
		return
	}

	ref, err := s.resolveRef(c, p, req.Ref)
	if err != nil {
		respondError(c, err)
		return
	}
	file, err := gh(c).ReadFile(c.Request.Context(), p.Owner, p.Repo, path, ref)
	if err != nil {
		respondError(c, err)
		return
	}
	st, err := s.state.Load(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if known, ok := st.Project(p.Key()); ok {
		p = known
	}

	sess := s.editor(c)
	h := models.FileHandle{
		Project: p,
		Path:    path,
		Content: file.Content,
		SHA:     file.SHA,
		Branch:  ref,
	}
	if err := sess.Open(h); err != nil {
		respondError(c, err)
		return
	}
	sess.SetContext(st.Context[p.Key()])

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"handle":   h,
		"metadata": metadata.Extract(h.Content),
		"context":  sess.ContextPaths(),
	})
}

type editRequest struct {
	Content *string `json:"content" binding:"required"`
}

func (s *Server) handleEdit(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	h, err := s.editor(c).Edit(*req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "dirty": h.Dirty, "sha": h.SHA})
}

type saveRequest struct {
	Mode    string `json:"mode"`
	Message string `json:"message"`
}

func (s *Server) workflow(remote syncflow.Remote) *syncflow.Workflow {
	cfg := s.Config()
	return syncflow.New(remote,
		syncflow.WithBranchNamer(s.namer),
		syncflow.WithTemplates(syncflow.TemplatesFrom(cfg.Prompts)),
		syncflow.WithMaxBranchAttempts(cfg.Sync.MaxBranchAttempts),
	)
}

func (s *Server) handleSave(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	mode, err := models.ParseSaveMode(req.Mode)
	if err != nil {
		respondError(c, err)
		return
	}

	sess := s.editor(c)
	done, err := sess.Begin(session.OpSave)
	if err != nil {
		respondError(c, err)
		return
	}
	defer done()

	h, err := sess.Handle()
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := s.workflow(gh(c)).Save(c.Request.Context(), h, mode, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	updated := sess.ApplySave(h, res)
	s.recordSync(h, res)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  res,
		"handle":  updated,
	})
}

// recordSync appends the save to history. A failure here never fails the save.
func (s *Server) recordSync(h models.FileHandle, res *models.SyncResult) {
	if s.db == nil {
		return
	}
	if _, err := s.db.RecordSync(models.HistoryEntryFor(h, res), res.CommitSHA); err != nil {
		log.Printf("Warning: failed to record save of %s: %v", h.Path, err)
	}
}

type completeRequest struct {
	Task      string `json:"task"`
	Prompt    string `json:"prompt"`
	RequestID string `json:"request_id"`
}

func (s *Server) handleComplete(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	task, err := models.ParseTaskKind(req.Task)
	if err != nil {
		respondError(c, err)
		return
	}

	login := identity(c).Login
	sess := s.editor(c)
	done, err := sess.Begin(session.OpComplete)
	if err != nil {
		respondError(c, err)
		return
	}
	defer done()

	ctx, id, finish, err := s.inflight.Track(c.Request.Context(), login, req.RequestID)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
		return
	}
	defer finish()

	st, err := s.state.Load(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	cfg := s.Config()
	provider, err := s.newLLM(ctx, llm.WithSettings(cfg.LLM, st.Settings))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	completer := llm.NewCompleter(provider, llm.TemplatesFrom(cfg.Prompts, st.Settings))

	h, err := sess.Handle()
	if err != nil {
		respondError(c, err)
		return
	}
	docs := llm.LoadContextDocs(ctx, gh(c), h.Project, h.Branch, sess.ContextPaths())

	text, err := completer.Complete(ctx, llm.CompletionRequest{
		ContextDocs:    docs,
		CurrentContent: h.Content,
		Task:           task,
		UserPrompt:     req.Prompt,
		Path:           h.Path,
		Title:          metadata.Extract(h.Content).Title,
	})
	if errors.Is(err, context.Canceled) {
		c.JSON(statusClientClosedRequest, gin.H{
			"success":    false,
			"cancelled":  true,
			"request_id": id,
			"error":      "completion cancelled",
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	updated, err := sess.ApplyCompletion(task, text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"request_id": id,
		"text":       text,
		"handle":     updated,
	})
}

func (s *Server) handleCancel(c *gin.Context) {
	if !s.inflight.Cancel(identity(c).Login, c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no such request: " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleCancelAll(c *gin.Context) {
	n := s.inflight.CancelAll(identity(c).Login)
	c.JSON(http.StatusOK, gin.H{"success": true, "cancelled": n})
}

func (s *Server) handleListContext(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "context": s.editor(c).ContextPaths()})
}

type toggleContextRequest struct {
	Path string `json:"path" binding:"required"`
}

func (s *Server) handleToggleContext(c *gin.Context) {
	var req toggleContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess := s.editor(c)
	h, err := sess.Handle()
	if err != nil {
		respondError(c, err)
		return
	}

	path := strings.TrimPrefix(req.Path, "/")
	selected := false
	if _, err := s.state.Update(c.Request.Context(), func(st *state.State) error {
		var err error
		selected, err = st.ToggleProjectContext(h.Project.Key(), path)
		return err
	}); err != nil {
		respondError(c, err)
		return
	}
	if sess.ToggleContext(path) != selected {
		// persisted and in-memory selections drifted; the persisted one wins
		st, err := s.state.Load(c.Request.Context())
		if err == nil {
			sess.SetContext(st.Context[h.Project.Key()])
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"path":     path,
		"selected": selected,
		"context":  sess.ContextPaths(),
	})
}
