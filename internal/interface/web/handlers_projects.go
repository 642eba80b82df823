package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neilberkman/escriba/internal/core/github"
	"github.com/neilberkman/escriba/internal/core/library"
	"github.com/neilberkman/escriba/internal/core/metadata"
	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/state"
)

func (s *Server) handleUser(c *gin.Context) {
	user, err := gh(c).GetUser(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (s *Server) handleListRepos(c *gin.Context) {
	repos, err := gh(c).ListRepos(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "repos": repos})
}

type createRepoRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	AddProject  bool   `json:"add_project"`
}

func (s *Server) handleCreateRepo(c *gin.Context) {
	var req createRepoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	repo, err := gh(c).CreateRepo(c.Request.Context(), github.NewRepo{
		Name:        req.Name,
		Description: req.Description,
		Private:     req.Private,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if req.AddProject {
		p := models.Project{Owner: repo.Owner, Repo: repo.Name, DefaultBranch: repo.DefaultBranch, AddedAt: time.Now()}
		if _, err := s.state.Update(c.Request.Context(), func(st *state.State) error {
			st.AddProject(p)
			return nil
		}); err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "repo": repo})
}

func (s *Server) handleListProjects(c *gin.Context) {
	st, err := s.state.Load(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "projects": st.Projects})
}

type addProjectRequest struct {
	Project string `json:"project" binding:"required"` // owner/repo
}

func (s *Server) handleAddProject(c *gin.Context) {
	var req addProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := models.ParseProject(req.Project)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	repo, err := gh(c).GetRepository(c.Request.Context(), p.Owner, p.Repo)
	if err != nil {
		respondError(c, err)
		return
	}
	p.DefaultBranch = repo.DefaultBranch
	p.AddedAt = time.Now()

	if _, err := s.state.Update(c.Request.Context(), func(st *state.State) error {
		st.AddProject(p)
		return nil
	}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "project": p})
}

func (s *Server) handleRemoveProject(c *gin.Context) {
	key := c.Param("owner") + "/" + c.Param("repo")
	removed := false
	if _, err := s.state.Update(c.Request.Context(), func(st *state.State) error {
		removed = st.RemoveProject(key)
		return nil
	}); err != nil {
		respondError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "project not found: " + key})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleListBranches(c *gin.Context) {
	branches, err := gh(c).ListBranches(c.Request.Context(), c.Param("owner"), c.Param("repo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "branches": branches})
}

// resolveRef falls back to the project's default branch
func (s *Server) resolveRef(c *gin.Context, p models.Project, ref string) (string, error) {
	if ref != "" {
		return ref, nil
	}
	st, err := s.state.Load(c.Request.Context())
	if err != nil {
		return "", err
	}
	if known, ok := st.Project(p.Key()); ok && known.DefaultBranch != "" {
		return known.DefaultBranch, nil
	}
	repo, err := gh(c).GetRepository(c.Request.Context(), p.Owner, p.Repo)
	if err != nil {
		return "", err
	}
	return repo.DefaultBranch, nil
}

func pathProject(c *gin.Context) models.Project {
	return models.Project{Owner: c.Param("owner"), Repo: c.Param("repo")}
}

func (s *Server) handleListFiles(c *gin.Context) {
	p := pathProject(c)
	ref, err := s.resolveRef(c, p, c.Query("ref"))
	if err != nil {
		respondError(c, err)
		return
	}

	listing, err := library.List(c.Request.Context(), gh(c), p.Owner, p.Repo, ref)
	if err != nil {
		respondError(c, err)
		return
	}

	st, err := s.state.Load(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"ref":        ref,
		"books":      listing.Books,
		"references": listing.References,
		"context":    st.Context[p.Key()],
	})
}

func (s *Server) handleReadFile(c *gin.Context) {
	p := pathProject(c)
	path := strings.TrimPrefix(c.Query("path"), "/")
	if path == "" {
		badRequest(c, "path is required")
		return
	}
	ref, err := s.resolveRef(c, p, c.Query("ref"))
	if err != nil {
		respondError(c, err)
		return
	}

	file, err := gh(c).ReadFile(c.Request.Context(), p.Owner, p.Repo, path, ref)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"path":     file.Path,
		"ref":      ref,
		"sha":      file.SHA,
		"content":  file.Content,
		"metadata": metadata.Extract(file.Content),
	})
}
