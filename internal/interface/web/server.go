// Package web serves the Escriba JSON API.
package web

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neilberkman/escriba/internal/core/auth"
	"github.com/neilberkman/escriba/internal/core/config"
	"github.com/neilberkman/escriba/internal/core/db"
	"github.com/neilberkman/escriba/internal/core/github"
	"github.com/neilberkman/escriba/internal/core/library"
	"github.com/neilberkman/escriba/internal/core/llm"
	"github.com/neilberkman/escriba/internal/core/session"
	"github.com/neilberkman/escriba/internal/core/state"
	"github.com/neilberkman/escriba/internal/core/syncflow"
)

// GitHub is everything the API needs from a GitHub client
type GitHub interface {
	syncflow.Remote
	library.Lister
	llm.FileReader
	GetUser(ctx context.Context) (*github.User, error)
	ListRepos(ctx context.Context) ([]github.Repository, error)
	CreateRepo(ctx context.Context, in github.NewRepo) (*github.Repository, error)
	ListBranches(ctx context.Context, owner, repo string) ([]github.Branch, error)
}

// Options wires a Server
type Options struct {
	Config   *config.Config
	DB       *db.DB
	State    state.Store // defaults to DB
	Sessions *auth.Sessions

	// NewGitHub builds a client for a user's token
	NewGitHub func(token string) GitHub
	// NewProvider builds the LLM backend for one completion
	NewProvider func(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error)
	// Now drives review branch names
	Now func() time.Time
	// UserAgent is sent to GitHub by the default NewGitHub
	UserAgent string
}

// Server is the Escriba API server
type Server struct {
	cfg       atomic.Pointer[config.Config]
	db        *db.DB
	state     *state.Guarded
	sessions  *auth.Sessions
	newGitHub func(token string) GitHub
	newLLM    func(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error)
	namer     *syncflow.BranchNamer

	editors  *session.Manager
	inflight *session.Registry
	router   *gin.Engine
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	if opts.State == nil {
		opts.State = opts.DB
	}
	if opts.NewGitHub == nil {
		clientOpts := []github.Option{github.WithBaseURL(opts.Config.GitHub.APIURL)}
		if opts.UserAgent != "" {
			clientOpts = append(clientOpts, github.WithUserAgent(opts.UserAgent))
		}
		opts.NewGitHub = func(token string) GitHub {
			return github.NewClient(token, clientOpts...)
		}
	}
	if opts.NewProvider == nil {
		opts.NewProvider = llm.NewProvider
	}

	s := &Server{
		db:        opts.DB,
		state:     state.NewGuarded(opts.State),
		sessions:  opts.Sessions,
		newGitHub: opts.NewGitHub,
		newLLM:    opts.NewProvider,
		namer:     syncflow.NewBranchNamer(opts.Config.Sync.BranchPrefix, opts.Now),
		editors:   session.NewManager(),
		inflight:  session.NewRegistry(),
	}
	s.cfg.Store(opts.Config)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	s.router = router

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "pending_completions": s.inflight.Pending()})
	})

	authRoutes := router.Group("/auth")
	{
		authRoutes.GET("/status", s.handleAuthStatus)
		authRoutes.GET("/login", s.handleLogin)
		authRoutes.GET("/callback", s.handleCallback)
		authRoutes.POST("/logout", s.handleLogout)
	}

	api := router.Group("/api", s.requireAuth)
	{
		api.GET("/user", s.handleUser)

		api.GET("/repos", s.handleListRepos)
		api.POST("/repos", s.handleCreateRepo)

		api.GET("/projects", s.handleListProjects)
		api.POST("/projects", s.handleAddProject)
		api.DELETE("/projects/:owner/:repo", s.handleRemoveProject)
		api.GET("/projects/:owner/:repo/branches", s.handleListBranches)
		api.GET("/projects/:owner/:repo/files", s.handleListFiles)
		api.GET("/projects/:owner/:repo/file", s.handleReadFile)

		api.GET("/session", s.handleGetSession)
		api.DELETE("/session", s.handleClose)
		api.POST("/session/open", s.handleOpen)
		api.PUT("/session/content", s.handleEdit)
		api.POST("/session/save", s.handleSave)
		api.POST("/session/complete", s.handleComplete)
		api.DELETE("/session/complete", s.handleCancelAll)
		api.DELETE("/session/complete/:id", s.handleCancel)
		api.GET("/session/context", s.handleListContext)
		api.POST("/session/context", s.handleToggleContext)

		api.GET("/settings", s.handleGetSettings)
		api.PUT("/settings", s.handlePutSettings)
		api.GET("/settings/export", s.handleExportSettings)
		api.POST("/settings/import", s.handleImportSettings)

		api.GET("/history", s.handleHistory)
	}

	return s
}

// Config returns the configuration in effect
func (s *Server) Config() *config.Config {
	return s.cfg.Load()
}

// SetConfig swaps the configuration; prompts and LLM settings apply to the next request
func (s *Server) SetConfig(cfg *config.Config) {
	s.cfg.Store(cfg)
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
