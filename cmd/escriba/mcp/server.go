// Package mcp exposes a project library to MCP clients over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/neilberkman/escriba/internal/core/config"
	"github.com/neilberkman/escriba/internal/core/db"
	"github.com/neilberkman/escriba/internal/core/library"
	"github.com/neilberkman/escriba/internal/core/llm"
	"github.com/neilberkman/escriba/internal/core/metadata"
	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/state"
	"github.com/neilberkman/escriba/internal/core/syncflow"
)

// Remote is the GitHub access the tools need
type Remote interface {
	syncflow.Remote
	library.Lister
	llm.FileReader
}

// Deps wires the tools
type Deps struct {
	Config *config.Config
	GitHub Remote
	State  *state.Guarded
	DB     *db.DB // history; optional

	// NewProvider defaults to llm.NewProvider
	NewProvider func(ctx context.Context, cfg config.LLMConfig) (llm.Provider, error)
}

// ListFilesArgs defines arguments for the list_files tool
type ListFilesArgs struct {
	Project string `json:"project" jsonschema:"description=Repository as owner/repo,required"`
	Ref     string `json:"ref,omitempty" jsonschema:"description=Branch (default: repository default branch)"`
}

// ReadFileArgs defines arguments for the read_file tool
type ReadFileArgs struct {
	Project string `json:"project" jsonschema:"description=Repository as owner/repo,required"`
	Path    string `json:"path" jsonschema:"description=File path such as books/one.md,required"`
	Ref     string `json:"ref,omitempty" jsonschema:"description=Branch (default: repository default branch)"`
}

// GenerateTextArgs defines arguments for the generate_text tool
type GenerateTextArgs struct {
	Project string `json:"project" jsonschema:"description=Repository as owner/repo,required"`
	Path    string `json:"path" jsonschema:"description=File to continue or revise,required"`
	Task    string `json:"task,omitempty" jsonschema:"description=continue (default) or revise"`
	Prompt  string `json:"prompt,omitempty" jsonschema:"description=Extra instructions"`
	Ref     string `json:"ref,omitempty" jsonschema:"description=Branch (default: repository default branch)"`
}

// SaveFileArgs defines arguments for the save_file tool
type SaveFileArgs struct {
	Project string `json:"project" jsonschema:"description=Repository as owner/repo,required"`
	Path    string `json:"path" jsonschema:"description=File path,required"`
	Content string `json:"content" jsonschema:"description=Full new file content,required"`
	SHA     string `json:"sha" jsonschema:"description=Blob SHA returned by read_file; empty creates a new file"`
	Mode    string `json:"mode,omitempty" jsonschema:"description=direct (default) or review"`
	Message string `json:"message,omitempty" jsonschema:"description=Commit message"`
	Ref     string `json:"ref,omitempty" jsonschema:"description=Branch to commit to (default: repository default branch)"`
}

// FileSummary is one entry of list_files
type FileSummary struct {
	Path    string `json:"path"`
	Root    string `json:"root"`
	Size    int64  `json:"size"`
	Context bool   `json:"context"`
}

// FileDetail is the result of read_file
type FileDetail struct {
	Path     string            `json:"path"`
	Ref      string            `json:"ref"`
	SHA      string            `json:"sha"`
	Content  string            `json:"content"`
	Metadata metadata.Metadata `json:"metadata"`
}

// StartServer serves the tools on stdio until the client disconnects
func StartServer(deps Deps) error {
	return server.ServeStdio(NewServer(deps))
}

// NewServer registers the tools
func NewServer(deps Deps) *server.MCPServer {
	if deps.NewProvider == nil {
		deps.NewProvider = llm.NewProvider
	}

	s := server.NewMCPServer(
		"Escriba",
		"1.0.0",
	)

	listTool := mcp.NewTool("list_files",
		mcp.WithDescription("List the markdown files under books/ and references/ of a repository. Files marked context are sent along with generate_text."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Repository as owner/repo")),
		mcp.WithString("ref",
			mcp.Description("Branch (default: repository default branch)")),
	)
	s.AddTool(listTool, makeListFilesHandler(deps))

	readTool := mcp.NewTool("read_file",
		mcp.WithDescription("Read a file with its blob SHA, front matter and word count"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Repository as owner/repo")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File path such as books/one.md")),
		mcp.WithString("ref",
			mcp.Description("Branch (default: repository default branch)")),
	)
	s.AddTool(readTool, makeReadFileHandler(deps))

	generateTool := mcp.NewTool("generate_text",
		mcp.WithDescription("Continue or revise a file with the configured LLM, using the project's selected context files. Returns the generated text without saving it."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Repository as owner/repo")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File to continue or revise")),
		mcp.WithString("task",
			mcp.Description("'continue' (default) appends new text, 'revise' rewrites the whole file")),
		mcp.WithString("prompt",
			mcp.Description("Extra instructions for this request")),
		mcp.WithString("ref",
			mcp.Description("Branch (default: repository default branch)")),
	)
	s.AddTool(generateTool, makeGenerateTextHandler(deps))

	saveTool := mcp.NewTool("save_file",
		mcp.WithDescription("Save a file as a direct commit, or on a new branch with a pull request (mode=review). Fails with a conflict if the file changed since the given SHA was read."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Repository as owner/repo")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File path")),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Full new file content")),
		mcp.WithString("sha",
			mcp.Description("Blob SHA returned by read_file; empty creates a new file")),
		mcp.WithString("mode",
			mcp.Description("'direct' (default) or 'review'")),
		mcp.WithString("message",
			mcp.Description("Commit message")),
		mcp.WithString("ref",
			mcp.Description("Branch to commit to (default: repository default branch)")),
	)
	s.AddTool(saveTool, makeSaveFileHandler(deps))

	return s
}


func decodeArgs(request mcp.CallToolRequest, out interface{}) error {
	argsBytes, _ := json.Marshal(request.Params.Arguments)
	if err := json.Unmarshal(argsBytes, out); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// resolve parses the project and picks the branch
func resolve(ctx context.Context, deps Deps, project, ref string) (models.Project, string, error) {
	p, err := models.ParseProject(project)
	if err != nil {
		return p, "", err
	}
	if ref != "" {
		return p, ref, nil
	}
	st, err := deps.State.Load(ctx)
	if err != nil {
		return p, "", err
	}
	if known, ok := st.Project(p.Key()); ok && known.DefaultBranch != "" {
		return p, known.DefaultBranch, nil
	}
	repo, err := deps.GitHub.GetRepository(ctx, p.Owner, p.Repo)
	if err != nil {
		return p, "", err
	}
	return p, repo.DefaultBranch, nil
}

func makeListFilesHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ListFilesArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p, ref, err := resolve(ctx, deps, args.Project, args.Ref)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		listing, err := library.List(ctx, deps.GitHub, p.Owner, p.Repo, ref)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		st, err := deps.State.Load(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		selected := models.NewContextSelection(st.Context[p.Key()]...)

		files := []FileSummary{}
		for _, f := range listing.All() {
			files = append(files, FileSummary{
				Path:    f.Path,
				Root:    f.Root,
				Size:    f.Size,
				Context: selected.Contains(f.Path),
			})
		}
		return jsonResult(files)
	}
}

func makeReadFileHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ReadFileArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p, ref, err := resolve(ctx, deps, args.Project, args.Ref)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		file, err := deps.GitHub.ReadFile(ctx, p.Owner, p.Repo, strings.TrimPrefix(args.Path, "/"), ref)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(FileDetail{
			Path:     file.Path,
			Ref:      ref,
			SHA:      file.SHA,
			Content:  file.Content,
			Metadata: metadata.Extract(file.Content),
		})
	}
}

func makeGenerateTextHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args GenerateTextArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		task, err := models.ParseTaskKind(args.Task)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p, ref, err := resolve(ctx, deps, args.Project, args.Ref)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		path := strings.TrimPrefix(args.Path, "/")

		file, err := deps.GitHub.ReadFile(ctx, p.Owner, p.Repo, path, ref)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		st, err := deps.State.Load(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		provider, err := deps.NewProvider(ctx, llm.WithSettings(deps.Config.LLM, st.Settings))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		completer := llm.NewCompleter(provider, llm.TemplatesFrom(deps.Config.Prompts, st.Settings))

		text, err := completer.Complete(ctx, llm.CompletionRequest{
			ContextDocs:    llm.LoadContextDocs(ctx, deps.GitHub, p, ref, st.Context[p.Key()]),
			CurrentContent: file.Content,
			Task:           task,
			UserPrompt:     args.Prompt,
			Path:           path,
			Title:          metadata.Extract(file.Content).Title,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

func makeSaveFileHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args SaveFileArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		mode, err := models.ParseSaveMode(args.Mode)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p, ref, err := resolve(ctx, deps, args.Project, args.Ref)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		h := models.FileHandle{
			Project: p,
			Path:    strings.TrimPrefix(args.Path, "/"),
			Content: args.Content,
			SHA:     args.SHA,
			Branch:  ref,
		}
		wf := syncflow.New(deps.GitHub,
			syncflow.WithTemplates(syncflow.TemplatesFrom(deps.Config.Prompts)),
			syncflow.WithMaxBranchAttempts(deps.Config.Sync.MaxBranchAttempts),
			syncflow.WithBranchNamer(syncflow.NewBranchNamer(deps.Config.Sync.BranchPrefix, nil)),
		)
		res, err := wf.Save(ctx, h, mode, args.Message)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if deps.DB != nil {
			if _, err := deps.DB.RecordSync(models.HistoryEntryFor(h, res), res.CommitSHA); err != nil {
				log.Printf("Error recording save of %s: %v", h.Path, err)
			}
		}
		return jsonResult(res)
	}
}
