package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/syncflow"
)

var (
	pullRef    string
	pullOutput string
	pushMode   string
	pushMsg    string
	pushKeep   bool
)

var pullCmd = &cobra.Command{
	Use:   "pull <owner/repo> <path>",
	Short: "Download a file to edit locally",
	Long: `Download a file and remember the revision it came from. 'escriba push'
saves it back with that revision as the precondition, so edits made on
GitHub in between are reported as a conflict instead of overwritten.

Examples:
  escriba pull octo/novel books/one.md
  escriba pull octo/novel books/one.md -o chapter.md`,
	Args: cobra.ExactArgs(2),
	RunE: runPull,
}

var pushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Save a pulled file back to GitHub",
	Long: `Save a file downloaded with 'escriba pull'.

  --mode direct   commit to the branch it was pulled from (default)
  --mode review   commit to a new branch and open a pull request

Examples:
  escriba push one.md -m "Tighten the opening"
  escriba push one.md --mode review`,
	Args: cobra.ExactArgs(1),
	RunE: runPush,
}

func init() {
	rootCmd.AddCommand(pullCmd, pushCmd)
	pullCmd.Flags().StringVar(&pullRef, "ref", "", "Branch to read (default: project default branch)")
	pullCmd.Flags().StringVarP(&pullOutput, "output", "o", "", "Local file (default: file name in current directory)")
	pushCmd.Flags().StringVar(&pushMode, "mode", "direct", "direct or review")
	pushCmd.Flags().StringVarP(&pushMsg, "message", "m", "", "Commit message (default from [prompts] commit_message)")
	pushCmd.Flags().BoolVar(&pushKeep, "keep", false, "Keep tracking a review save instead of forgetting it")
}

func runPull(cmd *cobra.Command, args []string) error {
	p, err := models.ParseProject(args[0])
	if err != nil {
		return err
	}
	path := strings.TrimPrefix(args[1], "/")

	ws, err := openWorkspace(true)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := cmd.Context()
	ref, err := ws.resolveRef(ctx, p, pullRef)
	if err != nil {
		return err
	}
	file, err := ws.github.ReadFile(ctx, p.Owner, p.Repo, path, ref)
	if err != nil {
		return err
	}

	out := pullOutput
	if out == "" {
		out = filepath.Base(path)
	}
	out, err = filepath.Abs(out)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, []byte(file.Content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	if err := ws.db.SaveDraft(models.Draft{
		LocalPath: out,
		Project:   p,
		Path:      path,
		Branch:    ref,
		SHA:       file.SHA,
		PulledAt:  time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to record draft: %w", err)
	}

	fmt.Printf("Pulled %s@%s to %s\n", path, ref, out)
	return nil
}

func runPush(cmd *cobra.Command, args []string) error {
	mode, err := models.ParseSaveMode(pushMode)
	if err != nil {
		return err
	}
	local, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	ws, err := openWorkspace(true)
	if err != nil {
		return err
	}
	defer ws.Close()

	draft, err := ws.db.GetDraft(local)
	if err != nil {
		return err
	}
	if draft == nil {
		return fmt.Errorf("%s was not pulled with 'escriba pull'", local)
	}
	content, err := os.ReadFile(local)
	if err != nil {
		return err
	}

	h := models.FileHandle{
		Project: draft.Project,
		Path:    draft.Path,
		Content: string(content),
		SHA:     draft.SHA,
		Branch:  draft.Branch,
	}

	wf := syncflow.New(ws.github,
		syncflow.WithTemplates(syncflow.TemplatesFrom(ws.cfg.Prompts)),
		syncflow.WithMaxBranchAttempts(ws.cfg.Sync.MaxBranchAttempts),
		syncflow.WithBranchNamer(syncflow.NewBranchNamer(ws.cfg.Sync.BranchPrefix, nil)),
	)
	res, err := wf.Save(cmd.Context(), h, mode, pushMsg)
	if err != nil {
		return err
	}
	recordHistory(ws, h, res)

	switch res.Mode {
	case models.SaveDirect:
		draft.SHA = res.SHA
		if err := ws.db.SaveDraft(*draft); err != nil {
			return fmt.Errorf("saved, but failed to update draft: %w", err)
		}
		fmt.Printf("Committed %s to %s (%s)\n", h.Path, res.Branch, shortSHA(res.CommitSHA))
	case models.SaveReview:
		if !pushKeep {
			if err := ws.db.DeleteDraft(local); err != nil {
				return fmt.Errorf("saved, but failed to forget draft: %w", err)
			}
		}
		fmt.Printf("Opened pull request #%d from %s\n", res.PullRequest.Number, res.Branch)
		fmt.Printf("  %s\n", res.PullRequest.URL)
	}
	return nil
}

func recordHistory(ws *workspace, h models.FileHandle, res *models.SyncResult) {
	if _, err := ws.db.RecordSync(models.HistoryEntryFor(h, res), res.CommitSHA); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record history: %v\n", err)
	}
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
