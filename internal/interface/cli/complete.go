package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/neilberkman/escriba/internal/core/llm"
	"github.com/neilberkman/escriba/internal/core/metadata"
	"github.com/neilberkman/escriba/internal/core/models"
	"github.com/neilberkman/escriba/internal/core/session"
)

var (
	completeTask   string
	completePrompt string
	completeRef    string
	completeCopy   bool
	completeApply  string
	completeDryRun bool
)

var completeCmd = &cobra.Command{
	Use:   "complete <owner/repo> <path>",
	Short: "Continue or revise a file with the LLM",
	Long: `Send a file and the project's selected context files to the LLM and
print the result. Ctrl-C cancels the request.

  --task continue   text to append after the file (default)
  --task revise     a full revised version of the file

Examples:
  escriba complete octo/novel books/one.md
  escriba complete octo/novel books/one.md --task revise --prompt "shorter sentences"
  escriba complete octo/novel books/one.md --apply one.md
  escriba complete octo/novel books/one.md --dry-run`,
	Args: cobra.ExactArgs(2),
	RunE: runComplete,
}

func init() {
	rootCmd.AddCommand(completeCmd)
	completeCmd.Flags().StringVar(&completeTask, "task", "continue", "continue or revise")
	completeCmd.Flags().StringVarP(&completePrompt, "prompt", "p", "", "Extra instructions for this request")
	completeCmd.Flags().StringVar(&completeRef, "ref", "", "Branch to read (default: project default branch)")
	completeCmd.Flags().BoolVar(&completeCopy, "copy", false, "Copy the result to the clipboard")
	completeCmd.Flags().StringVar(&completeApply, "apply", "", "Write the file with the result applied to this local path")
	completeCmd.Flags().BoolVar(&completeDryRun, "dry-run", false, "Print the prompt instead of sending it")
	completeCmd.Flags().String("model", "", "Model to use (overrides llm.model)")
	bindOverride(overrides, "llm.model", completeCmd, "model")
}

func runComplete(cmd *cobra.Command, args []string) error {
	task, err := models.ParseTaskKind(completeTask)
	if err != nil {
		return err
	}
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

	ctx, cancel := signalContext()
	defer cancel()

	ref, err := ws.resolveRef(ctx, p, completeRef)
	if err != nil {
		return err
	}
	file, err := ws.github.ReadFile(ctx, p.Owner, p.Repo, path, ref)
	if err != nil {
		return err
	}
	st, err := ws.state.Load(ctx)
	if err != nil {
		return err
	}

	docs := llm.LoadContextDocs(ctx, ws.github, p, ref, st.Context[p.Key()])
	req := llm.CompletionRequest{
		ContextDocs:    docs,
		CurrentContent: file.Content,
		Task:           task,
		UserPrompt:     completePrompt,
		Path:           path,
		Title:          metadata.Extract(file.Content).Title,
	}
	templates := llm.TemplatesFrom(ws.cfg.Prompts, st.Settings)

	if completeDryRun {
		prompt, err := llm.NewCompleter(nil, templates).Prompt(req)
		if err != nil {
			return err
		}
		fmt.Println(prompt)
		return nil
	}

	provider, err := llm.NewProvider(ctx, llm.WithSettings(ws.cfg.LLM, st.Settings))
	if err != nil {
		return err
	}

	spin := NewSpinner(fmt.Sprintf("Asking %s to %s %s...", provider.Name(), task, path))
	spin.Start()
	text, err := llm.NewCompleter(provider, templates).Complete(ctx, req)
	spin.Stop()
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("cancelled; nothing was applied")
	}
	if err != nil {
		return err
	}

	fmt.Println(text)

	if completeCopy {
		if err := clipboard.WriteAll(text); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to copy to clipboard: %v\n", err)
		} else {
			fmt.Fprintln(os.Stderr, "Copied to clipboard")
		}
	}

	if completeApply != "" {
		sess := session.New(nil)
		if err := sess.Open(models.FileHandle{Project: p, Path: path, Content: file.Content, SHA: file.SHA, Branch: ref}); err != nil {
			return err
		}
		h, err := sess.ApplyCompletion(task, text)
		if err != nil {
			return err
		}
		if err := os.WriteFile(completeApply, []byte(h.Content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", completeApply, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", completeApply)
	}
	return nil
}
