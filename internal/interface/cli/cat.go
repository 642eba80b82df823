package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/spf13/cobra"

	"github.com/neilberkman/escriba/internal/core/metadata"
	"github.com/neilberkman/escriba/internal/core/models"
)

var (
	catRef   string
	catColor bool
	catMeta  bool
	catStyle string
)

var catCmd = &cobra.Command{
	Use:   "cat <owner/repo> <path>",
	Short: "Print a file",
	Long: `Print a file from a project.

Examples:
  escriba cat octo/novel books/one.md
  escriba cat octo/novel books/one.md --color --meta`,
	Args: cobra.ExactArgs(2),
	RunE: runCat,
}

func init() {
	rootCmd.AddCommand(catCmd)
	catCmd.Flags().StringVar(&catRef, "ref", "", "Branch to read (default: project default branch)")
	catCmd.Flags().BoolVar(&catColor, "color", false, "Syntax highlight the markdown")
	catCmd.Flags().StringVar(&catStyle, "style", "monokai", "Highlight style for --color")
	catCmd.Flags().BoolVar(&catMeta, "meta", false, "Print front matter and word count first")
}

func runCat(cmd *cobra.Command, args []string) error {
	p, err := models.ParseProject(args[0])
	if err != nil {
		return err
	}
	ws, err := openWorkspace(true)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := cmd.Context()
	ref, err := ws.resolveRef(ctx, p, catRef)
	if err != nil {
		return err
	}
	file, err := ws.github.ReadFile(ctx, p.Owner, p.Repo, strings.TrimPrefix(args[1], "/"), ref)
	if err != nil {
		return err
	}

	if catMeta {
		md := metadata.Extract(file.Content)
		fmt.Printf("Path:   %s@%s\n", file.Path, ref)
		fmt.Printf("SHA:    %s\n", file.SHA)
		if md.Title != "" {
			fmt.Printf("Title:  %s\n", md.Title)
		}
		if md.Author != "" {
			fmt.Printf("Author: %s\n", md.Author)
		}
		if md.Status != "" {
			fmt.Printf("Status: %s\n", md.Status)
		}
		if len(md.Tags) > 0 {
			fmt.Printf("Tags:   %s\n", strings.Join(md.Tags, ", "))
		}
		fmt.Printf("Words:  %d\n\n", md.Words)
	}

	if catColor {
		if err := quick.Highlight(os.Stdout, file.Content, "markdown", "terminal256", catStyle); err == nil {
			return nil
		}
	}
	fmt.Print(file.Content)
	return nil
}
