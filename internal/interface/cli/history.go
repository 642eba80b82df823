package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/neilberkman/escriba/internal/core/db"
	"github.com/neilberkman/escriba/internal/core/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [query]",
	Short: "Show recorded saves",
	Long: `List saves newest first. The query accepts project:owner/repo,
mode:direct or mode:review, and a natural language time such as
"yesterday", "last week", "3 days ago" or "36h".

Examples:
  escriba history
  escriba history since last week
  escriba history project:octo/novel mode:review 7d`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of saves to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	filter, err := history.ParseQuery(strings.Join(args, " "), time.Now())
	if err != nil {
		return err
	}

	database, err := openDB()
	if err != nil {
		return err
	}
	defer func() {
		_ = database.Close()
	}()

	// mode is filtered here, so fetch without a limit when it is set
	limit := historyLimit
	if filter.Mode != "" {
		limit = 0
	}
	entries, err := database.ListHistory(db.HistoryFilter{
		Project: filter.Project,
		Since:   filter.Since,
		Limit:   limit,
	})
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	shown := 0
	for _, e := range entries {
		if filter.Mode != "" && string(e.Mode) != filter.Mode {
			continue
		}
		if historyLimit > 0 && shown >= historyLimit {
			break
		}
		shown++

		fmt.Printf("%s  %s:%s\n", humanize.Time(e.CreatedAt), e.Project, e.Path)
		fmt.Printf("    %s on %s  %s -> %s\n", e.Mode, e.Branch, shortSHA(e.OldSHA), shortSHA(e.NewSHA))
		if e.Message != "" {
			fmt.Printf("    %s\n", e.Message)
		}
		if e.PRURL != "" {
			fmt.Printf("    PR #%d %s\n", e.PRNumber, e.PRURL)
		}
	}
	if shown == 0 {
		fmt.Println("No saves found.")
	}
	return nil
}
