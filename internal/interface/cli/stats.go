package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Long: `Display statistics about your saves.

Shows project and save counts, pull requests opened, pulled drafts,
the most edited file and storage info.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer func() {
		_ = database.Close()
	}()

	stats, err := database.GetStats()
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	fmt.Println("Database Statistics")
	fmt.Println("===================")
	fmt.Println()
	fmt.Printf("Projects:          %d\n", stats.TotalProjects)
	fmt.Printf("Saves:             %d\n", stats.TotalSaves)
	fmt.Printf("  Direct commits:  %d\n", stats.DirectSaves)
	fmt.Printf("  Pull requests:   %d\n", stats.PullRequests)
	fmt.Printf("Pulled drafts:     %d\n", stats.Drafts)
	fmt.Println()

	if stats.TotalSaves > 0 {
		fmt.Printf("First Save:        %s\n", stats.FirstSave.Format("Jan 2, 2006 3:04 PM"))
		fmt.Printf("Last Save:         %s (%s)\n", stats.LastSave.Format("Jan 2, 2006 3:04 PM"), humanize.Time(stats.LastSave))
		fmt.Println()
		fmt.Printf("Most Edited File:\n")
		fmt.Printf("  Path:   %s\n", stats.MostEditedPath)
		fmt.Printf("  Saves:  %d\n", stats.MostEditedCount)
		fmt.Println()
	}

	fileInfo, err := os.Stat(dbPath)
	if err != nil {
		return fmt.Errorf("failed to stat database file: %w", err)
	}
	fmt.Printf("Database Location: %s\n", dbPath)
	fmt.Printf("Database Size:     %s\n", humanize.Bytes(uint64(fileInfo.Size())))
	return nil
}
