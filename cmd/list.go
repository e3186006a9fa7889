package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/storage"
)

var listCmd = &cobra.Command{
	Use:   "list <export.db>",
	Short: "List recaps saved in an export database",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err != nil {
		return fmt.Errorf("export db: %w", err)
	}
	db, err := storage.Open(args[0])
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	recaps, err := db.ListRecaps()
	if err != nil {
		return fmt.Errorf("list recaps: %w", err)
	}
	if len(recaps) == 0 {
		fmt.Fprintln(os.Stdout, "No recaps saved yet. Run 'lichess-recap recap <username> --db <file>' to add one.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-20s  %4s  %-20s  %6s  %s\n",
		"RUN", "USER", "YEAR", "GENERATED", "GAMES", "W/D/L")
	fmt.Fprintf(os.Stdout, "%-36s  %-20s  %4s  %-20s  %6s  %s\n",
		"────────────────────────────────────", "────────────────────", "────", "────────────────────", "──────", "─────")
	for _, r := range recaps {
		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %4d  %-20s  %6d  %d/%d/%d\n",
			r.RunID, r.Username, r.Year, r.GeneratedAt, r.Total, r.Wins, r.Draws, r.Losses)
	}
	return nil
}
