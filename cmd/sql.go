package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/storage"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <export.db> <query>",
	Short: "Run a raw SQL query against a recap export",
	Long: `Run an arbitrary SQL query against a SQLite export written by 'recap --db'
and print the result as a table.

Schema overview:
  recaps(run_id, username, year, generated_at, total, malformed, wins, draws, losses,
    timeout_wins, timeout_losses, opp_rating_sum, opp_rating_count,
    longest_win_streak, longest_loss_streak, longest_gap_ms,
    puzzle_rating_start, puzzle_rating_end, puzzle_rating_peak, puzzle_points, puzzle_attempts)
  recap_counts(run_id, kind, bucket, count)
    kind: speed, ending, color_win, color_draw, color_loss, month, weekday, hour, rating_bucket
  recap_opponents_by_speed(run_id, speed, rating_sum, rating_count)
  recap_top_wins(run_id, rank, rating, opponent, game_id)

Example:
  lichess-recap sql recaps.db "SELECT bucket, count FROM recap_counts WHERE kind = 'month'"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	path, query := args[0], strings.Join(args[1:], " ")
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("export db: %w", err)
	}
	db, err := storage.Open(path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	printRows(os.Stdout, cols, rows)
	return nil
}

// printRows renders a query result as a table followed by its row count.
func printRows(w io.Writer, cols []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}

	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	table.Header(toAny(cols)...)
	for _, row := range rows {
		table.Append(toAny(row)...)
	}
	table.Render()

	noun := "rows"
	if len(rows) == 1 {
		noun = "row"
	}
	fmt.Fprintf(w, "\n(%d %s)\n", len(rows), noun)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
