package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/puzzle"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/report"
)

var puzzlesCmd = &cobra.Command{
	Use:   "puzzles [username]",
	Short: "Print only the puzzle section of a recap (requires a token)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPuzzles,
}

func init() {
	addRecapFlags(puzzlesCmd)
}

func runPuzzles(cmd *cobra.Command, args []string) error {
	if err := applyRecapFlags(cmd); err != nil {
		return err
	}
	client := newClient()
	if !client.HasToken() {
		return errors.New("puzzle statistics need a token: use --token or set LICHESS_TOKEN")
	}
	username, err := resolveUsername(args, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	p := puzzle.Summarize(cmd.Context(), client, username, cfg.Year)
	report.PrintPuzzles(os.Stdout, cfg.Year, p)
	return nil
}
