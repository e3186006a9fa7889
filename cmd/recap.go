package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/model"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/recap"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/report"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/storage"
)

// recap command flags.
var (
	recapYear      int
	recapToken     string
	recapInput     string
	recapJSON      string
	recapDB        string
	recapNoPuzzles bool
)

var recapCmd = &cobra.Command{
	Use:   "recap [username]",
	Short: "Print a yearly recap for a Lichess player",
	Long: `Streams every game the player finished in one calendar year (UTC) and prints
a summary: games per speed, results by colour, opponent strength, activity,
streaks and how games ended. With a token the puzzle section is added.

Examples:
  lichess-recap recap alice --year 2025
  lichess-recap recap alice --input alice-2025.ndjson.zst --json -
  LICHESS_TOKEN=lip_xxx lichess-recap recap alice --db ~/.lichess-recap/recaps.db`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecap,
}

func init() {
	addRecapFlags(recapCmd)
	recapCmd.Flags().StringVar(&recapInput, "input", "", "read games from an NDJSON export instead of the API (.gz/.zst, - for stdin)")
	recapCmd.Flags().StringVar(&recapJSON, "json", "", "also write the recap as JSON to this path (- for stdout only)")
	recapCmd.Flags().StringVar(&recapDB, "db", "", "also save the recap to this SQLite file")
	recapCmd.Flags().BoolVar(&recapNoPuzzles, "no-puzzles", false, "skip the puzzle section even when a token is set")
}

// addRecapFlags registers the flags shared by every command that computes a
// recap.
func addRecapFlags(c *cobra.Command) {
	c.Flags().IntVar(&recapYear, "year", 0, "calendar year to summarise (default: current UTC year)")
	c.Flags().StringVar(&recapToken, "token", "", "Lichess API token (falls back to $LICHESS_TOKEN)")
}

// applyRecapFlags folds the shared flags into cfg and validates the result.
func applyRecapFlags(cmd *cobra.Command) error {
	if cmd.Flags().Changed("year") {
		cfg.Year = recapYear
	}
	if cmd.Flags().Changed("token") {
		cfg.Lichess.Token = strings.TrimSpace(recapToken)
	}
	return cfg.Validate()
}

func runRecap(cmd *cobra.Command, args []string) error {
	if err := applyRecapFlags(cmd); err != nil {
		return err
	}
	username, err := resolveUsername(args, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	jsonPath := recapJSON
	if !cmd.Flags().Changed("json") {
		jsonPath = cfg.Export.JSONPath
	}
	dbFile := recapDB
	if !cmd.Flags().Changed("db") {
		dbFile = cfg.Export.DBPath
	}

	rc, err := recap.NewRunner(newClient()).Run(cmd.Context(), recap.Options{
		Username:  username,
		Year:      cfg.Year,
		InputPath: recapInput,
		Puzzles:   !recapNoPuzzles,
	})
	if err != nil {
		return err
	}

	// With JSON on stdout, status lines move to stderr so stdout stays a
	// single document.
	out, status := cmd.OutOrStdout(), cmd.OutOrStdout()
	switch jsonPath {
	case "-":
		status = cmd.ErrOrStderr()
		if err := report.WriteJSON(out, rc); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	case "":
		report.PrintRecap(out, rc)
	default:
		report.PrintRecap(out, rc)
		if err := writeJSONFile(jsonPath, rc); err != nil {
			return err
		}
		cMuted.Fprintf(status, "\nJSON written to %s\n", jsonPath)
	}

	if dbFile != "" {
		if err := saveRecap(dbFile, rc); err != nil {
			return err
		}
		cMuted.Fprintf(status, "Saved run %s to %s\n", rc.RunID, dbFile)
	}
	return nil
}

// resolveUsername takes the positional argument, then the configured
// username, and finally asks on in.
func resolveUsername(args []string, in io.Reader, out io.Writer) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	if cfg != nil && cfg.Username != "" {
		return cfg.Username, nil
	}
	return promptUsername(in, out)
}

func promptUsername(in io.Reader, out io.Writer) (string, error) {
	cPrompt.Fprint(out, "Enter Lichess username: ")
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("read username: %w", err)
		}
		return "", recap.ErrNoUsername
	}
	name := strings.TrimSpace(sc.Text())
	if name == "" {
		return "", recap.ErrNoUsername
	}
	return name, nil
}

func writeJSONFile(path string, rc *model.Recap) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create json dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	if err := report.WriteJSON(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("write json: %w", err)
	}
	return f.Close()
}

func saveRecap(path string, rc *model.Recap) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(path)
	if err != nil {
		return fmt.Errorf("open export db: %w", err)
	}
	defer db.Close()
	if err := db.SaveRecap(rc); err != nil {
		return fmt.Errorf("save recap: %w", err)
	}
	return nil
}

// runRecapFor computes a recap for username with the loaded config, as the
// recap command would without an input file.
func runRecapFor(cmd *cobra.Command, username string, puzzles bool) (*model.Recap, error) {
	return recap.NewRunner(newClient()).Run(cmd.Context(), recap.Options{
		Username: username,
		Year:     cfg.Year,
		Puzzles:  puzzles,
	})
}
