package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/config"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/lichess"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/logger"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/version"
)

var (
	cfgPath  string
	logLevel string

	// cfg is loaded once per invocation before any subcommand runs.
	cfg *config.Config

	cPrompt = color.New(color.FgCyan, color.Bold)
	cError  = color.New(color.FgRed, color.Bold)
	cMuted  = color.New(color.Faint)
)

var rootCmd = &cobra.Command{
	Use:           "lichess-recap",
	Short:         "Yearly recap of a Lichess player's games",
	Long:          "Stream a player's games for one calendar year from lichess.org and summarise them.",
	Version:       version.String(),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			c.Log.Level = logLevel
		}
		logger.Init(logger.Options{Level: c.Log.Level, Format: c.Log.Format})
		cfg = c
		return nil
	},
}

// Execute runs the root command. Any error is printed as a single line and
// the process exits with status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cError.Fprint(os.Stderr, "Error: ")
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

// describe adds a hint to errors a user can act on.
func describe(err error) string {
	var apiErr *lichess.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound:
			return err.Error() + " (unknown user or closed account)"
		case http.StatusUnauthorized, http.StatusForbidden:
			return err.Error() + " (check the token)"
		case http.StatusTooManyRequests:
			return err.Error() + " (rate limited, try again in a minute)"
		}
	}
	return err.Error()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default ~/.lichess-recap/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "diagnostic log level (debug, info, warn, error, off)")

	rootCmd.AddCommand(recapCmd)
	rootCmd.AddCommand(puzzlesCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(versionCmd)
}

// newClient builds a lichess client from the loaded config.
func newClient() *lichess.Client {
	lc := cfg.Lichess
	return lichess.NewClient(lc.BaseURL, lc.Token,
		lichess.WithTimeout(lc.Timeout),
		lichess.WithRetries(lc.MaxRetries, time.Second),
		lichess.WithRateLimit(lc.RatePerSec, lc.Burst),
		lichess.WithLogger(logger.Named("lichess")),
	)
}
