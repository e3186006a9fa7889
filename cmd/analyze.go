package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/model"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/report"
)

const analyzeSystemPrompt = `You are a chess coach reviewing a player's year on lichess.org. You are given
a structured recap computed from every game they finished that year, and a
question from the player.

Rules:
- Answer ONLY from the data provided. Never invent or estimate statistics.
- Always cite specific numbers when making a claim.
- If the data is insufficient to answer confidently, say so explicitly.
- Be concise and practical. Focus on what the player can change.

Field glossary:
- total: every game line read, including unreadable ones (malformed).
- speeds: games per time control; "other" covers correspondence and variants of speed.
- results: wins/draws/losses from the player's side. Undecided games count as draws.
- color_results: the same split by the colour the player had.
- endings: how games terminated (mate, resign, stalemate, timeout, outoftime, draw, aborted, other).
- timeout_wins/timeout_losses: decisive games that ended on time.
- opponents.mean: average opponent rating; by_speed gives sum and count per speed.
- opponents.histogram: opponent ratings bucketed per 100 points (key = bucket floor).
- opponents.top_wins: the highest rated opponents beaten.
- activity: games per month, weekday and hour, all in UTC. longest_gap_ms is the longest pause between games.
- longest_win_streak/longest_loss_streak: in chronological order; draws break both.
- puzzles: puzzle rating start/end/peak and attempts, when available.`

var (
	analyzeModel  string
	analyzeAPIKey string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <username> <question>",
	Short: "Ask an AI coach about a player's yearly recap (requires ANTHROPIC_API_KEY)",
	Long: `Computes the recap for the player and year, then sends it with your question
to the Anthropic API. Answers are grounded in the recap numbers only.

Example:
  lichess-recap analyze alice "Why do I lose more as Black?" --year 2025`,
	Args: cobra.ExactArgs(2),
	RunE: runAnalyze,
}

func init() {
	addRecapFlags(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "Anthropic model to use (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := applyRecapFlags(cmd); err != nil {
		return err
	}
	modelID := cfg.Analyze.Model
	if analyzeModel != "" {
		modelID = analyzeModel
	}
	apiKey := cfg.Analyze.APIKey
	if analyzeAPIKey != "" {
		apiKey = analyzeAPIKey
	}
	if apiKey == "" {
		return errors.New("no API key: set ANTHROPIC_API_KEY or use --api-key")
	}

	rc, err := runRecapFor(cmd, args[0], true)
	if err != nil {
		return err
	}
	contextJSON, err := buildRecapContext(rc)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}

	return callAnthropic(cmd.Context(), os.Stdout, apiKey, modelID, contextJSON, args[1])
}

// buildRecapContext serialises rc into compact JSON for the prompt.
func buildRecapContext(rc *model.Recap) (string, error) {
	b, err := json.Marshal(report.NewDocument(rc))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// callAnthropic streams the model's answer to w.
func callAnthropic(ctx context.Context, w io.Writer, apiKey, modelID, dataJSON, question string) error {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	userMsg := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", dataJSON, question)

	fmt.Fprintln(w, "\n─── Coach ───────────────────────────────────────────")

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: analyzeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})

	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				fmt.Fprint(w, delta.Delta.AsTextDelta().Text)
			}
		}
	}
	fmt.Fprintln(w, "\n─────────────────────────────────────────────────────")

	if err := stream.Err(); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return errors.New("API authentication failed, check your API key")
		}
		return fmt.Errorf("streaming error: %w", err)
	}
	return nil
}
