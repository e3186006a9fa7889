// Package recap runs one subject/year aggregation from a game source to a
// finished model.Recap.
package recap

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/aggregator"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/lichess"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/logger"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/model"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/puzzle"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/source"
)

// ErrNoUsername is returned when a run has no subject.
var ErrNoUsername = errors.New("a lichess username is required")

// GameSource opens a stream of NDJSON games for a subject and window.
type GameSource interface {
	StreamGames(ctx context.Context, username string, since, until int64) (io.ReadCloser, error)
}

// Options selects what a run covers.
type Options struct {
	Username string
	Year     int
	// InputPath reads games from a local export instead of the API. The
	// year window is then applied locally.
	InputPath string
	Puzzles   bool
}

// Runner wires the collaborators of a run. Puzzles may be nil.
type Runner struct {
	Games   GameSource
	Puzzles puzzle.Fetcher
	now     func() time.Time
}

// NewRunner returns a Runner backed by client for both games and puzzles.
func NewRunner(client *lichess.Client) *Runner {
	return &Runner{Games: client, Puzzles: client}
}

// Run streams every game, aggregates and finalizes. Any error from the
// source aborts the run and no partial statistics are returned.
func (r *Runner) Run(ctx context.Context, opt Options) (*model.Recap, error) {
	username := strings.TrimSpace(opt.Username)
	if username == "" {
		return nil, ErrNoUsername
	}
	now := time.Now
	if r.now != nil {
		now = r.now
	}

	runID := uuid.NewString()
	log := logger.Named("recap").With().Str("run_id", runID).Str("user", username).Int("year", opt.Year).Logger()
	start := now()

	agg := aggregator.New(username)
	since, until := model.YearWindow(opt.Year)

	var (
		body io.ReadCloser
		sink lichess.Sink = agg
		win  *source.WindowFilter
		err  error
	)
	if opt.InputPath != "" {
		body, err = source.Open(opt.InputPath)
		win = source.WindowedYear(agg, opt.Year)
		sink = win
	} else {
		body, err = r.Games.StreamGames(ctx, username, since, until)
	}
	if err != nil {
		return nil, err
	}
	defer body.Close()

	st, err := lichess.DecodeGames(body, sink)
	if err != nil {
		log.Debug().Err(err).Int("records", st.Records).Msg("stream aborted, discarding partial state")
		return nil, err
	}

	stats, err := agg.Finalize()
	if err != nil {
		return nil, err
	}
	ev := log.Info().Int("total", stats.Total).Int("malformed", stats.Malformed).Dur("elapsed", now().Sub(start))
	if win != nil {
		ev = ev.Int("outside_window", win.Dropped)
	}
	ev.Msg("games aggregated")

	rc := &model.Recap{
		RunID:       runID,
		Username:    username,
		Year:        opt.Year,
		GeneratedAt: now().UTC(),
		Stats:       stats,
	}
	if opt.Puzzles && r.Puzzles != nil && r.Puzzles.HasToken() {
		rc.PuzzlesRequested = true
		rc.Puzzles = puzzle.Summarize(ctx, r.Puzzles, username, opt.Year)
	}
	return rc, nil
}
