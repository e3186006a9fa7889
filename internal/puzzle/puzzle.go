// Package puzzle builds the best-effort puzzle section of a recap.
package puzzle

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"unicode/utf8"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/lichess"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/logger"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/model"
)

// seriesName is the rating-history entry holding puzzle ratings.
const seriesName = "Puzzle"

// Fetcher is the subset of *lichess.Client used here.
type Fetcher interface {
	HasToken() bool
	RatingHistory(ctx context.Context, username string) ([]lichess.RatingSeries, error)
	PuzzleActivity(ctx context.Context, since, until int64) (io.ReadCloser, error)
}

// Summarize collects the puzzle rating curve and the number of puzzles
// attempted in year. It never fails: without a token it returns nil, and a
// part that cannot be fetched is left nil. If neither part is available the
// result is nil.
func Summarize(ctx context.Context, f Fetcher, username string, year int) *model.PuzzleSummary {
	if !f.HasToken() {
		return nil
	}
	log := logger.Named("puzzle")
	sum := &model.PuzzleSummary{}

	if series, err := f.RatingHistory(ctx, username); err != nil {
		log.Debug().Err(err).Msg("rating history unavailable")
	} else {
		sum.Rating = ratingCurve(series)
	}

	since, until := model.YearWindow(year)
	if n, err := countAttempts(ctx, f, since, until); err != nil {
		log.Debug().Err(err).Msg("puzzle activity unavailable")
	} else {
		sum.Attempts = &n
	}

	if !sum.Available() {
		return nil
	}
	return sum
}

func ratingCurve(series []lichess.RatingSeries) *model.PuzzleRating {
	for _, s := range series {
		if s.Name != seriesName {
			continue
		}
		var r *model.PuzzleRating
		for _, p := range s.Points {
			if len(p) < 4 {
				continue
			}
			v := p[3]
			if r == nil {
				r = &model.PuzzleRating{Start: v, Peak: v}
			}
			r.End = v
			r.Peak = max(r.Peak, v)
			r.Points++
		}
		return r
	}
	return nil
}

// countAttempts counts the non-blank lines of the activity stream that hold
// valid JSON.
func countAttempts(ctx context.Context, f Fetcher, since, until int64) (int, error) {
	body, err := f.PuzzleActivity(ctx, since, until)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	n := 0
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || !utf8.Valid(line) || !json.Valid(line) {
			continue
		}
		n++
	}
	return n, sc.Err()
}
