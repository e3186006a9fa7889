package aggregator

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/model"
)

// ErrFinalized is returned by a second call to Finalize.
var ErrFinalized = errors.New("aggregator already finalized")

type timelineEntry struct {
	ts      int64
	outcome model.Outcome
}

// StreamAggregator folds game records for one subject into AggregateStats.
// It is not safe for concurrent use; a run owns exactly one.
type StreamAggregator struct {
	subject string

	stats      model.AggregateStats
	timeline   []timelineEntry
	timestamps []int64
	finalized  bool
}

// New returns an empty aggregator for subject. The match against player ids
// is case-insensitive.
func New(subject string) *StreamAggregator {
	return &StreamAggregator{
		subject: strings.ToLower(subject),
		stats: model.AggregateStats{
			OpponentRatingHistogram: make(map[int]int),
		},
	}
}

// IngestMalformed counts a line that could not be decoded into a record.
func (a *StreamAggregator) IngestMalformed() {
	if a.finalized {
		return
	}
	a.stats.Total++
	a.stats.Malformed++
}

// Ingest folds one record into the running totals. Missing or unusable
// fields simply contribute nothing. Calls after Finalize are ignored.
func (a *StreamAggregator) Ingest(rec model.GameRecord) {
	if a.finalized {
		return
	}
	s := &a.stats
	s.Total++

	ts, hasTS := rec.Timestamp()
	if hasTS {
		a.timestamps = append(a.timestamps, ts)
		t := time.UnixMilli(ts).UTC()
		s.MonthCounts[t.Month()-1]++
		s.WeekdayCounts[(int(t.Weekday())+6)%7]++
		s.HourCounts[t.Hour()]++
	}

	if rec.Speed == model.SpeedOther {
		s.OtherSpeeds++
	} else {
		s.SpeedCounts[rec.Speed]++
	}

	color := rec.SubjectColor(a.subject)

	var outcome model.Outcome
	hasOutcome := color != model.ColorNone
	if hasOutcome {
		switch {
		case rec.Winner == color:
			outcome = model.OutcomeWin
		case rec.Winner == color.Opposite():
			outcome = model.OutcomeLoss
		case model.IsDrawStatus(rec.Status):
			outcome = model.OutcomeDraw
		default:
			// No winner and no draw status: undecided games score as draws too.
			outcome = model.OutcomeDraw
		}
		s.Results.Add(outcome)
		s.ColorResults[color].Add(outcome)
		a.timeline = append(a.timeline, timelineEntry{ts: ts, outcome: outcome})
	}

	if rec.Status != "" {
		s.Endings[model.ClassifyEnding(rec.Status)]++
		if hasOutcome && model.IsTimeForfeit(rec.Status) {
			switch outcome {
			case model.OutcomeWin:
				s.TimeoutWins++
			case model.OutcomeLoss:
				s.TimeoutLosses++
			}
		}
	}

	if !hasOutcome {
		return
	}
	opp := rec.Players[color.Opposite()]
	if opp.Rating == nil {
		return
	}
	r := *opp.Rating
	s.OpponentRatingSum += int64(r)
	s.OpponentRatingCount++
	if rec.Speed != model.SpeedOther {
		s.OpponentBySpeed[rec.Speed].Add(r)
	}
	s.OpponentRatingHistogram[ratingBucket(r)]++

	if outcome == model.OutcomeWin {
		name := opp.UserName
		if name == "" {
			name = model.UnknownOpponent
		}
		a.insertTopWin(model.TopWin{Rating: r, Opponent: name, GameID: rec.ID})
	}
}

// insertTopWin keeps the best MaxTopWins wins. Equal ratings keep arrival order.
func (a *StreamAggregator) insertTopWin(w model.TopWin) {
	wins := append(a.stats.TopWins, w)
	sort.SliceStable(wins, func(i, j int) bool { return wins[i].Rating > wins[j].Rating })
	if len(wins) > model.MaxTopWins {
		wins = wins[:model.MaxTopWins]
	}
	a.stats.TopWins = wins
}

// ratingBucket floors r to a multiple of 100.
func ratingBucket(r int) int {
	b := r / 100 * 100
	if r < 0 && r%100 != 0 {
		b -= 100
	}
	return b
}

// Finalize computes the order-dependent statistics and returns the result.
// It may only be called once.
func (a *StreamAggregator) Finalize() (model.AggregateStats, error) {
	if a.finalized {
		return model.AggregateStats{}, ErrFinalized
	}
	a.finalized = true

	// ---- Streaks: replay outcomes in time order. ----

	sort.SliceStable(a.timeline, func(i, j int) bool { return a.timeline[i].ts < a.timeline[j].ts })
	var curWin, curLoss int
	for _, e := range a.timeline {
		switch e.outcome {
		case model.OutcomeWin:
			curWin++
			curLoss = 0
		case model.OutcomeLoss:
			curLoss++
			curWin = 0
		default:
			curWin, curLoss = 0, 0
		}
		a.stats.LongestWinStreak = max(a.stats.LongestWinStreak, curWin)
		a.stats.LongestLossStreak = max(a.stats.LongestLossStreak, curLoss)
	}

	// ---- Longest gap between consecutive games. ----

	sort.Slice(a.timestamps, func(i, j int) bool { return a.timestamps[i] < a.timestamps[j] })
	for i := 1; i < len(a.timestamps); i++ {
		a.stats.LongestGapMs = max(a.stats.LongestGapMs, a.timestamps[i]-a.timestamps[i-1])
	}

	a.timeline, a.timestamps = nil, nil
	return a.stats, nil
}
