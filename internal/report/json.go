package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/model"
)

// Document is the JSON rendering of a recap, keyed by name rather than by
// enum index.
type Document struct {
	RunID       string    `json:"run_id"`
	Username    string    `json:"username"`
	Year        int       `json:"year"`
	GeneratedAt time.Time `json:"generated_at"`

	Total     int `json:"total"`
	Malformed int `json:"malformed"`

	Speeds       map[string]int                `json:"speeds"`
	Results      model.ResultCounts            `json:"results"`
	ColorResults map[string]model.ResultCounts `json:"color_results"`

	Endings       map[string]int `json:"endings"`
	TimeoutWins   int            `json:"timeout_wins"`
	TimeoutLosses int            `json:"timeout_losses"`

	Opponents OpponentDoc `json:"opponents"`
	Activity  ActivityDoc `json:"activity"`

	LongestWinStreak  int `json:"longest_win_streak"`
	LongestLossStreak int `json:"longest_loss_streak"`

	PuzzlesRequested bool                 `json:"puzzles_requested"`
	Puzzles          *model.PuzzleSummary `json:"puzzles,omitempty"`
}

// OpponentDoc groups opponent-rating statistics.
type OpponentDoc struct {
	Mean      *float64                   `json:"mean,omitempty"`
	Count     int                        `json:"count"`
	BySpeed   map[string]model.RatingSum `json:"by_speed"`
	Histogram map[int]int                `json:"histogram"`
	TopWins   []model.TopWin             `json:"top_wins"`
}

// ActivityDoc groups the temporal histograms (UTC).
type ActivityDoc struct {
	Months       map[string]int `json:"months"`
	Weekdays     map[string]int `json:"weekdays"`
	Hours        [24]int        `json:"hours"`
	LongestGapMs int64          `json:"longest_gap_ms"`
}

// NewDocument flattens rc into a Document.
func NewDocument(rc *model.Recap) Document {
	s := &rc.Stats
	d := Document{
		RunID:             rc.RunID,
		Username:          rc.Username,
		Year:              rc.Year,
		GeneratedAt:       rc.GeneratedAt,
		Total:             s.Total,
		Malformed:         s.Malformed,
		Speeds:            make(map[string]int, model.NumSpeeds+1),
		Results:           s.Results,
		ColorResults:      map[string]model.ResultCounts{"white": s.ColorResults[model.ColorWhite], "black": s.ColorResults[model.ColorBlack]},
		Endings:           make(map[string]int, model.NumEndings),
		TimeoutWins:       s.TimeoutWins,
		TimeoutLosses:     s.TimeoutLosses,
		LongestWinStreak:  s.LongestWinStreak,
		LongestLossStreak: s.LongestLossStreak,
		PuzzlesRequested:  rc.PuzzlesRequested,
		Puzzles:           rc.Puzzles,
	}

	for _, sp := range model.KnownSpeeds {
		d.Speeds[sp.String()] = s.SpeedCounts[sp]
	}
	d.Speeds[model.SpeedOther.String()] = s.OtherSpeeds
	for e := model.Ending(0); e < model.NumEndings; e++ {
		d.Endings[e.String()] = s.Endings[e]
	}

	d.Opponents = OpponentDoc{
		Count:     s.OpponentRatingCount,
		BySpeed:   make(map[string]model.RatingSum, model.NumSpeeds),
		Histogram: s.OpponentRatingHistogram,
		TopWins:   s.TopWins,
	}
	if m, ok := s.MeanOpponentRating(); ok {
		d.Opponents.Mean = &m
	}
	for _, sp := range model.KnownSpeeds {
		d.Opponents.BySpeed[sp.String()] = s.OpponentBySpeed[sp]
	}
	if d.Opponents.TopWins == nil {
		d.Opponents.TopWins = []model.TopWin{}
	}

	d.Activity = ActivityDoc{
		Months:       make(map[string]int, 12),
		Weekdays:     make(map[string]int, 7),
		Hours:        s.HourCounts,
		LongestGapMs: s.LongestGapMs,
	}
	for i, name := range monthNames {
		d.Activity.Months[name] = s.MonthCounts[i]
	}
	for i, name := range weekdayNames {
		d.Activity.Weekdays[name] = s.WeekdayCounts[i]
	}
	return d
}

// WriteJSON writes rc as an indented JSON document.
func WriteJSON(w io.Writer, rc *model.Recap) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(rc))
}
