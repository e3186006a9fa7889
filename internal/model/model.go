package model

import (
	"strings"
	"time"
)

// Speed is the time-control category of a game.
type Speed int

const (
	SpeedBullet Speed = iota
	SpeedBlitz
	SpeedRapid
	SpeedClassical
	SpeedOther
)

// NumSpeeds is the number of known (non-Other) speeds.
const NumSpeeds = int(SpeedOther)

// KnownSpeeds lists the speeds with dedicated counters, in report order.
var KnownSpeeds = [NumSpeeds]Speed{SpeedBullet, SpeedBlitz, SpeedRapid, SpeedClassical}

// ParseSpeed maps a raw speed tag onto a Speed. Anything unrecognised,
// including ultraBullet and correspondence, is SpeedOther.
func ParseSpeed(s string) Speed {
	switch s {
	case "bullet":
		return SpeedBullet
	case "blitz":
		return SpeedBlitz
	case "rapid":
		return SpeedRapid
	case "classical":
		return SpeedClassical
	default:
		return SpeedOther
	}
}

func (s Speed) String() string {
	switch s {
	case SpeedBullet:
		return "bullet"
	case SpeedBlitz:
		return "blitz"
	case SpeedRapid:
		return "rapid"
	case SpeedClassical:
		return "classical"
	default:
		return "other"
	}
}

// Color is a side of the board.
type Color int

const (
	ColorWhite Color = iota
	ColorBlack
	ColorNone
)

// ParseColor maps "white"/"black" onto a Color; anything else is ColorNone.
func ParseColor(s string) Color {
	switch s {
	case "white":
		return ColorWhite
	case "black":
		return ColorBlack
	default:
		return ColorNone
	}
}

// Opposite returns the other side. ColorNone has no opposite.
func (c Color) Opposite() Color {
	switch c {
	case ColorWhite:
		return ColorBlack
	case ColorBlack:
		return ColorWhite
	default:
		return ColorNone
	}
}

func (c Color) String() string {
	switch c {
	case ColorWhite:
		return "white"
	case ColorBlack:
		return "black"
	default:
		return "none"
	}
}

// Outcome is a game result from the subject's point of view.
type Outcome int

const (
	OutcomeWin Outcome = iota
	OutcomeLoss
	OutcomeDraw
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeLoss:
		return "loss"
	default:
		return "draw"
	}
}

// Ending is the bucket a game's termination status is counted under.
type Ending int

const (
	EndingMate Ending = iota
	EndingResign
	EndingStalemate
	EndingTimeout
	EndingOutOfTime
	EndingAborted
	EndingDraw
	EndingOther
	NumEndings
)

var endingNames = [NumEndings]string{"mate", "resign", "stalemate", "timeout", "outoftime", "aborted", "draw", "other"}

func (e Ending) String() string {
	if e < 0 || e >= NumEndings {
		return "other"
	}
	return endingNames[e]
}

// ClassifyEnding buckets a lower-cased status string.
func ClassifyEnding(status string) Ending {
	for i, name := range endingNames[:EndingOther] {
		if status == name {
			return Ending(i)
		}
	}
	return EndingOther
}

// IsDrawStatus reports whether status names a drawn termination.
func IsDrawStatus(status string) bool {
	switch status {
	case "draw", "stalemate", "repetition", "50move",
		"timevsinsufficientmaterial", "insufficientmaterial", "agreed":
		return true
	}
	return false
}

// IsTimeForfeit reports whether status is a loss on time.
func IsTimeForfeit(status string) bool {
	return status == "timeout" || status == "outoftime"
}

// Player is one side of a game. Rating is nil when absent or not an integer.
type Player struct {
	UserID   string
	UserName string
	Rating   *int
}

// GameRecord is one decoded game. Timestamps are ms since the Unix epoch;
// zero means absent.
type GameRecord struct {
	ID         string
	CreatedAt  int64
	LastMoveAt int64
	Speed      Speed
	Players    [2]Player // indexed by ColorWhite, ColorBlack
	Status     string    // lower-cased; empty when absent
	Winner     Color
}

// Timestamp returns CreatedAt, falling back to LastMoveAt.
func (g GameRecord) Timestamp() (int64, bool) {
	if g.CreatedAt != 0 {
		return g.CreatedAt, true
	}
	if g.LastMoveAt != 0 {
		return g.LastMoveAt, true
	}
	return 0, false
}

// SubjectColor returns the side whose lower-cased user id equals subject,
// white checked first, or ColorNone. subject must already be lower-cased.
func (g GameRecord) SubjectColor(subject string) Color {
	for _, c := range []Color{ColorWhite, ColorBlack} {
		if id := g.Players[c].UserID; id != "" && strings.ToLower(id) == subject {
			return c
		}
	}
	return ColorNone
}

// ResultCounts tallies outcomes.
type ResultCounts struct {
	Win  int `json:"win"`
	Loss int `json:"loss"`
	Draw int `json:"draw"`
}

// Add counts one outcome.
func (r *ResultCounts) Add(o Outcome) {
	switch o {
	case OutcomeWin:
		r.Win++
	case OutcomeLoss:
		r.Loss++
	default:
		r.Draw++
	}
}

// Games returns Win+Loss+Draw.
func (r ResultCounts) Games() int { return r.Win + r.Loss + r.Draw }

// RatingSum accumulates ratings for a mean.
type RatingSum struct {
	Sum   int64 `json:"sum"`
	Count int   `json:"count"`
}

// Add accumulates one rating.
func (r *RatingSum) Add(rating int) {
	r.Sum += int64(rating)
	r.Count++
}

// Mean returns the average rating and false when nothing was added.
func (r RatingSum) Mean() (float64, bool) {
	if r.Count == 0 {
		return 0, false
	}
	return float64(r.Sum) / float64(r.Count), true
}

// TopWin is a win against a rated opponent.
type TopWin struct {
	Rating   int    `json:"rating"`
	Opponent string `json:"opponent"`
	GameID   string `json:"game_id"`
}

// MaxTopWins bounds AggregateStats.TopWins.
const MaxTopWins = 3

// UnknownOpponent is shown for a top win whose opponent has no name.
const UnknownOpponent = "?"

// AggregateStats is the finalized summary of one subject's year.
type AggregateStats struct {
	Total     int
	Malformed int

	SpeedCounts [NumSpeeds]int
	OtherSpeeds int

	Results      ResultCounts
	ColorResults [2]ResultCounts

	Endings       [NumEndings]int
	TimeoutWins   int
	TimeoutLosses int

	OpponentRatingSum       int64
	OpponentRatingCount     int
	OpponentBySpeed         [NumSpeeds]RatingSum
	OpponentRatingHistogram map[int]int
	TopWins                 []TopWin

	MonthCounts   [12]int
	WeekdayCounts [7]int // Monday = 0
	HourCounts    [24]int

	LongestWinStreak  int
	LongestLossStreak int
	LongestGapMs      int64
}

// MeanOpponentRating returns the mean over all rated opponents.
func (s *AggregateStats) MeanOpponentRating() (float64, bool) {
	return RatingSum{Sum: s.OpponentRatingSum, Count: s.OpponentRatingCount}.Mean()
}

// LongestGap returns LongestGapMs as a Duration.
func (s *AggregateStats) LongestGap() time.Duration {
	return time.Duration(s.LongestGapMs) * time.Millisecond
}

// PuzzleRating summarizes the puzzle rating series.
type PuzzleRating struct {
	Start  int `json:"start"`
	End    int `json:"end"`
	Peak   int `json:"peak"`
	Points int `json:"points"`
}

// PuzzleSummary is best-effort: a nil field means that part was unavailable.
type PuzzleSummary struct {
	Rating   *PuzzleRating `json:"rating,omitempty"`
	Attempts *int          `json:"attempts,omitempty"`
}

// Available reports whether any puzzle data was obtained.
func (p *PuzzleSummary) Available() bool {
	return p != nil && (p.Rating != nil || p.Attempts != nil)
}

// Recap is the full result of one run.
type Recap struct {
	RunID       string
	Username    string
	Year        int
	GeneratedAt time.Time
	Stats       AggregateStats

	// PuzzlesRequested is set when a puzzle summary was attempted, so that
	// a nil Puzzles can be reported as unavailable.
	PuzzlesRequested bool
	Puzzles          *PuzzleSummary
}

// YearWindow returns [Jan 1 year, Jan 1 year+1) in UTC as ms since the epoch.
func YearWindow(year int) (since, until int64) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start.UnixMilli(), end.UnixMilli()
}
