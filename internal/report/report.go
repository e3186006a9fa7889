package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/model"
)

var (
	monthNames   = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	weekdayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

	headingColor = color.New(color.FgCyan, color.Bold)
)

const msPerDay = 1000 * 60 * 60 * 24

// PrintRecap writes the full text report for rc.
func PrintRecap(w io.Writer, rc *model.Recap) {
	s := &rc.Stats
	PrintHeader(w, rc)
	PrintSpeedTable(w, s)
	PrintResults(w, s)
	PrintOpponentStrength(w, s)
	PrintActivity(w, s)
	PrintEndings(w, s)
	if rc.PuzzlesRequested {
		PrintPuzzles(w, rc.Year, rc.Puzzles)
	}
}

func heading(w io.Writer, title string) {
	fmt.Fprintln(w)
	headingColor.Fprintln(w, title)
}

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintHeader prints the one-line headline.
func PrintHeader(w io.Writer, rc *model.Recap) {
	fmt.Fprintf(w, "%s played %s games in %d.\n", rc.Username, humanize.Comma(int64(rc.Stats.Total)), rc.Year)
	if rc.Stats.Malformed > 0 {
		fmt.Fprintf(w, "(%s of them could not be read and only count toward the total)\n", humanize.Comma(int64(rc.Stats.Malformed)))
	}
}

// PrintSpeedTable prints games and opponent strength per time control. The
// Other row only appears when non-zero.
func PrintSpeedTable(w io.Writer, s *model.AggregateStats) {
	heading(w, "Breakdown by speed")
	table := newTable(w)
	table.Header("SPEED", "GAMES", "OPP AVG", "RATED OPP")
	for _, sp := range model.KnownSpeeds {
		opp := s.OpponentBySpeed[sp]
		avg := "—"
		if m, ok := opp.Mean(); ok {
			avg = fmt.Sprintf("%.1f", m)
		}
		table.Append(titleCase(sp.String()), humanize.Comma(int64(s.SpeedCounts[sp])), avg, strconv.Itoa(opp.Count))
	}
	if s.OtherSpeeds > 0 {
		table.Append("Other", humanize.Comma(int64(s.OtherSpeeds)), "—", "—")
	}
	table.Render()
}

// PrintResults prints W/D/L overall and per colour, plus streaks.
func PrintResults(w io.Writer, s *model.AggregateStats) {
	heading(w, "Results")
	table := newTable(w)
	table.Header("", "W", "D", "L", "SCORE")
	row := func(label string, r model.ResultCounts) {
		table.Append(label, strconv.Itoa(r.Win), strconv.Itoa(r.Draw), strconv.Itoa(r.Loss), scorePct(r))
	}
	row("All", s.Results)
	row("As White", s.ColorResults[model.ColorWhite])
	row("As Black", s.ColorResults[model.ColorBlack])
	table.Render()
	fmt.Fprintf(w, "  Longest streaks - Win: %d | Loss: %d\n", s.LongestWinStreak, s.LongestLossStreak)
}

// scorePct is (wins + draws/2) / games.
func scorePct(r model.ResultCounts) string {
	n := r.Games()
	if n == 0 {
		return "—"
	}
	return fmt.Sprintf("%.1f%%", 100*(float64(r.Win)+0.5*float64(r.Draw))/float64(n))
}

// PrintOpponentStrength prints mean opponent ratings, the rating histogram
// and the best wins.
func PrintOpponentStrength(w io.Writer, s *model.AggregateStats) {
	heading(w, "Opponent strength")

	var perSpeed []string
	for _, sp := range model.KnownSpeeds {
		if m, ok := s.OpponentBySpeed[sp].Mean(); ok {
			perSpeed = append(perSpeed, fmt.Sprintf("%s %.1f (%d)", sp, m, s.OpponentBySpeed[sp].Count))
		}
	}
	if len(perSpeed) == 0 {
		fmt.Fprintln(w, "  No rating data available")
	} else {
		fmt.Fprintf(w, "  By speed: %s\n", strings.Join(perSpeed, ", "))
	}
	if m, ok := s.MeanOpponentRating(); ok {
		fmt.Fprintf(w, "  Overall: %.1f over %s rated opponents\n", m, humanize.Comma(int64(s.OpponentRatingCount)))
	}

	if len(s.OpponentRatingHistogram) > 0 {
		fmt.Fprintf(w, "  Rating buckets (per 100): %s\n", FormatBuckets(s.OpponentRatingHistogram))
	}

	if len(s.TopWins) > 0 {
		fmt.Fprintf(w, "  Top-%d highest rated wins:\n", model.MaxTopWins)
		table := newTable(w)
		table.Header("RATING", "OPPONENT", "GAME")
		for _, win := range s.TopWins {
			table.Append(strconv.Itoa(win.Rating), win.Opponent, win.GameID)
		}
		table.Render()
	}
}

// FormatBuckets renders a histogram as "1000s:2, 1100s:1" in bucket order.
func FormatBuckets(hist map[int]int) string {
	keys := make([]int, 0, len(hist))
	for k := range hist {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%ds:%d", k, hist[k])
	}
	return strings.Join(parts, ", ")
}

// PrintActivity prints month, weekday and hour histograms and the longest
// gap between games.
func PrintActivity(w io.Writer, s *model.AggregateStats) {
	heading(w, "Activity")

	months := make([]string, len(monthNames))
	for i, name := range monthNames {
		months[i] = fmt.Sprintf("%s:%d", name, s.MonthCounts[i])
	}
	fmt.Fprintf(w, "  Games per month: %s\n", strings.Join(months, " "))

	days := make([]string, len(weekdayNames))
	for i, name := range weekdayNames {
		days[i] = fmt.Sprintf("%s:%d", name, s.WeekdayCounts[i])
	}
	fmt.Fprintf(w, "  Games per weekday: %s\n", strings.Join(days, " "))

	if h, n := busiest(s.HourCounts[:]); n > 0 {
		fmt.Fprintf(w, "  Busiest hour (UTC): %02d:00 with %s games\n", h, humanize.Comma(int64(n)))
	}
	if s.LongestGapMs > 0 {
		fmt.Fprintf(w, "  Longest inactivity: %.2f days\n", float64(s.LongestGapMs)/msPerDay)
	}
}

// busiest returns the first index holding the maximum count.
func busiest(counts []int) (idx, n int) {
	for i, c := range counts {
		if c > n {
			idx, n = i, c
		}
	}
	return idx, n
}

// PrintEndings prints termination causes, flag results and aborted games.
func PrintEndings(w io.Writer, s *model.AggregateStats) {
	e := s.Endings
	heading(w, "Endings (tactics-ish)")
	fmt.Fprintf(w, "  Mate: %d | Resign: %d | Stalemate: %d | Time out: %d | Out of time: %d | Draw: %d | Aborted: %d\n",
		e[model.EndingMate], e[model.EndingResign], e[model.EndingStalemate], e[model.EndingTimeout],
		e[model.EndingOutOfTime], e[model.EndingDraw], e[model.EndingAborted])
	if e[model.EndingOther] > 0 {
		fmt.Fprintf(w, "  Other endings: %d\n", e[model.EndingOther])
	}
	if s.TimeoutWins > 0 || s.TimeoutLosses > 0 {
		fmt.Fprintf(w, "  Flag wins: %d | Flag losses: %d\n", s.TimeoutWins, s.TimeoutLosses)
	}

	heading(w, "Fair play-ish")
	fmt.Fprintf(w, "  Aborted/expired games: %d\n", e[model.EndingAborted])
}

// PrintPuzzles prints the puzzle section; p may be nil.
func PrintPuzzles(w io.Writer, year int, p *model.PuzzleSummary) {
	heading(w, "Puzzles (needs token)")
	if !p.Available() {
		fmt.Fprintln(w, "  No puzzle data available (check token or activity).")
		return
	}
	if r := p.Rating; r != nil {
		fmt.Fprintf(w, "  Rating start/end/peak: %d / %d / %d (data points: %d)\n", r.Start, r.End, r.Peak, r.Points)
	}
	if p.Attempts != nil {
		fmt.Fprintf(w, "  Puzzles attempted in %d: %s\n", year, humanize.Comma(int64(*p.Attempts)))
	} else {
		fmt.Fprintf(w, "  Puzzles attempted in %d: not available\n", year)
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
