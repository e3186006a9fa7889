package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/model"
)

func init() { color.NoColor = true }

func sampleRecap() *model.Recap {
	s := model.AggregateStats{
		Total:                   12,
		Malformed:               1,
		OtherSpeeds:             2,
		Results:                 model.ResultCounts{Win: 5, Loss: 3, Draw: 2},
		TimeoutWins:             1,
		OpponentRatingSum:       1500 * 4,
		OpponentRatingCount:     4,
		OpponentRatingHistogram: map[int]int{1500: 3, 1400: 1},
		TopWins: []model.TopWin{
			{Rating: 1590, Opponent: "Bob", GameID: "g1"},
			{Rating: 1520, Opponent: "?", GameID: "g2"},
		},
		LongestWinStreak:  3,
		LongestLossStreak: 2,
		LongestGapMs:      3 * 24 * 3600 * 1000,
	}
	s.SpeedCounts[model.SpeedBlitz] = 9
	s.OpponentBySpeed[model.SpeedBlitz] = model.RatingSum{Sum: 1500 * 4, Count: 4}
	s.ColorResults[model.ColorWhite] = model.ResultCounts{Win: 4, Draw: 1}
	s.ColorResults[model.ColorBlack] = model.ResultCounts{Win: 1, Loss: 3, Draw: 1}
	s.Endings[model.EndingResign] = 6
	s.Endings[model.EndingAborted] = 2
	s.Endings[model.EndingOther] = 1
	s.MonthCounts[0] = 7
	s.WeekdayCounts[4] = 5
	s.HourCounts[20] = 6

	return &model.Recap{
		RunID:       "run-1",
		Username:    "alice",
		Year:        2025,
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Stats:       s,
	}
}

func TestPrintRecapSections(t *testing.T) {
	var buf bytes.Buffer
	PrintRecap(&buf, sampleRecap())
	out := buf.String()

	for _, want := range []string{
		"alice played 12 games in 2025.",
		"could not be read",
		"Blitz",
		"Other",
		"Longest streaks - Win: 3 | Loss: 2",
		"By speed: blitz 1500.0 (4)",
		"Rating buckets (per 100): 1400s:1, 1500s:3",
		"Bob",
		"Jan:7",
		"Fri:5",
		"Busiest hour (UTC): 20:00",
		"Longest inactivity: 3.00 days",
		"Resign: 6",
		"Other endings: 1",
		"Flag wins: 1 | Flag losses: 0",
		"Aborted/expired games: 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Puzzles") {
		t.Error("puzzle section printed without a request")
	}
}

func TestPrintRecapEmpty(t *testing.T) {
	var buf bytes.Buffer
	PrintRecap(&buf, &model.Recap{Username: "nobody", Year: 2025})
	out := buf.String()
	if !strings.Contains(out, "No rating data available") {
		t.Errorf("missing no-rating line:\n%s", out)
	}
	for _, unwanted := range []string{"Longest inactivity", "Rating buckets", "highest rated wins", "Flag wins", "Other endings"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("empty report contains %q", unwanted)
		}
	}
}

func TestPrintPuzzles(t *testing.T) {
	attempts := 1234
	cases := []struct {
		name string
		p    *model.PuzzleSummary
		want []string
	}{
		{"unavailable", nil, []string{"No puzzle data available"}},
		{"rating only", &model.PuzzleSummary{Rating: &model.PuzzleRating{Start: 1800, End: 1950, Peak: 2100, Points: 3}},
			[]string{"1800 / 1950 / 2100 (data points: 3)", "attempted in 2025: not available"}},
		{"attempts only", &model.PuzzleSummary{Attempts: &attempts}, []string{"attempted in 2025: 1,234"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			PrintPuzzles(&buf, 2025, tc.p)
			for _, want := range tc.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestFormatBuckets(t *testing.T) {
	got := FormatBuckets(map[int]int{1200: 1, 1000: 2, 1100: 1})
	if got != "1000s:2, 1100s:1, 1200s:1" {
		t.Errorf("FormatBuckets = %q", got)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleRecap()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var doc struct {
		Username  string         `json:"username"`
		Total     int            `json:"total"`
		Speeds    map[string]int `json:"speeds"`
		Endings   map[string]int `json:"endings"`
		Opponents struct {
			Mean      float64        `json:"mean"`
			Histogram map[string]int `json:"histogram"`
			TopWins   []model.TopWin `json:"top_wins"`
		} `json:"opponents"`
		Activity struct {
			Months map[string]int `json:"months"`
		} `json:"activity"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Username != "alice" || doc.Total != 12 {
		t.Errorf("doc = %+v", doc)
	}
	if doc.Speeds["blitz"] != 9 || doc.Speeds["other"] != 2 {
		t.Errorf("speeds = %v", doc.Speeds)
	}
	if doc.Endings["aborted"] != 2 || len(doc.Endings) != int(model.NumEndings) {
		t.Errorf("endings = %v", doc.Endings)
	}
	if doc.Opponents.Mean != 1500 || doc.Opponents.Histogram["1500"] != 3 {
		t.Errorf("opponents = %+v", doc.Opponents)
	}
	if len(doc.Opponents.TopWins) != 2 || doc.Activity.Months["Jan"] != 7 {
		t.Errorf("top wins %v months %v", doc.Opponents.TopWins, doc.Activity.Months)
	}
}

func TestWriteJSONPuzzleRequestState(t *testing.T) {
	decode := func(rc *model.Recap) map[string]any {
		t.Helper()
		var buf bytes.Buffer
		if err := WriteJSON(&buf, rc); err != nil {
			t.Fatalf("WriteJSON: %v", err)
		}
		var doc map[string]any
		if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return doc
	}

	notRequested := decode(sampleRecap())
	if notRequested["puzzles_requested"] != false {
		t.Errorf("puzzles_requested = %v, want false", notRequested["puzzles_requested"])
	}

	rc := sampleRecap()
	rc.PuzzlesRequested = true
	unavailable := decode(rc)
	if unavailable["puzzles_requested"] != true {
		t.Errorf("puzzles_requested = %v, want true", unavailable["puzzles_requested"])
	}
	if _, ok := unavailable["puzzles"]; ok {
		t.Errorf("puzzles present without data: %v", unavailable["puzzles"])
	}
}
