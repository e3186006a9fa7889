package lichess

import (
	"errors"
	"strings"
	"testing"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/model"
)

type recordingSink struct {
	records   []model.GameRecord
	malformed int
}

func (s *recordingSink) Ingest(rec model.GameRecord) { s.records = append(s.records, rec) }
func (s *recordingSink) IngestMalformed()            { s.malformed++ }

const sampleGame = `{"id":"q7ZvsdUF","rated":true,"variant":"standard","speed":"blitz","perf":"blitz",` +
	`"createdAt":1735732800000,"lastMoveAt":1735733400000,"status":"Resign",` +
	`"players":{"white":{"user":{"name":"Alice","id":"alice"},"rating":1712,"ratingDiff":6},` +
	`"black":{"user":{"name":"Bob","id":"bob"},"rating":1650}},"winner":"white"}`

func TestParseGameFull(t *testing.T) {
	rec, err := ParseGame([]byte(sampleGame))
	if err != nil {
		t.Fatalf("ParseGame: %v", err)
	}
	if rec.ID != "q7ZvsdUF" || rec.Speed != model.SpeedBlitz || rec.Winner != model.ColorWhite {
		t.Errorf("rec = %+v", rec)
	}
	if rec.Status != "resign" {
		t.Errorf("Status = %q, want lower-cased", rec.Status)
	}
	if rec.CreatedAt != 1735732800000 || rec.LastMoveAt != 1735733400000 {
		t.Errorf("timestamps = %d/%d", rec.CreatedAt, rec.LastMoveAt)
	}
	black := rec.Players[model.ColorBlack]
	if black.UserID != "bob" || black.UserName != "Bob" || black.Rating == nil || *black.Rating != 1650 {
		t.Errorf("black = %+v", black)
	}
}

func TestParseGameLenientFields(t *testing.T) {
	line := `{"id":"x","speed":"correspondence","createdAt":"yesterday","lastMoveAt":1.5e12,` +
		`"players":{"white":{"user":"not-an-object","rating":"1500"},"black":{"aiLevel":3}},"winner":"purple"}`
	rec, err := ParseGame([]byte(line))
	if err != nil {
		t.Fatalf("ParseGame: %v", err)
	}
	if _, ok := rec.Timestamp(); ok {
		t.Error("non-integer timestamps should be absent")
	}
	if rec.Speed != model.SpeedOther || rec.Winner != model.ColorNone || rec.Status != "" {
		t.Errorf("rec = %+v", rec)
	}
	if rec.Players[model.ColorWhite].Rating != nil || rec.Players[model.ColorWhite].UserID != "" {
		t.Errorf("white = %+v", rec.Players[model.ColorWhite])
	}
}

func TestParseGameStatusOfAnyType(t *testing.T) {
	cases := []struct {
		field string
		want  string
	}{
		{``, ""},
		{`,"status":"OutOfTime"`, "outoftime"},
		{`,"status":null`, "none"},
		{`,"status":7`, "7"},
		{`,"status":true`, "true"},
	}
	for _, tc := range cases {
		rec, err := ParseGame([]byte(`{"id":"s"` + tc.field + `}`))
		if err != nil {
			t.Fatalf("ParseGame(%s): %v", tc.field, err)
		}
		if rec.Status != tc.want {
			t.Errorf("status for %q = %q, want %q", tc.field, rec.Status, tc.want)
		}
	}

	for _, status := range []string{"none", "7"} {
		if got := model.ClassifyEnding(status); got != model.EndingOther {
			t.Errorf("ClassifyEnding(%q) = %v, want other", status, got)
		}
	}
}

func TestParseGameMalformed(t *testing.T) {
	for _, line := range []string{
		`{"id":`,
		`[1,2,3]`,
		`null`,
		`"just a string"`,
		"{\"id\":\"\xff\xfe\"}",
	} {
		if _, err := ParseGame([]byte(line)); !errors.Is(err, ErrMalformed) {
			t.Errorf("ParseGame(%q) err = %v, want ErrMalformed", line, err)
		}
	}
}

func TestDecodeGamesCounts(t *testing.T) {
	input := strings.Join([]string{
		sampleGame,
		"",
		"   ",
		"not json",
		`{"id":"minimal"}`,
		"",
	}, "\n")

	sink := &recordingSink{}
	st, err := DecodeGames(strings.NewReader(input), sink)
	if err != nil {
		t.Fatalf("DecodeGames: %v", err)
	}
	if st.Records != 2 || st.Malformed != 1 || st.Blank != 2 {
		t.Errorf("stats = %+v", st)
	}
	if len(sink.records) != 2 || sink.malformed != 1 {
		t.Errorf("sink got %d records, %d malformed", len(sink.records), sink.malformed)
	}
	if sink.records[1].ID != "minimal" {
		t.Errorf("second record = %+v", sink.records[1])
	}
}

func TestDecodeGamesNoTrailingNewline(t *testing.T) {
	sink := &recordingSink{}
	if _, err := DecodeGames(strings.NewReader(`{"id":"a"}`+"\n"+`{"id":"b"}`), sink); err != nil {
		t.Fatalf("DecodeGames: %v", err)
	}
	if len(sink.records) != 2 {
		t.Errorf("records = %d, want 2", len(sink.records))
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	got := truncate([]byte("ééé"), 3)
	if got != "é…" {
		t.Errorf("truncate = %q", got)
	}
}
