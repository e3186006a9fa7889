package recap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/lichess"
)

func gameLine(id string, ts time.Time, white, black, winner string, blackRating int) string {
	return fmt.Sprintf(`{"id":%q,"speed":"blitz","createdAt":%d,"status":"resign",`+
		`"players":{"white":{"user":{"id":%q,"name":%q},"rating":1500},"black":{"user":{"id":%q,"name":%q},"rating":%d}},"winner":%q}`,
		id, ts.UnixMilli(), strings.ToLower(white), white, strings.ToLower(black), black, blackRating, winner)
}

func day(m time.Month, d int) time.Time { return time.Date(2025, m, d, 12, 0, 0, 0, time.UTC) }

// aliceExport holds two January wins as white, a February loss as black,
// a game between strangers and one malformed line.
func aliceExport() string {
	lines := []string{
		gameLine("w1", day(time.January, 4), "Alice", "Bob", "white", 1600),
		gameLine("w2", day(time.January, 18), "Alice", "Carl", "white", 1700),
		`{"id":"l1","speed":"rapid","createdAt":` + fmt.Sprint(day(time.February, 2).UnixMilli()) +
			`,"status":"mate","players":{"white":{"user":{"id":"dora","name":"Dora"},"rating":1800},"black":{"user":{"id":"alice","name":"Alice"}}},"winner":"white"}`,
		`{"id":"s1","speed":"classical","status":"draw","players":{"white":{"user":{"id":"eve"}},"black":{"user":{"id":"finn"}}}}`,
		`{"id": broken`,
	}
	return strings.Join(lines, "\n") + "\n"
}

func newRunner(t *testing.T, h http.HandlerFunc) *Runner {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := lichess.NewClient(srv.URL, "", lichess.WithRetries(0, 0), lichess.WithRateLimit(1000, 10))
	return NewRunner(c)
}

func TestRunFromAPI(t *testing.T) {
	r := newRunner(t, func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/api/games/user/alice" {
			http.NotFound(w, req)
			return
		}
		io.WriteString(w, aliceExport())
	})

	rc, err := r.Run(context.Background(), Options{Username: "alice", Year: 2025, Puzzles: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s := rc.Stats
	if s.Total != 5 || s.Malformed != 1 {
		t.Errorf("Total/Malformed = %d/%d, want 5/1", s.Total, s.Malformed)
	}
	if s.Results.Win != 2 || s.Results.Loss != 1 || s.Results.Draw != 0 {
		t.Errorf("Results = %+v", s.Results)
	}
	if s.MonthCounts[0] != 2 || s.MonthCounts[1] != 1 {
		t.Errorf("MonthCounts = %v", s.MonthCounts)
	}
	if len(s.TopWins) != 2 || s.TopWins[0].Opponent != "Carl" {
		t.Errorf("TopWins = %+v", s.TopWins)
	}
	if rc.RunID == "" || rc.Username != "alice" || rc.Year != 2025 {
		t.Errorf("metadata = %q %q %d", rc.RunID, rc.Username, rc.Year)
	}
	if rc.Puzzles != nil {
		t.Errorf("puzzles without token = %+v", rc.Puzzles)
	}
}

func TestRunRemoteRejection(t *testing.T) {
	r := newRunner(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	rc, err := r.Run(context.Background(), Options{Username: "ghost", Year: 2025})
	var apiErr *lichess.APIError
	if !errors.As(err, &apiErr) || rc != nil {
		t.Fatalf("Run = %v, %v; want APIError and no recap", rc, err)
	}
}

func TestRunInterruptedStreamDiscardsState(t *testing.T) {
	r := newRunner(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Length", "100000")
		io.WriteString(w, aliceExport())
	})
	rc, err := r.Run(context.Background(), Options{Username: "alice", Year: 2025})
	var tErr *lichess.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	if rc != nil {
		t.Errorf("partial recap returned: %+v", rc)
	}
}

func TestRunRequiresUsername(t *testing.T) {
	r := &Runner{}
	if _, err := r.Run(context.Background(), Options{Username: "  ", Year: 2025}); !errors.Is(err, ErrNoUsername) {
		t.Errorf("err = %v, want ErrNoUsername", err)
	}
}

func TestRunFromFileAppliesWindow(t *testing.T) {
	export := aliceExport() + gameLine("old", time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), "Alice", "Bob", "white", 2500) + "\n"
	path := filepath.Join(t.TempDir(), "alice.ndjson")
	if err := os.WriteFile(path, []byte(export), 0o600); err != nil {
		t.Fatal(err)
	}

	r := &Runner{}
	rc, err := r.Run(context.Background(), Options{Username: "Alice", Year: 2025, InputPath: path})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rc.Stats.Total != 5 {
		t.Errorf("Total = %d, want 5 (2024 game filtered)", rc.Stats.Total)
	}
	for _, w := range rc.Stats.TopWins {
		if w.GameID == "old" {
			t.Error("out-of-window game reached the aggregator")
		}
	}
}
