package puzzle

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/lichess"
)

const history = `[{"name":"Blitz","points":[[2025,0,1,1500]]},` +
	`{"name":"Puzzle","points":[[2025,0,1,1800],[2025,2,9,2100],[2025,3],[2025,6,4,1950]]}]`

func newClient(t *testing.T, token string, historyStatus, activityStatus int) *lichess.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/alice/rating-history", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(historyStatus)
		if historyStatus == http.StatusOK {
			io.WriteString(w, history)
		}
	})
	mux.HandleFunc("/api/puzzle/activity", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("since") == "" || r.URL.Query().Get("until") == "" {
			http.Error(w, "missing window", http.StatusBadRequest)
			return
		}
		w.WriteHeader(activityStatus)
		if activityStatus == http.StatusOK {
			io.WriteString(w, "{\"id\":\"p1\"}\n\n{\"id\":\"p2\"}\nnot-json\n{\"id\":\"p3\"}\n")
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return lichess.NewClient(srv.URL, token, lichess.WithRetries(0, 0), lichess.WithRateLimit(1000, 10))
}

func TestSummarizeFull(t *testing.T) {
	c := newClient(t, "tok", http.StatusOK, http.StatusOK)
	sum := Summarize(context.Background(), c, "alice", 2025)
	if sum == nil || sum.Rating == nil || sum.Attempts == nil {
		t.Fatalf("summary = %+v", sum)
	}
	r := *sum.Rating
	if r.Start != 1800 || r.End != 1950 || r.Peak != 2100 || r.Points != 3 {
		t.Errorf("rating = %+v", r)
	}
	if *sum.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", *sum.Attempts)
	}
}

func TestSummarizeWithoutToken(t *testing.T) {
	c := newClient(t, "", http.StatusOK, http.StatusOK)
	if sum := Summarize(context.Background(), c, "alice", 2025); sum != nil {
		t.Errorf("summary without token = %+v", sum)
	}
}

func TestSummarizeActivityUnavailable(t *testing.T) {
	c := newClient(t, "tok", http.StatusOK, http.StatusUnauthorized)
	sum := Summarize(context.Background(), c, "alice", 2025)
	if sum == nil || sum.Rating == nil {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Attempts != nil {
		t.Errorf("attempts = %d, want unavailable", *sum.Attempts)
	}
}

func TestSummarizeHistoryUnavailable(t *testing.T) {
	c := newClient(t, "tok", http.StatusInternalServerError, http.StatusOK)
	sum := Summarize(context.Background(), c, "alice", 2025)
	if sum == nil || sum.Rating != nil || sum.Attempts == nil {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestSummarizeNothingAvailable(t *testing.T) {
	c := newClient(t, "tok", http.StatusNotFound, http.StatusForbidden)
	if sum := Summarize(context.Background(), c, "alice", 2025); sum != nil {
		t.Errorf("summary = %+v, want nil", sum)
	}
}

func TestRatingCurveNoPuzzleSeries(t *testing.T) {
	if r := ratingCurve([]lichess.RatingSeries{{Name: "Bullet", Points: [][]int{{2025, 0, 1, 1500}}}}); r != nil {
		t.Errorf("ratingCurve = %+v, want nil", r)
	}
}
