package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/model"
)

var monthKeys = [12]string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11", "12"}
var weekdayKeys = [7]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// SaveRecap writes rc and its histograms in one transaction. Saving the same
// run twice replaces it.
func (db *DB) SaveRecap(rc *model.Recap) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	s := &rc.Stats
	var pStart, pEnd, pPeak, pPoints, pAttempts sql.NullInt64
	if p := rc.Puzzles; p != nil {
		if r := p.Rating; r != nil {
			pStart = sql.NullInt64{Int64: int64(r.Start), Valid: true}
			pEnd = sql.NullInt64{Int64: int64(r.End), Valid: true}
			pPeak = sql.NullInt64{Int64: int64(r.Peak), Valid: true}
			pPoints = sql.NullInt64{Int64: int64(r.Points), Valid: true}
		}
		if p.Attempts != nil {
			pAttempts = sql.NullInt64{Int64: int64(*p.Attempts), Valid: true}
		}
	}

	for _, table := range []string{"recap_counts", "recap_opponents_by_speed", "recap_top_wins"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE run_id = ?", rc.RunID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO recaps(
			run_id, username, year, generated_at,
			total, malformed, wins, draws, losses,
			timeout_wins, timeout_losses, opp_rating_sum, opp_rating_count,
			longest_win_streak, longest_loss_streak, longest_gap_ms,
			puzzle_rating_start, puzzle_rating_end, puzzle_rating_peak, puzzle_points, puzzle_attempts
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rc.RunID, rc.Username, rc.Year, rc.GeneratedAt.UTC().Format(time.RFC3339),
		s.Total, s.Malformed, s.Results.Win, s.Results.Draw, s.Results.Loss,
		s.TimeoutWins, s.TimeoutLosses, s.OpponentRatingSum, s.OpponentRatingCount,
		s.LongestWinStreak, s.LongestLossStreak, s.LongestGapMs,
		pStart, pEnd, pPeak, pPoints, pAttempts,
	)
	if err != nil {
		return fmt.Errorf("insert recap: %w", err)
	}

	counts, err := tx.Prepare(`INSERT INTO recap_counts(run_id, kind, bucket, count) VALUES (?,?,?,?)`)
	if err != nil {
		return err
	}
	defer counts.Close()
	for _, c := range countRows(s) {
		if _, err := counts.Exec(rc.RunID, c.kind, c.bucket, c.count); err != nil {
			return fmt.Errorf("insert %s/%s: %w", c.kind, c.bucket, err)
		}
	}

	for _, sp := range model.KnownSpeeds {
		opp := s.OpponentBySpeed[sp]
		if _, err := tx.Exec(`INSERT INTO recap_opponents_by_speed(run_id, speed, rating_sum, rating_count) VALUES (?,?,?,?)`,
			rc.RunID, sp.String(), opp.Sum, opp.Count); err != nil {
			return fmt.Errorf("insert opponents %s: %w", sp, err)
		}
	}

	for i, w := range s.TopWins {
		if _, err := tx.Exec(`INSERT INTO recap_top_wins(run_id, rank, rating, opponent, game_id) VALUES (?,?,?,?,?)`,
			rc.RunID, i+1, w.Rating, w.Opponent, w.GameID); err != nil {
			return fmt.Errorf("insert top win: %w", err)
		}
	}

	return tx.Commit()
}

type countRow struct {
	kind, bucket string
	count        int
}

// countRows flattens every histogram of s. Zero buckets are kept for the
// fixed-size histograms so that exports line up across runs.
func countRows(s *model.AggregateStats) []countRow {
	var rows []countRow
	add := func(kind, bucket string, n int) { rows = append(rows, countRow{kind, bucket, n}) }

	for _, sp := range model.KnownSpeeds {
		add("speed", sp.String(), s.SpeedCounts[sp])
	}
	add("speed", model.SpeedOther.String(), s.OtherSpeeds)
	for e := model.Ending(0); e < model.NumEndings; e++ {
		add("ending", e.String(), s.Endings[e])
	}
	for _, c := range []model.Color{model.ColorWhite, model.ColorBlack} {
		r := s.ColorResults[c]
		add("color_win", c.String(), r.Win)
		add("color_draw", c.String(), r.Draw)
		add("color_loss", c.String(), r.Loss)
	}
	for i, k := range monthKeys {
		add("month", k, s.MonthCounts[i])
	}
	for i, k := range weekdayKeys {
		add("weekday", k, s.WeekdayCounts[i])
	}
	for h, n := range s.HourCounts {
		add("hour", fmt.Sprintf("%02d", h), n)
	}
	for bucket, n := range s.OpponentRatingHistogram {
		add("rating_bucket", strconv.Itoa(bucket), n)
	}
	return rows
}

// QueryRaw runs an arbitrary query and returns column names and every row
// rendered as strings. NULL becomes "NULL".
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]string
	vals := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

// RecapRow is the listing view of a saved recap.
type RecapRow struct {
	RunID       string
	Username    string
	Year        int
	GeneratedAt string
	Total       int
	Wins        int
	Draws       int
	Losses      int
}

// ListRecaps returns saved recaps, newest first.
func (db *DB) ListRecaps() ([]RecapRow, error) {
	rows, err := db.conn.Query(`
		SELECT run_id, username, year, generated_at, total, wins, draws, losses
		FROM recaps ORDER BY generated_at DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecapRow
	for rows.Next() {
		var r RecapRow
		if err := rows.Scan(&r.RunID, &r.Username, &r.Year, &r.GeneratedAt, &r.Total, &r.Wins, &r.Draws, &r.Losses); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
