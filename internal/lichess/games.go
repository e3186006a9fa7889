package lichess

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cgebler-biproservice/LichessAnnualStats/internal/logger"
	"github.com/cgebler-biproservice/LichessAnnualStats/internal/model"
)

// maxLineSize caps a single NDJSON line. Exports with PGN can be large.
const maxLineSize = 32 * 1024 * 1024

// ErrMalformed marks a line that is not a UTF-8 JSON object.
var ErrMalformed = errors.New("malformed game record")

// Sink receives decoded games. *aggregator.StreamAggregator satisfies it.
type Sink interface {
	Ingest(rec model.GameRecord)
	IngestMalformed()
}

// DecodeStats describes one pass over a stream.
type DecodeStats struct {
	Records   int
	Malformed int
	Blank     int
}

// DecodeGames reads NDJSON games from r into sink until EOF. Blank lines are
// skipped without being counted; undecodable lines go to IngestMalformed.
// A read error aborts the pass and is returned as is.
func DecodeGames(r io.Reader, sink Sink) (DecodeStats, error) {
	var st DecodeStats
	log := logger.Named("decode")

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			st.Blank++
			continue
		}
		rec, err := ParseGame(line)
		if err != nil {
			st.Malformed++
			if st.Malformed == 1 {
				log.Debug().Err(err).Str("sample", truncate(line, 120)).Msg("skipping malformed line")
			}
			sink.IngestMalformed()
			continue
		}
		st.Records++
		sink.Ingest(rec)
	}
	if err := sc.Err(); err != nil {
		return st, err
	}
	log.Debug().Int("records", st.Records).Int("malformed", st.Malformed).Msg("stream drained")
	return st, nil
}

type wireGame struct {
	ID         json.RawMessage `json:"id"`
	CreatedAt  json.RawMessage `json:"createdAt"`
	LastMoveAt json.RawMessage `json:"lastMoveAt"`
	Speed      json.RawMessage `json:"speed"`
	Status     json.RawMessage `json:"status"`
	Winner     json.RawMessage `json:"winner"`
	Players    json.RawMessage `json:"players"`
}

type wirePlayers struct {
	White json.RawMessage `json:"white"`
	Black json.RawMessage `json:"black"`
}

type wirePlayer struct {
	User   json.RawMessage `json:"user"`
	Rating json.RawMessage `json:"rating"`
}

type wireUser struct {
	ID   json.RawMessage `json:"id"`
	Name json.RawMessage `json:"name"`
}

// ParseGame decodes one export line. Only a line that is not a UTF-8 JSON
// object is an error; fields that are absent or of an unexpected type are
// left at their zero value.
func ParseGame(line []byte) (model.GameRecord, error) {
	if !utf8.Valid(line) {
		return model.GameRecord{}, fmt.Errorf("%w: invalid UTF-8", ErrMalformed)
	}
	var w wireGame
	if !isObject(line) {
		return model.GameRecord{}, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}
	if err := json.Unmarshal(line, &w); err != nil {
		return model.GameRecord{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	rec := model.GameRecord{
		ID:     asString(w.ID),
		Speed:  model.ParseSpeed(asString(w.Speed)),
		Status: asStatus(w.Status),
		Winner: model.ParseColor(asString(w.Winner)),
	}
	rec.CreatedAt, _ = asInt(w.CreatedAt)
	rec.LastMoveAt, _ = asInt(w.LastMoveAt)

	var ps wirePlayers
	if decodeObject(w.Players, &ps) {
		rec.Players[model.ColorWhite] = parsePlayer(ps.White)
		rec.Players[model.ColorBlack] = parsePlayer(ps.Black)
	}
	return rec, nil
}

func parsePlayer(raw json.RawMessage) model.Player {
	var p model.Player
	var wp wirePlayer
	if !decodeObject(raw, &wp) {
		return p
	}
	var u wireUser
	if decodeObject(wp.User, &u) {
		p.UserID = asString(u.ID)
		p.UserName = asString(u.Name)
	}
	if r, ok := asInt(wp.Rating); ok {
		v := int(r)
		p.Rating = &v
	}
	return p
}

func isObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func decodeObject(raw json.RawMessage, dst any) bool {
	return isObject(raw) && json.Unmarshal(raw, dst) == nil
}

func asString(raw json.RawMessage) string {
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// asStatus lowercases a status of any JSON type. A present but non-string
// value keeps its literal text (null becomes "none") so it still counts as
// an ending.
func asStatus(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0:
		return ""
	case raw[0] == '"':
		return strings.ToLower(asString(raw))
	case string(raw) == "null":
		return "none"
	default:
		return strings.ToLower(string(raw))
	}
}

// asInt accepts only JSON integers; floats, strings and booleans are absent.
func asInt(raw json.RawMessage) (int64, bool) {
	n, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	i := max
	for i > 0 && (b[i]&0xC0) == 0x80 {
		i--
	}
	return string(b[:i]) + "…"
}
