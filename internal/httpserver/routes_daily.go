// internal/httpserver/routes_daily.go
//
// HTTP routes for the daily golf challenge.
// Everyone gets the same answer for a UTC date (HMAC of date + salt). Players
// submit their guesses so far; the server replays them against the answer,
// returns the real feedback and the golf score, and records the result once
// solved. Each player gets one attempt per day: a submission must continue the
// guesses already played, and a solved or six-guess attempt is closed (409).
//
//   - GET  /daily             → today's date and whether the caller already has a result
//   - POST /daily/score       → extend today's attempt, score it, record when solved
//   - GET  /daily/leaderboard → best golf scores for today (or ?date=)
//   - GET  /daily/mine        → the caller's recorded results

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle-solver/internal/daily"
	"github.com/robalobadob/wordle-solver/internal/game"
	"github.com/robalobadob/wordle-solver/internal/words"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv   *Server
	store *daily.Store
	salt  string
	now   func() time.Time
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	salt := s.cfg.DailySalt
	if salt == "" {
		salt = "local_dev_salt"
	}
	dd := &dailyServer{srv: s, store: daily.NewStore(s.db), salt: salt, now: time.Now}
	r.Route("/daily", func(r chi.Router) {
		r.Get("/", dd.handleToday)
		r.Post("/score", dd.handleScore)
		r.Get("/leaderboard", dd.handleLeaderboard)
		r.Get("/mine", dd.handleMine)
	})
}

func (d *dailyServer) today() (daily.Challenge, bool) {
	return daily.For(d.now(), d.salt, d.srv.cfg.Lists.Answers)
}

// userIDWithAnon returns the authenticated user ID if logged in,
// otherwise ensures an anonymous ID via Server.ensureAnonID.
func (d *dailyServer) userIDWithAnon(w http.ResponseWriter, r *http.Request) string {
	if me := userFrom(r.Context()); me != nil {
		return me.ID
	}
	return d.srv.ensureAnonID(w, r)
}

type todayRes struct {
	Date    string   `json:"date"`
	Played  bool     `json:"played"`
	Guesses []string `json:"guesses"` // today's attempt so far
	Answers int      `json:"answers"`
}

func (d *dailyServer) handleToday(w http.ResponseWriter, r *http.Request) {
	uid := d.userIDWithAnon(w, r)
	c, _ := d.today()
	played, err := d.store.AlreadyPlayed(r.Context(), uid, c.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	att, err := d.store.Attempt(r.Context(), uid, c.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	guesses := make([]string, len(att.Guesses))
	for i, g := range att.Guesses {
		guesses[i] = g.String()
	}
	writeJSON(w, http.StatusOK, todayRes{
		Date:    c.Date,
		Played:  played || att.Closed(),
		Guesses: guesses,
		Answers: len(d.srv.cfg.Lists.Answers),
	})
}

type dailyScoreReq struct {
	Guesses []string `json:"guesses"`
	Mode    string   `json:"mode"`
}

type dailyScoreRes struct {
	Date     string      `json:"date"`
	Turns    []game.Turn `json:"turns"`
	Golf     float64     `json:"golf"`
	Solved   bool        `json:"solved"`
	Recorded bool        `json:"recorded"` // this attempt is the stored result
}

// handleScore replays the caller's guesses against today's answer.
//   - Every guess must be in the allowed list; at most six guesses.
//   - The guesses must start with the ones already played today.
//   - The result is stored when the last guess solves the puzzle.
func (d *dailyServer) handleScore(w http.ResponseWriter, r *http.Request) {
	uid := d.userIDWithAnon(w, r)

	var req dailyScoreReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorRes{Error: "bad_json"})
		return
	}
	if len(req.Guesses) == 0 || len(req.Guesses) > daily.MaxGuesses {
		writeError(w, r, &words.ValidationError{Field: "guesses", Value: strconv.Itoa(len(req.Guesses)), Reason: "want 1 to 6 guesses"})
		return
	}
	guesses, err := words.ParseAll(req.Guesses)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, g := range guesses {
		if !d.srv.allowed.Contains(g) {
			writeError(w, r, &words.ValidationError{Field: "word", Value: g.String(), Reason: "not in word list"})
			return
		}
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, ok := d.today()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, errorRes{Error: "no_answers"})
		return
	}
	for _, g := range guesses[:len(guesses)-1] {
		if g == c.Answer {
			writeError(w, r, &words.ValidationError{Field: "guesses", Value: g.String(), Reason: "no guesses after the solving one"})
			return
		}
	}

	ctx := r.Context()
	played, err := d.store.AlreadyPlayed(ctx, uid, c.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if played {
		writeError(w, r, daily.ErrAttemptClosed)
		return
	}
	prev, err := d.store.Attempt(ctx, uid, c.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := prev.Continue(guesses); err != nil {
		writeError(w, r, err)
		return
	}

	rctx, cancel := context.WithTimeout(ctx, d.srv.cfg.RankTimeout)
	defer cancel()
	lists := d.srv.cfg.Lists
	sess, err := game.Replay(rctx, c.Answer, guesses, lists.Answers, lists.Allowed, mode,
		game.WithSolverOptions(d.srv.solverOptions()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	res := dailyScoreRes{Date: c.Date, Turns: sess.Turns(), Golf: sess.GolfScore(), Solved: sess.Solved()}
	if err := d.store.SaveAttempt(ctx, uid, c.Date, prev, daily.Attempt{Guesses: guesses, Solved: res.Solved}); err != nil {
		writeError(w, r, err)
		return
	}
	if res.Solved {
		res.Recorded, err = d.record(ctx, uid, userFrom(ctx) != nil, daily.Result{
			UserID: uid, Date: c.Date, WordIndex: c.WordIndex, Guesses: len(guesses), Golf: res.Golf,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, res)
}

// record stores a solved result and, for signed-in players, bumps their stats.
func (d *dailyServer) record(ctx context.Context, uid string, member bool, res daily.Result) (bool, error) {
	inserted, err := d.store.InsertResult(ctx, res)
	if err != nil || !inserted {
		return false, err
	}
	log.Info().Str("user", uid).Str("date", res.Date).Float64("golf", res.Golf).Msg("daily result recorded")
	if !member {
		return true, nil
	}

	tx, err := d.srv.db.BeginTx(ctx, nil)
	if err != nil {
		log.Warn().Err(err).Msg("begin stats tx")
		return true, nil
	}
	defer func() { _ = tx.Rollback() }()
	if err := bumpStats(tx, uid, res.Golf); err != nil {
		log.Warn().Err(err).Str("user", uid).Msg("bump stats")
		return true, nil
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Str("user", uid).Msg("commit stats")
	}
	return true, nil
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.now())
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := d.store.Leaderboard(r.Context(), date, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}

func (d *dailyServer) handleMine(w http.ResponseWriter, r *http.Request) {
	uid := d.userIDWithAnon(w, r)
	rows, err := d.store.Results(r.Context(), uid, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
