// internal/httpserver/server.go
//
// HTTP server wiring for the solver backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/debug/words".
//   - Solver sessions: create, guess, remaining answers, constraints, golf score, reset.
//   - One-shot golf scoring: POST /score.
//   - Daily golf challenge (optional auth): mounted under /daily.
//   - Auth + player stats (require auth): /auth/*, /stats/me.
//
// Notes:
//   - Rankings run under RANK_TIMEOUT; a ranking that runs out of time
//     answers 503 and leaves the session untouched.
//   - Input errors answer 400, contradictory feedback and closed daily
//     attempts 409, unknown sessions 404.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle-solver/internal/constraint"
	"github.com/robalobadob/wordle-solver/internal/daily"
	"github.com/robalobadob/wordle-solver/internal/game"
	"github.com/robalobadob/wordle-solver/internal/solver"
	"github.com/robalobadob/wordle-solver/internal/store"
	"github.com/robalobadob/wordle-solver/internal/words"
)

// Config carries the word lists and tuning knobs the routes need.
type Config struct {
	Lists       *words.Lists
	Prior       []words.Word  // previous answers, for excludePrevious
	RankTimeout time.Duration // per-request ranking budget; 0 means 30s
	Workers     int           // partition workers; 0 means GOMAXPROCS
	DailySalt   string
}

// Server bundles router, in-memory session store, and DB handle.
type Server struct {
	r       *chi.Mux
	store   store.Store
	db      *sql.DB
	cfg     Config
	allowed mapset.Set[words.Word]
}

const defaultLimit = 20

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, db *sql.DB, cfg Config) *Server {
	if cfg.RankTimeout <= 0 {
		cfg.RankTimeout = 30 * time.Second
	}
	s := &Server{
		r:       chi.NewRouter(),
		store:   st,
		db:      db,
		cfg:     cfg,
		allowed: mapset.NewSet(cfg.Lists.Allowed...),
	}

	// --- middleware ---
	timeout := cfg.RankTimeout + 5*time.Second
	s.r.Use(chimw.RequestID)        // add X-Request-ID
	s.r.Use(chimw.RealIP)           // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)        // recover from panics
	s.r.Use(chimw.Timeout(timeout)) // bound handler time
	s.r.Use(jsonContentType)        // default JSON responses
	s.r.Use(corsFromEnv)            // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"wordle-solver","endpoints":["/health","POST /sessions","POST /sessions/{id}/guesses","POST /score","/daily/*","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		a, g := s.cfg.Lists.Stats()
		writeJSON(w, http.StatusOK, map[string]int{"answers": a, "allowed": g, "prior": len(s.cfg.Prior)})
	})

	// Solver sessions (no auth: sessions are anonymous process state)
	s.r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleNewSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/guesses", s.handleGuess)
			r.Get("/remaining", s.handleRemaining)
			r.Get("/constraints", s.handleConstraints)
			r.Get("/score", s.handleSessionScore)
		})
	})
	s.r.Post("/score", s.handleScore)

	// Daily Challenge: OPTIONAL AUTH (guests can play; results kept under an anon id)
	s.mountDaily(s.r.With(s.withOptionalAuth()))

	// Auth + stats (require auth)
	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})
	return s
}

// Serve listens on addr until ctx is done, then shuts down, giving in-flight
// requests up to grace to finish.
func (s *Server) Serve(ctx context.Context, addr string, grace time.Duration) error {
	hs := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ responses ----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorRes struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// writeError maps solver errors to status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *words.ValidationError
		ce *constraint.ContradictionError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorRes{Error: "invalid_input", Field: ve.Field, Message: ve.Error()})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, errorRes{Error: "contradiction", Message: ce.Error()})
	case errors.Is(err, daily.ErrAttemptClosed):
		writeJSON(w, http.StatusConflict, errorRes{Error: "already_played", Message: err.Error()})
	case errors.Is(err, daily.ErrAttemptMismatch):
		writeJSON(w, http.StatusConflict, errorRes{Error: "attempt_mismatch", Message: err.Error()})
	case errors.Is(err, game.ErrEmptyPool):
		writeJSON(w, http.StatusBadRequest, errorRes{Error: "empty_pool", Message: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorRes{Error: "not_found"})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("ranking did not finish")
		writeJSON(w, http.StatusServiceUnavailable, errorRes{Error: "ranking_timeout"})
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorRes{Error: "internal"})
	}
}

// tableView is the wire form of a ranking table.
type tableView struct {
	Answers int       `json:"answers"`
	Best    float64   `json:"bestAvgRemaining"`
	Columns []string  `json:"columns"`
	Total   int       `json:"total"` // rows before limit
	Rows    []rowView `json:"rows"`
}

type rowView struct {
	solver.Row
	Buckets []int `json:"buckets"` // counts aligned with Columns
}

// viewTable renders the visible rows (or all rows when full) up to limit.
func viewTable(t *solver.Table, limit int, full bool) tableView {
	rows := t.Rows
	if !full {
		rows = t.Visible()
	}
	buckets := t.Buckets()
	v := tableView{Answers: t.Answers, Best: t.Min(), Total: len(rows)}
	for _, b := range buckets {
		v.Columns = append(v.Columns, b.Label())
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	v.Rows = make([]rowView, len(rows))
	for i, row := range rows {
		counts := make([]int, len(buckets))
		for j, b := range buckets {
			counts[j] = row.Count(b)
		}
		v.Rows[i] = rowView{Row: row, Buckets: counts}
	}
	return v
}

// tableQuery reads ?limit= (default 20, 0 for all) and ?full=1.
func tableQuery(r *http.Request) (limit int, full bool) {
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			limit = n
		}
	}
	full = r.URL.Query().Get("full") == "1"
	return limit, full
}

func (s *Server) solverOptions() solver.Options {
	return solver.Options{Workers: s.cfg.Workers}
}

// ------------------------------ SESSIONS -----------------------------------

type newSessionReq struct {
	Mode            string `json:"mode"`            // answers_only | hard | all
	ExcludePrevious bool   `json:"excludePrevious"` // drop prior answers from the pool
	Opening         bool   `json:"opening"`         // rank the first guess right away
}

type sessionRes struct {
	ID        string      `json:"id"`
	Mode      game.Mode   `json:"mode"`
	Answers   int         `json:"answers"`
	Allowed   int         `json:"allowed"`
	Remaining int         `json:"remaining"`
	Golf      float64     `json:"golf"`
	Solved    bool        `json:"solved"`
	Turns     []game.Turn `json:"turns"`
	Table     *tableView  `json:"table,omitempty"`
}

func (s *Server) describe(sess *game.Session) sessionRes {
	a, g := sess.Pools()
	turns := sess.Turns()
	if turns == nil {
		turns = []game.Turn{}
	}
	return sessionRes{
		ID:        sess.ID,
		Mode:      sess.Mode,
		Answers:   a,
		Allowed:   g,
		Remaining: len(sess.RemainingAnswers()),
		Golf:      sess.GolfScore(),
		Solved:    sess.Solved(),
		Turns:     turns,
	}
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var req newSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorRes{Error: "bad_json"})
		return
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts := []game.Option{game.WithSolverOptions(s.solverOptions())}
	if req.ExcludePrevious {
		opts = append(opts, game.WithoutPrevious(s.cfg.Prior))
	}
	sess, err := game.New(s.cfg.Lists.Answers, s.cfg.Lists.Allowed, mode, opts...)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res := s.describe(sess)
	if req.Opening {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RankTimeout)
		defer cancel()
		t, err := sess.Opening(ctx)
		if err != nil {
			writeError(w, r, err)
			return
		}
		limit, full := tableQuery(r)
		v := viewTable(t, limit, full)
		res.Table = &v
	}

	if err := s.store.Save(r.Context(), sess); err != nil {
		writeError(w, r, err)
		return
	}
	log.Debug().Str("session", sess.ID).Str("mode", string(mode)).Msg("session created")
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	res := s.describe(sess)
	if t := sess.Table(); t != nil {
		limit, full := tableQuery(r)
		v := viewTable(t, limit, full)
		res.Table = &v
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type guessReq struct {
	Guess  string `json:"guess"`
	Colors string `json:"colors"` // five of b/y/g
}

type guessRes struct {
	Turn      game.Turn `json:"turn"`
	Remaining int       `json:"remaining"`
	Golf      float64   `json:"golf"`
	Solved    bool      `json:"solved"`
	Table     tableView `json:"table"`
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorRes{Error: "bad_json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RankTimeout)
	defer cancel()
	turn, t, err := sess.Guess(ctx, req.Guess, req.Colors)
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit, full := tableQuery(r)
	writeJSON(w, http.StatusOK, guessRes{
		Turn:      turn,
		Remaining: t.Answers,
		Golf:      sess.GolfScore(),
		Solved:    turn.Feedback.Solved(),
		Table:     viewTable(t, limit, full),
	})
}

func (s *Server) handleRemaining(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	left := sess.RemainingAnswers()
	writeJSON(w, http.StatusOK, map[string]any{"count": len(left), "words": left})
}

type constraintsRes struct {
	Excluded string       `json:"excluded"`
	Fixed    string       `json:"fixed"`
	Yellow   []yellowView `json:"yellow"`
	Counts   []countView  `json:"counts"`
}

type yellowView struct {
	Letter string `json:"letter"`
	Pos    int    `json:"pos"`
}

type countView struct {
	Letter string `json:"letter"`
	Min    int    `json:"min"`
	Exact  bool   `json:"exact"`
}

func (s *Server) handleConstraints(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	st := sess.State()
	res := constraintsRes{
		Excluded: st.ExcludedLetters(),
		Fixed:    st.FixedPositions(),
		Yellow:   []yellowView{},
		Counts:   []countView{},
	}
	for _, p := range st.YellowPairs() {
		res.Yellow = append(res.Yellow, yellowView{Letter: string(p.Letter), Pos: p.Pos})
	}
	for _, c := range st.Counts() {
		res.Counts = append(res.Counts, countView{Letter: string(c.Letter), Min: c.Min, Exact: c.Exact})
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSessionScore(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"golf": sess.GolfScore(), "turns": len(sess.Turns())})
}

// -------------------------------- SCORE ------------------------------------

type scoreReq struct {
	Answer  string   `json:"answer"`
	Guesses []string `json:"guesses"`
	Mode    string   `json:"mode"`
}

type scoreRes struct {
	Golf  float64     `json:"golf"`
	Turns []game.Turn `json:"turns"`
}

// handleScore replays guesses against a known answer and reports the golf score.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorRes{Error: "bad_json"})
		return
	}
	answer, err := words.Parse(req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	guesses, err := words.ParseAll(req.Guesses)
	if err != nil {
		writeError(w, r, err)
		return
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RankTimeout)
	defer cancel()
	sess, err := game.Replay(ctx, answer, guesses, s.cfg.Lists.Answers, s.cfg.Lists.Allowed, mode,
		game.WithSolverOptions(s.solverOptions()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreRes{Golf: sess.GolfScore(), Turns: sess.Turns()})
}
