package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/robalobadob/wordle-solver/internal/daily"
	"github.com/robalobadob/wordle-solver/internal/db"
	"github.com/robalobadob/wordle-solver/internal/store"
	"github.com/robalobadob/wordle-solver/internal/words"
)

const testSalt = "test_salt"

func testServer(t *testing.T) (*Server, *words.Lists) {
	t.Helper()
	answers, _ := words.ParseAll([]string{"sissy", "missy", "hissy", "raise", "crane", "there"})
	extra, _ := words.ParseAll([]string{"quack", "humph"})
	lists, err := words.NewLists(answers, extra)
	if err != nil {
		t.Fatal(err)
	}
	conn, err := db.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.Migrate(conn, db.Migrations()); err != nil {
		t.Fatal(err)
	}
	prior, _ := words.ParseAll([]string{"raise"})
	return New(store.NewMemoryStore(), conn, Config{
		Lists:       lists,
		Prior:       prior,
		RankTimeout: 5 * time.Second,
		Workers:     2,
		DailySalt:   testSalt,
	}), lists
}

func do(t *testing.T, s *Server, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestSessionFlow(t *testing.T) {
	s, _ := testServer(t)

	rec := do(t, s, http.MethodPost, "/sessions", map[string]any{"mode": "answers_only", "opening": true}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var created struct {
		ID      string `json:"id"`
		Answers int    `json:"answers"`
		Table   struct {
			Rows []struct {
				Guess string `json:"guess"`
			} `json:"rows"`
		} `json:"table"`
	}
	decode(t, rec, &created)
	if created.ID == "" || created.Answers != 6 || len(created.Table.Rows) == 0 {
		t.Fatalf("created = %+v", created)
	}
	base := "/sessions/" + created.ID

	rec = do(t, s, http.MethodPost, base+"/guesses", map[string]string{"guess": "sissy", "colors": "bgggx"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad colors: %d %s", rec.Code, rec.Body)
	}
	var bad errorRes
	decode(t, rec, &bad)
	if bad.Error != "invalid_input" || bad.Field != "feedback" {
		t.Fatalf("bad colors body = %+v", bad)
	}

	rec = do(t, s, http.MethodPost, base+"/guesses", map[string]string{"guess": "sissy", "colors": "bgggg"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("guess: %d %s", rec.Code, rec.Body)
	}
	var g struct {
		Remaining int     `json:"remaining"`
		Golf      float64 `json:"golf"`
		Turn      struct {
			Guess    string `json:"guess"`
			Feedback string `json:"feedback"`
		} `json:"turn"`
		Table struct {
			Columns []string `json:"columns"`
			Rows    []struct {
				Guess   string `json:"guess"`
				Viable  bool   `json:"viableAnswer"`
				Buckets []int  `json:"buckets"`
			} `json:"rows"`
		} `json:"table"`
	}
	decode(t, rec, &g)
	if g.Remaining != 2 || g.Turn.Guess != "sissy" || g.Turn.Feedback != "bgggg" {
		t.Fatalf("guess body = %+v", g)
	}
	if len(g.Table.Rows) != 2 || !g.Table.Rows[0].Viable || len(g.Table.Rows[0].Buckets) != len(g.Table.Columns) {
		t.Fatalf("table = %+v", g.Table)
	}

	rec = do(t, s, http.MethodPost, base+"/guesses", map[string]string{"guess": "missy", "colors": "bbbbb"}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("contradiction: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, s, http.MethodGet, base+"/remaining", nil, nil)
	var left struct {
		Count int      `json:"count"`
		Words []string `json:"words"`
	}
	decode(t, rec, &left)
	if left.Count != 2 || left.Words[0] != "missy" || left.Words[1] != "hissy" {
		t.Fatalf("remaining = %+v", left)
	}

	rec = do(t, s, http.MethodGet, base+"/constraints", nil, nil)
	var cons constraintsRes
	decode(t, rec, &cons)
	if cons.Fixed != "-issy" || cons.Excluded != "" || len(cons.Counts) != 3 {
		t.Fatalf("constraints = %+v", cons)
	}

	rec = do(t, s, http.MethodGet, base+"/score", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("score: %d", rec.Code)
	}

	if rec = do(t, s, http.MethodDelete, base, nil, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec = do(t, s, http.MethodGet, base, nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", rec.Code)
	}
}

func TestNewSessionOptions(t *testing.T) {
	s, _ := testServer(t)

	rec := do(t, s, http.MethodPost, "/sessions", map[string]any{"mode": "easy"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad mode: %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/sessions", map[string]any{"excludePrevious": true}, nil)
	var res struct {
		Answers int `json:"answers"`
		Allowed int `json:"allowed"`
	}
	decode(t, rec, &res)
	if res.Answers != 5 || res.Allowed != 8 {
		t.Fatalf("pools = %+v", res)
	}

	rec = do(t, s, http.MethodPost, "/sessions", nil, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("empty body: %d %s", rec.Code, rec.Body)
	}
}

func TestScoreEndpoint(t *testing.T) {
	s, _ := testServer(t)

	rec := do(t, s, http.MethodPost, "/score", map[string]any{
		"answer":  "hissy",
		"guesses": []string{"sissy", "quack", "hissy"},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("score: %d %s", rec.Code, rec.Body)
	}
	var res struct {
		Golf  float64 `json:"golf"`
		Turns []any   `json:"turns"`
	}
	decode(t, rec, &res)
	if res.Golf != 1 || len(res.Turns) != 3 {
		t.Fatalf("score = %+v", res)
	}

	rec = do(t, s, http.MethodPost, "/score", map[string]any{"answer": "hiss", "guesses": []string{}}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad answer: %d", rec.Code)
	}
}

func TestDailyAndAuth(t *testing.T) {
	s, lists := testServer(t)
	c, _ := daily.For(time.Now(), testSalt, lists.Answers)

	rec := do(t, s, http.MethodPost, "/auth/signup", map[string]string{"username": "golfer", "password": "long-enough"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body)
	}
	var su struct {
		Token string `json:"token"`
	}
	decode(t, rec, &su)
	auth := http.Header{"Authorization": {"Bearer " + su.Token}}

	rec = do(t, s, http.MethodGet, "/auth/me", nil, auth)
	var me authUser
	decode(t, rec, &me)
	if me.Username != "golfer" {
		t.Fatalf("me = %+v", me)
	}
	if rec = do(t, s, http.MethodGet, "/auth/me", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous /auth/me: %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/daily/score", map[string]any{"guesses": []string{"zzzzz"}}, auth)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown word: %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/daily/score", map[string]any{"guesses": []string{c.Answer.String()}}, auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("daily score: %d %s", rec.Code, rec.Body)
	}
	var res dailyScoreRes
	decode(t, rec, &res)
	if !res.Solved || !res.Recorded || res.Golf != 0 {
		t.Fatalf("daily score = %+v", res)
	}

	rec = do(t, s, http.MethodPost, "/daily/score", map[string]any{"guesses": []string{c.Answer.String()}}, auth)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second attempt: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, s, http.MethodGet, "/daily/leaderboard", nil, nil)
	var lb lbRes
	decode(t, rec, &lb)
	if lb.Date != c.Date || len(lb.Top) != 1 || lb.Top[0].Username != "golfer" {
		t.Fatalf("leaderboard = %+v", lb)
	}

	rec = do(t, s, http.MethodGet, "/stats/me", nil, auth)
	var stats struct {
		GamesScored int `json:"gamesScored"`
	}
	decode(t, rec, &stats)
	if stats.GamesScored != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

// cookies turns the cookies set on rec into a request header.
func cookies(rec *httptest.ResponseRecorder) http.Header {
	h := http.Header{}
	for _, c := range rec.Result().Cookies() {
		h.Add("Cookie", c.Name+"="+c.Value)
	}
	return h
}

func TestDailyAttemptIsOnePerDay(t *testing.T) {
	s, lists := testServer(t)
	c, _ := daily.For(time.Now(), testSalt, lists.Answers)
	answer := c.Answer.String()

	rec := do(t, s, http.MethodPost, "/daily/score", map[string]any{"guesses": []string{"quack"}}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first guess: %d %s", rec.Code, rec.Body)
	}
	guest := cookies(rec)
	if len(guest) == 0 {
		t.Fatal("no anonymous cookie set")
	}
	var res dailyScoreRes
	decode(t, rec, &res)
	if res.Solved || res.Recorded || len(res.Turns) != 1 {
		t.Fatalf("first guess = %+v", res)
	}

	for _, tt := range []struct {
		guesses []string
		code    int
	}{
		{[]string{answer}, http.StatusConflict},                     // restarting the day
		{[]string{"humph", answer}, http.StatusConflict},            // rewriting an earlier guess
		{[]string{"quack", answer, "quack"}, http.StatusBadRequest}, // guessing on after solving
	} {
		rec = do(t, s, http.MethodPost, "/daily/score", map[string]any{"guesses": tt.guesses}, guest)
		if rec.Code != tt.code {
			t.Fatalf("%v: %d %s, want %d", tt.guesses, rec.Code, rec.Body, tt.code)
		}
	}

	rec = do(t, s, http.MethodPost, "/daily/score", map[string]any{"guesses": []string{"quack", answer}}, guest)
	if rec.Code != http.StatusOK {
		t.Fatalf("solve: %d %s", rec.Code, rec.Body)
	}
	res = dailyScoreRes{}
	decode(t, rec, &res)
	if !res.Solved || !res.Recorded || len(res.Turns) != 2 {
		t.Fatalf("solve = %+v", res)
	}
	golf := res.Golf

	rec = do(t, s, http.MethodPost, "/daily/score", map[string]any{"guesses": []string{"quack", answer}}, guest)
	if rec.Code != http.StatusConflict {
		t.Fatalf("after solving: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, s, http.MethodGet, "/daily", nil, guest)
	var today todayRes
	decode(t, rec, &today)
	if !today.Played || len(today.Guesses) != 2 || today.Guesses[1] != answer {
		t.Fatalf("today = %+v", today)
	}

	// Signing up claims the guest result and counts it in the player's stats.
	rec = do(t, s, http.MethodPost, "/auth/signup", map[string]string{"username": "guest", "password": "long-enough"}, guest)
	if rec.Code != http.StatusOK {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body)
	}
	var su struct {
		Token string `json:"token"`
	}
	decode(t, rec, &su)
	auth := http.Header{"Authorization": {"Bearer " + su.Token}}

	rec = do(t, s, http.MethodGet, "/daily/mine", nil, auth)
	var mine []daily.Result
	decode(t, rec, &mine)
	if len(mine) != 1 || mine[0].Golf != golf {
		t.Fatalf("mine = %+v", mine)
	}
	rec = do(t, s, http.MethodGet, "/stats/me", nil, auth)
	var stats struct {
		GamesScored int     `json:"gamesScored"`
		BestGolf    float64 `json:"bestGolf"`
	}
	decode(t, rec, &stats)
	if stats.GamesScored != 1 || stats.BestGolf != golf {
		t.Fatalf("stats = %+v", stats)
	}
	if rec = do(t, s, http.MethodPost, "/daily/score", map[string]any{"guesses": []string{"quack", answer}}, auth); rec.Code != http.StatusConflict {
		t.Fatalf("claimed attempt replayed: %d %s", rec.Code, rec.Body)
	}
}

func TestServeShutsDown(t *testing.T) {
	s, _ := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, "127.0.0.1:0", time.Second) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if err := s.Serve(context.Background(), "127.0.0.1:99999", time.Second); err == nil {
		t.Fatal("expected listen error for a bad port")
	}
}
