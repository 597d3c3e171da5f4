package game

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/robalobadob/wordle-solver/internal/constraint"
	"github.com/robalobadob/wordle-solver/internal/words"
)

var (
	answerList  = []string{"sissy", "missy", "hissy", "raise", "crane", "there", "eerie", "tepid", "deity", "edict"}
	allowedList = append(append([]string{}, answerList...), "humph", "quack", "soare")
)

func pools(t *testing.T) (answers, allowed []words.Word) {
	t.Helper()
	answers, err := words.ParseAll(answerList)
	if err != nil {
		t.Fatal(err)
	}
	allowed, err = words.ParseAll(allowedList)
	if err != nil {
		t.Fatal(err)
	}
	return answers, allowed
}

func newSession(t *testing.T, mode Mode, opts ...Option) *Session {
	t.Helper()
	answers, allowed := pools(t)
	s, err := New(answers, allowed, mode, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func names(ws []words.Word) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.String()
	}
	return out
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeAnswersOnly, "hard": ModeHard, "all": ModeAll, "answers_only": ModeAnswersOnly} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	var ve *words.ValidationError
	if _, err := ParseMode("easy"); !errors.As(err, &ve) || ve.Field != "mode" {
		t.Fatalf("err = %v, want mode ValidationError", err)
	}
}

func TestSessionTurns(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, ModeAnswersOnly)

	if _, _, err := s.Guess(ctx, "sissy", "bgggx"); err == nil {
		t.Fatal("expected validation error for feedback")
	}
	if _, _, err := s.Guess(ctx, "sis", "bgggg"); err == nil {
		t.Fatal("expected validation error for guess")
	}
	if len(s.Turns()) != 0 {
		t.Fatal("invalid input must not record a turn")
	}

	_, tbl, err := s.Guess(ctx, "sissy", "bgggg")
	if err != nil {
		t.Fatalf("Guess: %v", err)
	}
	if got := names(s.RemainingAnswers()); len(got) != 2 || got[0] != "missy" || got[1] != "hissy" {
		t.Fatalf("remaining = %v", got)
	}
	if len(tbl.Rows) != 2 || tbl.Answers != 2 || !near(tbl.Min(), 1) {
		t.Fatalf("table = %+v", tbl)
	}
	if s.GolfScore() != 0 {
		t.Fatalf("first guess scored %v", s.GolfScore())
	}

	// Re-playing the same guess cannot split missy/hissy: avg 2 against a best of 1.
	if _, _, err := s.Guess(ctx, "sissy", "bgggg"); err != nil {
		t.Fatalf("Guess: %v", err)
	}
	if !near(s.GolfScore(), 1) {
		t.Fatalf("golf = %v, want 1", s.GolfScore())
	}

	turn, _, err := s.Guess(ctx, "hissy", "ggggg")
	if err != nil {
		t.Fatalf("Guess: %v", err)
	}
	if turn.Guess.String() != "hissy" || turn.Golf != 0 || turn.Remaining != 1 {
		t.Fatalf("turn = %+v", turn)
	}
	if !s.Solved() || !near(s.GolfScore(), 1) || len(s.Turns()) != 3 {
		t.Fatalf("solved=%v golf=%v turns=%d", s.Solved(), s.GolfScore(), len(s.Turns()))
	}
	if turns := s.Turns(); turns[1].Golf != 1 || turns[2].Remaining != 1 {
		t.Fatalf("turns = %+v", turns)
	}
}

func TestContradictionLeavesSessionUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, ModeAnswersOnly)
	if _, _, err := s.Guess(ctx, "sissy", "bgggg"); err != nil {
		t.Fatal(err)
	}
	before := s.Table()

	_, _, err := s.Guess(ctx, "missy", "bbbbb")
	var ce *constraint.ContradictionError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ContradictionError", err)
	}
	if len(s.Turns()) != 1 || len(s.RemainingAnswers()) != 2 || s.Table() != before {
		t.Fatal("session changed after contradiction")
	}
}

func TestConcurrentGuessesReturnOwnTurn(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, ModeAll)

	played := []string{"humph", "quack"}
	got := make([]Turn, len(played))
	errs := make([]error, len(played))
	var wg sync.WaitGroup
	for i, w := range played {
		wg.Add(1)
		go func(i int, w string) {
			defer wg.Done()
			got[i], _, errs[i] = s.Guess(ctx, w, "bbbbb")
		}(i, w)
	}
	wg.Wait()

	for i, w := range played {
		if errs[i] != nil {
			t.Fatalf("%s: %v", w, errs[i])
		}
		if got[i].Guess.String() != w {
			t.Fatalf("guess %s got turn %+v", w, got[i])
		}
	}
	if len(s.Turns()) != 2 {
		t.Fatalf("turns = %+v", s.Turns())
	}
}

func TestCancelledRankingLeavesSessionUnchanged(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newSession(t, ModeAll)
	if _, _, err := s.Guess(ctx, "sissy", "bgggg"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(s.Turns()) != 0 || len(s.RemainingAnswers()) != len(answerList) {
		t.Fatal("session changed after cancelled ranking")
	}
}

func TestModes(t *testing.T) {
	ctx := context.Background()
	for _, tt := range []struct {
		mode Mode
		rows int
	}{
		{ModeAnswersOnly, 2},
		{ModeHard, 2}, // humph/quack/soare break the s constraints
		{ModeAll, len(allowedList)},
	} {
		s := newSession(t, tt.mode)
		_, tbl, err := s.Guess(ctx, "sissy", "bgggg")
		if err != nil {
			t.Fatalf("%s: %v", tt.mode, err)
		}
		if len(tbl.Rows) != tt.rows {
			t.Fatalf("%s: %d rows, want %d", tt.mode, len(tbl.Rows), tt.rows)
		}
	}
}

func TestOpeningIsNotScored(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, ModeAnswersOnly)
	tbl, err := s.Opening(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tbl.Rows) != len(answerList) {
		t.Fatalf("opening rows = %d", len(tbl.Rows))
	}
	if _, _, err := s.Guess(ctx, "quack", "bbbbb"); err != nil {
		t.Fatal(err)
	}
	if s.GolfScore() != 0 {
		t.Fatalf("golf = %v after first guess", s.GolfScore())
	}
}

func TestScore(t *testing.T) {
	ctx := context.Background()
	answers, allowed := pools(t)
	hissy := words.MustParse("hissy")

	// quack is not in the answers-only table; it is evaluated on demand.
	guesses, _ := words.ParseAll([]string{"sissy", "quack", "hissy"})
	got, err := Score(ctx, hissy, guesses, answers, allowed, ModeAnswersOnly)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !near(got, 1) {
		t.Fatalf("score = %v, want 1", got)
	}

	guesses, _ = words.ParseAll([]string{"tepid", "hissy"})
	if got, _ := Score(ctx, hissy, guesses, answers, allowed, ModeAnswersOnly); got < 0 {
		t.Fatalf("score = %v, want >= 0", got)
	}

	// An answer outside the pool eventually contradicts the feedback.
	guesses, _ = words.ParseAll([]string{"quack"})
	_, err = Score(ctx, words.MustParse("quack"), guesses, answers, allowed, ModeAnswersOnly)
	var ce *constraint.ContradictionError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ContradictionError", err)
	}
}

func TestWithoutPrevious(t *testing.T) {
	prior, _ := words.ParseAll([]string{"sissy", "cigar"})
	s := newSession(t, ModeAnswersOnly, WithoutPrevious(prior))
	if a, g := s.Pools(); a != len(answerList)-1 || g != len(allowedList) {
		t.Fatalf("pools = (%d, %d)", a, g)
	}
	for _, w := range s.RemainingAnswers() {
		if w.String() == "sissy" {
			t.Fatal("prior answer still in pool")
		}
	}
}
