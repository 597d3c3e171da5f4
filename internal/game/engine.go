// internal/game/engine.go
//
// Session engine for one solving session.
// Responsibilities:
//   - Snapshot the answer and allowed pools at creation.
//   - Validate guesses and feedback, narrow the constraint state.
//   - Track remaining answers (and the hard-mode guess pool) as bitsets over
//     the snapshot, so filtering never copies words.
//   - Re-rank the next guesses after every turn and accumulate the golf score.
//
// Notes:
//   - A guess is applied atomically: the new state, pools and table are built
//     on the side and committed only when ranking succeeds. A rejected guess
//     (bad input, contradiction, cancelled ranking) leaves the session as it was.
//   - The golf score starts counting on the second guess. The played guess is
//     looked up in the previous table, or evaluated on demand when it was not
//     in the ranked pool.
//   - randomID() is a compact hex identifier for correlating server state.
package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle-solver/internal/constraint"
	"github.com/robalobadob/wordle-solver/internal/feedback"
	"github.com/robalobadob/wordle-solver/internal/solver"
	"github.com/robalobadob/wordle-solver/internal/words"
)

// ErrEmptyPool is returned by New when there are no answers to solve for.
var ErrEmptyPool = errors.New("game: answer pool is empty")

// Session is the state of one solving session. Methods are safe for
// concurrent use; calls are serialised.
type Session struct {
	ID      string
	Mode    Mode
	Created time.Time

	mu      sync.Mutex
	answers []words.Word // snapshot, never mutated
	allowed []words.Word // snapshot, never mutated
	opts    solver.Options

	state     constraint.State
	remaining *bitset.BitSet // indices into answers
	hardPool  *bitset.BitSet // indices into allowed
	turns     []Turn
	golf      float64
	table     *solver.Table // ranking for the next guess
	pool      []words.Word  // answers the table was ranked against
}

// New starts a session over the given pools.
func New(answers, allowed []words.Word, mode Mode, opts ...Option) (*Session, error) {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ModeAnswersOnly
	}
	if len(cfg.prior) > 0 {
		answers = words.RemovePreviousAnswers(answers, cfg.prior)
	}
	if len(answers) == 0 {
		return nil, ErrEmptyPool
	}

	s := &Session{
		ID:      randomID(),
		Mode:    mode,
		Created: time.Now().UTC(),
		answers: append([]words.Word(nil), answers...),
		allowed: append([]words.Word(nil), allowed...),
		opts:    cfg.solver,
	}
	s.remaining = bitset.New(uint(len(s.answers))).Complement()
	s.hardPool = bitset.New(uint(len(s.allowed))).Complement()
	s.pool = s.answers
	return s, nil
}

// Guess parses word and colors ("b"/"y"/"g" per letter), applies them and
// returns the applied turn with the ranking for the next guess.
//
// Errors: *words.ValidationError for malformed input,
// *constraint.ContradictionError when no answer fits, or the context error
// when ranking is cancelled. The session is unchanged on any error.
func (s *Session) Guess(ctx context.Context, word, colors string) (Turn, *solver.Table, error) {
	w, err := words.Parse(word)
	if err != nil {
		return Turn{}, nil, err
	}
	fb, err := feedback.Parse(colors)
	if err != nil {
		return Turn{}, nil, err
	}
	return s.Play(ctx, w, fb)
}

// Play is Guess for already-parsed input.
func (s *Session) Play(ctx context.Context, w words.Word, fb feedback.Feedback) (Turn, *solver.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	next := s.state.Apply(w, fb)
	remaining := filter(&next, s.answers, s.remaining)
	if remaining.None() {
		return Turn{}, nil, &constraint.ContradictionError{Guess: w, Feedback: fb}
	}
	hardPool := filter(&next, s.allowed, s.hardPool)

	var golf float64
	if len(s.turns) > 0 && s.table != nil {
		golf = s.golfFor(w)
	}

	pool := pick(s.answers, remaining)
	table, err := solver.Rank(ctx, s.guessPool(pool, hardPool), pool, s.opts)
	if err != nil {
		return Turn{}, nil, err
	}

	turn := Turn{Guess: w, Feedback: fb, Golf: golf, Remaining: len(pool)}
	s.state = next
	s.remaining = remaining
	s.hardPool = hardPool
	s.golf += golf
	s.turns = append(s.turns, turn)
	s.table = table
	s.pool = pool

	log.Debug().
		Str("session", s.ID).
		Str("guess", w.String()).
		Str("feedback", fb.String()).
		Int("remaining", len(pool)).
		Float64("golf", golf).
		Dur("took", time.Since(start)).
		Msg("turn applied")
	return turn, table, nil
}

// Opening ranks the first guess. It does not count towards the golf score.
// After the first turn it returns the current table.
func (s *Session) Opening(ctx context.Context) (*solver.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table != nil {
		return s.table, nil
	}
	table, err := solver.Rank(ctx, s.guessPool(s.pool, s.hardPool), s.pool, s.opts)
	if err != nil {
		return nil, err
	}
	s.table = table
	return table, nil
}

// golfFor is avgRemaining(w) minus the best avgRemaining of the current table.
func (s *Session) golfFor(w words.Word) float64 {
	row, ok := s.table.Lookup(w)
	if !ok {
		row = solver.Evaluate(w, s.pool)
	}
	return row.AvgRemaining - s.table.Min()
}

func (s *Session) guessPool(answers []words.Word, hardPool *bitset.BitSet) []words.Word {
	switch s.Mode {
	case ModeHard:
		return pick(s.allowed, hardPool)
	case ModeAll:
		return s.allowed
	default:
		return answers
	}
}

// RemainingAnswers returns the answers consistent with every turn so far.
func (s *Session) RemainingAnswers() []words.Word {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]words.Word(nil), s.pool...)
}

// GolfScore is the sum of per-turn golf contributions; lower is better.
func (s *Session) GolfScore() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.golf
}

// Turns returns a copy of the transcript.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

// Table returns the latest ranking, or nil before the first ranking.
func (s *Session) Table() *solver.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// State returns the accumulated constraints.
func (s *Session) State() constraint.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Solved reports whether the last feedback was all green.
func (s *Session) Solved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns) > 0 && s.turns[len(s.turns)-1].Feedback.Solved()
}

// Pools reports the snapshot sizes (answers, allowed).
func (s *Session) Pools() (answers, allowed int) {
	return len(s.answers), len(s.allowed)
}

// filter keeps the members of set whose word satisfies st.
func filter(st *constraint.State, list []words.Word, set *bitset.BitSet) *bitset.BitSet {
	out := set.Clone()
	for i, ok := set.NextSet(0); ok; i, ok = set.NextSet(i + 1) {
		if !st.Consistent(list[i]) {
			out.Clear(i)
		}
	}
	return out
}

func pick(list []words.Word, set *bitset.BitSet) []words.Word {
	out := make([]words.Word, 0, set.Count())
	for i, ok := set.NextSet(0); ok; i, ok = set.NextSet(i + 1) {
		out = append(out, list[i])
	}
	return out
}

// randomID returns a compact 16-hex-char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
