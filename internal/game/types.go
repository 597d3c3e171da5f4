// internal/game/types.go
//
// Core type definitions for the solver session engine.
// Defines:
//   - Mode: which words may be ranked as the next guess.
//   - Turn: one played guess with its feedback and golf contribution.
//   - Option: functional options for New.

package game

import (
	"github.com/robalobadob/wordle-solver/internal/feedback"
	"github.com/robalobadob/wordle-solver/internal/solver"
	"github.com/robalobadob/wordle-solver/internal/words"
)

// Mode selects the guess pool ranked after each turn.
//   - "answers_only": only answers still consistent with the feedback (fast).
//   - "hard":         allowed words still consistent with the feedback.
//   - "all":          every allowed word, including ones already ruled out (slowest).
type Mode string

const (
	ModeAnswersOnly Mode = "answers_only"
	ModeHard        Mode = "hard"
	ModeAll         Mode = "all"
)

// ParseMode validates a mode string; empty means ModeAnswersOnly.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return ModeAnswersOnly, nil
	case ModeAnswersOnly, ModeHard, ModeAll:
		return m, nil
	default:
		return "", &words.ValidationError{Field: "mode", Value: s, Reason: "want answers_only, hard or all"}
	}
}

// Turn is one entry of a session transcript.
type Turn struct {
	Guess     words.Word        `json:"guess"`
	Feedback  feedback.Feedback `json:"feedback"`
	Golf      float64           `json:"golf"`      // avgRemaining(guess) - best avgRemaining; 0 on the first turn
	Remaining int               `json:"remaining"` // answers left after this turn
}

type config struct {
	solver solver.Options
	prior  []words.Word
}

// Option configures a Session.
type Option func(*config)

// WithSolverOptions sets worker count and progress reporting for rankings.
func WithSolverOptions(o solver.Options) Option {
	return func(c *config) { c.solver = o }
}

// WithoutPrevious drops prior answers from the answer pool.
func WithoutPrevious(prior []words.Word) Option {
	return func(c *config) { c.prior = prior }
}
