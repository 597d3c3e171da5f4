// internal/game/score.go
//
// Golf scoring: replay a list of guesses against a known answer and measure
// how far each guess (after the first) was from the best available one.

package game

import (
	"context"
	"fmt"

	"github.com/robalobadob/wordle-solver/internal/feedback"
	"github.com/robalobadob/wordle-solver/internal/words"
)

// Replay plays guesses against answer in a fresh session, using the real
// feedback for each one. It stops at the first error.
func Replay(ctx context.Context, answer words.Word, guesses, answers, allowed []words.Word, mode Mode, opts ...Option) (*Session, error) {
	s, err := New(answers, allowed, mode, opts...)
	if err != nil {
		return nil, err
	}
	for i, g := range guesses {
		if _, _, err := s.Play(ctx, g, feedback.Compute(g, answer)); err != nil {
			return s, fmt.Errorf("guess %d (%s): %w", i+1, g, err)
		}
	}
	return s, nil
}

// Score returns the golf score of guesses for answer; lower is better and
// the first guess is free.
func Score(ctx context.Context, answer words.Word, guesses, answers, allowed []words.Word, mode Mode, opts ...Option) (float64, error) {
	s, err := Replay(ctx, answer, guesses, answers, allowed, mode, opts...)
	if err != nil {
		return 0, err
	}
	return s.GolfScore(), nil
}
