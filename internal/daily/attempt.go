package daily

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/robalobadob/wordle-solver/internal/words"
)

// MaxGuesses is the guess budget of a daily attempt.
const MaxGuesses = 6

var (
	// ErrAttemptClosed means the player already solved today's word or used
	// every guess.
	ErrAttemptClosed = errors.New("daily: attempt already finished")
	// ErrAttemptMismatch means the submitted guesses do not continue the
	// guesses already played today.
	ErrAttemptMismatch = errors.New("daily: guesses must continue today's attempt")
)

// Attempt is a player's progress on one day's challenge.
type Attempt struct {
	Guesses []words.Word
	Solved  bool
}

// Closed reports whether no more guesses may be played.
func (a Attempt) Closed() bool { return a.Solved || len(a.Guesses) >= MaxGuesses }

// Continue checks that next replays a's guesses in order and adds zero or
// more new ones.
func (a Attempt) Continue(next []words.Word) error {
	if a.Closed() {
		return ErrAttemptClosed
	}
	if len(next) < len(a.Guesses) {
		return ErrAttemptMismatch
	}
	for i, g := range a.Guesses {
		if next[i] != g {
			return ErrAttemptMismatch
		}
	}
	return nil
}

// Attempt loads userID's attempt for date; the zero Attempt if there is none.
func (s *Store) Attempt(ctx context.Context, userID, date string) (Attempt, error) {
	var text string
	var solved bool
	err := s.db.QueryRowContext(ctx,
		`SELECT guesses, solved FROM daily_attempts WHERE user_id=? AND date=?`,
		userID, date,
	).Scan(&text, &solved)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, nil
	}
	if err != nil {
		return Attempt{}, err
	}
	list, err := words.ParseAll(strings.Fields(text))
	if err != nil {
		return Attempt{}, err
	}
	return Attempt{Guesses: list, Solved: solved}, nil
}

// SaveAttempt replaces prev with next for (userID, date). It fails with
// ErrAttemptMismatch when the stored attempt is no longer prev, so two
// concurrent submissions cannot both extend the same attempt.
func (s *Store) SaveAttempt(ctx context.Context, userID, date string, prev, next Attempt) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_attempts(user_id, date, guesses, solved) VALUES(?,?,?,?)
		 ON CONFLICT(user_id, date) DO UPDATE
		   SET guesses=excluded.guesses, solved=excluded.solved,
		       updated_at=strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		 WHERE daily_attempts.guesses=? AND daily_attempts.solved=0`,
		userID, date, joinWords(next.Guesses), next.Solved, joinWords(prev.Guesses),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAttemptMismatch
	}
	return nil
}

func joinWords(list []words.Word) string {
	parts := make([]string, len(list))
	for i, w := range list {
		parts[i] = w.String()
	}
	return strings.Join(parts, " ")
}
