package daily

import (
	"context"
	"database/sql"
)

// Result is one player's scored attempt at a daily challenge.
type Result struct {
	UserID    string  `json:"userId"`
	Date      string  `json:"date"`
	WordIndex int     `json:"wordIndex"`
	Guesses   int     `json:"guesses"`
	Golf      float64 `json:"golf"`
}

// Store persists daily results in the daily_results table.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=?`,
		userID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records r; the first result per (user, date) wins and later
// ones are ignored. inserted reports whether r was stored.
func (s *Store) InsertResult(ctx context.Context, r Result) (inserted bool, err error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, word_index, guesses, golf)
		 VALUES(?,?,?,?,?)`, r.UserID, r.Date, r.WordIndex, r.Guesses, r.Golf,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// LBRow is one leaderboard entry.
type LBRow struct {
	UserID   string  `json:"userId"`
	Username string  `json:"username,omitempty"`
	Guesses  int     `json:"guesses"`
	Golf     float64 `json:"golf"`
}

// Leaderboard returns the best results for date: lowest golf score, then
// fewest guesses, then earliest.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.user_id, COALESCE(u.username, ''), d.guesses, d.golf
		 FROM daily_results d
		 LEFT JOIN users u ON u.id = d.user_id
		 WHERE d.date=?
		 ORDER BY d.golf ASC, d.guesses ASC, d.created_at ASC, d.id ASC
		 LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Username, &r.Guesses, &r.Golf); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Results returns a player's daily results, newest date first.
func (s *Store) Results(ctx context.Context, userID string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, date, word_index, guesses, golf
		 FROM daily_results
		 WHERE user_id=?
		 ORDER BY date DESC
		 LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Result{}
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.UserID, &r.Date, &r.WordIndex, &r.Guesses, &r.Golf); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
