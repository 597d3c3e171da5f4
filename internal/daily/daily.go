// Package daily picks the daily golf challenge answer and stores results.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/robalobadob/wordle-solver/internal/words"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// WordIndex returns a deterministic index for a date using HMAC(salt, YYYY-MM-DD) % answersLen.
func WordIndex(date time.Time, salt string, answersLen int) int {
	if answersLen <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes as uint64 for the modulus
	n := binary.BigEndian.Uint64(sum[:8])
	return int(n % uint64(answersLen))
}

// Challenge is the puzzle for one day.
type Challenge struct {
	Date      string
	WordIndex int
	Answer    words.Word
}

// For returns the challenge of the day containing t. ok is false for an
// empty answer list.
func For(t time.Time, salt string, answers []words.Word) (c Challenge, ok bool) {
	c.Date = DateKey(t)
	if len(answers) == 0 {
		return c, false
	}
	c.WordIndex = WordIndex(t, salt, len(answers))
	c.Answer = answers[c.WordIndex]
	return c, true
}
