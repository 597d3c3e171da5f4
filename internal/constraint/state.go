// Package constraint accumulates what guess feedback reveals about the answer
// and filters word pools against it.
//
// State is a value type: Apply returns the narrowed copy, so callers can try a
// guess and discard the result when it turns out to be contradictory.
package constraint

import (
	"fmt"

	"github.com/robalobadob/wordle-solver/internal/feedback"
	"github.com/robalobadob/wordle-solver/internal/words"
)

// State holds the constraints learned so far. The zero value allows every word.
type State struct {
	fixed   [words.Length]byte   // green letter per position, 0 if unknown
	present [words.Length]uint32 // yellow: letter in word, not at this position
	notAt   [words.Length]uint32 // letters ruled out per position (yellow and black)
	min     [26]uint8            // minimum occurrences
	max     [26]uint8            // maximum occurrences, valid when capped
	capped  uint32               // letters with a known exact count
}

// Count is the occurrence constraint on one letter.
type Count struct {
	Letter byte
	Min    int
	Exact  bool // Min is also the maximum
}

// ContradictionError reports feedback that leaves no candidate word.
type ContradictionError struct {
	Guess    words.Word
	Feedback feedback.Feedback
}

func (e *ContradictionError) Error() string {
	return fmt.Sprintf("no words remain after %s/%s: feedback conflicts with earlier guesses", e.Guess, e.Feedback)
}

// Apply returns s narrowed by one guess and its feedback.
//
// Green fixes a position, Yellow rules out a position and requires presence,
// Black rules out a position. Per letter, a Black occurrence means the answer
// holds exactly as many copies as were marked Green or Yellow (zero excludes the
// letter); with no Black occurrence the answer holds at least that many.
func (s State) Apply(guess words.Word, fb feedback.Feedback) State {
	var marked, blacks [26]uint8
	for i := 0; i < words.Length; i++ {
		c := guess[i] - 'a'
		bit := uint32(1) << c
		switch fb[i] {
		case feedback.Green:
			s.fixed[i] = guess[i]
			marked[c]++
		case feedback.Yellow:
			s.present[i] |= bit
			s.notAt[i] |= bit
			marked[c]++
		default:
			s.notAt[i] |= bit
			blacks[c]++
		}
	}
	for c := 0; c < 26; c++ {
		if marked[c] == 0 && blacks[c] == 0 {
			continue
		}
		if marked[c] > s.min[c] {
			s.min[c] = marked[c]
		}
		if blacks[c] == 0 {
			continue
		}
		bit := uint32(1) << c
		if s.capped&bit == 0 || marked[c] < s.max[c] {
			s.max[c] = marked[c]
		}
		s.capped |= bit
	}
	return s
}

// Consistent reports whether w satisfies every constraint in s.
func (s *State) Consistent(w words.Word) bool {
	var counts [26]uint8
	for i := 0; i < words.Length; i++ {
		if s.fixed[i] != 0 && w[i] != s.fixed[i] {
			return false
		}
		c := w[i] - 'a'
		if s.notAt[i]&(1<<c) != 0 {
			return false
		}
		counts[c]++
	}
	for c := 0; c < 26; c++ {
		if counts[c] < s.min[c] {
			return false
		}
		if s.capped&(1<<c) != 0 && counts[c] > s.max[c] {
			return false
		}
	}
	return true
}

// Filter returns the words of pool consistent with s, in pool order.
func (s *State) Filter(pool []words.Word) []words.Word {
	out := make([]words.Word, 0, len(pool))
	for _, w := range pool {
		if s.Consistent(w) {
			out = append(out, w)
		}
	}
	return out
}

// Narrow applies one guess to s and filters pool, failing with
// *ContradictionError when nothing survives. s is unchanged on failure.
func Narrow(s State, pool []words.Word, guess words.Word, fb feedback.Feedback) (State, []words.Word, error) {
	next := s.Apply(guess, fb)
	out := next.Filter(pool)
	if len(out) == 0 {
		return s, nil, &ContradictionError{Guess: guess, Feedback: fb}
	}
	return next, out, nil
}

// ExcludedLetters returns the letters known to be absent, sorted.
func (s *State) ExcludedLetters() string {
	var b []byte
	for c := 0; c < 26; c++ {
		if s.capped&(1<<c) != 0 && s.max[c] == 0 {
			b = append(b, byte('a'+c))
		}
	}
	return string(b)
}

// FixedPositions returns the green pattern, '-' where unknown.
func (s *State) FixedPositions() string {
	b := []byte("-----")
	for i, c := range s.fixed {
		if c != 0 {
			b[i] = c
		}
	}
	return string(b)
}

// YellowPairs returns (letter, position) pairs: present, but not there.
func (s *State) YellowPairs() []feedback.Pair {
	var out []feedback.Pair
	for c := 0; c < 26; c++ {
		for i := 0; i < words.Length; i++ {
			if s.present[i]&(1<<c) != 0 {
				out = append(out, feedback.Pair{Letter: byte('a' + c), Pos: i})
			}
		}
	}
	return out
}

// Counts returns the occurrence constraints on letters known to be present,
// sorted by letter.
func (s *State) Counts() []Count {
	var out []Count
	for c := 0; c < 26; c++ {
		if s.min[c] == 0 {
			continue
		}
		out = append(out, Count{
			Letter: byte('a' + c),
			Min:    int(s.min[c]),
			Exact:  s.capped&(1<<c) != 0 && s.max[c] == s.min[c],
		})
	}
	return out
}
