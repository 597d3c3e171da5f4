// internal/feedback/feedback.go
//
// Color feedback for a guess against an answer.
// Defines:
//   - Symbol: per-letter result (black/yellow/green).
//   - Feedback: the five symbols for one guess.
//   - Code: the base-3 encoding of a Feedback, used as the outcome key when
//     partitioning answers (0..242, first letter most significant).
//
// Scoring uses the classic two-pass algorithm so repeated letters only earn
// Yellow while unmatched supply of that letter remains in the answer.

package feedback

import (
	"strings"

	"github.com/robalobadob/wordle-solver/internal/words"
)

// Symbol is the evaluation result for one letter slot.
type Symbol uint8

const (
	Black  Symbol = iota // letter absent, or no unmatched copies left
	Yellow               // letter present at another position
	Green                // letter at this position
)

// NumCodes is the number of distinct Feedback values (3^5).
const NumCodes = 243

// Feedback is the ordered per-position result of a guess.
type Feedback [words.Length]Symbol

// Code is a compact, comparable encoding of a Feedback.
type Code uint8

// AllGreen is the code of a solved guess.
const AllGreen Code = NumCodes - 1

// Compute scores guess against answer.
//
// Pass 1 marks exact matches Green and counts the answer's remaining letters.
// Pass 2 walks the other positions left to right: Yellow while supply of the
// letter remains (consuming one), Black otherwise.
func Compute(guess, answer words.Word) Feedback {
	var fb Feedback
	var supply [26]uint8

	for i := 0; i < words.Length; i++ {
		if guess[i] == answer[i] {
			fb[i] = Green
		} else {
			supply[answer[i]-'a']++
		}
	}
	for i := 0; i < words.Length; i++ {
		if fb[i] == Green {
			continue
		}
		j := guess[i] - 'a'
		if supply[j] > 0 {
			fb[i] = Yellow
			supply[j]--
		}
	}
	return fb
}

// CodeOf is Compute(guess, answer).Code() without the intermediate value.
func CodeOf(guess, answer words.Word) Code {
	var supply [26]uint8
	var green [words.Length]bool
	for i := 0; i < words.Length; i++ {
		if guess[i] == answer[i] {
			green[i] = true
		} else {
			supply[answer[i]-'a']++
		}
	}
	var code uint8
	for i := 0; i < words.Length; i++ {
		code *= 3
		switch {
		case green[i]:
			code += uint8(Green)
		case supply[guess[i]-'a'] > 0:
			supply[guess[i]-'a']--
			code += uint8(Yellow)
		}
	}
	return Code(code)
}

// Parse reads feedback written as five of 'b', 'y', 'g' (any case).
func Parse(s string) (Feedback, error) {
	var fb Feedback
	norm := strings.ToLower(strings.TrimSpace(s))
	if len(norm) != words.Length {
		return fb, &words.ValidationError{Field: "feedback", Value: s, Reason: "must be 5 symbols"}
	}
	for i := 0; i < words.Length; i++ {
		switch norm[i] {
		case 'b':
			fb[i] = Black
		case 'y':
			fb[i] = Yellow
		case 'g':
			fb[i] = Green
		default:
			return fb, &words.ValidationError{Field: "feedback", Value: s, Reason: `symbols must be "b", "y" or "g"`}
		}
	}
	return fb, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Feedback {
	fb, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return fb
}

func (s Symbol) String() string {
	switch s {
	case Green:
		return "g"
	case Yellow:
		return "y"
	default:
		return "b"
	}
}

func (f Feedback) String() string {
	var b strings.Builder
	for _, s := range f {
		b.WriteString(s.String())
	}
	return b.String()
}

// MarshalText encodes the feedback in its "bygbb" form.
func (f Feedback) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText accepts any input Parse accepts.
func (f *Feedback) UnmarshalText(b []byte) error {
	p, err := Parse(string(b))
	if err != nil {
		return err
	}
	*f = p
	return nil
}

// Code encodes f in base 3.
func (f Feedback) Code() Code {
	var c uint8
	for _, s := range f {
		c = c*3 + uint8(s)
	}
	return Code(c)
}

// Greens counts Green symbols.
func (f Feedback) Greens() int { return f.count(Green) }

// Yellows counts Yellow symbols.
func (f Feedback) Yellows() int { return f.count(Yellow) }

// Solved reports whether every symbol is Green.
func (f Feedback) Solved() bool { return f.Code() == AllGreen }

func (f Feedback) count(s Symbol) int {
	n := 0
	for _, x := range f {
		if x == s {
			n++
		}
	}
	return n
}

// Feedback decodes c.
func (c Code) Feedback() Feedback {
	var f Feedback
	v := uint8(c)
	for i := words.Length - 1; i >= 0; i-- {
		f[i] = Symbol(v % 3)
		v /= 3
	}
	return f
}

// Greens counts Green symbols in the decoded feedback.
func (c Code) Greens() int { return c.Feedback().Greens() }

// Hits counts Green plus Yellow symbols in the decoded feedback.
func (c Code) Hits() int {
	f := c.Feedback()
	return f.Greens() + f.Yellows()
}

// Outcome is the tuple form of a Code for a given guess: the sorted black
// letters, the green pattern ('-' for non-green) and the yellow (letter, position) pairs.
type Outcome struct {
	Black   string
	Green   string
	Yellows []Pair
}

// Pair is a letter and a zero-based position.
type Pair struct {
	Letter byte
	Pos    int
}

// Explain expands c into its Outcome for guess.
// A letter is listed as black only when none of its occurrences is green or yellow.
func (c Code) Explain(guess words.Word) Outcome {
	f := c.Feedback()
	var out Outcome
	var hit, miss uint32
	green := []byte("-----")
	for i, s := range f {
		bit := uint32(1) << (guess[i] - 'a')
		switch s {
		case Green:
			green[i] = guess[i]
			hit |= bit
		case Yellow:
			out.Yellows = append(out.Yellows, Pair{Letter: guess[i], Pos: i})
			hit |= bit
		default:
			miss |= bit
		}
	}
	var black []byte
	for j := 0; j < 26; j++ {
		if miss&^hit&(1<<j) != 0 {
			black = append(black, byte('a'+j))
		}
	}
	out.Black = string(black)
	out.Green = string(green)
	return out
}
