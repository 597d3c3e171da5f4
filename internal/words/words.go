// internal/words/words.go
//
// Word values and word pool management for the solver.
//
// Responsibilities:
//   - Word: a fixed 5-letter lowercase value type with text (un)marshalling.
//   - Lists: the two tracked pools, possible answers and allowed guesses.
//   - Loading pools from environment-provided files or embedded defaults.
//   - RemovePreviousAnswers: pure set difference against a prior-answers list.
//
// Word Lists:
//   - "answers": curated solutions.
//   - "allowed": valid guesses (always includes answers).
//
// Loading behavior (Load):
//   1. If both paths are set, load answers from the first and allowed guesses from the second.
//   2. If only one path is set, use that file for both pools.
//   3. If neither is set, fall back to the embedded lists in the assets package.
//
// Constraints:
//   • Words must be 5 alphabetic letters (a–z); other lines are skipped.
//   • Lists are normalized to lowercase and de-duplicated, keeping first occurrence.

package words

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/robalobadob/wordle-solver/assets"
)

// Length is the number of letters in every word.
const Length = 5

// Word is a 5-letter lowercase ASCII word.
type Word [Length]byte

// ValidationError reports malformed caller input (guess, feedback, mode).
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Parse trims and lowercases s and checks that it is exactly Length letters a–z.
func Parse(s string) (Word, error) {
	var w Word
	norm := strings.ToLower(strings.TrimSpace(s))
	if len(norm) != Length {
		return w, &ValidationError{Field: "word", Value: s, Reason: fmt.Sprintf("must be %d letters", Length)}
	}
	for i := 0; i < Length; i++ {
		c := norm[i]
		if c < 'a' || c > 'z' {
			return w, &ValidationError{Field: "word", Value: s, Reason: "letters a-z only"}
		}
		w[i] = c
	}
	return w, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Word {
	w, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return w
}

// ParseAll parses every entry of list, failing on the first invalid one.
func ParseAll(list []string) ([]Word, error) {
	out := make([]Word, 0, len(list))
	for _, s := range list {
		w, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func (w Word) String() string { return string(w[:]) }

// MarshalText encodes the word as its plain letters.
func (w Word) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

// UnmarshalText accepts any input Parse accepts.
func (w *Word) UnmarshalText(b []byte) error {
	p, err := Parse(string(b))
	if err != nil {
		return err
	}
	*w = p
	return nil
}

// Letters returns the set of distinct letters as a bitmask (bit 0 = 'a').
func (w Word) Letters() uint32 {
	var m uint32
	for _, c := range w {
		m |= 1 << (c - 'a')
	}
	return m
}

// Count returns how many times letter c occurs in w.
func (w Word) Count(c byte) int {
	n := 0
	for _, x := range w {
		if x == c {
			n++
		}
	}
	return n
}

// Lists holds the two word pools tracked by a solver.
type Lists struct {
	Answers []Word // possible answers
	Allowed []Word // allowed guesses; superset of Answers, answers first
}

// Stats returns pool sizes: (answers, allowed).
func (l *Lists) Stats() (answersCount int, allowedCount int) {
	return len(l.Answers), len(l.Allowed)
}

// NewLists builds Lists from two pools, de-duplicating and making sure every
// answer is also allowed.
func NewLists(answers, allowed []Word) (*Lists, error) {
	ans := dedupe(answers)
	if len(ans) == 0 {
		return nil, errors.New("words: answers list is empty")
	}
	all := dedupe(append(append(make([]Word, 0, len(ans)+len(allowed)), ans...), allowed...))
	return &Lists{Answers: ans, Allowed: all}, nil
}

// Load reads the answer and allowed pools (see package doc for the fallback rules).
func Load(answersPath, allowedPath string) (*Lists, error) {
	var ansList, allowList []Word
	var err error

	switch {
	case answersPath != "" && allowedPath != "":
		if ansList, err = ReadFile(answersPath); err != nil {
			return nil, err
		}
		if allowList, err = ReadFile(allowedPath); err != nil {
			return nil, err
		}

	case answersPath == "" && allowedPath != "":
		if allowList, err = ReadFile(allowedPath); err != nil {
			return nil, err
		}
		ansList = allowList

	case answersPath != "":
		if ansList, err = ReadFile(answersPath); err != nil {
			return nil, err
		}

	default:
		if ansList, err = readAsset(assets.Answers); err != nil {
			return nil, err
		}
		if allowList, err = readAsset(assets.Allowed); err != nil {
			return nil, err
		}
	}
	return NewLists(ansList, allowList)
}

// LoadPrior reads a prior-answers list from path, or the embedded list when path is empty.
func LoadPrior(path string) ([]Word, error) {
	if path == "" {
		return readAsset(assets.Prior)
	}
	return ReadFile(path)
}

// ReadFile loads one word per line from a file.
func ReadFile(path string) ([]Word, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	list, err := ReadWords(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return list, nil
}

// ReadWords scans r line by line, keeping valid 5-letter words.
// Blank lines, '#' comments and anything else that is not a word are skipped.
func ReadWords(r io.Reader) ([]Word, error) {
	var out []Word
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if w, err := Parse(line); err == nil {
			out = append(out, w)
		}
	}
	return dedupe(out), sc.Err()
}

func readAsset(name string) ([]Word, error) {
	f, err := assets.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadWords(f)
}

// RemovePreviousAnswers returns pool without any word in prior, preserving order.
func RemovePreviousAnswers(pool, prior []Word) []Word {
	seen := mapset.NewThreadUnsafeSet(prior...)
	out := make([]Word, 0, len(pool))
	for _, w := range pool {
		if !seen.Contains(w) {
			out = append(out, w)
		}
	}
	return out
}

// dedupe keeps the first occurrence of every word.
func dedupe(list []Word) []Word {
	seen := make(map[Word]struct{}, len(list))
	out := make([]Word, 0, len(list))
	for _, w := range list {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
