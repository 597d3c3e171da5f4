// internal/solver/rank.go
//
// Guess ranking: turns outcome partitions into ranking rows and orders them.
//
// avgRemaining is Σ n² / Σ n over the outcome counts n of a guess: the
// expected number of answers left if the true answer is drawn uniformly from
// the pool (an outcome shared by n answers leaves n candidates, n times).
//
// Order: lower avgRemaining first, then more Green_4+ + GorY_4+ weight, then
// guesses that can still be the answer, then alphabetical.

package solver

import (
	"context"
	"sort"
	"strconv"

	"golang.org/x/exp/constraints"

	"github.com/robalobadob/wordle-solver/internal/words"
)

// NearOptimal is how far above the best avgRemaining a non-answer guess may be
// and still appear in the visible table.
const NearOptimal = 0.5

// openBucket is the first remaining-size folded into the open-ended bucket
// once the table has more than maxBuckets distinct sizes.
const (
	openBucket = 10
	maxBuckets = 10
)

// Row is the ranking summary of one guess.
type Row struct {
	Guess        words.Word  `json:"guess"`
	Viable       bool        `json:"viableAnswer"`
	AvgRemaining float64     `json:"avgRemaining"`
	Histogram    map[int]int `json:"histogram"` // remaining size -> answers

	Green3 int `json:"green3Plus"`
	Green4 int `json:"green4Plus"`
	GorY3  int `json:"gorY3Plus"`
	GorY4  int `json:"gorY4Plus"`
	GorY5  int `json:"gorY5"`

	// Coverage[k-1] is the share of answers with at least k distinct letters in common.
	Coverage [words.Length]float64 `json:"coverage"`
	// Exact[k-1] is the share of answers matching the guess at k or more positions.
	Exact [words.Length]float64 `json:"exact"`

	sumSq int64
}

func (r *Row) secondary() int { return r.Green4 + r.GorY4 }

// Summarize builds the row for one partition.
func Summarize(p *Partition, viable bool) Row {
	row := Row{Guess: p.Guess, Viable: viable, Histogram: make(map[int]int)}
	total := 0
	for c, n := range p.Outcomes {
		if n == 0 {
			continue
		}
		k := int(n)
		total += k
		row.sumSq += int64(k) * int64(k)
		row.Histogram[k] += k

		if greens[c] >= 3 {
			row.Green3 += k
		}
		if greens[c] >= 4 {
			row.Green4 += k
		}
		if hits[c] >= 3 {
			row.GorY3 += k
		}
		if hits[c] >= 4 {
			row.GorY4 += k
		}
		if hits[c] >= 5 {
			row.GorY5 += k
		}
	}
	if total == 0 {
		return row
	}
	row.AvgRemaining = float64(row.sumSq) / float64(total)

	var shared, exact int32
	for k := words.Length; k >= 1; k-- {
		shared += p.Shared[k]
		exact += p.Exact[k]
		row.Coverage[k-1] = float64(shared) / float64(total)
		row.Exact[k-1] = float64(exact) / float64(total)
	}
	return row
}

// Evaluate ranks a single guess against answers.
func Evaluate(guess words.Word, answers []words.Word) Row {
	viable := false
	for _, a := range answers {
		if a == guess {
			viable = true
			break
		}
	}
	return Summarize(PartitionOne(guess, answers), viable)
}

// Table is a full ranking, best guess first.
type Table struct {
	Rows    []Row `json:"rows"`
	Answers int   `json:"answers"`

	index map[words.Word]int
}

// Rank partitions answers for every guess and orders the resulting rows.
func Rank(ctx context.Context, guesses, answers []words.Word, opts Options) (*Table, error) {
	parts, err := PartitionAll(ctx, guesses, answers, opts)
	if err != nil {
		return nil, err
	}
	viable := make(map[words.Word]struct{}, len(answers))
	for _, a := range answers {
		viable[a] = struct{}{}
	}
	rows := make([]Row, len(parts))
	for i, p := range parts {
		_, ok := viable[p.Guess]
		rows[i] = Summarize(p, ok)
	}
	return newTable(rows, len(answers)), nil
}

func newTable(rows []Row, answers int) *Table {
	sort.SliceStable(rows, func(i, j int) bool { return less(&rows[i], &rows[j]) })
	t := &Table{Rows: rows, Answers: answers, index: make(map[words.Word]int, len(rows))}
	for i, r := range rows {
		t.index[r.Guess] = i
	}
	return t
}

func less(a, b *Row) bool {
	// Every row shares the answer count as denominator, so Σn² orders exactly.
	if a.sumSq != b.sumSq {
		return a.sumSq < b.sumSq
	}
	if sa, sb := a.secondary(), b.secondary(); sa != sb {
		return sa > sb
	}
	if a.Viable != b.Viable {
		return a.Viable
	}
	return a.Guess.String() < b.Guess.String()
}

// Best returns the top row.
func (t *Table) Best() (Row, bool) {
	if len(t.Rows) == 0 {
		return Row{}, false
	}
	return t.Rows[0], true
}

// Min is the lowest avgRemaining in the table (0 for an empty table).
func (t *Table) Min() float64 {
	if len(t.Rows) == 0 {
		return 0
	}
	return t.Rows[0].AvgRemaining
}

// Lookup finds the row for guess.
func (t *Table) Lookup(guess words.Word) (Row, bool) {
	i, ok := t.index[guess]
	if !ok {
		return Row{}, false
	}
	return t.Rows[i], true
}

// Visible keeps rows that can still be the answer, plus any guess within
// NearOptimal of the best avgRemaining.
func (t *Table) Visible() []Row {
	limit := t.Min() + NearOptimal
	out := make([]Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		if r.Viable || r.AvgRemaining <= limit {
			out = append(out, r)
		}
	}
	return out
}

// Bucket is one histogram column: answers left with exactly Size candidates,
// or with Size or more when Open.
type Bucket struct {
	Size int
	Open bool
}

// Label renders the column header, e.g. "2_left" or "10+_left".
func (b Bucket) Label() string {
	if b.Open {
		return strconv.Itoa(b.Size) + "+_left"
	}
	return strconv.Itoa(b.Size) + "_left"
}

// Buckets lists the histogram columns for the table. Sizes from openBucket up
// share one open-ended column when there are more than maxBuckets distinct sizes.
func (t *Table) Buckets() []Bucket {
	seen := make(map[int]struct{})
	for _, r := range t.Rows {
		for k := range r.Histogram {
			seen[k] = struct{}{}
		}
	}
	sizes := sortedKeys(seen)
	collapse := len(sizes) > maxBuckets

	out := make([]Bucket, 0, len(sizes))
	for _, k := range sizes {
		if collapse && k >= openBucket {
			out = append(out, Bucket{Size: openBucket, Open: true})
			break
		}
		out = append(out, Bucket{Size: k})
	}
	return out
}

// Count returns the answers of r that fall in bucket b.
func (r Row) Count(b Bucket) int {
	if !b.Open {
		return r.Histogram[b.Size]
	}
	n := 0
	for k, v := range r.Histogram {
		if k >= b.Size {
			n += v
		}
	}
	return n
}

func sortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
