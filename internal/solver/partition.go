// internal/solver/partition.go
//
// Outcome partitioning: for each candidate guess, how the remaining answers
// split by the feedback that guess would receive.
//
// Cost is |guesses| × |answers| feedback computations, so the work is spread
// over a bounded errgroup, one chunk of guesses per task. Every task writes its
// own slots of the result slice, so results come back in guess order with no
// merge step. The context is checked between chunks.

package solver

import (
	"context"
	"math/bits"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/wordle-solver/internal/feedback"
	"github.com/robalobadob/wordle-solver/internal/words"
)

const chunkSize = 64

// Options tunes a ranking run.
type Options struct {
	// Workers bounds concurrent partition tasks; <= 0 means GOMAXPROCS.
	Workers int
	// Progress, if set, is called with the number of guesses finished by each
	// chunk. It may be called from several goroutines at once.
	Progress func(done int)
}

// Partition is the outcome distribution of one guess over an answer pool.
type Partition struct {
	Guess words.Word
	// Outcomes[c] is the number of answers for which the guess yields code c.
	Outcomes [feedback.NumCodes]int32
	// Shared[k] counts answers sharing exactly k distinct letters with the guess.
	Shared [words.Length + 1]int32
	// Exact[k] counts answers matching the guess at exactly k positions.
	Exact [words.Length + 1]int32
}

// PartitionOne partitions answers for a single guess.
func PartitionOne(guess words.Word, answers []words.Word) *Partition {
	p := &Partition{Guess: guess}
	p.fill(answers, letterMasks(answers))
	return p
}

// PartitionAll partitions answers for every guess, in guess order.
func PartitionAll(ctx context.Context, guesses, answers []words.Word, opts Options) ([]*Partition, error) {
	out := make([]*Partition, len(guesses))
	masks := letterMasks(answers)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(guesses); start += chunkSize {
		if gctx.Err() != nil {
			break
		}
		start := start
		end := min(start+chunkSize, len(guesses))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				p := &Partition{Guess: guesses[i]}
				p.fill(answers, masks)
				out[i] = p
			}
			if opts.Progress != nil {
				opts.Progress(end - start)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Partition) fill(answers []words.Word, masks []uint32) {
	gm := p.Guess.Letters()
	for j, a := range answers {
		c := feedback.CodeOf(p.Guess, a)
		p.Outcomes[c]++
		p.Shared[bits.OnesCount32(gm&masks[j])]++
		p.Exact[greens[c]]++
	}
}

// Total is the number of answers partitioned.
func (p *Partition) Total() int {
	n := 0
	for _, c := range p.Outcomes {
		n += int(c)
	}
	return n
}

func letterMasks(ws []words.Word) []uint32 {
	out := make([]uint32, len(ws))
	for i, w := range ws {
		out[i] = w.Letters()
	}
	return out
}

// greens and hits are per-code lookup tables (Green count, Green+Yellow count).
var greens, hits [feedback.NumCodes]uint8

func init() {
	for c := 0; c < feedback.NumCodes; c++ {
		code := feedback.Code(c)
		greens[c] = uint8(code.Greens())
		hits[c] = uint8(code.Hits())
	}
}
