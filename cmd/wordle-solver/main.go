// Command wordle-solver ranks Wordle guesses from the terminal.
//
//	wordle-solver rank  [flags]                      rank opening guesses
//	wordle-solver play  [flags]                      enter "guess colors" lines, get the next ranking
//	wordle-solver score [flags] -answer X g1 g2 ...  golf score of a finished game
//	wordle-solver check guess answer                 show the feedback guess gets against answer
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/robalobadob/wordle-solver/internal/feedback"
	"github.com/robalobadob/wordle-solver/internal/game"
	"github.com/robalobadob/wordle-solver/internal/solver"
	"github.com/robalobadob/wordle-solver/internal/words"
)

const usage = `usage: wordle-solver <rank|play|score|check> [flags]

Run "wordle-solver <command> -h" for the flags of a command.
`

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "rank":
		err = runRank(args)
	case "play":
		err = runPlay(args, os.Stdin, os.Stdout)
	case "score":
		err = runScore(args)
	case "check":
		err = runCheck(args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg(os.Args[1])
	}
}

// common holds the flags every ranking command shares.
type common struct {
	answers, allowed, prior string
	mode                    string
	excludePrevious         bool
	workers                 int
	timeout                 time.Duration
	top                     int
	full                    bool
	verbose                 bool
	progress                bool

	bar progressSink
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.answers, "answers", os.Getenv("WORDS_ANSWERS_FILE"), "answer list file (default: embedded)")
	fs.StringVar(&c.allowed, "allowed", os.Getenv("WORDS_ALLOWED_FILE"), "allowed guess list file (default: embedded)")
	fs.StringVar(&c.prior, "prior", os.Getenv("WORDS_PRIOR_FILE"), "previous answers file (default: embedded)")
	fs.StringVar(&c.mode, "mode", string(game.ModeAnswersOnly), "guess pool: answers_only, hard or all")
	fs.BoolVar(&c.excludePrevious, "exclude-previous", false, "drop previous answers from the answer pool")
	fs.IntVar(&c.workers, "workers", 0, "partition workers (0 = all CPUs)")
	fs.DurationVar(&c.timeout, "timeout", 5*time.Minute, "give up on a ranking after this long")
	fs.IntVar(&c.top, "top", 15, "rows to print (0 = all)")
	fs.BoolVar(&c.full, "full", false, "print every ranked guess, not just viable and near-optimal ones")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
	fs.BoolVar(&c.progress, "progress", true, "show a progress bar while ranking")
}

func (c *common) setup() (*words.Lists, []game.Option, game.Mode, error) {
	if c.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	mode, err := game.ParseMode(c.mode)
	if err != nil {
		return nil, nil, "", err
	}
	lists, err := words.Load(c.answers, c.allowed)
	if err != nil {
		return nil, nil, "", err
	}
	so := solver.Options{Workers: c.workers}
	if c.progress {
		so.Progress = c.bar.add
	}
	opts := []game.Option{game.WithSolverOptions(so)}
	if c.excludePrevious {
		prior, err := words.LoadPrior(c.prior)
		if err != nil {
			return nil, nil, "", err
		}
		opts = append(opts, game.WithoutPrevious(prior))
	}
	a, g := lists.Stats()
	log.Debug().Int("answers", a).Int("allowed", g).Str("mode", string(mode)).Msg("word lists loaded")
	return lists, opts, mode, nil
}

// progressSink forwards partition progress to the bar of the ranking in flight.
type progressSink struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func (p *progressSink) add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Add(n)
	}
}

func (p *progressSink) start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar = progressbar.Default(int64(total), "ranking")
}

func (p *progressSink) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

// rank runs f under the timeout, with a progress bar over total guesses.
// A negative total shows a spinner.
func (c *common) rank(total int, f func(ctx context.Context) (*solver.Table, error)) (*solver.Table, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if c.progress && total != 0 {
		c.bar.start(total)
		defer c.bar.finish()
	}
	start := time.Now()
	t, err := f(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug().Dur("took", time.Since(start)).Int("guesses", len(t.Rows)).Int("answers", t.Answers).Msg("ranked")
	return t, nil
}

// rankTotal is the number of guesses the next ranking of s scores, or -1 when
// that depends on feedback not applied yet.
func rankTotal(s *game.Session, first bool) int {
	a, g := s.Pools()
	switch {
	case s.Mode == game.ModeAll:
		return g
	case !first:
		return -1
	case s.Mode == game.ModeAnswersOnly:
		return a
	default:
		return g
	}
}

func runRank(args []string) error {
	var c common
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	c.register(fs)
	_ = fs.Parse(args)

	lists, opts, mode, err := c.setup()
	if err != nil {
		return err
	}
	s, err := game.New(lists.Answers, lists.Allowed, mode, opts...)
	if err != nil {
		return err
	}
	t, err := c.rank(rankTotal(s, true), s.Opening)
	if err != nil {
		return err
	}
	return printTable(os.Stdout, t, c.top, c.full)
}

func runPlay(args []string, in io.Reader, out io.Writer) error {
	var c common
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	c.register(fs)
	_ = fs.Parse(args)

	lists, opts, mode, err := c.setup()
	if err != nil {
		return err
	}
	s, err := game.New(lists.Answers, lists.Allowed, mode, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, `enter "guess colors" (colors: b/y/g), "p" for remaining answers, "q" to quit`)
	reader := bufio.NewReader(in)
	for !s.Solved() {
		fmt.Fprint(out, "> ")
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)
		line = strings.TrimSpace(line)

		switch {
		case line == "q":
			return nil
		case line == "p":
			for _, w := range s.RemainingAnswers() {
				fmt.Fprintln(out, w)
			}
		case line != "":
			if err := playLine(&c, s, line, out); err != nil {
				var ve *words.ValidationError
				if !errors.As(err, &ve) && !isContradiction(err) {
					return err
				}
				fmt.Fprintln(out, "error:", err)
			}
		}
		if eof {
			break
		}
	}
	if s.Solved() {
		fmt.Fprintf(out, "solved in %d, golf score %.2f\n", len(s.Turns()), s.GolfScore())
	}
	return nil
}

func playLine(c *common, s *game.Session, line string, out io.Writer) error {
	parts := strings.Fields(line)
	if len(parts) != 2 {
		return &words.ValidationError{Field: "input", Value: line, Reason: `want "guess colors"`}
	}
	w, err := words.Parse(parts[0])
	if err != nil {
		return err
	}
	fb, err := feedback.Parse(parts[1])
	if err != nil {
		return err
	}

	var turn game.Turn
	t, err := c.rank(rankTotal(s, len(s.Turns()) == 0), func(ctx context.Context) (*solver.Table, error) {
		played, t, err := s.Play(ctx, w, fb)
		turn = played
		return t, err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s  %d left  golf %+.2f (total %.2f)\n", tiles(w, fb), turn.Remaining, turn.Golf, s.GolfScore())
	if fb.Solved() {
		return nil
	}
	return printTable(out, t, c.top, c.full)
}

func runScore(args []string) error {
	var c common
	var answer string
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	c.register(fs)
	fs.StringVar(&answer, "answer", "", "the day's answer")
	_ = fs.Parse(args)

	lists, opts, mode, err := c.setup()
	if err != nil {
		return err
	}
	a, err := words.Parse(answer)
	if err != nil {
		return err
	}
	guesses, err := words.ParseAll(fs.Args())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	s, err := game.Replay(ctx, a, guesses, lists.Answers, lists.Allowed, mode, opts...)
	if err != nil {
		return err
	}
	for _, t := range s.Turns() {
		fmt.Printf("%s  %4d left  %+.2f\n", tiles(t.Guess, t.Feedback), t.Remaining, t.Golf)
	}
	fmt.Printf("golf score: %.2f\n", s.GolfScore())
	return nil
}

func runCheck(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: wordle-solver check guess answer")
	}
	g, err := words.Parse(args[0])
	if err != nil {
		return err
	}
	a, err := words.Parse(args[1])
	if err != nil {
		return err
	}
	fb := feedback.Compute(g, a)
	fmt.Printf("%s  %s\n", tiles(g, fb), fb)
	return nil
}
