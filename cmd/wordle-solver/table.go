package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/TwiN/go-color"

	"github.com/robalobadob/wordle-solver/internal/constraint"
	"github.com/robalobadob/wordle-solver/internal/feedback"
	"github.com/robalobadob/wordle-solver/internal/solver"
	"github.com/robalobadob/wordle-solver/internal/words"
)

// printTable writes the ranking as aligned columns, best guess first.
// top <= 0 prints every row.
func printTable(out io.Writer, t *solver.Table, top int, full bool) error {
	rows := t.Rows
	if !full {
		rows = t.Visible()
	}
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}
	buckets := t.Buckets()

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	head := []string{"guess", "viable", "avg"}
	for _, b := range buckets {
		head = append(head, b.Label())
	}
	head = append(head, "G4+", "GorY4+")
	fmt.Fprintln(tw, strings.Join(head, "\t")+"\t")

	for _, r := range rows {
		viable := ""
		if r.Viable {
			viable = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t", r.Guess, viable, r.AvgRemaining)
		for _, b := range buckets {
			fmt.Fprintf(tw, "%d\t", r.Count(b))
		}
		fmt.Fprintf(tw, "%d\t%d\t\n", r.Green4, r.GorY4)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d answers, %d guesses ranked, %d shown\n", t.Answers, len(t.Rows), len(rows))
	return err
}

var tileColors = [...]string{
	feedback.Black:  color.Gray,
	feedback.Yellow: color.Yellow,
	feedback.Green:  color.Green,
}

// tiles renders w with each letter colored by its feedback.
func tiles(w words.Word, fb feedback.Feedback) string {
	var b strings.Builder
	for i := range w {
		b.WriteString(color.Ize(tileColors[fb[i]], strings.ToUpper(string(w[i]))))
	}
	return b.String()
}

func isContradiction(err error) bool {
	var ce *constraint.ContradictionError
	return errors.As(err, &ce)
}
