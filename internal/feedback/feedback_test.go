package feedback

import (
	"errors"
	"testing"

	"github.com/robalobadob/wordle-solver/internal/words"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		guess, answer, want string
	}{
		{"raise", "raise", "ggggg"},
		{"crane", "raise", "byybg"},
		{"speed", "abide", "bbyby"}, // one e in the answer: the second e is black
		{"sissy", "sissy", "ggggg"},
		{"sissy", "missy", "bgggg"},
		{"eerie", "there", "ybybg"},
		{"geese", "steel", "bygyb"},
		{"aaaaa", "apple", "gbbbb"},
		{"llama", "hello", "yybbb"},
		{"tepid", "edict", "yybyy"},
	}
	for _, tt := range tests {
		t.Run(tt.guess+"/"+tt.answer, func(t *testing.T) {
			got := Compute(words.MustParse(tt.guess), words.MustParse(tt.answer))
			if got.String() != tt.want {
				t.Fatalf("Compute(%s, %s) = %s, want %s", tt.guess, tt.answer, got, tt.want)
			}
			if c := CodeOf(words.MustParse(tt.guess), words.MustParse(tt.answer)); c != got.Code() {
				t.Fatalf("CodeOf = %d, Compute().Code() = %d", c, got.Code())
			}
		})
	}
}

// Green+Yellow symbols for a letter never exceed its occurrences in the answer.
func TestComputeRespectsSupply(t *testing.T) {
	list := []string{"sissy", "missy", "eerie", "there", "geese", "steel", "llama", "hello", "aaaaa", "apple", "abbey", "kayak", "mamma", "nanny"}
	for _, g := range list {
		for _, a := range list {
			guess, answer := words.MustParse(g), words.MustParse(a)
			fb := Compute(guess, answer)
			var used [26]int
			for i, s := range fb {
				if s != Black {
					used[guess[i]-'a']++
				}
			}
			for j, n := range used {
				if limit := answer.Count(byte('a' + j)); n > limit {
					t.Fatalf("%s vs %s: letter %c marked %d times, answer has %d", g, a, 'a'+j, n, limit)
				}
			}
		}
	}
}

func TestParse(t *testing.T) {
	fb, err := Parse(" BgYbb ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fb != (Feedback{Black, Green, Yellow, Black, Black}) {
		t.Fatalf("got %v", fb)
	}

	for _, in := range []string{"", "bgyb", "bgybbb", "bgyxb", "12101"} {
		_, err := Parse(in)
		var ve *words.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("Parse(%q) error = %v, want ValidationError", in, err)
		}
		if ve.Field != "feedback" {
			t.Fatalf("Parse(%q) field = %q", in, ve.Field)
		}
	}
}

func TestCodeDecode(t *testing.T) {
	fb := MustParse("gybbg")
	if got := fb.Code().Feedback(); got != fb {
		t.Fatalf("decode = %v, want %v", got, fb)
	}
	if MustParse("ggggg").Code() != AllGreen || !MustParse("ggggg").Solved() {
		t.Fatal("ggggg should be AllGreen")
	}
	if MustParse("bbbbb").Code() != 0 {
		t.Fatal("bbbbb should be code 0")
	}
	if c := MustParse("gyybg").Code(); c.Greens() != 2 || c.Hits() != 4 {
		t.Fatalf("greens=%d hits=%d", c.Greens(), c.Hits())
	}
}

func TestExplain(t *testing.T) {
	guess := words.MustParse("sissy")
	out := MustParse("bgggg").Code().Explain(guess)
	if out.Black != "" {
		t.Fatalf("s is green elsewhere, black = %q", out.Black)
	}
	if out.Green != "-issy" {
		t.Fatalf("green = %q", out.Green)
	}

	out = MustParse("bybbg").Code().Explain(words.MustParse("crane"))
	if out.Black != "acn" || out.Green != "----e" || len(out.Yellows) != 1 || out.Yellows[0] != (Pair{'r', 1}) {
		t.Fatalf("unexpected outcome %+v", out)
	}
}
