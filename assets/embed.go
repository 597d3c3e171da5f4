// Package assets embeds the default word lists so the solver runs with no
// configured files. Lists are one word per line; '#' starts a comment line.
package assets

import (
	"embed"
	"io/fs"
)

// Embedded list names.
const (
	Answers = "answers.txt"
	Allowed = "allowed.txt"
	Prior   = "prior.txt"
)

//go:embed answers.txt allowed.txt prior.txt
var FS embed.FS

// Open opens one of the embedded lists by name.
func Open(name string) (fs.File, error) {
	return FS.Open(name)
}
