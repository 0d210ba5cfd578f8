// Package protocol is component H: line parsing, command dispatch and
// response formatting for the control socket, grounded on spec §4.H.
package protocol

import (
	"strings"
)

// Command is one parsed input line: a case-folded command name plus its
// positional arguments, with basic quoted-string support.
type Command struct {
	Name string
	Args []string
}

// Parse splits line into whitespace-separated tokens, honouring double
// quotes around an argument that itself contains whitespace. The first
// token becomes the (lower-cased) command name.
func Parse(line string) Command {
	tokens := tokenize(line)
	if len(tokens) == 0 {
		return Command{}
	}
	return Command{Name: strings.ToLower(tokens[0]), Args: tokens[1:]}
}

func tokenize(line string) []string {
	var out []string
	var cur strings.Builder
	inQuotes := false
	hasCur := false

	flush := func() {
		if hasCur {
			out = append(out, cur.String())
			cur.Reset()
			hasCur = false
		}
	}

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			hasCur = true
		case r == ' ' || r == '\t':
			if inQuotes {
				cur.WriteRune(r)
				hasCur = true
			} else {
				flush()
			}
		default:
			cur.WriteRune(r)
			hasCur = true
		}
	}
	flush()
	return out
}
