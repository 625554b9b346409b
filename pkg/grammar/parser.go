// Package grammar provides character-level parsers and a token-level
// enforcer that adapts them to vocabulary token ids. The enforcer satisfies
// the oracle capability of pkg/enforce.
package grammar

// Parser is an immutable character-level grammar state. Advance consumes one
// rune and returns the follow-up state; ok is false when the rune is not a
// valid continuation. CanEnd reports whether the text consumed so far is a
// complete production.
type Parser interface {
	Advance(r rune) (Parser, bool)
	CanEnd() bool
}

// Strings returns a parser that accepts exactly one of the given literals.
func Strings(options ...string) Parser {
	return stringsParser{remaining: options}
}

type stringsParser struct {
	// remaining holds the unconsumed suffix of every literal still viable.
	remaining []string
}

func (p stringsParser) Advance(r rune) (Parser, bool) {
	var next []string
	for _, option := range p.remaining {
		runes := []rune(option)
		if len(runes) > 0 && runes[0] == r {
			next = append(next, string(runes[1:]))
		}
	}
	if len(next) == 0 {
		return nil, false
	}
	return stringsParser{remaining: next}, true
}

func (p stringsParser) CanEnd() bool {
	for _, option := range p.remaining {
		if option == "" {
			return true
		}
	}
	return false
}
