package grammar

import (
	"sort"
	"strconv"
	"strings"

	"github.com/samcharles93/tokenfence/pkg/enforce"
)

// Enforcer lifts a character-level Parser to token-id level: a token is
// allowed after a prefix when the parser accepts its full decoded text, and
// the end-of-sequence id is allowed when the parser can end.
//
// The first prefix an enforcer sees for a decoding path is treated as the
// prompt; the grammar constrains only the tokens generated after it. Parser
// states are cached per prefix, so each step advances by one token from the
// previous step's state instead of replaying the whole sequence.
type Enforcer struct {
	text   map[int]string
	tokens []enforce.RegularToken
	eosID  int
	root   Parser

	states map[string]Parser
}

// NewEnforcer builds an enforcer over the projected vocabulary. eosID < 0
// disables end-of-sequence handling: a finished grammar then yields an
// empty allowed set, which hosts surface as their stuck condition.
func NewEnforcer(tokens []enforce.RegularToken, root Parser, eosID int) *Enforcer {
	text := make(map[int]string, len(tokens))
	for _, t := range tokens {
		text[t.ID] = t.Text
	}
	return &Enforcer{
		text:   text,
		tokens: tokens,
		eosID:  eosID,
		root:   root,
		states: make(map[string]Parser),
	}
}

// AllowedTokens implements the oracle capability of pkg/enforce.
func (e *Enforcer) AllowedTokens(prefix []int) []int {
	state := e.stateFor(prefix)
	if state == nil {
		return nil
	}

	var allowed []int
	for _, t := range e.tokens {
		if t.Text == "" {
			continue
		}
		if _, ok := advanceText(state, t.Text); ok {
			allowed = append(allowed, t.ID)
		}
	}
	if e.eosID >= 0 && state.CanEnd() {
		allowed = append(allowed, e.eosID)
		sort.Ints(allowed)
	}
	return allowed
}

// stateFor resolves the parser state after prefix. A prefix whose parent
// state is known advances by the final token's text; a prefix never seen
// before anchors the grammar (it is the prompt).
func (e *Enforcer) stateFor(prefix []int) Parser {
	key := prefixKey(prefix)
	if state, ok := e.states[key]; ok {
		return state
	}
	if len(prefix) > 0 {
		parentKey := prefixKey(prefix[:len(prefix)-1])
		if parent, ok := e.states[parentKey]; ok {
			state := e.advanceToken(parent, prefix[len(prefix)-1])
			e.states[key] = state
			return state
		}
	}
	e.states[key] = e.root
	return e.root
}

// advanceToken feeds one token's decoded text through a state. Unknown ids
// (special tokens inside the generated region) and rejected characters both
// yield the dead state.
func (e *Enforcer) advanceToken(state Parser, id int) Parser {
	if state == nil {
		return nil
	}
	text, ok := e.text[id]
	if !ok || text == "" {
		return nil
	}
	next, ok := advanceText(state, text)
	if !ok {
		return nil
	}
	return next
}

func advanceText(state Parser, text string) (Parser, bool) {
	for _, r := range text {
		next, ok := state.Advance(r)
		if !ok {
			return nil, false
		}
		state = next
	}
	return state, true
}

func prefixKey(prefix []int) string {
	var b strings.Builder
	for i, id := range prefix {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}
