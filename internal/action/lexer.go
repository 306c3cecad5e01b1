package action

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenString
)

// token is a word or a quoted string of an action phrase. Words are
// lower-cased; quoted strings keep their text verbatim without the quotes.
type token struct {
	kind   tokenKind
	text   string
	offset int
}

func (t token) describe() string {
	if t.kind == tokenString {
		return "quoted string"
	}
	return "\"" + t.text + "\""
}

// tokenize splits s at whitespace. A token starting with ' or " extends to the
// next quote of the same kind; there is no escaping.
func tokenize(s string) ([]token, error) {
	var toks []token

	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}

		if r == '"' || r == '\'' {
			end := strings.IndexRune(s[i+1:], r)
			if end < 0 {
				return nil, &ParseError{Input: s, Offset: i, Msg: "unterminated quoted string"}
			}
			if end == 0 {
				return nil, &ParseError{Input: s, Offset: i, Msg: "empty quoted string"}
			}
			text := s[i+1 : i+1+end]
			next := i + 1 + end + 1
			if next < len(s) {
				if r, _ := utf8.DecodeRuneInString(s[next:]); !unicode.IsSpace(r) {
					return nil, &ParseError{Input: s, Offset: next, Msg: "missing space after quoted string"}
				}
			}
			toks = append(toks, token{kind: tokenString, text: text, offset: i})
			i = next
			continue
		}

		start := i
		for i < len(s) {
			r, size := utf8.DecodeRuneInString(s[i:])
			if unicode.IsSpace(r) {
				break
			}
			i += size
		}
		toks = append(toks, token{kind: tokenWord, text: strings.ToLower(s[start:i]), offset: start})
	}

	return toks, nil
}
