package generatesql

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokQuoted
	tokString
	tokNumber
	tokPunct
)

type token struct {
	kind  tokenKind
	text  string
	upper string
	start int
	end   int
}

func (t token) is(punct string) bool {
	return t.kind == tokPunct && t.text == punct
}

func (t token) keyword(kw string) bool {
	return t.kind == tokIdent && t.upper == kw
}

// name is the lower-cased identifier for lookups.
func (t token) name() string {
	return strings.ToLower(t.text)
}

func isName(t token) bool {
	return t.kind == tokIdent || t.kind == tokQuoted
}

// lex splits a statement into tokens. Comments are dropped and literals are
// kept whole so their contents are never read as keywords.
func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size

		case strings.HasPrefix(src[i:], "--"):
			nl := strings.IndexByte(src[i:], '\n')
			if nl < 0 {
				i = len(src)
			} else {
				i += nl + 1
			}

		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated comment at offset %d", i)
			}
			// postgres nests block comments, sqlite does not
			if strings.Contains(src[i+2:i+2+end], "/*") {
				return nil, fmt.Errorf("nested comment at offset %d", i)
			}
			i += end + 4

		case r == '[' || r == ']':
			return nil, fmt.Errorf("bracket at offset %d: quote identifiers with double quotes", i)

		case r == '$':
			return nil, fmt.Errorf("dollar sign at offset %d: parameters and dollar-quoted text are not allowed", i)

		case r == '\'':
			end, err := scanQuoted(src, i, '\'')
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, text: src[i:end], start: i, end: end})
			i = end

		case r == '"' || r == '`':
			end, err := scanQuoted(src, i, byte(r))
			if err != nil {
				return nil, err
			}
			inner := src[i+1 : end-1]
			inner = strings.ReplaceAll(inner, string([]rune{r, r}), string(r))
			tokens = append(tokens, token{kind: tokQuoted, text: inner, upper: strings.ToUpper(inner), start: i, end: end})
			i = end

		case unicode.IsDigit(r):
			j := i
			for j < len(src) && (isDigit(src[j]) || src[j] == '.') {
				j++
			}
			j = scanExponent(src, j)
			tokens = append(tokens, token{kind: tokNumber, text: src[i:j], start: i, end: j})
			i = j

		case r == '_' || unicode.IsLetter(r):
			j := i
			for j < len(src) {
				r2, s2 := utf8.DecodeRuneInString(src[j:])
				if r2 != '_' && r2 != '$' && !unicode.IsLetter(r2) && !unicode.IsDigit(r2) {
					break
				}
				j += s2
			}
			word := src[i:j]
			if strings.EqualFold(word, "E") && j < len(src) && src[j] == '\'' {
				return nil, fmt.Errorf("escape string at offset %d is not allowed", i)
			}
			tokens = append(tokens, token{kind: tokIdent, text: word, upper: strings.ToUpper(word), start: i, end: j})
			i = j

		default:
			tokens = append(tokens, token{kind: tokPunct, text: src[i : i+size], start: i, end: i + size})
			i += size
		}
	}
	return tokens, nil
}

// scanQuoted returns the offset just past the closing quote. A doubled quote
// is an escaped quote.
func scanQuoted(src string, start int, quote byte) (int, error) {
	i := start + 1
	for i < len(src) {
		if src[i] == quote {
			if i+1 < len(src) && src[i+1] == quote {
				i += 2
				continue
			}
			return i + 1, nil
		}
		i++
	}
	return 0, fmt.Errorf("unterminated quoted text at offset %d", start)
}

// scanExponent extends a number ending at j over an e[+-]digits suffix.
func scanExponent(src string, j int) int {
	if j >= len(src) || (src[j] != 'e' && src[j] != 'E') {
		return j
	}
	k := j + 1
	if k < len(src) && (src[k] == '+' || src[k] == '-') {
		k++
	}
	if k >= len(src) || !isDigit(src[k]) {
		return j
	}
	for k < len(src) && isDigit(src[k]) {
		k++
	}
	return k
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// matchParen returns the index of the ")" closing tokens[open], or -1.
func matchParen(tokens []token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch {
		case tokens[i].is("("):
			depth++
		case tokens[i].is(")"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchOpen returns the index of the "(" opened for tokens[close], or -1.
func matchOpen(tokens []token, close int) int {
	depth := 0
	for i := close; i >= 0; i-- {
		switch {
		case tokens[i].is(")"):
			depth++
		case tokens[i].is("("):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
