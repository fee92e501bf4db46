package search

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Operator joins a positive term to the positive term before it.
type Operator int

const (
	OpOr Operator = iota
	OpAnd
)

// QueryTerm is one keyword or quoted phrase of a keyword query. Phrase terms
// hold their words separated by single spaces.
type QueryTerm struct {
	Text    string
	Phrase  bool
	Negated bool
	Op      Operator
}

// KeywordQuery is a parsed full-text query. Terms are lowercased with
// stopwords removed. Positive terms default to OR, so any match counts;
// an explicit AND binds tighter than OR, and NOT or a leading '-' excludes
// the next term.
type KeywordQuery struct {
	Original string
	Terms    []QueryTerm
}

// Common stopwords to exclude from search terms
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "is": true,
	"it": true, "this": true, "that": true, "be": true, "as": true,
	"are": true, "was": true, "were": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "must": true, "shall": true, "can": true,
	"i": true, "you": true, "he": true, "she": true, "we": true, "they": true,
	"me": true, "him": true, "her": true, "us": true, "them": true,
	"my": true, "your": true, "his": true, "its": true, "our": true, "their": true,
	"what": true, "which": true, "who": true, "when": true, "where": true, "how": true,
	"all": true, "each": true, "every": true, "both": true, "few": true,
	"more": true, "most": true, "other": true, "some": true, "such": true,
	"no": true, "not": true, "only": true, "same": true, "so": true,
	"than": true, "too": true, "very": true, "just": true, "also": true,
	"now": true, "here": true, "there": true, "then": true,
}

// wordRegex matches word characters (letters, digits, underscores, unicode letters)
var wordRegex = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// ParseKeywordQuery turns free text into a KeywordQuery. Operators are only
// recognised in upper case; lowercase "and", "or" and "not" are stopwords.
func ParseKeywordQuery(query string) KeywordQuery {
	result := KeywordQuery{
		Original: query,
		Terms:    []QueryTerm{},
	}

	pendingOp := OpOr
	negateNext := false

	add := func(term QueryTerm) {
		if !term.Negated {
			term.Op = pendingOp
			pendingOp = OpOr
		}
		result.Terms = append(result.Terms, term)
	}

	for _, tok := range tokenize(query) {
		if !tok.quoted {
			switch tok.text {
			case "AND":
				pendingOp = OpAnd
				continue
			case "OR":
				pendingOp = OpOr
				continue
			case "NOT":
				negateNext = true
				continue
			}
		}

		negated := tok.negated || negateNext
		negateNext = false

		if tok.quoted {
			words := significantWords(tok.text, false)
			if len(words) == 0 {
				continue
			}
			add(QueryTerm{Text: strings.Join(words, " "), Phrase: len(words) > 1, Negated: negated})
			continue
		}

		words := significantWords(tok.text, true)
		for i, w := range words {
			add(QueryTerm{Text: w, Negated: negated})
			if i < len(words)-1 && !negated {
				// "foo-bar" style compounds require every part
				pendingOp = OpAnd
			}
		}
	}

	return result
}

type queryToken struct {
	text    string
	quoted  bool
	negated bool
}

// tokenize splits on whitespace, keeping quoted phrases together and
// recording a leading '-' as negation.
func tokenize(query string) []queryToken {
	var tokens []queryToken
	i := 0
	for i < len(query) {
		r, size := utf8.DecodeRuneInString(query[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}

		negated := false
		if r == '-' && i+size < len(query) {
			next, _ := utf8.DecodeRuneInString(query[i+size:])
			if next == '"' || isWordRune(next) {
				negated = true
				i += size
				r, size = next, 1
			}
		}

		if r == '"' {
			end := strings.IndexByte(query[i+1:], '"')
			if end < 0 {
				tokens = append(tokens, queryToken{text: query[i+1:], quoted: true, negated: negated})
				break
			}
			tokens = append(tokens, queryToken{text: query[i+1 : i+1+end], quoted: true, negated: negated})
			i += end + 2
			continue
		}

		start := i
		for i < len(query) {
			r, size := utf8.DecodeRuneInString(query[i:])
			if unicode.IsSpace(r) || r == '"' {
				break
			}
			i += size
		}
		tokens = append(tokens, queryToken{text: query[start:i], negated: negated})
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// significantWords lowercases and extracts words. Phrases keep stopwords so
// their word positions survive.
func significantWords(text string, dropStopwords bool) []string {
	words := wordRegex.FindAllString(text, -1)
	out := make([]string, 0, len(words))
	for _, word := range words {
		normalized := strings.ToLower(word)
		if dropStopwords {
			if stopwords[normalized] {
				continue
			}
			// Skip very short words (single char unless it's a number)
			if utf8.RuneCountInString(normalized) == 1 && !unicode.IsDigit([]rune(normalized)[0]) {
				continue
			}
		}
		out = append(out, normalized)
	}
	return out
}

// IsEmpty reports whether the query has no positive term. A query made only
// of exclusions matches nothing.
func (q KeywordQuery) IsEmpty() bool {
	return len(q.Positive()) == 0
}

// Positive returns the terms that must or may match.
func (q KeywordQuery) Positive() []QueryTerm {
	var out []QueryTerm
	for _, t := range q.Terms {
		if !t.Negated {
			out = append(out, t)
		}
	}
	return out
}

// Negated returns the excluded terms.
func (q KeywordQuery) Negated() []QueryTerm {
	var out []QueryTerm
	for _, t := range q.Terms {
		if t.Negated {
			out = append(out, t)
		}
	}
	return out
}

// Words returns every word of the positive terms, phrases included.
func (q KeywordQuery) Words() []string {
	var out []string
	for _, t := range q.Positive() {
		out = append(out, strings.Fields(t.Text)...)
	}
	return out
}

// FTS5 renders the query in SQLite FTS5 MATCH syntax, e.g.
// `(cache OR "write through") NOT redis`. It returns "" for an empty query.
func (q KeywordQuery) FTS5() string {
	return q.render(renderer{
		or:  " OR ",
		and: " AND ",
		term: func(t QueryTerm) string {
			if t.Phrase {
				return `"` + t.Text + `"`
			}
			return t.Text
		},
		not: " NOT ",
	})
}

// TSQuery renders the query for Postgres to_tsquery, e.g.
// `(cache | (write <-> through)) & !redis`. It returns "" for an empty query.
func (q KeywordQuery) TSQuery() string {
	return q.render(renderer{
		or:  " | ",
		and: " & ",
		term: func(t QueryTerm) string {
			if t.Phrase {
				return "(" + strings.ReplaceAll(t.Text, " ", " <-> ") + ")"
			}
			return t.Text
		},
		not: " & !",
	})
}

type renderer struct {
	or, and, not string
	term         func(QueryTerm) string
}

func (q KeywordQuery) render(r renderer) string {
	positive := q.Positive()
	if len(positive) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, t := range positive {
		if i > 0 {
			if t.Op == OpAnd {
				sb.WriteString(r.and)
			} else {
				sb.WriteString(r.or)
			}
		}
		sb.WriteString(r.term(t))
	}

	negated := q.Negated()
	if len(negated) == 0 {
		return sb.String()
	}

	expr := sb.String()
	if len(positive) > 1 {
		expr = "(" + expr + ")"
	}
	for _, t := range negated {
		expr += r.not + r.term(t)
	}
	return expr
}
