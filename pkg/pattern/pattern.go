// Package pattern infers a shared filename template from a set of paths.
// Every run of digits that differs between the paths becomes a numbered
// slot; everything else is literal text.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// ErrNoPattern is returned when the paths do not share a template.
var ErrNoPattern = errors.New("no shared filename pattern")

// Pattern is a detected filename template. A path matching the template is
// literals[0] + slot0 + literals[1] + slot1 + ... + literals[n].
type Pattern struct {
	literals []string
	values   [][]string
	re       *regexp.Regexp
}

type token struct {
	text  string
	digit bool
}

func tokenize(s string) []token {
	var tokens []token
	start := 0
	for i := 1; i <= len(s); i++ {
		if i == len(s) || isDigit(s[i]) != isDigit(s[start]) {
			tokens = append(tokens, token{text: s[start:i], digit: isDigit(s[start])})
			start = i
		}
	}
	return tokens
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Detect finds the template shared by paths. Digit runs whose value is the
// same in every path stay literal. With a single path the template has no
// slots.
func Detect(paths []string) (*Pattern, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no paths", ErrNoPattern)
	}

	tokenized := make([][]token, len(paths))
	for i, p := range paths {
		tokenized[i] = tokenize(p)
	}

	ref := tokenized[0]
	for i, toks := range tokenized[1:] {
		if len(toks) != len(ref) {
			return nil, fmt.Errorf("%w: %q and %q differ in structure", ErrNoPattern, paths[0], paths[i+1])
		}
		for j := range toks {
			if toks[j].digit != ref[j].digit || (!toks[j].digit && toks[j].text != ref[j].text) {
				return nil, fmt.Errorf("%w: %q and %q differ at %q", ErrNoPattern, paths[0], paths[i+1], toks[j].text)
			}
		}
	}

	p := &Pattern{}
	var literal strings.Builder
	for j, tok := range ref {
		if !tok.digit || constantAt(tokenized, j) {
			literal.WriteString(tok.text)
			continue
		}
		p.literals = append(p.literals, literal.String())
		literal.Reset()

		var distinct []string
		seen := make(map[string]bool)
		for _, toks := range tokenized {
			if v := toks[j].text; !seen[v] {
				seen[v] = true
				distinct = append(distinct, v)
			}
		}
		p.values = append(p.values, distinct)
	}
	p.literals = append(p.literals, literal.String())
	p.re = p.compile()
	return p, nil
}

func constantAt(tokenized [][]token, j int) bool {
	first := tokenized[0][j].text
	for _, toks := range tokenized[1:] {
		if toks[j].text != first {
			return false
		}
	}
	return true
}

func (p *Pattern) compile() *regexp.Regexp {
	var expr strings.Builder
	expr.WriteString("^")
	for i, lit := range p.literals {
		if i > 0 {
			expr.WriteString(`(\d+)`)
		}
		expr.WriteString(regexp.QuoteMeta(lit))
	}
	expr.WriteString("$")
	return regexp.MustCompile(expr.String())
}

// Slots returns the number of variable slots.
func (p *Pattern) Slots() int {
	return len(p.values)
}

// Values returns the distinct literal values observed for a slot, in
// first-seen order.
func (p *Pattern) Values(slot int) []string {
	if slot < 0 || slot >= len(p.values) {
		return nil
	}
	return p.values[slot]
}

// Template renders the pattern with {0}, {1}, ... placeholders.
func (p *Pattern) Template() string {
	placeholders := make([]string, p.Slots())
	for i := range placeholders {
		placeholders[i] = "{" + strconv.Itoa(i) + "}"
	}
	return p.Render(placeholders)
}

// Captures returns the literal slot values of path, or false when path does
// not match the template.
func (p *Pattern) Captures(path string) ([]string, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	return m[1:], true
}

// Match returns the numeric slot values of path, or false when path does not
// match the template.
func (p *Pattern) Match(path string) ([]int, bool) {
	captures, ok := p.Captures(path)
	if !ok {
		return nil, false
	}
	values := make([]int, len(captures))
	for i, c := range captures {
		u, err := strconv.ParseUint(c, 10, 64)
		if err != nil {
			return nil, false
		}
		v, err := safecast.Conv[int](u)
		if err != nil {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

// Render rebuilds a path from the template, substituting captures into the
// slots. Missing captures render as empty strings.
func (p *Pattern) Render(captures []string) string {
	var b strings.Builder
	for i, lit := range p.literals {
		if i > 0 && i-1 < len(captures) {
			b.WriteString(captures[i-1])
		}
		b.WriteString(lit)
	}
	return b.String()
}
