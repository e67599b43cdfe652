/*
Copyright © 2025 JetBrains s.r.o.

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package args

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/shlex"
)

// ErrUnbalancedQuote is returned when the raw argument string cannot be split
// with shell quoting rules.
var ErrUnbalancedQuote = errors.New("unbalanced quotes in arguments")

const propertyFlag = "--property"

var (
	// flagPattern matches a token that starts with a flag marker.
	flagPattern = regexp.MustCompile(`^--?[A-Za-z]`)
	// flagCommaPattern matches a flag whose name is immediately followed by a comma.
	flagCommaPattern = regexp.MustCompile(`^--?[A-Za-z][A-Za-z0-9._-]*,`)
)

// Warner receives deprecation diagnostics. *zap.SugaredLogger satisfies it.
type Warner interface {
	Warnf(template string, args ...interface{})
}

type nopWarner struct{}

func (nopWarner) Warnf(string, ...interface{}) {}

// Parser turns a single configuration string into CLI tokens.
type Parser struct {
	warn Warner
}

// NewParser returns a Parser reporting deprecated syntax to w. A nil w
// discards the diagnostics.
func NewParser(w Warner) *Parser {
	if w == nil {
		w = nopWarner{}
	}
	return &Parser{warn: w}
}

// Parse splits raw into arguments. Space-separated, shell-quoted input is
// returned as tokenized; the deprecated comma-separated form is detected and
// re-split on commas, with a warning suggesting the modern spelling.
func (p *Parser) Parse(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}

	tokens, err := shlex.Split(raw)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "split %q", raw), ErrUnbalancedQuote)
	}

	if !isCommaSeparated(tokens) {
		return tokens, nil
	}

	legacy := splitLegacy(raw)
	p.warn.Warnf("Comma-separated arguments are deprecated and will be removed in a future release: %q. Use space-separated arguments instead: %s",
		raw, Suggest(legacy))
	return legacy, nil
}

// Suggest renders tokens as a space-separated argument string, quoting the
// tokens that contain whitespace.
func Suggest(tokens []string) string {
	quoted := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if strings.ContainsAny(token, " \t\n") {
			token = `"` + token + `"`
		}
		quoted = append(quoted, token)
	}
	return strings.Join(quoted, " ")
}

func isFlag(token string) bool {
	return flagPattern.MatchString(token)
}

// isCommaSeparated looks for artifacts that only appear when a comma-separated
// string went through space tokenization.
func isCommaSeparated(tokens []string) bool {
	for _, token := range tokens {
		switch {
		case token == ",":
			return true
		case strings.HasPrefix(token, ",-"):
			return true
		case flagCommaPattern.MatchString(token):
			return true
		case !isFlag(token) && strings.HasSuffix(token, ","):
			return true
		}
	}
	return false
}

func splitLegacy(raw string) []string {
	var segments []string
	for _, segment := range strings.Split(raw, ",") {
		segment = strings.TrimSpace(segment)
		if segment != "" {
			segments = append(segments, segment)
		}
	}

	var result []string
	for i := 0; i < len(segments); i++ {
		segment := segments[i]

		var head, value string
		switch {
		case segment == propertyFlag:
			head = propertyFlag
		case strings.HasPrefix(segment, propertyFlag+"="):
			head = segment
		case strings.HasPrefix(segment, propertyFlag+" "):
			head = propertyFlag
			value = strings.TrimSpace(strings.TrimPrefix(segment, propertyFlag))
		default:
			result = append(result, strings.Fields(segment)...)
			continue
		}

		// --property values are lists themselves, so the commas belong to them.
		values := []string{}
		if value != "" {
			values = append(values, value)
		}
		for i+1 < len(segments) && !isFlag(segments[i+1]) {
			i++
			values = append(values, segments[i])
		}

		if head == propertyFlag {
			result = append(result, head)
			if len(values) > 0 {
				result = append(result, strings.Join(values, ","))
			}
			continue
		}
		result = append(result, strings.Join(append([]string{head}, values...), ","))
	}
	return result
}
