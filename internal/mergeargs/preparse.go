package mergeargs

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// KeyDelimiter replaces dots inside variable references so that
	// "$key.id" parses as the single variable "$key__dot__id".
	KeyDelimiter = "__dot__"
	// ExpansionPrefix names the variables standing in for "[[ ... ]]" blocks.
	ExpansionPrefix = "__exp"
)

var (
	variableRe      = regexp.MustCompile(`\$[_A-Za-z][_A-Za-z0-9.]*`)
	expansionNameRe = regexp.MustCompile(`^` + ExpansionPrefix + `[0-9]+$`)
)

// preparsed is an expression with every expansion block replaced by a
// synthetic variable.
type preparsed struct {
	expr       string
	expansions []expansionBlock
}

type expansionBlock struct {
	name string
	text string
}

func preparse(expr string) (*preparsed, error) {
	expr = variableRe.ReplaceAllStringFunc(expr, func(v string) string {
		return strings.ReplaceAll(v, ".", KeyDelimiter)
	})

	delims := delimiters(expr)
	if len(delims)%2 != 0 {
		return nil, ErrUnmatchedExpansion
	}
	out := &preparsed{}
	var b strings.Builder
	last := 0
	for i := 0; i < len(delims); i += 2 {
		open, closing := delims[i], delims[i+1]
		if !open.opening || closing.opening {
			return nil, ErrUnmatchedExpansion
		}
		name := ExpansionPrefix + strconv.Itoa(i/2+1)
		out.expansions = append(out.expansions, expansionBlock{name: name, text: expr[open.pos+2 : closing.pos]})
		b.WriteString(expr[last:open.pos])
		b.WriteString("$")
		b.WriteString(name)
		last = closing.pos + 2
	}
	b.WriteString(expr[last:])
	out.expr = b.String()
	return out, nil
}

type delimiter struct {
	pos     int
	opening bool
}

// delimiters finds the "[[" and "]]" pairs outside string literals.
func delimiters(expr string) []delimiter {
	var out []delimiter
	inString := false
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case inString:
		case strings.HasPrefix(expr[i:], "[["):
			out = append(out, delimiter{pos: i, opening: true})
			i++
		case strings.HasPrefix(expr[i:], "]]"):
			out = append(out, delimiter{pos: i})
			i++
		}
	}
	return out
}

func isExpansionName(name string) bool {
	return expansionNameRe.MatchString(name)
}
