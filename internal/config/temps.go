package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"gopkg.in/yaml.v3"
)

var ErrInvalidTemps = errors.New("config: invalid temperature expression")

var tempLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[,\-]`},
})

// tempExpr is a comma separated list of temperatures and inclusive ranges:
// "27, 30-35, 40".
type tempExpr struct {
	Terms []*tempTerm `parser:"( @@ ( \",\" @@ )* )?"`
}

type tempTerm struct {
	Low  int  `parser:"@Int"`
	High *int `parser:"( \"-\" @Int )?"`
}

var tempParser = participle.MustBuild[tempExpr](
	participle.Lexer(tempLexer),
	participle.Elide("Whitespace"),
)

// TempSet is an ordered list of simulation temperatures in degrees Celsius.
// In YAML it may be written as a sequence or as a range expression.
type TempSet []int

// ParseTemps expands a temperature expression. Duplicates are dropped,
// keeping the first occurrence. An empty expression yields nil.
func ParseTemps(expr string) (TempSet, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	parsed, err := tempParser.ParseString("", expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTemps, expr, err)
	}

	var temps TempSet
	for _, term := range parsed.Terms {
		if term.High == nil {
			temps = append(temps, term.Low)
			continue
		}
		if *term.High < term.Low {
			return nil, fmt.Errorf("%w: descending range %d-%d", ErrInvalidTemps, term.Low, *term.High)
		}
		for t := term.Low; t <= *term.High; t++ {
			temps = append(temps, t)
		}
	}
	return temps.dedupe(), nil
}

func (ts TempSet) dedupe() TempSet {
	seen := make(map[int]bool, len(ts))
	out := ts[:0]
	for _, t := range ts {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (ts *TempSet) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		parsed, err := ParseTemps(node.Value)
		if err != nil {
			return err
		}
		*ts = parsed
		return nil
	case yaml.SequenceNode:
		var list []int
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTemps, err)
		}
		*ts = TempSet(list).dedupe()
		return nil
	default:
		return fmt.Errorf("%w: line %d", ErrInvalidTemps, node.Line)
	}
}

// String renders the set compactly, collapsing consecutive runs into ranges.
func (ts TempSet) String() string {
	var parts []string
	for i := 0; i < len(ts); {
		j := i
		for j+1 < len(ts) && ts[j+1] == ts[j]+1 {
			j++
		}
		if j-i >= 2 {
			parts = append(parts, fmt.Sprintf("%d-%d", ts[i], ts[j]))
		} else {
			for k := i; k <= j; k++ {
				parts = append(parts, fmt.Sprintf("%d", ts[k]))
			}
		}
		i = j + 1
	}
	return strings.Join(parts, ", ")
}
