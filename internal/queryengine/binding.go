package queryengine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vitaliisemenov/zqlz/internal/dbval"
)

// ParamStyle names a placeholder spelling a raw SQL string can use.
type ParamStyle int

const (
	// StyleQuestion is the '?' positional style (MySQL, SQLite).
	StyleQuestion ParamStyle = iota
	// StyleDollar is the $1..$N numbered style (PostgreSQL).
	StyleDollar
	// StyleColon is the :name named style.
	StyleColon
	// StyleAt is the @name named style (SQL Server, some MySQL tooling).
	StyleAt
	// StyleDollarName is the $name named style.
	StyleDollarName
)

// placeholder is one recognized parameter occurrence in a SQL string, with
// its byte range in the original text so callers can splice replacements.
type placeholder struct {
	style      ParamStyle
	start, end int
	name       string // set for StyleColon/StyleAt/StyleDollarName
	position   int    // set for StyleDollar (the N in $N); 0 for '?'
}

// MissingParameter is returned by BindNamed when sql references a name
// absent from the supplied map.
type MissingParameter struct{ Name string }

func (e *MissingParameter) Error() string {
	return fmt.Sprintf("queryengine: missing parameter %q", e.Name)
}

// MissingPositionalParameter is returned by BindPositional when a $N
// placeholder's position exceeds the supplied value slice.
type MissingPositionalParameter struct{ Position int }

func (e *MissingPositionalParameter) Error() string {
	return fmt.Sprintf("queryengine: missing positional parameter $%d", e.Position)
}

// ParameterCountMismatch is returned by BindPositional for '?' style sql
// when the placeholder count and value count disagree.
type ParameterCountMismatch struct{ Want, Got int }

func (e *ParameterCountMismatch) Error() string {
	return fmt.Sprintf("queryengine: parameter count mismatch: sql wants %d, got %d", e.Want, e.Got)
}

// ErrMixedParameterStyles is returned by DetectParameterStyle when sql
// mixes more than one placeholder spelling, which no driver can bind.
var ErrMixedParameterStyles = fmt.Errorf("queryengine: mixed parameter styles")

// ParameterKind classifies a SQL statement's placeholders as either named
// (bound with a name->Value map) or positional (bound with an ordered
// slice), independent of the concrete style used.
type ParameterKind int

const (
	ParametersNone ParameterKind = iota
	ParametersNamed
	ParametersPositional
)

// DetectParameterStyle walks sql and classifies its placeholders, failing
// ErrMixedParameterStyles if more than one style is present.
func DetectParameterStyle(sql string) (ParameterKind, error) {
	phs := extractPlaceholders(sql)
	if len(phs) == 0 {
		return ParametersNone, nil
	}
	style := phs[0].style
	for _, ph := range phs[1:] {
		if ph.style != style {
			return ParametersNone, ErrMixedParameterStyles
		}
	}
	switch style {
	case StyleColon, StyleAt, StyleDollarName:
		return ParametersNamed, nil
	default:
		return ParametersPositional, nil
	}
}

// extractPlaceholders walks sql left to right, recording every recognized
// placeholder occurrence while skipping ranges inside single-quoted string
// literals, double-quoted identifiers, and -- / /* */ comments.
func extractPlaceholders(sql string) []placeholder {
	var out []placeholder
	i, n := 0, len(sql)
	dollarPos := 0

	for i < n {
		c := sql[i]
		switch {
		case c == '\'':
			i = skipQuoted(sql, i, '\'')
			continue
		case c == '"':
			i = skipQuoted(sql, i, '"')
			continue
		case c == '-' && i+1 < n && sql[i+1] == '-':
			j := strings.IndexByte(sql[i:], '\n')
			if j < 0 {
				i = n
			} else {
				i += j + 1
			}
			continue
		case c == '/' && i+1 < n && sql[i+1] == '*':
			j := strings.Index(sql[i+2:], "*/")
			if j < 0 {
				i = n
			} else {
				i += j + 4
			}
			continue
		case c == '?':
			out = append(out, placeholder{style: StyleQuestion, start: i, end: i + 1})
			i++
		case c == '$' && i+1 < n && isDigit(sql[i+1]):
			j := i + 1
			for j < n && isDigit(sql[j]) {
				j++
			}
			pos, _ := strconv.Atoi(sql[i+1 : j])
			out = append(out, placeholder{style: StyleDollar, start: i, end: j, position: pos})
			i = j
		case c == '$' && i+1 < n && isNameStart(sql[i+1]):
			j := i + 1
			for j < n && isNameChar(sql[j]) {
				j++
			}
			dollarPos++
			out = append(out, placeholder{style: StyleDollarName, start: i, end: j, name: sql[i+1 : j]})
			i = j
		case c == ':' && i+1 < n && isNameStart(sql[i+1]):
			j := i + 1
			for j < n && isNameChar(sql[j]) {
				j++
			}
			out = append(out, placeholder{style: StyleColon, start: i, end: j, name: sql[i+1 : j]})
			i = j
		case c == '@' && i+1 < n && isNameStart(sql[i+1]):
			j := i + 1
			for j < n && isNameChar(sql[j]) {
				j++
			}
			out = append(out, placeholder{style: StyleAt, start: i, end: j, name: sql[i+1 : j]})
			i = j
		default:
			i++
		}
	}
	return out
}

func skipQuoted(sql string, start int, quote byte) int {
	i := start + 1
	for i < len(sql) {
		if sql[i] == quote {
			// Doubled quote is an escaped literal quote; keep scanning.
			if i+1 < len(sql) && sql[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		if sql[i] == '\\' && i+1 < len(sql) {
			i += 2
			continue
		}
		i++
	}
	return i
}

func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isNameStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isNameChar(c byte) bool  { return isNameStart(c) || isDigit(c) }

// BindNamed rewrites every named placeholder (:name, @name, $name) in sql to
// PostgreSQL-style $N positional parameters, preserving first-occurrence
// ordering; a name referenced more than once maps to the same N and its
// value appears only once in the returned slice. Fails MissingParameter if
// any referenced name is absent from values.
func BindNamed(sql string, values map[string]dbval.Value) (string, []dbval.Value, error) {
	phs := extractPlaceholders(sql)

	order := make(map[string]int)
	var ordered []dbval.Value
	var b strings.Builder
	prev := 0

	for _, ph := range phs {
		if ph.style != StyleColon && ph.style != StyleAt && ph.style != StyleDollarName {
			continue
		}
		v, ok := values[ph.name]
		if !ok {
			return "", nil, &MissingParameter{Name: ph.name}
		}
		n, seen := order[ph.name]
		if !seen {
			n = len(ordered) + 1
			order[ph.name] = n
			ordered = append(ordered, v)
		}
		b.WriteString(sql[prev:ph.start])
		b.WriteString("$")
		b.WriteString(strconv.Itoa(n))
		prev = ph.end
	}
	b.WriteString(sql[prev:])

	return b.String(), ordered, nil
}

// BindPositional resolves sql's positional placeholders against values.
// For '?' style, it requires exact count parity and returns values as-is.
// For $N style, it collects the distinct positions used (ascending) and
// returns the corresponding values, failing MissingPositionalParameter if
// any used position exceeds len(values).
func BindPositional(sql string, values []dbval.Value) ([]dbval.Value, error) {
	phs := extractPlaceholders(sql)

	var questionCount int
	maxDollar := 0
	usedDollar := make(map[int]bool)
	hasDollar := false

	for _, ph := range phs {
		switch ph.style {
		case StyleQuestion:
			questionCount++
		case StyleDollar:
			hasDollar = true
			usedDollar[ph.position] = true
			if ph.position > maxDollar {
				maxDollar = ph.position
			}
		}
	}

	if hasDollar {
		if maxDollar > len(values) {
			return nil, &MissingPositionalParameter{Position: maxDollar}
		}
		positions := make([]int, 0, len(usedDollar))
		for p := range usedDollar {
			positions = append(positions, p)
		}
		sortInts(positions)
		out := make([]dbval.Value, len(positions))
		for i, p := range positions {
			out[i] = values[p-1]
		}
		return out, nil
	}

	if questionCount != len(values) {
		return nil, &ParameterCountMismatch{Want: questionCount, Got: len(values)}
	}
	return values, nil
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
