// expand.go implements line-level macro expansion including argument
// substitution, stringification, and token pasting.
package cpp

import (
	"fmt"
	"slices"
	"strings"
)

// MaxExpansions is the maximum number of substitutions performed on a single
// line before expansion is considered runaway recursion.
const MaxExpansions = 1024

// Expander rewrites code lines against a macro table.
type Expander struct {
	macros *MacroTable
}

// NewExpander creates a new macro expander.
func NewExpander(macros *MacroTable) *Expander {
	return &Expander{macros: macros}
}

// ExpandLine expands every macro in line. After each substitution the scan
// restarts from the longest macro name against the updated line, so text
// produced by one expansion can be expanded again.
func (e *Expander) ExpandLine(line string) (string, error) {
	sorted := e.macros.ByLength()
	count := 0

	for {
		replaced := false
		for _, m := range sorted {
			next, ok := e.replaceFirst(line, m)
			if !ok {
				continue
			}
			count++
			if count > MaxExpansions {
				return "", &RecursionError{Macro: m.Name, Limit: MaxExpansions}
			}
			line = next
			replaced = true
			break
		}
		if !replaced {
			return line, nil
		}
	}
}

// replaceFirst substitutes the first occurrence of m in line. It reports
// false when m does not occur, or for function-like macros when no
// occurrence is followed by a complete argument list.
func (e *Expander) replaceFirst(line string, m *Macro) (string, bool) {
	if m.Kind == MacroObject {
		idx := strings.Index(line, m.Name)
		if idx < 0 {
			return line, false
		}
		return line[:idx] + m.Body() + line[idx+len(m.Name):], true
	}

	for off := 0; off < len(line); {
		idx := strings.Index(line[off:], m.Name)
		if idx < 0 {
			break
		}
		start := off + idx
		rest := line[start+len(m.Name):]

		// Look for opening paren (may have spaces before it)
		p := 0
		for p < len(rest) && rest[p] == ' ' {
			p++
		}
		if p < len(rest) && rest[p] == '(' {
			if end := walkToEnd(rest[p+1:]); end >= 0 {
				args := splitArgs(rest[p+1 : p+1+end])
				body := substituteParams(m.Body(), m.Params, args)
				return line[:start] + body + rest[p+2+end:], true
			}
		}
		off = start + 1
	}

	return line, false
}

// substituteParams rewrites a function-like macro body in a single pass.
// A parameter is substituted where it is bounded on both sides by the body's
// ends, a character that is neither a letter nor '#', or a ## paste marker,
// so the v in _v is replaced. #param becomes the argument in double quotes
// and remaining ## markers are dropped. Parameters without an argument are
// left as written.
func substituteParams(body string, params, args []string) string {
	values := make(map[string]string, len(params))
	var names []string
	for i, param := range params {
		if i < len(args) {
			values[param] = args[i]
			names = append(names, param)
		}
	}
	slices.SortStableFunc(names, func(a, b string) int {
		return len(b) - len(a)
	})

	var sb strings.Builder
	i := 0
	for i < len(body) {
		switch {
		case strings.HasPrefix(body[i:], "##"):
			i += 2
			continue

		case body[i] == '#':
			if name := matchParam(body, i+1, names); name != "" {
				sb.WriteByte('"')
				sb.WriteString(values[name])
				sb.WriteByte('"')
				i += 1 + len(name)
				continue
			}

		case i == 0 || isParamBoundary(body[i-1]) || (i >= 2 && body[i-2:i] == "##"):
			if name := matchParam(body, i, names); name != "" {
				sb.WriteString(values[name])
				i += len(name)
				continue
			}
		}

		sb.WriteByte(body[i])
		i++
	}

	return sb.String()
}

// matchParam returns the longest of names that starts at body[at] and is
// followed by the end of body, a boundary character or a ## marker.
func matchParam(body string, at int, names []string) string {
	for _, name := range names {
		if !strings.HasPrefix(body[at:], name) {
			continue
		}
		end := at + len(name)
		if end == len(body) || isParamBoundary(body[end]) || strings.HasPrefix(body[end:], "##") {
			return name
		}
	}
	return ""
}

// RecursionError indicates that expansion of a line did not terminate,
// typically because a macro expands to text containing its own name.
type RecursionError struct {
	Macro string
	Limit int
}

func (e *RecursionError) Error() string {
	return fmt.Sprintf("macro recursion: %s still expanding after %d substitutions", e.Macro, e.Limit)
}
