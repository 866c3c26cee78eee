// Package cpp implements the SQF preprocessor: #define/#include handling and
// line-preserving macro expansion ahead of the linter's lexer.
package cpp

import (
	"strings"
)

// readUntil reads input starting at from until the exit character is reached
// or the input ends. With brackets set, a parenthesized group is consumed as
// a unit so that exit characters inside it are kept.
func readUntil(input string, from int, exit byte, brackets bool) string {
	var sb strings.Builder

	for from < len(input) && input[from] != exit {
		c := input[from]
		sb.WriteByte(c)

		if brackets && c == '(' {
			if end := walkToEnd(input[from+1:]); end >= 0 {
				sb.WriteString(input[from+1 : from+2+end])
				from += end + 1
			}
		}
		from++
	}

	return sb.String()
}

// walkToEnd returns the index of the ')' that closes an already opened
// parenthesis, or -1 if the input ends first.
func walkToEnd(input string) int {
	depth := 0
	for i := 0; i < len(input); i++ {
		switch input[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth < 0 {
			return i
		}
	}
	return -1
}

// splitArgs splits an argument list on commas that are not nested inside
// parentheses and trims each argument.
func splitArgs(list string) []string {
	var args []string
	depth := 0
	start := 0

	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(list[start:i]))
				start = i + 1
			}
		}
	}

	return append(args, strings.TrimSpace(list[start:]))
}

// normalizeLine strips leading whitespace and same-line comments and turns
// tabs into single spaces.
func normalizeLine(line string) string {
	line = strings.TrimLeft(line, " \t\n\v\f\r")
	line = stripComments(line)
	return strings.ReplaceAll(line, "\t", " ")
}

// stripComments removes // comments and /* */ comments that close on the same
// line. Comment markers inside string literals are left alone. An unclosed
// /* is kept verbatim.
func stripComments(line string) string {
	if !strings.Contains(line, "/") {
		return line
	}

	var sb strings.Builder
	var quote byte

	for i := 0; i < len(line); i++ {
		c := line[i]

		if quote != 0 {
			if c == quote {
				quote = 0
			}
			sb.WriteByte(c)
			continue
		}

		if c == '"' || c == '\'' {
			quote = c
			sb.WriteByte(c)
			continue
		}

		if c == '/' && i+1 < len(line) {
			if line[i+1] == '/' {
				break
			}
			if line[i+1] == '*' {
				if end := strings.Index(line[i+2:], "*/"); end >= 0 {
					i += end + 3
					continue
				}
			}
		}

		sb.WriteByte(c)
	}

	return sb.String()
}

// isParamBoundary reports whether c can delimit a macro parameter in a body.
func isParamBoundary(c byte) bool {
	return c != '#' && !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z')
}
