// directive.go parses preprocessing directive lines.
package cpp

import (
	"strings"
)

// DirectiveType identifies a preprocessing directive.
type DirectiveType int

const (
	DIR_UNKNOWN DirectiveType = iota // any other word, ignored
	DIR_DEFINE
	DIR_INCLUDE
	DIR_IFDEF  // recognized, never evaluated
	DIR_IFNDEF // recognized, never evaluated
	DIR_UNDEF  // recognized, never evaluated
	DIR_ELSE   // recognized, never evaluated
	DIR_ENDIF  // recognized, never evaluated
)

var directiveNames = map[string]DirectiveType{
	"define":  DIR_DEFINE,
	"include": DIR_INCLUDE,
	"ifdef":   DIR_IFDEF,
	"ifndef":  DIR_IFNDEF,
	"undef":   DIR_UNDEF,
	"else":    DIR_ELSE,
	"endif":   DIR_ENDIF,
}

func (t DirectiveType) String() string {
	for name, typ := range directiveNames {
		if typ == t {
			return name
		}
	}
	return "unknown"
}

// Directive is a parsed directive line.
type Directive struct {
	Type  DirectiveType
	Word  string // directive word as written
	Value string // remainder of the line

	// For DIR_DEFINE
	Name   string
	Kind   MacroKind
	Params []string
	Body   string

	// For DIR_INCLUDE, the file name without its delimiters
	HeaderName string

	// Malformed is set when a define or include value could not be parsed.
	// Such directives are dropped like unknown ones.
	Malformed bool
}

// IsDirective reports whether a normalized line is a directive line.
func IsDirective(line string) bool {
	return len(line) > 0 && line[0] == '#'
}

// ParseDirective parses a normalized directive line (one that starts with
// '#'). It never fails: unknown words yield DIR_UNKNOWN and unparsable
// values set Malformed.
func ParseDirective(line string) *Directive {
	word := readUntil(line, 1, ' ', false)
	value := readUntil(line, 2+len(word), '\n', true)

	dir := &Directive{
		Type:  directiveNames[strings.ToLower(word)],
		Word:  word,
		Value: value,
	}

	switch dir.Type {
	case DIR_DEFINE:
		name, kind, params, body, ok := parseDefine(value)
		dir.Name, dir.Kind, dir.Params, dir.Body = name, kind, params, body
		dir.Malformed = !ok
	case DIR_INCLUDE:
		name := strings.TrimSpace(value)
		if len(name) < 2 {
			dir.Malformed = true
			break
		}
		dir.HeaderName = name[1 : len(name)-1]
	}

	return dir
}

// parseDefine splits the value of a #define into name, parameters and body.
// The name ends at a space or '('; only a '(' directly after the name makes
// the macro function-like.
func parseDefine(value string) (name string, kind MacroKind, params []string, body string, ok bool) {
	value = strings.TrimLeft(value, " ")

	i := 0
	for i < len(value) && value[i] != ' ' && value[i] != '(' {
		i++
	}
	name = value[:i]
	if name == "" {
		return "", MacroObject, nil, "", false
	}

	rest := value[i:]
	if strings.HasPrefix(rest, "(") {
		end := walkToEnd(rest[1:])
		if end < 0 {
			return "", MacroObject, nil, "", false
		}
		kind = MacroFunction
		params = parseParams(rest[1 : 1+end])
		rest = rest[2+end:]
	}

	return name, kind, params, strings.TrimSpace(rest), true
}

// parseParams parses a comma separated formal parameter list.
func parseParams(list string) []string {
	params := []string{}
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			params = append(params, p)
		}
	}
	return params
}
