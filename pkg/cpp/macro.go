// macro.go implements the macro table and macro definitions.
package cpp

import (
	"slices"

	"github.com/nickwells/location.mod/location"
)

// MacroKind distinguishes object-like and function-like macros.
type MacroKind int

const (
	MacroObject   MacroKind = iota // #define NAME body
	MacroFunction                  // #define NAME(a, b) body
)

func (k MacroKind) String() string {
	if k == MacroFunction {
		return "function"
	}
	return "object"
}

// Definition is one #define of a macro.
type Definition struct {
	Loc   *location.L // where the directive appeared
	File  string      // originating file when filename tagging is on
	Value string      // replacement text, empty when the macro has no body
}

// Macro is a named macro together with every definition seen for it.
type Macro struct {
	Name        string
	Kind        MacroKind
	Params      []string
	Definitions []Definition
	Source      string // file of the first definition
	Line        int    // line of the first definition
}

// Current returns the most recent definition, or nil if there is none.
func (m *Macro) Current() *Definition {
	if len(m.Definitions) == 0 {
		return nil
	}
	return &m.Definitions[len(m.Definitions)-1]
}

// Body returns the replacement text of the most recent definition.
func (m *Macro) Body() string {
	if d := m.Current(); d != nil {
		return d.Value
	}
	return ""
}

// MacroTable stores macros by name. Insertion order is remembered so that
// ties in ByLength are broken by definition order.
type MacroTable struct {
	macros map[string]*Macro
	order  []*Macro
}

// NewMacroTable creates an empty macro table.
func NewMacroTable() *MacroTable {
	return &MacroTable{
		macros: make(map[string]*Macro),
	}
}

// Define registers a new macro or appends a definition to an existing one.
// The kind and parameters are fixed by the first definition; later ones only
// add to the history.
func (t *MacroTable) Define(name string, kind MacroKind, params []string, def Definition, line int) *Macro {
	m, ok := t.macros[name]
	if !ok {
		m = &Macro{
			Name:   name,
			Kind:   kind,
			Params: params,
			Source: def.Loc.Source(),
			Line:   line,
		}
		t.macros[name] = m
		t.order = append(t.order, m)
	}

	m.Definitions = append(m.Definitions, def)
	return m
}

// Lookup returns the named macro or nil.
func (t *MacroTable) Lookup(name string) *Macro {
	return t.macros[name]
}

// IsDefined reports whether a macro with the given name exists.
func (t *MacroTable) IsDefined(name string) bool {
	_, ok := t.macros[name]
	return ok
}

// Len returns the number of distinct macro names.
func (t *MacroTable) Len() int {
	return len(t.order)
}

// All returns the macros in definition order.
func (t *MacroTable) All() []*Macro {
	return slices.Clone(t.order)
}

// ByLength returns the macros sorted by descending name length. Macros with
// names of equal length keep their definition order.
func (t *MacroTable) ByLength() []*Macro {
	sorted := slices.Clone(t.order)
	slices.SortStableFunc(sorted, func(a, b *Macro) int {
		return len(b.Name) - len(a.Name)
	})
	return sorted
}
