// preprocess.go implements the main preprocessor driver with include processing.
package cpp

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nickwells/location.mod/location"
)

// CommandLineSource is the source name given to predefined macros.
const CommandLineSource = "<command-line>"

// PreprocessorOptions configures the preprocessor.
type PreprocessorOptions struct {
	IncludePaths []PathPrefix // virtual -> real include prefixes, in priority order
	Defines      []string     // NAME, NAME=VALUE or NAME(a,b)=BODY
}

// Preprocessor is the main driver for SQF preprocessing.
type Preprocessor struct {
	opts PreprocessorOptions
}

// State is the mutable state of one top-level invocation. It is shared by
// pointer with every nested include so macros defined in an included file
// stay visible to everything processed afterwards.
type State struct {
	Macros   *MacroTable
	Includes []Include

	expander *Expander
	resolver *IncludeResolver
}

// Result is the output of a top-level invocation.
type Result struct {
	Text     string     // expanded text, one output line per input line
	Macros   *MacroTable
	Includes []Include // in discovery order
}

// NewPreprocessor creates a new preprocessor instance.
func NewPreprocessor(opts PreprocessorOptions) *Preprocessor {
	return &Preprocessor{opts: opts}
}

// newState creates the state for a top-level invocation, with command line
// defines already applied.
func (p *Preprocessor) newState() *State {
	macros := NewMacroTable()
	st := &State{
		Macros:   macros,
		expander: NewExpander(macros),
		resolver: NewIncludeResolver(p.opts.IncludePaths),
	}

	loc := location.New(CommandLineSource)
	for i, d := range p.opts.Defines {
		loc.Incr()
		name, kind, params, body, ok := parseCommandLineDefine(d)
		if !ok {
			continue
		}
		defLoc := *loc
		st.Macros.Define(name, kind, params, Definition{Loc: &defLoc, Value: body}, i+1)
	}

	return st
}

// parseCommandLineDefine parses NAME, NAME=VALUE or NAME(a,b)=BODY.
func parseCommandLineDefine(d string) (name string, kind MacroKind, params []string, body string, ok bool) {
	head, body, _ := strings.Cut(d, "=")
	if strings.TrimSpace(head) == "" {
		return "", MacroObject, nil, "", false
	}
	name, kind, params, _, ok = parseDefine(head)
	return name, kind, params, strings.TrimSpace(body), ok
}

// Process reads r fully and preprocesses it. source is used for relative
// include resolution and, when tagFilenames is set, to tag macro definitions.
func (p *Preprocessor) Process(r io.Reader, source string, tagFilenames bool) (*Result, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return p.ProcessString(string(content), source, tagFilenames)
}

// ProcessFile preprocesses a file and returns the result.
func (p *Preprocessor) ProcessFile(filename string) (*Result, error) {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		absPath = filename
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}

	return p.ProcessString(string(content), absPath, false)
}

// ProcessString preprocesses input as if it were the contents of source.
// The returned error is fatal for the whole invocation; missing include
// files and unknown directives are not errors.
func (p *Preprocessor) ProcessString(input, source string, tagFilenames bool) (*Result, error) {
	st := p.newState()

	if err := st.resolver.PushFile(source); err != nil {
		return nil, err
	}
	defer st.resolver.PopFile()

	text, err := p.process(st, input, source, tagFilenames)
	if err != nil {
		return nil, err
	}

	return &Result{
		Text:     text,
		Macros:   st.Macros,
		Includes: st.Includes,
	}, nil
}

// process is the main preprocessing loop. It is re-entered for every
// included file with the same state.
func (p *Preprocessor) process(st *State, input, source string, tagFilenames bool) (string, error) {
	lines := strings.Split(strings.ReplaceAll(input, "\r", ""), "\n")
	loc := location.New(source)

	for i, raw := range lines {
		loc.Incr()
		line := normalizeLine(raw)

		if IsDirective(line) {
			if err := p.processDirective(st, ParseDirective(line), loc, i+1, tagFilenames); err != nil {
				return "", err
			}
			lines[i] = ""
			continue
		}

		expanded, err := expandLine(st.expander, line)
		if err != nil {
			return "", &ExpansionError{Loc: loc.String(), Line: raw, Err: err}
		}
		lines[i] = expanded
	}

	return strings.Join(lines, "\n"), nil
}

// expandLine runs the expander, turning a panic into an error so that the
// fault aborts the invocation with a location attached.
func expandLine(e *Expander, line string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return e.ExpandLine(line)
}

// processDirective handles a preprocessing directive.
func (p *Preprocessor) processDirective(st *State, dir *Directive, loc *location.L, line int, tagFilenames bool) error {
	if dir.Malformed {
		return nil
	}

	switch dir.Type {
	case DIR_DEFINE:
		defLoc := *loc
		def := Definition{Loc: &defLoc, Value: dir.Body}
		if tagFilenames {
			def.File = loc.Source()
		}
		st.Macros.Define(dir.Name, dir.Kind, dir.Params, def, line)
	case DIR_INCLUDE:
		return p.processInclude(st, dir.HeaderName, loc)
	}

	// Conditionals and unknown directives are dropped
	return nil
}

// processInclude handles #include directives. Missing files are recorded
// and otherwise skipped.
func (p *Preprocessor) processInclude(st *State, name string, loc *location.L) error {
	currentFile := loc.Source()
	st.resolver.SetCurrentFile(currentFile)
	file, path := st.resolver.Resolve(name)

	st.Includes = append(st.Includes, Include{
		File:   file,
		Source: currentFile,
		Path:   path,
	})

	if !st.resolver.Exists(path) {
		return nil
	}

	if err := st.resolver.PushFile(path); err != nil {
		var circErr *CircularIncludeError
		var depthErr *IncludeDepthError
		switch {
		case errors.As(err, &circErr):
			circErr.Loc = loc.String()
		case errors.As(err, &depthErr):
			depthErr.Loc = loc.String()
		}
		return err
	}
	defer st.resolver.PopFile()

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: reading %s: %w", loc, path, err)
	}

	if _, err := p.process(st, string(content), path, true); err != nil {
		return fmt.Errorf("in %s: %w", path, err)
	}
	return nil
}

// ExpansionError reports a fault while expanding a code line. It aborts the
// whole invocation.
type ExpansionError struct {
	Loc  string // source:line
	Line string // the raw input line
	Err  error
}

func (e *ExpansionError) Error() string {
	return fmt.Sprintf("failed to expand line %s: %v", e.Loc, e.Err)
}

func (e *ExpansionError) Unwrap() error {
	return e.Err
}
