// Include path handling for the SQF preprocessor.
package cpp

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nickwells/filecheck.mod/filecheck"
)

// PathPrefix maps a virtual include root, as written in #include
// directives, to a real filesystem root.
type PathPrefix struct {
	Virtual string
	Real    string
}

// Include records one #include directive that was encountered.
type Include struct {
	File   string // requested path after prefix mapping
	Source string // file containing the directive
	Path   string // filesystem path that was looked up
}

// IncludeResolver handles include path resolution.
type IncludeResolver struct {
	Prefixes     []PathPrefix // consulted in order, first match wins
	CurrentDir   string       // Directory of file currently being processed
	includeStack []string     // Stack of included files for cycle detection
}

// NewIncludeResolver creates a new include resolver.
func NewIncludeResolver(prefixes []PathPrefix) *IncludeResolver {
	return &IncludeResolver{Prefixes: prefixes}
}

// SetCurrentFile sets the current file being processed (for relative includes).
func (r *IncludeResolver) SetCurrentFile(filename string) {
	if abs, err := filepath.Abs(filename); err == nil {
		filename = abs
	}
	r.CurrentDir = filepath.Dir(filename)
}

// MapPrefix replaces the first configured virtual prefix of path with its
// real prefix. The path is returned unchanged when no prefix matches.
func (r *IncludeResolver) MapPrefix(path string) string {
	mapped, _ := r.mapPrefix(path)
	return mapped
}

func (r *IncludeResolver) mapPrefix(path string) (string, bool) {
	for _, p := range r.Prefixes {
		if strings.HasPrefix(path, p.Virtual) {
			return p.Real + path[len(p.Virtual):], true
		}
	}
	return path, false
}

// Resolve maps name through the prefix table and returns both the mapped
// name and the filesystem path it refers to. Separators are only normalized
// in mapped names; an unmapped name is used as written, relative to the
// current directory unless it is absolute.
func (r *IncludeResolver) Resolve(name string) (file, path string) {
	file = name
	if mapped, ok := r.mapPrefix(name); ok {
		file = normalizeSeparators(mapped)
	}
	path = filepath.FromSlash(file)
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.CurrentDir, path)
	}
	return file, path
}

// Exists reports whether path names an existing regular file.
func (r *IncludeResolver) Exists(path string) bool {
	return filecheck.FileExists().StatusCheck(path) == nil
}

// PushFile pushes a file onto the include stack. Returns an error if the
// file is already in the stack (circular include) or nesting is too deep.
func (r *IncludeResolver) PushFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	for _, f := range r.includeStack {
		if f == absPath {
			return &CircularIncludeError{Path: absPath, Stack: r.IncludeStack()}
		}
	}
	if len(r.includeStack) >= MaxIncludeDepth {
		return &IncludeDepthError{Path: absPath, Depth: len(r.includeStack)}
	}

	r.includeStack = append(r.includeStack, absPath)
	return nil
}

// PopFile removes the current file from the include stack.
func (r *IncludeResolver) PopFile() {
	if len(r.includeStack) > 0 {
		r.includeStack = r.includeStack[:len(r.includeStack)-1]
	}
}

// IncludeStack returns a copy of the current include stack.
func (r *IncludeResolver) IncludeStack() []string {
	return append([]string(nil), r.includeStack...)
}

// IncludeDepth returns the current include nesting depth.
func (r *IncludeResolver) IncludeDepth() int {
	return len(r.includeStack)
}

// MaxIncludeDepth is the maximum allowed include nesting.
const MaxIncludeDepth = 200

// normalizeSeparators turns backslashes into slashes and collapses repeated
// slashes, so a mapped /opt/a3/ui_f\x.hpp becomes /opt/a3/ui_f/x.hpp.
func normalizeSeparators(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path
}

// CircularIncludeError reports a file that includes itself, directly or
// through other files. Loc is the source:line of the offending #include when
// it is known.
type CircularIncludeError struct {
	Loc   string
	Path  string
	Stack []string
}

func (e *CircularIncludeError) Error() string {
	chain := make([]string, 0, len(e.Stack)+1)
	for _, f := range e.Stack {
		chain = append(chain, filepath.Base(f))
	}
	chain = append(chain, filepath.Base(e.Path))

	msg := "circular #include of " + e.Path + " (" + strings.Join(chain, " -> ") + ")"
	if e.Loc != "" {
		msg = e.Loc + ": " + msg
	}
	return msg
}

// IncludeDepthError indicates includes nested deeper than MaxIncludeDepth.
type IncludeDepthError struct {
	Loc   string
	Path  string
	Depth int
}

func (e *IncludeDepthError) Error() string {
	msg := fmt.Sprintf("#include nested more than %d deep: %s", e.Depth, e.Path)
	if e.Loc != "" {
		msg = e.Loc + ": " + msg
	}
	return msg
}
