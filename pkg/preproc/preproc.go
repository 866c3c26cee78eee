// Package preproc handles SQF preprocessing configuration.
// It loads include path mappings and predefined macros from YAML and
// command line values, and runs the internal preprocessor on files.
package preproc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nickwells/filecheck.mod/filecheck"
	"github.com/raymyers/sqfpp/pkg/cpp"
	"gopkg.in/yaml.v3"
)

// Options configures the preprocessing step
type Options struct {
	IncludePaths []cpp.PathPrefix // virtual -> real prefixes, first match wins
	Defines      []string         // NAME, NAME=VALUE or NAME(a,b)=BODY
	TagFilenames bool             // tag top-level macro definitions with the file name
}

// configFile is the YAML layout of a configuration file. includePaths is kept
// as a node so that the mapping order survives decoding.
type configFile struct {
	IncludePaths yaml.Node `yaml:"includePaths"`
	Defines      []string  `yaml:"defines"`
	TagFilenames bool      `yaml:"tagFilenames"`
}

// LoadConfig reads a YAML configuration file such as
//
//	includePaths:
//	  \A3\: /opt/arma3/a3/
//	  \x\cba\: ../cba/
//	defines:
//	  - DEBUG_MODE_FULL
//	tagFilenames: true
func LoadConfig(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	opts, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

// ParseConfig parses YAML configuration data.
func ParseConfig(data []byte) (*Options, error) {
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	opts := &Options{
		Defines:      cfg.Defines,
		TagFilenames: cfg.TagFilenames,
	}

	node := &cfg.IncludePaths
	switch node.Kind {
	case 0:
		// not present
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if key.Value == "" {
				return nil, fmt.Errorf("line %d: empty include path prefix", key.Line)
			}
			opts.IncludePaths = append(opts.IncludePaths, cpp.PathPrefix{
				Virtual: key.Value,
				Real:    value.Value,
			})
		}
	default:
		return nil, fmt.Errorf("line %d: includePaths must be a mapping of virtual to real prefixes", node.Line)
	}

	return opts, nil
}

// ParseIncludePath parses a VIRTUAL=REAL command line value.
func ParseIncludePath(s string) (cpp.PathPrefix, error) {
	virtual, realPath, ok := strings.Cut(s, "=")
	if !ok || virtual == "" {
		return cpp.PathPrefix{}, fmt.Errorf("invalid include path %q: expected VIRTUAL=REAL", s)
	}
	return cpp.PathPrefix{Virtual: virtual, Real: realPath}, nil
}

// Validate checks the options for problems that do not prevent
// preprocessing. Absolute real prefixes must be existing directories;
// relative ones depend on the including file and are not checked.
func (o *Options) Validate() []error {
	var errs []error

	for _, p := range o.IncludePaths {
		if !filepath.IsAbs(p.Real) {
			continue
		}
		if err := filecheck.DirExists().StatusCheck(p.Real); err != nil {
			errs = append(errs, fmt.Errorf("include path %s: %w", p.Virtual, err))
		}
	}

	for _, d := range o.Defines {
		if strings.HasPrefix(strings.TrimSpace(d), "=") || strings.TrimSpace(d) == "" {
			errs = append(errs, fmt.Errorf("invalid define %q: missing macro name", d))
		}
	}

	return errs
}

// PreprocessorOptions converts the options for the cpp package.
func (o *Options) PreprocessorOptions() cpp.PreprocessorOptions {
	if o == nil {
		return cpp.PreprocessorOptions{}
	}
	return cpp.PreprocessorOptions{
		IncludePaths: o.IncludePaths,
		Defines:      o.Defines,
	}
}

// Preprocess runs the SQF preprocessor on the given source file.
func Preprocess(filename string, opts *Options) (*cpp.Result, error) {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		absPath = filename
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}

	return PreprocessString(string(content), absPath, opts)
}

// PreprocessString preprocesses source as if it had been read from filename.
func PreprocessString(source, filename string, opts *Options) (*cpp.Result, error) {
	pp := cpp.NewPreprocessor(opts.PreprocessorOptions())
	return pp.ProcessString(source, filename, opts != nil && opts.TagFilenames)
}

// IsFatal reports whether err came from the preprocessor aborting, as
// opposed to failing to read the input.
func IsFatal(err error) bool {
	var expErr *cpp.ExpansionError
	var circErr *cpp.CircularIncludeError
	var depthErr *cpp.IncludeDepthError
	return errors.As(err, &expErr) || errors.As(err, &circErr) || errors.As(err, &depthErr)
}
