package main

import (
	"fmt"
	"io"
	"os"

	"github.com/raymyers/sqfpp/pkg/cpp"
	"github.com/raymyers/sqfpp/pkg/preproc"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var version = "0.1.0"

// Preprocessor options
var (
	includePaths []string // -I VIRTUAL=REAL
	defineFlags  []string // -D NAME[=VALUE]
	configFile   string
	tagFilenames bool
	outputFile   string
)

// Dump flags
var (
	dumpMacros   bool
	dumpIncludes bool
)

// stdinName is the file argument that reads the source from standard input.
const stdinName = "-"

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sqfpp [file]",
		Short: "sqfpp runs the SQF preprocessor ahead of linting",
		Long: `sqfpp expands #define macros and #include directives in SQF
sources. The output keeps one line per input line so diagnostics
from the linter still point at the original line numbers.

Use "-" as the file to read from standard input.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}

			opts, err := buildPreprocessorOptions(errOut)
			if err != nil {
				fmt.Fprintf(errOut, "sqfpp: error: %v\n", err)
				return err
			}

			result, err := preprocess(cmd.InOrStdin(), args[0], opts)
			if err != nil {
				if preproc.IsFatal(err) {
					fmt.Fprintf(errOut, "sqfpp: error: preprocessing aborted: %v\n", err)
				} else {
					fmt.Fprintf(errOut, "sqfpp: error: %v\n", err)
				}
				return err
			}

			return writeResult(result, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringArrayVarP(&includePaths, "include-path", "I", nil, "Map a virtual include prefix to a real one (VIRTUAL=REAL)")
	rootCmd.Flags().StringArrayVarP(&defineFlags, "define", "D", nil, "Define macro (NAME, NAME=VALUE or NAME(a,b)=BODY)")
	rootCmd.Flags().StringVar(&configFile, "config", "", "Read include paths and defines from a YAML file")
	rootCmd.Flags().BoolVar(&tagFilenames, "tag-filenames", false, "Tag macros defined in the input file with its name")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write preprocessed output to file instead of stdout")

	rootCmd.Flags().BoolVar(&dumpMacros, "dump-macros", false, "Dump the macro table as YAML instead of the output")
	rootCmd.Flags().BoolVar(&dumpIncludes, "dump-includes", false, "Dump the include list as YAML instead of the output")

	return rootCmd
}

// buildPreprocessorOptions creates preproc.Options from the config file and
// CLI flags. Flag values come after config values, so config include paths
// take precedence when both match.
func buildPreprocessorOptions(errOut io.Writer) (*preproc.Options, error) {
	opts := &preproc.Options{}
	if configFile != "" {
		loaded, err := preproc.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		opts = loaded
	}

	for _, s := range includePaths {
		p, err := preproc.ParseIncludePath(s)
		if err != nil {
			return nil, err
		}
		opts.IncludePaths = append(opts.IncludePaths, p)
	}
	opts.Defines = append(opts.Defines, defineFlags...)
	opts.TagFilenames = opts.TagFilenames || tagFilenames

	for _, err := range opts.Validate() {
		fmt.Fprintf(errOut, "sqfpp: warning: %v\n", err)
	}

	return opts, nil
}

// preprocess runs the preprocessor on filename, or on stdin for "-".
func preprocess(stdin io.Reader, filename string, opts *preproc.Options) (*cpp.Result, error) {
	if filename != stdinName {
		return preproc.Preprocess(filename, opts)
	}

	pp := cpp.NewPreprocessor(opts.PreprocessorOptions())
	return pp.Process(stdin, "stdin.sqf", opts.TagFilenames)
}

// writeResult writes the preprocessed text, or the requested dumps.
func writeResult(result *cpp.Result, out, errOut io.Writer) error {
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(result.Text), 0644); err != nil {
			fmt.Fprintf(errOut, "sqfpp: error creating %s: %v\n", outputFile, err)
			return err
		}
	}

	if dumpMacros || dumpIncludes {
		return writeDump(result, out, errOut)
	}

	if outputFile == "" {
		fmt.Fprint(out, result.Text)
	}
	return nil
}

type definitionDump struct {
	Location string `yaml:"location"`
	File     string `yaml:"file,omitempty"`
	Value    string `yaml:"value"`
}

type macroDump struct {
	Name        string           `yaml:"name"`
	Kind        string           `yaml:"kind"`
	Params      []string         `yaml:"params,omitempty"`
	Definitions []definitionDump `yaml:"definitions"`
}

type includeDump struct {
	File   string `yaml:"file"`
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
}

type dump struct {
	Macros   []macroDump   `yaml:"macros,omitempty"`
	Includes []includeDump `yaml:"includes,omitempty"`
}

// writeDump writes the macro table and/or include list as a YAML document.
func writeDump(result *cpp.Result, out, errOut io.Writer) error {
	var d dump

	if dumpMacros {
		for _, m := range result.Macros.All() {
			md := macroDump{Name: m.Name, Kind: m.Kind.String(), Params: m.Params}
			for _, def := range m.Definitions {
				md.Definitions = append(md.Definitions, definitionDump{
					Location: def.Loc.String(),
					File:     def.File,
					Value:    def.Value,
				})
			}
			d.Macros = append(d.Macros, md)
		}
	}

	if dumpIncludes {
		for _, inc := range result.Includes {
			d.Includes = append(d.Includes, includeDump{File: inc.File, Source: inc.Source, Path: inc.Path})
		}
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		fmt.Fprintf(errOut, "sqfpp: error writing dump: %v\n", err)
		return err
	}
	return enc.Close()
}
