package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// resetFlags restores flag variables between tests; cobra binds them at
// package level.
func resetFlags() {
	includePaths = nil
	defineFlags = nil
	configFile = ""
	tagFilenames = false
	outputFile = ""
	dumpMacros = false
	dumpIncludes = false
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
}

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)

	for _, name := range []string{"include-path", "define", "config", "tag-filenames", "output", "dump-macros", "dump-includes"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag --%s to exist", name)
		}
	}
	for _, short := range []string{"I", "D", "o"} {
		if cmd.Flags().ShorthandLookup(short) == nil {
			t.Errorf("expected flag -%s to exist", short)
		}
	}
}

func TestNoArgsPrintsHelp(t *testing.T) {
	out, _, err := execute(t, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "sqfpp") {
		t.Errorf("expected help output, got %q", out)
	}
}

func TestPreprocessFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "init.sqf")
	writeTestFile(t, testFile, "#define GREETING \"hi\"\nhint GREETING;\n")

	out, errOut, err := execute(t, "", testFile)
	if err != nil {
		t.Fatalf("unexpected error: %v (stderr %q)", err, errOut)
	}
	if want := "\nhint \"hi\";\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestPreprocessStdin(t *testing.T) {
	out, _, err := execute(t, "#define N 4\n_n = N;", "-D", "UNUSED", "-")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "\n_n = 4;"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestIncludePathFlag(t *testing.T) {
	tmpDir := t.TempDir()
	a3 := filepath.Join(tmpDir, "a3")
	writeTestFile(t, filepath.Join(a3, "keys.inc"), "#define KEY_ESC 1\n")
	testFile := filepath.Join(tmpDir, "mission", "init.sqf")
	writeTestFile(t, testFile, "#include \"\\A3\\keys.inc\"\n_k = KEY_ESC;")

	out, errOut, err := execute(t, "", "-I", `\A3\=`+a3+"/", testFile)
	if err != nil {
		t.Fatalf("unexpected error: %v (stderr %q)", err, errOut)
	}
	if want := "\n_k = 1;"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestInvalidIncludePathFlag(t *testing.T) {
	_, errOut, err := execute(t, "", "-I", "novalue", "x.sqf")
	if err == nil {
		t.Fatal("expected error for malformed -I value")
	}
	if !strings.Contains(errOut, "expected VIRTUAL=REAL") {
		t.Errorf("unexpected stderr: %q", errOut)
	}
}

func TestConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	lib := filepath.Join(tmpDir, "lib")
	writeTestFile(t, filepath.Join(lib, "macros.hpp"), "#define PREFIX ace\n")
	config := filepath.Join(tmpDir, "sqfpp.yaml")
	writeTestFile(t, config, "includePaths:\n  \\lib\\: "+lib+"/\n  \\gone\\: "+filepath.Join(tmpDir, "gone")+"\ndefines:\n  - SUFFIX=main\n")
	testFile := filepath.Join(tmpDir, "init.sqf")
	writeTestFile(t, testFile, "#include \"\\lib\\macros.hpp\"\nPREFIX_SUFFIX")

	out, errOut, err := execute(t, "", "--config", config, testFile)
	if err != nil {
		t.Fatalf("unexpected error: %v (stderr %q)", err, errOut)
	}
	if want := "\nace_main"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
	if !strings.Contains(errOut, "sqfpp: warning: include path \\gone\\") {
		t.Errorf("expected warning for missing include root, got %q", errOut)
	}
}

func TestOutputFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "init.sqf")
	writeTestFile(t, testFile, "#define X 1\nX")
	outputPath := filepath.Join(tmpDir, "init.i.sqf")

	out, _, err := execute(t, "", "-o", outputPath, testFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("expected nothing on stdout, got %q", out)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read output file: %v", err)
	}
	if string(content) != "\n1" {
		t.Errorf("output file has %q", content)
	}
}

func TestDumpMacrosAndIncludes(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "init.sqf")
	writeTestFile(t, testFile, "#define FOO 1\n#define FOO 2\n#define MAX(a,b) a\n#include \"missing.hpp\"\n")

	out, _, err := execute(t, "", "--dump-macros", "--dump-includes", "--tag-filenames", testFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got dump
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("dump is not valid YAML: %v\n%s", err, out)
	}

	if len(got.Macros) != 2 {
		t.Fatalf("got %d macros, want 2", len(got.Macros))
	}
	foo := got.Macros[0]
	if foo.Name != "FOO" || len(foo.Definitions) != 2 || foo.Definitions[1].Value != "2" {
		t.Errorf("unexpected FOO dump: %+v", foo)
	}
	if foo.Definitions[0].File != testFile {
		t.Errorf("FOO not tagged with %s: %+v", testFile, foo.Definitions[0])
	}
	if got.Macros[1].Kind != "function" || len(got.Macros[1].Params) != 2 {
		t.Errorf("unexpected MAX dump: %+v", got.Macros[1])
	}

	if len(got.Includes) != 1 || got.Includes[0].File != "missing.hpp" || got.Includes[0].Source != testFile {
		t.Errorf("unexpected includes dump: %+v", got.Includes)
	}
}

func TestRecursionAborts(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "loop.sqf")
	writeTestFile(t, testFile, "#define LOOP LOOP\nLOOP")

	out, errOut, err := execute(t, "", testFile)
	if err == nil {
		t.Fatal("expected error for recursive macro")
	}
	if out != "" {
		t.Errorf("no output expected on abort, got %q", out)
	}
	if !strings.Contains(errOut, "preprocessing aborted") || !strings.Contains(errOut, "macro recursion") {
		t.Errorf("unexpected stderr: %q", errOut)
	}
}

func TestFileNotFound(t *testing.T) {
	_, errOut, err := execute(t, "", filepath.Join(t.TempDir(), "nonexistent.sqf"))
	if err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
	if strings.Contains(errOut, "aborted") {
		t.Errorf("missing input is not an abort: %q", errOut)
	}
}
