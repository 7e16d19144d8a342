// Package toolchain drives the system C compiler. It accumulates flags,
// preprocessor defines, include paths and source files, probes what the
// active compiler accepts, and produces static or shared library artifacts.
package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sys/execabs"
)

// Family classifies the command-line dialect of the active compiler driver.
type Family int

const (
	// FamilyPOSIX covers gcc/clang style drivers.
	FamilyPOSIX Family = iota
	// FamilyMSVC covers cl.exe and clang-cl.
	FamilyMSVC
)

func (f Family) String() string {
	if f == FamilyMSVC {
		return "msvc"
	}
	return "posix"
}

// Define is one preprocessor definition.
type Define struct {
	Key   string
	Value string
}

// Artifact is a produced library.
type Artifact struct {
	Path   string
	Shared bool
}

// RunFunc executes one toolchain command in dir and returns its combined
// output. Tests substitute it to observe invocations without a real
// compiler.
type RunFunc func(ctx context.Context, dir, bin string, args []string) ([]byte, error)

func execRun(ctx context.Context, dir, bin string, args []string) ([]byte, error) {
	cmd := execabs.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Toolchain accumulates one compilation's inputs and invokes the compiler.
type Toolchain struct {
	compiler string
	outDir   string
	shared   bool
	flags    []string
	defines  []Define
	includes []string
	sources  []string
	run      RunFunc
}

// New returns a toolchain writing artifacts under outDir, bound to the
// compiler named by $CC or the platform default driver.
func New(outDir string) *Toolchain {
	compiler := os.Getenv("CC")
	if compiler == "" {
		if runtime.GOOS == "windows" {
			compiler = "cl.exe"
		} else {
			compiler = "cc"
		}
	}
	return &Toolchain{
		compiler: compiler,
		outDir:   outDir,
		run:      execRun,
	}
}

// SetRunner replaces command execution. Used by tests.
func (t *Toolchain) SetRunner(run RunFunc) {
	t.run = run
}

// Compiler returns the compiler driver this toolchain invokes.
func (t *Toolchain) Compiler() string {
	return t.compiler
}

// OutputDir returns the directory artifacts are written to.
func (t *Toolchain) OutputDir() string {
	return t.outDir
}

// Family classifies the compiler from its driver name: cl and clang-cl
// speak the MSVC dialect, everything else is treated as POSIX style.
func (t *Toolchain) Family() Family {
	base := strings.ToLower(filepath.Base(t.compiler))
	base = strings.TrimSuffix(base, ".exe")
	switch base {
	case "cl", "clang-cl":
		return FamilyMSVC
	}
	return FamilyPOSIX
}

// AddFlag appends a compiler flag. Order is preserved; duplicates are
// passed through untouched.
func (t *Toolchain) AddFlag(flag string) {
	t.flags = append(t.flags, flag)
}

// AddFlagIfSupported appends flag only when the active compiler accepts
// it, and reports whether it was added.
func (t *Toolchain) AddFlagIfSupported(ctx context.Context, flag string) bool {
	if !t.Supports(ctx, flag) {
		return false
	}
	t.AddFlag(flag)
	return true
}

// AddDefine appends a preprocessor definition. The last definition of a
// key wins at the preprocessor level, so duplicates are kept as-is.
func (t *Toolchain) AddDefine(key, value string) {
	t.defines = append(t.defines, Define{Key: key, Value: value})
}

// AddInclude appends an include directory.
func (t *Toolchain) AddInclude(dir string) {
	t.includes = append(t.includes, dir)
}

// AddSource appends a source file to the compilation set.
func (t *Toolchain) AddSource(path string) {
	t.sources = append(t.sources, path)
}

// SetShared selects a shared library artifact. The default is static.
func (t *Toolchain) SetShared(shared bool) {
	t.shared = shared
}

// Flags returns the accumulated flags in application order.
func (t *Toolchain) Flags() []string {
	return append([]string(nil), t.flags...)
}

// Defines returns the accumulated defines in application order.
func (t *Toolchain) Defines() []Define {
	return append([]Define(nil), t.defines...)
}

// Includes returns the accumulated include directories in application order.
func (t *Toolchain) Includes() []string {
	return append([]string(nil), t.includes...)
}

// Sources returns the accumulated source files.
func (t *Toolchain) Sources() []string {
	return append([]string(nil), t.sources...)
}

// Shared reports whether a shared artifact was requested.
func (t *Toolchain) Shared() bool {
	return t.shared
}

func formatDefine(d Define) string {
	if d.Value == "" {
		return d.Key
	}
	return d.Key + "=" + d.Value
}
