// Package buildcfg models one native module's build configuration and the
// protocol that propagates its public settings to downstream module build
// steps.
//
// Each module's build step creates a Config, declares its dependencies,
// accumulates flags, defines, include paths and link targets, and calls
// Build. Build compiles the module, emits linker directives for the host
// orchestrator, and publishes the finished configuration under the
// module's name so that later build steps can embed it.
package buildcfg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ccmod/ccmod/internal/session"
	"github.com/ccmod/ccmod/internal/store"
	"github.com/ccmod/ccmod/pkgs/toolchain"
)

// Define is one preprocessor definition, written as #define Key Value.
type Define struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Config is the build configuration of one module: its own compiler flags,
// preprocessor defines, include paths and link requirements, plus
// snapshots of the published configurations of every declared dependency.
//
// Public settings propagate to modules that later declare a dependency on
// this one; private settings apply only to this module's compilation and
// never cross the module boundary. Link targets are always transitive.
type Config struct {
	moduleName     string
	libName        string
	moduleVersion  string
	deps           []*Config
	privateFlags   []string
	publicFlags    []string
	privateDefines []Define
	publicDefines  []Define
	linkTargets    []string
	includeDirs    []string
	shared         bool
	linkSearchPath string

	outDir string
	tc     *toolchain.Toolchain
	st     *store.Store
	out    io.Writer
}

// UnresolvedDependencyError reports that a declared dependency has no
// published configuration in the current build session, or that its
// published payload cannot be decoded. Either way the upstream module is
// not usable and the current build step cannot proceed.
type UnresolvedDependencyError struct {
	Name string
	Err  error
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("unresolved dependency %q: %v (the module is not part of the dependency chain, or its build step did not publish its configuration)", e.Name, e.Err)
}

func (e *UnresolvedDependencyError) Unwrap() error { return e.Err }

// New returns a fresh configuration for moduleName. The library name
// defaults to the module name and the link search path to the build
// step's output directory.
func New(moduleName string) (*Config, error) {
	if moduleName == "" {
		return nil, errors.New("failed to create build config: empty module name")
	}
	outDir, err := session.OutputDir()
	if err != nil {
		return nil, fmt.Errorf("failed to create build config: %w", err)
	}
	sessionDir, err := session.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to create build config: %w", err)
	}
	st, err := store.Open(sessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create build config: %w", err)
	}
	return &Config{
		moduleName:     moduleName,
		libName:        moduleName,
		linkSearchPath: outDir,
		outDir:         outDir,
		tc:             toolchain.New(outDir),
		st:             st,
		out:            os.Stdout,
	}, nil
}

// ModuleName returns the module's unique name, the propagation key.
func (c *Config) ModuleName() string { return c.moduleName }

// LibName returns the name of the artifact to produce.
func (c *Config) LibName() string { return c.libName }

// Version returns the module version recorded in the configuration.
func (c *Config) Version() string { return c.moduleVersion }

// Dependencies returns the embedded dependency snapshots in declaration order.
func (c *Config) Dependencies() []*Config { return slices.Clone(c.deps) }

// PublicFlags returns the public compiler flags in declaration order.
func (c *Config) PublicFlags() []string { return slices.Clone(c.publicFlags) }

// PrivateFlags returns the private compiler flags in declaration order.
func (c *Config) PrivateFlags() []string { return slices.Clone(c.privateFlags) }

// PublicDefines returns the public preprocessor defines in declaration order.
func (c *Config) PublicDefines() []Define { return slices.Clone(c.publicDefines) }

// PrivateDefines returns the private preprocessor defines in declaration order.
func (c *Config) PrivateDefines() []Define { return slices.Clone(c.privateDefines) }

// LinkTargets returns the linker targets in declaration order.
func (c *Config) LinkTargets() []string { return slices.Clone(c.linkTargets) }

// IncludeDirs returns the include directories in declaration order.
func (c *Config) IncludeDirs() []string { return slices.Clone(c.includeDirs) }

// Shared reports whether the module builds as a shared library.
func (c *Config) Shared() bool { return c.shared }

// SearchPath returns the directory the orchestrator should search for the
// produced artifact.
func (c *Config) SearchPath() string { return c.linkSearchPath }

// Toolchain returns the underlying toolchain driver for this build step.
func (c *Config) Toolchain() *toolchain.Toolchain { return c.tc }

// AddPublicFlag adds a compiler flag that also applies to every module
// that later declares a dependency on this one. Empty flags are ignored.
func (c *Config) AddPublicFlag(flag string) *Config {
	if flag != "" {
		c.publicFlags = append(c.publicFlags, flag)
	}
	return c
}

// AddPrivateFlag adds a compiler flag that applies only to this module's
// compilation. Empty flags are ignored.
func (c *Config) AddPrivateFlag(flag string) *Config {
	if flag != "" {
		c.privateFlags = append(c.privateFlags, flag)
	}
	return c
}

// AddPublicDefine adds a preprocessor definition that also applies to
// every module that later declares a dependency on this one. Empty keys
// are ignored.
func (c *Config) AddPublicDefine(key, value string) *Config {
	if key != "" {
		c.publicDefines = append(c.publicDefines, Define{Key: key, Value: value})
	}
	return c
}

// AddPrivateDefine adds a preprocessor definition that applies only to
// this module's compilation. Empty keys are ignored.
func (c *Config) AddPrivateDefine(key, value string) *Config {
	if key != "" {
		c.privateDefines = append(c.privateDefines, Define{Key: key, Value: value})
	}
	return c
}

// AddLinkTarget adds a library to the linker line: a system library name,
// or caller-formatted targets like "framework=Security". Link targets are
// always passed to module consumers through the orchestrator.
func (c *Config) AddLinkTarget(target string) *Config {
	if target != "" {
		c.linkTargets = append(c.linkTargets, target)
	}
	return c
}

// AddIncludeDir adds an include directory, e.g. for headers of a third
// party library not built by this system.
func (c *Config) AddIncludeDir(dir string) *Config {
	if dir != "" {
		c.includeDirs = append(c.includeDirs, dir)
	}
	return c
}

// AddSource adds a source file to the compilation set.
func (c *Config) AddSource(path string) *Config {
	c.tc.AddSource(path)
	return c
}

// SetShared selects a shared library artifact. The default is static.
func (c *Config) SetShared(shared bool) *Config {
	c.shared = shared
	return c
}

// SetSearchPath overrides the directory the orchestrator should search
// for the produced artifact, e.g. when linking against a library built
// outside this system.
func (c *Config) SetSearchPath(path string) *Config {
	c.linkSearchPath = path
	return c
}

// SetVersion records the module version in the configuration.
func (c *Config) SetVersion(version string) *Config {
	c.moduleVersion = version
	return c
}

// SetOutput sets the writer orchestrator directives are emitted to.
// The default is stdout.
func (c *Config) SetOutput(w io.Writer) {
	c.out = w
}

// AddDependency looks up the configuration published by name's build step
// and embeds a snapshot of it. The upstream module's public flags,
// defines and include directories will be applied to this module's
// compilation; its private settings never cross the module boundary.
//
// The snapshot is exclusively owned: it is never re-fetched or mutated
// after this call.
func (c *Config) AddDependency(name string) error {
	payload, err := c.st.Lookup(name)
	if err != nil {
		return &UnresolvedDependencyError{Name: name, Err: err}
	}
	dep := new(Config)
	if err := json.Unmarshal(payload, dep); err != nil {
		return &UnresolvedDependencyError{Name: name, Err: err}
	}
	c.deps = append(c.deps, dep)
	return nil
}

// StageHeaders copies the headers under sourceDir into the build output
// tree (<out>/include) and registers the destination as an include
// directory, so the headers stay reachable across build steps. Files
// already staged are overwritten; a rerun build step restages cleanly.
func (c *Config) StageHeaders(sourceDir string) error {
	dst := filepath.Join(c.outDir, "include")
	src := os.DirFS(sourceDir)
	err := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dst, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := fs.ReadFile(src, path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return fmt.Errorf("failed to stage headers from %s: %w", sourceDir, err)
	}
	c.includeDirs = append(c.includeDirs, dst)
	return nil
}

// WriteGeneratedFile writes generated content (e.g. a configured header in
// the autoconf style) under the build output tree at relPath, creating
// parent directories as needed. relPath must stay inside the output tree.
func (c *Config) WriteGeneratedFile(content []byte, relPath string) error {
	target := filepath.Join(c.outDir, relPath)
	if rel, err := filepath.Rel(c.outDir, target); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("failed to write generated file: %s escapes the output dir", relPath)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to write generated file: %w", err)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return fmt.Errorf("failed to write generated file %s: %w", relPath, err)
	}
	return nil
}

// TryCompile attempts to compile a small self-contained source snippet in
// isolation from the main build and reports whether it compiled. Use it
// to detect compiler capabilities before relying on a flag or header. A
// failed attempt is an expected outcome, never an error.
func (c *Config) TryCompile(ctx context.Context, snippet string) bool {
	return c.tc.TryCompile(ctx, snippet)
}
