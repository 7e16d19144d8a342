package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// CompileError reports a failed toolchain invocation, carrying the
// compiler's diagnostic output verbatim.
type CompileError struct {
	Args   []string // full command line, binary first
	Output string   // combined compiler output
	Err    error
}

func (e *CompileError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("%s: %v\n%s", strings.Join(e.Args, " "), e.Err, e.Output)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Compile builds every accumulated source file into an object and links
// the objects into a static or shared library named after libName, under
// the output directory.
func (t *Toolchain) Compile(ctx context.Context, libName string) (*Artifact, error) {
	if len(t.sources) == 0 {
		return nil, fmt.Errorf("failed to compile %s: no source files", libName)
	}
	objDir := filepath.Join(t.outDir, "obj")
	if err := os.MkdirAll(objDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", libName, err)
	}

	msvc := t.Family() == FamilyMSVC
	objects := make([]string, 0, len(t.sources))
	names := make(map[string]int, len(t.sources))
	for _, src := range t.sources {
		// Sources from different directories may share a basename; a bare
		// basename would make them overwrite each other's object file.
		name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		n := names[name]
		names[name] = n + 1
		if n > 0 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		obj, err := t.compileObject(ctx, objDir, src, name, msvc)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}

	if t.shared {
		return t.linkShared(ctx, libName, objects, msvc)
	}
	return t.archive(ctx, libName, objects, msvc)
}

// compileObject compiles one source file to an object file named after the
// caller-provided unique name.
// Flag order is application order; defines and includes follow the flags.
func (t *Toolchain) compileObject(ctx context.Context, objDir, src, name string, msvc bool) (string, error) {
	var obj string
	var args []string
	if msvc {
		obj = filepath.Join(objDir, name+".obj")
		args = append(args, "/nologo", "/c")
		args = append(args, t.flags...)
		for _, d := range t.defines {
			args = append(args, "/D"+formatDefine(d))
		}
		for _, inc := range t.includes {
			args = append(args, "/I"+inc)
		}
		args = append(args, src, "/Fo"+obj)
	} else {
		obj = filepath.Join(objDir, name+".o")
		args = append(args, "-c")
		args = append(args, t.flags...)
		for _, d := range t.defines {
			args = append(args, "-D"+formatDefine(d))
		}
		for _, inc := range t.includes {
			args = append(args, "-I"+inc)
		}
		args = append(args, src, "-o", obj)
	}
	out, err := t.run(ctx, t.outDir, t.compiler, args)
	if err != nil {
		return "", &CompileError{
			Args:   append([]string{t.compiler}, args...),
			Output: string(out),
			Err:    err,
		}
	}
	return obj, nil
}

// archive packs the objects into a static library.
func (t *Toolchain) archive(ctx context.Context, libName string, objects []string, msvc bool) (*Artifact, error) {
	var bin, out string
	var args []string
	if msvc {
		bin = "lib.exe"
		out = filepath.Join(t.outDir, libName+".lib")
		args = append([]string{"/nologo", "/OUT:" + out}, objects...)
	} else {
		bin = "ar"
		out = filepath.Join(t.outDir, "lib"+libName+".a")
		args = append([]string{"rcs", out}, objects...)
	}
	if output, err := t.run(ctx, t.outDir, bin, args); err != nil {
		return nil, &CompileError{
			Args:   append([]string{bin}, args...),
			Output: string(output),
			Err:    err,
		}
	}
	return &Artifact{Path: out}, nil
}

// linkShared links the objects into a shared library.
func (t *Toolchain) linkShared(ctx context.Context, libName string, objects []string, msvc bool) (*Artifact, error) {
	var out string
	var args []string
	if msvc {
		out = filepath.Join(t.outDir, libName+".dll")
		args = append([]string{"/nologo", "/LD"}, objects...)
		args = append(args, "/Fe"+out)
	} else {
		ext := ".so"
		if runtime.GOOS == "darwin" {
			ext = ".dylib"
		}
		out = filepath.Join(t.outDir, "lib"+libName+ext)
		args = append([]string{"-shared", "-o", out}, objects...)
	}
	if output, err := t.run(ctx, t.outDir, t.compiler, args); err != nil {
		return nil, &CompileError{
			Args:   append([]string{t.compiler}, args...),
			Output: string(output),
			Err:    err,
		}
	}
	return &Artifact{Path: out, Shared: true}, nil
}
