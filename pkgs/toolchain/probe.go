package toolchain

import (
	"context"
	"os"
	"path/filepath"
)

// Supports probes whether the active compiler accepts flag by compiling an
// empty translation unit with it in a scratch directory. POSIX drivers get
// -Werror so unknown-flag warnings fail the probe. The scratch directory
// is removed on every path.
func (t *Toolchain) Supports(ctx context.Context, flag string) bool {
	var args []string
	if t.Family() == FamilyMSVC {
		args = []string{"/nologo", flag, "/c"}
	} else {
		args = []string{"-Werror", flag, "-c"}
	}
	return t.probe(ctx, "flag-probe-", "int main(void) { return 0; }\n", args)
}

// TryCompile compiles a self-contained source snippet in a scratch
// directory and reports whether it compiled. A snippet that does not
// compile is an expected outcome, never an error. The scratch directory is
// removed on every path.
func (t *Toolchain) TryCompile(ctx context.Context, snippet string) bool {
	var args []string
	if t.Family() == FamilyMSVC {
		args = []string{"/nologo", "/c"}
	} else {
		args = []string{"-c"}
	}
	return t.probe(ctx, "compile-probe-", snippet, args)
}

// probe writes source to a scratch directory, compiles it with args and
// reports success. No state from the probe outlives the call.
func (t *Toolchain) probe(ctx context.Context, prefix, source string, args []string) bool {
	if err := os.MkdirAll(t.outDir, 0o755); err != nil {
		return false
	}
	scratch, err := os.MkdirTemp(t.outDir, prefix+"*")
	if err != nil {
		return false
	}
	defer os.RemoveAll(scratch)

	src := filepath.Join(scratch, "check.c")
	if err := os.WriteFile(src, []byte(source), 0o644); err != nil {
		return false
	}
	if t.Family() == FamilyMSVC {
		args = append(args, src, "/Fo"+filepath.Join(scratch, "check.obj"))
	} else {
		args = append(args, src, "-o", filepath.Join(scratch, "check.o"))
	}
	_, err = t.run(ctx, scratch, t.compiler, args)
	return err == nil
}
