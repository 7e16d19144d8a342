package buildcfg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/qiniu/x/log"

	"github.com/ccmod/ccmod/pkgs/toolchain"
)

// Orchestrator directives, one per line on the configured output writer.
const (
	linkSearchDirective = "ccmod:link-search="
	linkLibDirective    = "ccmod:link-lib="
)

// htonlProbe detects whether the network byte-order conversions compile
// cleanly; on libcs where htonl expands to a GNU statement expression the
// corresponding warning has to be suppressed.
const htonlProbe = `#include <netinet/in.h>
int main() {
    uint32_t x = 0;
    x = htonl(x);
    return (int)x;
}
`

// Build runs the module's build step: it applies toolchain-family baseline
// flags, probes optional compiler capabilities, merges this module's
// settings with its dependencies' public settings, compiles, emits linker
// directives for the orchestrator, and publishes the finished
// configuration for downstream build steps.
//
// Build is called once per build step. After it returns successfully the
// configuration is immutable.
func (c *Config) Build(ctx context.Context) (*toolchain.Artifact, error) {
	c.loadToolchain(ctx)

	artifact, err := c.tc.Compile(ctx, c.libName)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module %s: %w", c.moduleName, err)
	}
	log.Infof("compiled %s: %s", c.moduleName, artifact.Path)

	c.emitDirectives()

	if err := c.publish(); err != nil {
		return nil, err
	}
	return artifact, nil
}

// loadToolchain applies the baseline flags and capability probes, then the
// merge order: private flags, public flags, private defines, public
// defines, include directories, and finally each dependency's public
// settings. Later settings win at the preprocessor level, so duplicates
// are passed through untouched.
func (c *Config) loadToolchain(ctx context.Context) {
	c.applyBaseline()
	c.applyProbes(ctx)

	for _, flag := range c.privateFlags {
		c.tc.AddFlag(flag)
	}
	for _, flag := range c.publicFlags {
		if !c.tc.AddFlagIfSupported(ctx, flag) {
			log.Debugf("%s: public flag %q not supported by %s, skipped", c.moduleName, flag, c.tc.Compiler())
		}
	}
	for _, def := range c.privateDefines {
		c.tc.AddDefine(def.Key, def.Value)
	}
	for _, def := range c.publicDefines {
		c.tc.AddDefine(def.Key, def.Value)
	}
	for _, dir := range c.includeDirs {
		c.tc.AddInclude(dir)
	}

	// One hop of transitive propagation: only the public settings of each
	// embedded dependency snapshot, never its private ones.
	for _, dep := range c.deps {
		for _, flag := range dep.publicFlags {
			c.tc.AddFlag(flag)
		}
		for _, def := range dep.publicDefines {
			c.tc.AddDefine(def.Key, def.Value)
		}
		for _, dir := range dep.includeDirs {
			c.tc.AddInclude(dir)
		}
	}

	c.tc.SetShared(c.shared)
}

// applyBaseline adds the warning and robustness defaults for the active
// compiler family. They are private: downstream modules pick their own.
func (c *Config) applyBaseline() {
	if c.tc.Family() == toolchain.FamilyMSVC {
		c.AddPrivateFlag("/W4").
			AddPrivateFlag("/WX").
			AddPrivateFlag("/MP")
		// ISO-conforming volatile semantics instead of the stricter
		// implicit memory barriers MSVC applies by default.
		c.AddPrivateFlag("/volatile:iso")
		// C4204 and C4221 flag standard C that MSVC treats as an extension.
		c.AddPrivateFlag("/wd4204")
		c.AddPrivateFlag("/wd4221")
		return
	}
	c.AddPrivateFlag("-Wall").
		AddPrivateFlag("-Werror").
		AddPrivateFlag("-Wstrict-prototypes").
		AddPrivateFlag("-fno-omit-frame-pointer").
		AddPrivateFlag("-Wextra").
		AddPrivateFlag("-pedantic").
		AddPrivateFlag("-Wno-long-long").
		AddPrivateFlag("-fPIC")
}

// applyProbes enables optional warning groups when the active compiler
// supports them. Each probe is independent; a failed probe skips the flag
// and never aborts the build.
func (c *Config) applyProbes(ctx context.Context) {
	if !c.tc.Supports(ctx, "-Wgnu") {
		return
	}
	// -Wgnu-zero-variadic-macro-arguments produces too many false positives.
	c.AddPrivateFlag("-Wgnu").
		AddPrivateFlag("-Wno-gnu-zero-variadic-macro-arguments")

	if !c.TryCompile(ctx, htonlProbe) {
		log.Debugf("%s: htonl probe failed, suppressing statement-expression warnings", c.moduleName)
		c.AddPrivateFlag("-Wno-gnu-statement-expression")
	}
}

// emitDirectives writes the linker-search-path directive and one
// linker-library directive per link target, in declaration order.
func (c *Config) emitDirectives() {
	if c.linkSearchPath != "" {
		fmt.Fprintf(c.out, "%s%s\n", linkSearchDirective, c.linkSearchPath)
	}
	for _, target := range c.linkTargets {
		fmt.Fprintf(c.out, "%s%s\n", linkLibDirective, target)
	}
}

// publish serializes the finished configuration and stores it under the
// module's propagation key so later build steps can embed it.
func (c *Config) publish() error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", c.moduleName, err)
	}
	if err := c.st.Publish(c.moduleName, payload); err != nil {
		return err
	}
	log.Infof("published build configuration for %s", c.moduleName)
	return nil
}
