package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/mod/semver"

	"github.com/ccmod/ccmod/buildcfg"
)

var buildManifest string
var buildVerbose bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run one module's build step from its manifest",
	Long: `Build reads the module manifest, applies it to a build configuration,
declares the manifest's dependencies, compiles the module and publishes
its configuration for downstream build steps.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildManifest, "manifest", "f", "ccmod.yaml", "Path to the module manifest")
	buildCmd.Flags().BoolVarP(&buildVerbose, "verbose", "v", false, "Enable verbose build output")
	rootCmd.AddCommand(buildCmd)
}

// manifest mirrors the ccmod.yaml schema. Defines are "KEY=VALUE" strings
// so their order survives decoding.
type manifest struct {
	Module         string   `mapstructure:"module"`
	Version        string   `mapstructure:"version"`
	Sources        []string `mapstructure:"sources"`
	Deps           []string `mapstructure:"deps"`
	PublicFlags    []string `mapstructure:"public_flags"`
	PrivateFlags   []string `mapstructure:"private_flags"`
	PublicDefines  []string `mapstructure:"public_defines"`
	PrivateDefines []string `mapstructure:"private_defines"`
	IncludeDirs    []string `mapstructure:"include_dirs"`
	StageHeaders   []string `mapstructure:"stage_headers"`
	LinkTargets    []string `mapstructure:"link_targets"`
	LinkSearchPath string   `mapstructure:"link_search_path"`
	Shared         bool     `mapstructure:"shared"`
}

func runBuild(cmd *cobra.Command, args []string) error {
	if buildVerbose {
		log.SetOutputLevel(log.Ldebug)
	}

	m, err := loadManifest(buildManifest)
	if err != nil {
		return err
	}

	cfg, err := buildcfg.New(m.Module)
	if err != nil {
		return err
	}
	if err := applyManifest(cfg, m); err != nil {
		return err
	}

	artifact, err := cfg.Build(context.Background())
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", m.Module, err)
	}
	fmt.Println(artifact.Path)
	return nil
}

// loadManifest reads and validates the module manifest at path.
func loadManifest(path string) (*manifest, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m manifest
	if err := v.Unmarshal(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Module == "" {
		return nil, fmt.Errorf("failed to parse manifest %s: missing module name", path)
	}
	if m.Version != "" && !semver.IsValid("v"+strings.TrimPrefix(m.Version, "v")) {
		return nil, fmt.Errorf("failed to parse manifest %s: invalid version %q", path, m.Version)
	}
	return &m, nil
}

// applyManifest transfers the manifest's settings onto the configuration,
// preserving declaration order.
func applyManifest(cfg *buildcfg.Config, m *manifest) error {
	if m.Version != "" {
		cfg.SetVersion(m.Version)
	}
	for _, dep := range m.Deps {
		if err := cfg.AddDependency(dep); err != nil {
			return err
		}
	}
	for _, flag := range m.PrivateFlags {
		cfg.AddPrivateFlag(flag)
	}
	for _, flag := range m.PublicFlags {
		cfg.AddPublicFlag(flag)
	}
	for _, def := range m.PrivateDefines {
		key, value, _ := strings.Cut(def, "=")
		cfg.AddPrivateDefine(key, value)
	}
	for _, def := range m.PublicDefines {
		key, value, _ := strings.Cut(def, "=")
		cfg.AddPublicDefine(key, value)
	}
	for _, dir := range m.IncludeDirs {
		cfg.AddIncludeDir(dir)
	}
	for _, dir := range m.StageHeaders {
		if err := cfg.StageHeaders(dir); err != nil {
			return err
		}
	}
	for _, target := range m.LinkTargets {
		cfg.AddLinkTarget(target)
	}
	if m.LinkSearchPath != "" {
		cfg.SetSearchPath(m.LinkSearchPath)
	}
	cfg.SetShared(m.Shared)
	for _, src := range m.Sources {
		cfg.AddSource(src)
	}
	return nil
}
