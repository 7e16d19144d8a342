package buildcfg

import "encoding/json"

// configJSON is the wire form of Config. The toolchain handle, the store
// and the directive writer are runtime-only and never serialized.
type configJSON struct {
	ModuleName     string    `json:"module_name"`
	LibName        string    `json:"lib_name"`
	ModuleVersion  string    `json:"module_version,omitempty"`
	Dependencies   []*Config `json:"dependencies,omitempty"`
	PrivateFlags   []string  `json:"private_flags,omitempty"`
	PublicFlags    []string  `json:"public_flags,omitempty"`
	PrivateDefines []Define  `json:"private_defines,omitempty"`
	PublicDefines  []Define  `json:"public_defines,omitempty"`
	LinkTargets    []string  `json:"link_targets,omitempty"`
	IncludeDirs    []string  `json:"include_dirs,omitempty"`
	SharedLib      bool      `json:"shared_lib"`
	LinkSearchPath string    `json:"link_search_path,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c *Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(&configJSON{
		ModuleName:     c.moduleName,
		LibName:        c.libName,
		ModuleVersion:  c.moduleVersion,
		Dependencies:   c.deps,
		PrivateFlags:   c.privateFlags,
		PublicFlags:    c.publicFlags,
		PrivateDefines: c.privateDefines,
		PublicDefines:  c.publicDefines,
		LinkTargets:    c.linkTargets,
		IncludeDirs:    c.includeDirs,
		SharedLib:      c.shared,
		LinkSearchPath: c.linkSearchPath,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The decoded configuration is
// a snapshot: it carries no toolchain, store or writer and is only read.
func (c *Config) UnmarshalJSON(data []byte) error {
	var wire configJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	c.moduleName = wire.ModuleName
	c.libName = wire.LibName
	c.moduleVersion = wire.ModuleVersion
	c.deps = wire.Dependencies
	c.privateFlags = wire.PrivateFlags
	c.publicFlags = wire.PublicFlags
	c.privateDefines = wire.PrivateDefines
	c.publicDefines = wire.PublicDefines
	c.linkTargets = wire.LinkTargets
	c.includeDirs = wire.IncludeDirs
	c.shared = wire.SharedLib
	c.linkSearchPath = wire.LinkSearchPath
	return nil
}
