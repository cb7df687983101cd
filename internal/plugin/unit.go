package plugin

// Kind is the on-disk shape of a plugin unit.
type Kind int

// Unit kinds.
const (
	// KindModule is a single file, <root>/<name>.lua.
	KindModule Kind = iota

	// KindPackage is a directory with an init.lua entry.
	KindPackage

	// KindDirectory is a directory without init.lua but with main.lua.
	KindDirectory
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindPackage:
		return "package"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Unit is one loadable plugin found on disk.
type Unit struct {
	// Name is the file stem or directory name.
	Name string

	// Kind is the unit shape.
	Kind Kind

	// Dir is searched by require when the unit loads its own files.
	Dir string

	// Entry is the Lua file run to load the unit.
	Entry string

	// RequirementsFile is the colocated requirements.txt, or empty for
	// single-file units.
	RequirementsFile string
}
