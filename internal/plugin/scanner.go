package plugin

import (
	"os"
	"path/filepath"
	"strings"
)

// Entry and requirement file names inside directory units.
const (
	PackageEntry     = "init.lua"
	DirectoryEntry   = "main.lua"
	RequirementsName = "requirements.txt"
)

// Scan lists the plugin units under root in discovery order.
//
// The first pass yields single-file modules and package directories, the
// second yields directories that have main.lua but no init.lua. Each pass
// is sorted by name. Entries starting with "." or "_" are skipped.
func Scan(root string) ([]Unit, error) {
	units, _, err := scan(root)
	return units, err
}

// scan is Scan that also returns the names of the skipped "." and "_"
// entries, in directory order.
func scan(root string) (units []Unit, ignored []string, err error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, err
	}

	var bare []Unit
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			ignored = append(ignored, name)
			continue
		}
		path := filepath.Join(root, name)

		// Stat follows symlinks; DirEntry.Type does not.
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		if !info.IsDir() {
			stem, ok := strings.CutSuffix(name, ".lua")
			if ok && stem != "" && info.Mode().IsRegular() {
				units = append(units, Unit{
					Name:  stem,
					Kind:  KindModule,
					Dir:   root,
					Entry: path,
				})
			}
			continue
		}

		unit := Unit{
			Name:             name,
			Dir:              path,
			RequirementsFile: filepath.Join(path, RequirementsName),
		}
		switch {
		case isFile(filepath.Join(path, PackageEntry)):
			unit.Kind = KindPackage
			unit.Entry = filepath.Join(path, PackageEntry)
			units = append(units, unit)
		case isFile(filepath.Join(path, DirectoryEntry)):
			unit.Kind = KindDirectory
			unit.Entry = filepath.Join(path, DirectoryEntry)
			bare = append(bare, unit)
		}
	}
	return append(units, bare...), ignored, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
