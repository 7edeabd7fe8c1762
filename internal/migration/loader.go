package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// filenamePattern matches unit files in two version formats:
//
//	V{version}_{name}.{sql|yml|yaml}   (e.g., V001_add_comprobante.sql)
//	{timestamp}_{name}.{sql|yml|yaml}  (e.g., 20240101120000_limpiar_frecuencias.yml)
//
// A ".up" before the extension is accepted; ".down" files are ignored since
// units are never rolled back.
var filenamePattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once, used by LoadFromDir
	`^(?:V(\d+)|(\d{14}))_(.+)\.(sql|ya?ml)$`,
)

// LoadFromDir scans a directory for unit files and returns them unsorted.
// Files that do not match the naming pattern are skipped.
func LoadFromDir(dir string) ([]Unit, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	var units []Unit

	seen := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		version, name, ok := ParseFilename(entry.Name())
		if !ok {
			continue
		}

		key := strings.TrimLeft(version, "0")
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %s and %s", ErrDuplicateVersion, prev, entry.Name())
		}

		seen[key] = entry.Name()

		u, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		u.Version = version
		u.Name = name
		units = append(units, u)
	}

	return units, nil
}

// ParseFilename extracts the version and name from a unit filename.
func ParseFilename(filename string) (version, name string, ok bool) {
	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return "", "", false
	}

	version = m[1]
	if version == "" {
		version = m[2]
	}

	name = m[3]
	if strings.HasSuffix(name, ".down") {
		return "", "", false
	}

	return version, strings.TrimSuffix(name, ".up"), true
}

// LoadFile reads and decodes a single unit file. Version and Name are filled
// from the filename when it matches the naming pattern.
func LoadFile(path string) (Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Unit{}, fmt.Errorf("reading unit file %s: %w", path, err)
	}

	u := Unit{
		Checksum: ComputeChecksum(string(data)),
		FilePath: path,
	}
	u.Version, u.Name, _ = ParseFilename(filepath.Base(path))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		u.Description, u.Operations, err = ParseManifest(data)
	default:
		u.Operations, err = sqlOperations(string(data))
	}

	if err != nil {
		return Unit{}, fmt.Errorf("loading %s: %w", path, err)
	}

	if len(u.Operations) == 0 {
		return Unit{}, fmt.Errorf("%w: %s", ErrEmptyUnit, path)
	}

	return u, nil
}
