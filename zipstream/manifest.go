package zipstream

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Entry is one file in the archive.
type Entry struct {
	// Name inside the archive, forward slashes
	Name string `yaml:"name"`
	// Path on local disk
	Path string `yaml:"path"`
	// Store without compression
	Store bool `yaml:"store"`
	// Modified overrides the file's mtime when set
	Modified time.Time `yaml:"modified"`
}

// Manifest describes an archive to build.
type Manifest struct {
	Comment string  `yaml:"comment"`
	Entries []Entry `yaml:"entries"`
}

// LoadManifest reads a YAML manifest from disk.
func LoadManifest(file string) (*Manifest, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("[zipstream] could not read manifest: %w", err)
	}

	return ParseManifest(data)
}

// ParseManifest decodes a YAML manifest and fills in default entry names.
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("[zipstream] invalid manifest: %w", err)
	}

	for i := range m.Entries {
		e := &m.Entries[i]
		if e.Path == "" {
			return nil, fmt.Errorf("[zipstream] manifest entry %d has no path", i)
		}
		if e.Name == "" {
			e.Name = filepath.Base(e.Path)
		}
		e.Name = cleanName(filepath.ToSlash(e.Name))
		if e.Name == "" {
			return nil, fmt.Errorf("[zipstream] manifest entry %d has an empty name", i)
		}
	}

	return m, nil
}

// EntriesFromPaths turns files and directories into archive entries. A
// directory contributes every regular file below it, named relative to the
// directory's parent so the directory itself shows up in the archive.
func EntriesFromPaths(paths ...string) ([]Entry, error) {
	entries := make([]Entry, 0, len(paths))

	for _, root := range paths {
		root = filepath.Clean(root)

		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			entries = append(entries, Entry{Name: filepath.Base(root), Path: root})
			continue
		}

		base := filepath.Dir(root)
		var found []Entry
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(base, p)
			if err != nil {
				return err
			}

			found = append(found, Entry{Name: filepath.ToSlash(rel), Path: p})
			return nil
		})
		if err != nil {
			return nil, err
		}

		sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
		entries = append(entries, found...)
	}

	return entries, nil
}

func cleanName(name string) string {
	name = path.Clean("/" + name)
	return name[1:]
}
