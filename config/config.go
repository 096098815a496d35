// Package config reads device configuration sections from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// DefaultPath is where the daemon looks for its configuration.
const DefaultPath = "/etc/wifiap/wifiap.toml"

// Provider returns configuration sections by name.
type Provider interface {
	// Section decodes the named section into v. Fields missing from the
	// section keep the value they had in v.
	Section(name string, v any) error
}

// File is a Provider backed by a TOML document where every top-level table
// is a section.
type File struct {
	meta     toml.MetaData
	sections map[string]toml.Primitive
}

// Load parses a TOML document.
func Load(r io.Reader) (*File, error) {
	f := &File{}
	meta, err := toml.NewDecoder(r).Decode(&f.sections)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	f.meta = meta
	return f, nil
}

// LoadFile parses the TOML document at path. A missing file yields an empty
// configuration, so every section falls back to its defaults.
func LoadFile(path string) (*File, error) {
	r, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &File{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return Load(r)
}

// Section implements Provider.
func (f *File) Section(name string, v any) error {
	p, ok := f.sections[name]
	if !ok {
		return nil
	}
	if err := f.meta.PrimitiveDecode(p, v); err != nil {
		return fmt.Errorf("failed to decode section %s: %w", name, err)
	}
	return nil
}

// Sections returns the names of all sections present in the file.
func (f *File) Sections() []string {
	names := make([]string, 0, len(f.sections))
	for name := range f.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
