// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads NCBI credentials kept out of config files. An
// operator drops one file per credential into a directory (.secrets by
// default): ncbi-api-key lifts the E-utilities limit from 3 to 10 requests
// per second, ncbi-email is sent with every request so NCBI can reach the
// caller.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultDir is where the CLI looks for credential files.
const DefaultDir = ".secrets"

// Credential file names.
const (
	NCBIAPIKey = "ncbi-api-key"
	NCBIEmail  = "ncbi-email"
)

// Set maps credential file names to their trimmed contents.
type Set map[string]string

// Or returns explicit when it is set and the stored credential otherwise.
// Flags and config settings therefore override credential files.
func (s Set) Or(name, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return s[name]
}

// Names lists the loaded credential names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load reads the credential files in dir, warning on stderr about files it
// cannot read.
func Load(dir string) (Set, error) {
	return LoadWithWarnings(dir, os.Stderr)
}

// LoadWithWarnings reads the credential files in dir. A missing directory
// yields an empty Set. Subdirectories, dotfiles and blank files are skipped;
// an unreadable file is reported to warn and skipped.
func LoadWithWarnings(dir string, warn io.Writer) (Set, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials directory %s: %w", dir, err)
	}

	set := Set{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(warn, "warning: skipping credential %s: %v\n", name, err)
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			set[name] = v
		}
	}
	return set, nil
}
