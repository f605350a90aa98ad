// Package artifacts holds the naming contract for every file that belongs to a session
// workspace. All path construction for specs, derived compiler outputs, bundles and logs
// goes through Store so that builders, the orchestrator and download handlers agree.
package artifacts

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind identifies one class of workspace file.
type Kind string

const (
	KindRegion     Kind = "region"
	KindSpec       Kind = "spec"
	KindAut        Kind = "aut"
	KindLTL        Kind = "ltl"
	KindSMV        Kind = "smv"
	KindDecomposed Kind = "decomposed"
	KindBundle     Kind = "bundle"
	KindCompileLog Kind = "compile-log"
)

var suffixes = map[Kind]string{
	KindSpec:       ".spec",
	KindAut:        ".aut",
	KindLTL:        ".ltl",
	KindSMV:        ".smv",
	KindDecomposed: "_decomposed.regions",
	KindBundle:     ".zip",
	KindCompileLog: ".log.sz",
}

// DerivedKinds returns the kinds the compiler produces next to the spec file, in bundle order.
func DerivedKinds() []Kind {
	return []Kind{KindAut, KindLTL, KindSMV, KindDecomposed}
}

// Store resolves workspace paths below Root. It holds no mutable state.
type Store struct {
	Root string
}

// New returns a Store rooted at root.
func New(root string) Store {
	return Store{Root: root}
}

// WorkspaceDir returns the directory owned by session id.
func (s Store) WorkspaceDir(id string) string {
	return filepath.Join(s.Root, id)
}

// FileName returns the canonical base name of kind for session id. The region kind has
// no canonical name; it keeps the sanitised uploaded name, see RegionPath.
func (s Store) FileName(id string, kind Kind) (string, error) {
	suffix, ok := suffixes[kind]
	if !ok {
		return "", fmt.Errorf("artifact kind %q has no canonical name", kind)
	}
	return id + suffix, nil
}

// Path returns the canonical path of kind for session id.
func (s Store) Path(id string, kind Kind) (string, error) {
	name, err := s.FileName(id, kind)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.WorkspaceDir(id), name), nil
}

// MustPath is like Path but panics for the region kind or an unknown kind.
func (s Store) MustPath(id string, kind Kind) string {
	p, err := s.Path(id, kind)
	if err != nil {
		panic(err)
	}
	return p
}

// RegionPath returns where an uploaded region file named uploadedName is staged for
// session id. The name is sanitised first; an empty result or a name reserved for one of
// the session's canonical files is an error.
func (s Store) RegionPath(id, uploadedName string) (string, error) {
	name := SanitizeFilename(uploadedName)
	if name == "" {
		return "", fmt.Errorf("invalid file name: %q", uploadedName)
	}
	for kind := range suffixes {
		if canonical, _ := s.FileName(id, kind); strings.EqualFold(name, canonical) {
			return "", fmt.Errorf("file name %q is reserved for the session %s file", name, kind)
		}
	}
	return filepath.Join(s.WorkspaceDir(id), name), nil
}

// EntryName is the name a workspace file carries inside the bundle archive.
func EntryName(path string) string {
	return filepath.Base(path)
}

// DerivedFromSpec substitutes the spec file's extension to name a derived artifact the
// compiler writes next to specPath.
func DerivedFromSpec(specPath string, kind Kind) (string, error) {
	suffix, ok := suffixes[kind]
	if !ok || kind == KindSpec {
		return "", fmt.Errorf("artifact kind %q is not derived from a spec", kind)
	}
	return strings.TrimSuffix(specPath, filepath.Ext(specPath)) + suffix, nil
}
