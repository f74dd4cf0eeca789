// Package resolve locates installed packages and checks files on disk for the
// style-import generator.
package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a package is not installed under any
	// node_modules directory above the importer.
	ErrNotFound = errors.New("package not found")
	// ErrNoPackageRoot is returned when the packages directory of a resolved
	// entry cannot be determined.
	ErrNoPackageRoot = errors.New("package root not found")
)

const (
	nodeModules     = "node_modules"
	packageJSON     = "package.json"
	defaultEntry    = "index.js"
	defaultCacheLen = 512
)

// FileChecker reports whether a file exists.
type FileChecker interface {
	Exists(path string) bool
}

// OSFileChecker checks the host filesystem.
type OSFileChecker struct{}

// Exists reports whether path names an existing regular file or directory.
func (OSFileChecker) Exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// FSFileChecker checks an fs.FS. Absolute paths are made relative to Root.
type FSFileChecker struct {
	FS   fs.FS
	Root string
}

// Exists reports whether path exists in the wrapped filesystem.
func (c FSFileChecker) Exists(path string) bool {
	rel := filepath.ToSlash(path)

	if c.Root != "" {
		trimmed, err := filepath.Rel(c.Root, path)
		if err != nil {
			return false
		}

		rel = filepath.ToSlash(trimmed)
	}

	rel = strings.TrimPrefix(rel, "/")

	_, err := fs.Stat(c.FS, rel)

	return err == nil
}

type manifest struct {
	Name   string `json:"name"`
	Module string `json:"module"`
	Main   string `json:"main"`
}

type cacheKey struct {
	dir string
	lib string
}

// NodeResolver resolves bare package names the way Node does for
// node_modules lookups: walk up from the importer's directory until
// node_modules/<lib>/package.json exists, then pick the entry file.
// Results are cached per (directory, library).
type NodeResolver struct {
	// Root is used as the starting directory when no importer is given.
	Root  string
	cache *lru.Cache
}

// NewNodeResolver creates a NodeResolver rooted at root.
func NewNodeResolver(root string) (*NodeResolver, error) {
	cache, err := lru.New(defaultCacheLen)
	if err != nil {
		return nil, fmt.Errorf("create resolver cache: %w", err)
	}

	return &NodeResolver{Root: root, cache: cache}, nil
}

// Resolve returns the absolute path of lib's entry file as seen from importer.
func (r *NodeResolver) Resolve(_ context.Context, lib, importer string) (string, error) {
	dir := r.Root
	if importer != "" {
		dir = filepath.Dir(importer)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", lib, err)
	}

	key := cacheKey{dir: abs, lib: lib}
	if cached, ok := r.cache.Get(key); ok {
		if entry, isString := cached.(string); isString {
			return entry, nil
		}
	}

	entry, err := lookup(abs, lib)
	if err != nil {
		return "", err
	}

	r.cache.Add(key, entry)

	return entry, nil
}

func lookup(startDir, lib string) (string, error) {
	for dir := startDir; ; dir = filepath.Dir(dir) {
		pkgDir := filepath.Join(dir, nodeModules, filepath.FromSlash(lib))

		m, err := readManifest(filepath.Join(pkgDir, packageJSON))
		if err == nil {
			return filepath.Join(pkgDir, entryFile(m)), nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("resolve %s: %w", lib, err)
		}

		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}

	return "", fmt.Errorf("%w: %s (from %s)", ErrNotFound, lib, startDir)
}

func entryFile(m manifest) string {
	switch {
	case m.Module != "":
		return filepath.FromSlash(m.Module)
	case m.Main != "":
		return filepath.FromSlash(m.Main)
	default:
		return defaultEntry
	}
}

func readManifest(path string) (manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return manifest{}, err
	}

	var m manifest

	err = json.Unmarshal(data, &m)
	if err != nil {
		return manifest{}, fmt.Errorf("parse %s: %w", path, err)
	}

	return m, nil
}

// PackagesDir returns the directory that contains lib's package directory,
// given the path of one of its files. Style paths such as
// "lib/es/button/style.css" are joined onto it.
//
// The entry path is cut at the last occurrence of lib. When lib does not
// appear in the path (symlinked or store-based layouts), the directory tree is
// walked upwards to the package.json declaring lib.
func PackagesDir(entry, lib string) (string, error) {
	slashed := filepath.ToSlash(entry)
	name := strings.Trim(lib, "/")

	if idx := strings.LastIndex(slashed, "/"+name+"/"); idx >= 0 {
		return filepath.FromSlash(slashed[:idx+1]), nil
	}

	for dir := filepath.Dir(entry); ; dir = filepath.Dir(dir) {
		m, err := readManifest(filepath.Join(dir, packageJSON))
		if err == nil && m.Name == name {
			up := dir
			for range strings.Count(name, "/") + 1 {
				up = filepath.Dir(up)
			}

			return up + string(filepath.Separator), nil
		}

		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}

	return "", fmt.Errorf("%w: %s in %s", ErrNoPackageRoot, lib, entry)
}
