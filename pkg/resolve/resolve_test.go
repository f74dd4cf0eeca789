package resolve_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnCIity/importlyrical/pkg/resolve"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestNodeResolver_ResolvesFromImporterUpwards(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "node_modules", "@lyrical", "react", "package.json"),
		`{"name":"@lyrical/react","main":"lib/index.js","module":"es/index.js"}`)
	writeFile(t, filepath.Join(root, "node_modules", "plain", "package.json"), `{"name":"plain"}`)

	resolver, err := resolve.NewNodeResolver(root)
	require.NoError(t, err)

	importer := filepath.Join(root, "src", "pages", "App.jsx")

	entry, err := resolver.Resolve(context.Background(), "@lyrical/react", importer)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "node_modules", "@lyrical", "react", "es", "index.js"), entry)

	entry, err = resolver.Resolve(context.Background(), "plain", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "node_modules", "plain", "index.js"), entry)
}

func TestNodeResolver_NotFound(t *testing.T) {
	t.Parallel()

	resolver, err := resolve.NewNodeResolver(t.TempDir())
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), "missing-lib", "")
	assert.ErrorIs(t, err, resolve.ErrNotFound)
}

func TestNodeResolver_CachesResult(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	manifest := filepath.Join(root, "node_modules", "lib", "package.json")
	writeFile(t, manifest, `{"name":"lib","main":"main.js"}`)

	resolver, err := resolve.NewNodeResolver(root)
	require.NoError(t, err)

	first, err := resolver.Resolve(context.Background(), "lib", "")
	require.NoError(t, err)

	require.NoError(t, os.Remove(manifest))

	second, err := resolver.Resolve(context.Background(), "lib", "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPackagesDir_CutsAtLibraryName(t *testing.T) {
	t.Parallel()

	entry := filepath.FromSlash("/proj/node_modules/@lyrical/react/es/index.js")

	dir, err := resolve.PackagesDir(entry, "@lyrical/react")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/proj/node_modules/"), dir)
}

func TestPackagesDir_FallsBackToManifest(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	pkgDir := filepath.Join(root, "store", "scope-lib@1.0.0", "scope", "lib")
	writeFile(t, filepath.Join(pkgDir, "package.json"), `{"name":"@scope/lib"}`)

	dir, err := resolve.PackagesDir(filepath.Join(pkgDir, "dist", "index.js"), "@scope/lib")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "store", "scope-lib@1.0.0")+string(filepath.Separator), dir)
}

func TestPackagesDir_NoRoot(t *testing.T) {
	t.Parallel()

	_, err := resolve.PackagesDir(filepath.Join(t.TempDir(), "index.js"), "lib")
	assert.ErrorIs(t, err, resolve.ErrNoPackageRoot)
}

func TestFileCheckers(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.css"), "")

	assert.True(t, resolve.OSFileChecker{}.Exists(filepath.Join(root, "a.css")))
	assert.False(t, resolve.OSFileChecker{}.Exists(filepath.Join(root, "b.css")))

	mapFS := fstest.MapFS{"node_modules/lib/style.css": &fstest.MapFile{}}
	checker := resolve.FSFileChecker{FS: mapFS, Root: filepath.FromSlash("/proj")}

	assert.True(t, checker.Exists(filepath.FromSlash("/proj/node_modules/lib/style.css")))
	assert.False(t, checker.Exists(filepath.FromSlash("/proj/node_modules/lib/other.css")))
}
