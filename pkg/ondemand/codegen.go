package ondemand

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/AnCIity/importlyrical/pkg/resolve"
)

// DashCase converts "MyButton" and "myButton" to "my-button". Every capital
// letter gets a hyphen in front and is lowercased; a leading hyphen is
// dropped. Already dashed lowercase names are returned unchanged.
func DashCase(name string) string {
	var sb strings.Builder

	sb.Grow(len(name) + len(name)/2)

	for _, r := range name {
		if unicode.IsUpper(r) {
			sb.WriteByte('-')
			sb.WriteRune(unicode.ToLower(r))

			continue
		}

		sb.WriteRune(r)
	}

	return strings.TrimPrefix(sb.String(), "-")
}

// ComponentImport renders the per-component import of rec.
func ComponentImport(rec Record) string {
	dir := rec.Config.Directory
	if dir == "" {
		dir = DefaultDirectory
	}

	return fmt.Sprintf("import %s from '%s/%s/%s';", rec.Local, rec.Library, dir, rec.Config.ComponentPath(rec.Name))
}

// ComponentImports renders one component import per record.
func ComponentImports(dict LibDict) string {
	var sb strings.Builder

	for _, lib := range dict.Libraries() {
		for _, rec := range dict.Records(lib) {
			sb.WriteString(ComponentImport(rec))
		}
	}

	return sb.String()
}

// StyleImport renders a side-effect import of path.
func StyleImport(path string) string {
	return fmt.Sprintf("import '%s';", path)
}

// StylePath returns the stylesheet path for rec.
func StylePath(rec Record) string {
	return rec.Config.Style.Transform(rec.Config.ComponentPath(rec.Name), rec.Library)
}

// styleImports renders the stylesheet imports for every record of dict.
// When a library verifies existence, its package entry is resolved from
// importer and stylesheets missing on disk are skipped. Empty style paths
// are skipped. Resolution failures are returned.
func (p *Plugin) styleImports(ctx context.Context, dict LibDict, importer string) (string, int, error) {
	var sb strings.Builder

	count := 0
	packagesDirs := make(map[string]string)

	for _, lib := range dict.Libraries() {
		for _, rec := range dict.Records(lib) {
			stylePath := StylePath(rec)
			if stylePath == "" {
				p.logger.DebugContext(ctx, "empty style path, skipping", "library", lib, "component", rec.Name)

				continue
			}

			if rec.Config.Style.VerifyExistence() {
				dir, ok := packagesDirs[lib]
				if !ok {
					var err error

					dir, err = p.packagesDir(ctx, lib, importer)
					if err != nil {
						return "", 0, err
					}

					packagesDirs[lib] = dir
				}

				realPath := filepath.Join(dir, filepath.FromSlash(stylePath))
				if !p.files.Exists(realPath) {
					p.logger.DebugContext(ctx, "style file missing, skipping", "library", lib, "component", rec.Name, "path", realPath)

					continue
				}
			}

			sb.WriteString(StyleImport(stylePath))

			count++
		}
	}

	return sb.String(), count, nil
}

func (p *Plugin) packagesDir(ctx context.Context, lib, importer string) (string, error) {
	entry, err := p.resolver.Resolve(ctx, lib, importer)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", lib, err)
	}

	dir, err := resolve.PackagesDir(entry, lib)
	if err != nil {
		return "", fmt.Errorf("locate %s: %w", lib, err)
	}

	return dir, nil
}
