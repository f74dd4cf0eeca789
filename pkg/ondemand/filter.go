package ondemand

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/AnCIity/importlyrical/pkg/jsast"
)

// dependencyDir marks module ids inside installed packages.
const dependencyDir = "node_modules"

// compilePrefilter builds the quoted-name heuristic ('lib')|("lib") for all
// library names. It returns nil when there are no names.
func compilePrefilter(names []string) *regexp.Regexp {
	if len(names) == 0 {
		return nil
	}

	quoted := make([]string, len(names))
	for idx, name := range names {
		quoted[idx] = regexp.QuoteMeta(name)
	}

	alt := strings.Join(quoted, "|")

	return regexp.MustCompile(`('(?:` + alt + `)')|("(?:` + alt + `)")`)
}

// Mentions reports whether code contains any configured library name as a
// quoted string. It is a cheap gate in front of parsing and may report
// false positives.
func (p *Plugin) Mentions(code string) bool {
	return p.prefilter != nil && p.prefilter.MatchString(code)
}

// IsDependency reports whether id points into an installed dependency or
// matches one of the exclude globs.
func (p *Plugin) IsDependency(id string) bool {
	if strings.Contains(id, dependencyDir) {
		return true
	}

	path := filepath.ToSlash(jsast.StripQuery(id))
	relative := strings.TrimPrefix(path, "/")

	for _, pattern := range p.cfg.Exclude {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}

		if ok, _ := doublestar.Match(pattern, relative); ok {
			return true
		}
	}

	return false
}
