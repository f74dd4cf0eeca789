package ondemand

import (
	"github.com/AnCIity/importlyrical/pkg/jsast"
)

// Record is one imported component of a configured library.
type Record struct {
	Library string `json:"library"`
	// Name is the imported symbol. Never empty.
	Name string `json:"name"`
	// Local is the binding name in the importing file.
	Local  string  `json:"local"`
	Config Library `json:"-"`
}

// LibDict maps library names to their matched records. Libraries are kept in
// configuration order, records in source order.
type LibDict struct {
	libs    []string
	records map[string][]Record
}

// Libraries returns the library names that have at least one record.
func (d LibDict) Libraries() []string {
	return d.libs
}

// Records returns the records of lib.
func (d LibDict) Records(lib string) []Record {
	return d.records[lib]
}

// Len returns the total number of records.
func (d LibDict) Len() int {
	total := 0
	for _, recs := range d.records {
		total += len(recs)
	}

	return total
}

// Empty reports whether no record matched.
func (d LibDict) Empty() bool {
	return len(d.libs) == 0
}

// All returns every record, libraries in configuration order.
func (d LibDict) All() []Record {
	out := make([]Record, 0, d.Len())
	for _, lib := range d.libs {
		out = append(out, d.records[lib]...)
	}

	return out
}


// Filter returns the libraries whose configuration satisfies keep.
func (d LibDict) Filter(keep func(Library) bool) LibDict {
	out := LibDict{records: make(map[string][]Record)}

	for _, lib := range d.libs {
		recs := d.records[lib]
		if len(recs) == 0 || !keep(recs[0].Config) {
			continue
		}

		out.libs = append(out.libs, lib)
		out.records[lib] = recs
	}

	return out
}

// Scan collects the named specifiers of top-level import declarations whose
// source is exactly one of the configured library names. Specifiers without
// an imported identifier, and type-only imports, are skipped.
func Scan(mod *jsast.Module, libs []Library) LibDict {
	byName := make(map[string]Library, len(libs))
	for _, lib := range libs {
		byName[lib.Name] = lib
	}

	records := make(map[string][]Record)

	for _, stmt := range mod.Imports() {
		lib, ok := byName[stmt.Source]
		if !ok || stmt.TypeOnly {
			continue
		}

		for _, spec := range stmt.Specifiers {
			if spec.Kind != jsast.SpecifierNamed || spec.TypeOnly || spec.Imported == "" {
				continue
			}

			records[lib.Name] = append(records[lib.Name], Record{
				Library: lib.Name,
				Name:    spec.Imported,
				Local:   spec.Local,
				Config:  lib,
			})
		}
	}

	dict := LibDict{records: records}

	for _, lib := range libs {
		if len(records[lib.Name]) > 0 {
			dict.libs = append(dict.libs, lib.Name)
		}
	}

	return dict
}

// RemoveImports regenerates the module without its top-level import
// declarations of the given libraries.
func RemoveImports(mod *jsast.Module, libs []string) string {
	strip := make(map[string]bool, len(libs))
	for _, lib := range libs {
		strip[lib] = true
	}

	return mod.Without(func(stmt jsast.Statement) bool {
		return stmt.Kind == jsast.KindImport && !stmt.TypeOnly && strip[stmt.Source]
	})
}
