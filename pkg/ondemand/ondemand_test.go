package ondemand_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnCIity/importlyrical/pkg/jsast"
	"github.com/AnCIity/importlyrical/pkg/ondemand"
	"github.com/AnCIity/importlyrical/pkg/resolve"
)

const libX = "lib-x"

type staticResolver map[string]string

func (s staticResolver) Resolve(_ context.Context, lib, _ string) (string, error) {
	if entry, ok := s[lib]; ok {
		return entry, nil
	}

	return "", resolve.ErrNotFound
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
	styles   int
}

func (r *outcomeRecorder) RecordTransform(_ context.Context, outcome string, _ time.Duration, _, styles int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outcomes = append(r.outcomes, outcome)
	r.styles += styles
}

func stylesDir(name, lib string) string {
	return lib + "/styles/" + name + ".css"
}

func boolPtr(v bool) *bool { return &v }

func library(name string, demand, dash bool, verify *bool) ondemand.Library {
	return ondemand.Library{
		Name:                  name,
		Style:                 ondemand.Style{Transform: stylesDir, UseWhetherExists: verify},
		DemandImportComponent: demand,
		ComponentNameDashCase: dash,
	}
}

func newPlugin(t *testing.T, libs []ondemand.Library, opts ...ondemand.Option) *ondemand.Plugin {
	t.Helper()

	base := []ondemand.Option{ondemand.WithResolver(staticResolver{})}

	p, err := ondemand.New(ondemand.Config{Libraries: libs}, append(base, opts...)...)
	require.NoError(t, err)

	return p
}

func TestTransform_ServeScenario(t *testing.T) {
	t.Parallel()

	p := newPlugin(t, []ondemand.Library{library(libX, false, false, boolPtr(false))})

	code := "import { Button, Select } from 'lib-x'"

	res, err := p.Transform(context.Background(), code, "/src/App.jsx", ondemand.Env{Command: ondemand.CommandServe})
	require.NoError(t, err)

	assert.Equal(t, "import 'lib-x/styles/Button.css';import 'lib-x/styles/Select.css';import { Button, Select } from 'lib-x'", res.Code)
	assert.True(t, res.Changed)
	assert.Nil(t, res.Map)
}

func TestTransform_BuildRewritesComponentImports(t *testing.T) {
	t.Parallel()

	p := newPlugin(t, []ondemand.Library{library(libX, true, false, boolPtr(false))})

	code := "import React from 'react'\nimport { Button } from 'lib-x'\nexport default () => <Button />\n"

	res, err := p.Transform(context.Background(), code, "/src/App.jsx", ondemand.Env{Command: ondemand.CommandBuild})
	require.NoError(t, err)

	assert.Equal(t,
		"import 'lib-x/styles/Button.css';import Button from 'lib-x/es/Button';import React from 'react'\nexport default () => <Button />\n",
		res.Code)
	assert.Equal(t, 1, strings.Count(res.Code, "from 'lib-x/es/"))
	assert.Equal(t, 1, strings.Count(res.Code, "import 'lib-x/styles/"))
	assert.NotContains(t, res.Code, "from 'lib-x'")
}

func TestTransform_BuildKeepsStylesForRemovedImports(t *testing.T) {
	t.Parallel()

	p := newPlugin(t, []ondemand.Library{library(libX, true, true, boolPtr(false))})

	code := "import { MyButton, Select as S } from 'lib-x';\nimport { Modal } from 'lib-x';\n"

	res, err := p.Transform(context.Background(), code, "a.js", ondemand.Env{Command: ondemand.CommandBuild})
	require.NoError(t, err)

	assert.Equal(t,
		"import 'lib-x/styles/my-button.css';import 'lib-x/styles/select.css';import 'lib-x/styles/modal.css';"+
			"import MyButton from 'lib-x/es/my-button';import S from 'lib-x/es/select';import Modal from 'lib-x/es/modal';",
		res.Code)
}

func TestTransform_NoDemandKeepsOriginalImport(t *testing.T) {
	t.Parallel()

	p := newPlugin(t, []ondemand.Library{library(libX, false, false, boolPtr(false))})
	code := "import { Button } from 'lib-x'\n"

	for _, cmd := range []ondemand.Command{ondemand.CommandBuild, ondemand.CommandServe} {
		res, err := p.Transform(context.Background(), code, "a.js", ondemand.Env{Command: cmd})
		require.NoError(t, err)

		assert.Equal(t, "import 'lib-x/styles/Button.css';"+code, res.Code, "command %s", cmd)
		assert.NotContains(t, res.Code, "lib-x/es/")
	}
}

func TestTransform_ServeNeverRewritesComponents(t *testing.T) {
	t.Parallel()

	p := newPlugin(t, []ondemand.Library{library(libX, true, false, boolPtr(false))})
	code := "import { Button } from 'lib-x'\n"

	res, err := p.Transform(context.Background(), code, "a.js", ondemand.Env{Command: ondemand.CommandServe})
	require.NoError(t, err)

	assert.Equal(t, "import 'lib-x/styles/Button.css';"+code, res.Code)
}

func TestTransform_VerifiesStyleExistence(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/proj")
	files := resolve.FSFileChecker{
		FS:   fstest.MapFS{"node_modules/lib-x/styles/Button.css": &fstest.MapFile{}},
		Root: root,
	}
	resolver := staticResolver{libX: filepath.Join(root, "node_modules", "lib-x", "es", "index.js")}

	for _, demand := range []bool{false, true} {
		p := newPlugin(t, []ondemand.Library{library(libX, demand, false, nil)},
			ondemand.WithResolver(resolver), ondemand.WithFileChecker(files))

		res, err := p.Transform(context.Background(), "import { Button, Select } from 'lib-x'", "/proj/src/a.js",
			ondemand.Env{Command: ondemand.CommandBuild})
		require.NoError(t, err)

		assert.Contains(t, res.Code, "import 'lib-x/styles/Button.css';")
		assert.NotContains(t, res.Code, "Select.css", "demand=%v", demand)
	}
}

func TestTransform_SkipsEmptyStylePaths(t *testing.T) {
	t.Parallel()

	lib := library(libX, true, false, boolPtr(false))
	lib.Style.Transform = func(name, libName string) string {
		if name == "Select" {
			return ""
		}

		return stylesDir(name, libName)
	}

	rec := &outcomeRecorder{}
	p := newPlugin(t, []ondemand.Library{lib}, ondemand.WithRecorder(rec))

	res, err := p.Transform(context.Background(), "import { Button, Select } from 'lib-x'", "a.js",
		ondemand.Env{Command: ondemand.CommandBuild})
	require.NoError(t, err)

	assert.NotContains(t, res.Code, "import '';")
	assert.Equal(t,
		"import 'lib-x/styles/Button.css';import Button from 'lib-x/es/Button';import Select from 'lib-x/es/Select';",
		res.Code)
	assert.Equal(t, 1, rec.styles)
}

func TestTransform_ResolutionFailurePropagates(t *testing.T) {
	t.Parallel()

	p := newPlugin(t, []ondemand.Library{library(libX, false, false, nil)})

	_, err := p.Transform(context.Background(), "import { Button } from 'lib-x'", "a.js", ondemand.Env{Command: ondemand.CommandServe})

	require.Error(t, err)
	assert.ErrorIs(t, err, resolve.ErrNotFound)
}

func TestTransform_ParseFailurePropagates(t *testing.T) {
	t.Parallel()

	rec := &outcomeRecorder{}
	p := newPlugin(t, []ondemand.Library{library(libX, false, false, boolPtr(false))}, ondemand.WithRecorder(rec))

	_, err := p.Transform(context.Background(), "import { Button from 'lib-x'\nconst = ;", "a.js", ondemand.Env{})

	require.Error(t, err)
	assert.ErrorIs(t, err, jsast.ErrSyntax)
	assert.Equal(t, []string{ondemand.OutcomeError}, rec.outcomes)
}

func TestTransform_PassThrough(t *testing.T) {
	t.Parallel()

	rec := &outcomeRecorder{}
	p := newPlugin(t, []ondemand.Library{library(libX, true, false, boolPtr(false))}, ondemand.WithRecorder(rec))
	env := ondemand.Env{
		Command:   ondemand.CommandBuild,
		Sourcemap: true,
		CombinedSourcemap: func() (*ondemand.SourceMap, error) {
			return &ondemand.SourceMap{Version: 3}, nil
		},
	}

	tests := []struct {
		name string
		code string
		id   string
	}{
		{"no library mention", "import { Button } from 'other'\n", "/src/a.js"},
		{"unquoted mention", "// lib-x is great\nconst a = 1\n", "/src/a.js"},
		{"dependency directory", "import { Button } from 'lib-x'\n", "/proj/node_modules/dep/index.js"},
		{"not javascript", ".a { content: 'lib-x' }", "/src/a.css"},
	}

	for _, tt := range tests {
		res, err := p.Transform(context.Background(), tt.code, tt.id, env)
		require.NoError(t, err, tt.name)

		assert.Equal(t, tt.code, res.Code, tt.name)
		assert.False(t, res.Changed, tt.name)
		assert.Nil(t, res.Map, tt.name)
	}

	assert.Equal(t, []string{
		ondemand.OutcomeSkipped, ondemand.OutcomeSkipped, ondemand.OutcomeSkipped, ondemand.OutcomeSkipped,
	}, rec.outcomes)
}

func TestTransform_PrefilterFalsePositiveIsUnchanged(t *testing.T) {
	t.Parallel()

	rec := &outcomeRecorder{}
	p := newPlugin(t, []ondemand.Library{library(libX, true, false, boolPtr(false))}, ondemand.WithRecorder(rec))
	code := "const name = 'lib-x'\n"

	res, err := p.Transform(context.Background(), code, "a.js", ondemand.Env{Command: ondemand.CommandBuild})
	require.NoError(t, err)

	assert.Equal(t, code, res.Code)
	assert.Equal(t, []string{ondemand.OutcomeUnchanged}, rec.outcomes)
}

func TestTransform_Sourcemap(t *testing.T) {
	t.Parallel()

	p := newPlugin(t, []ondemand.Library{library(libX, false, false, boolPtr(false))})
	combined := &ondemand.SourceMap{Version: 3, Sources: []string{"a.js"}, Mappings: "AAAA"}
	accessor := func() (*ondemand.SourceMap, error) { return combined, nil }
	code := "import { Button } from \"lib-x\""

	res, err := p.Transform(context.Background(), code, "a.js", ondemand.Env{Sourcemap: true, CombinedSourcemap: accessor})
	require.NoError(t, err)
	assert.Same(t, combined, res.Map)

	res, err = p.Transform(context.Background(), code, "a.js", ondemand.Env{Sourcemap: false, CombinedSourcemap: accessor})
	require.NoError(t, err)
	assert.Nil(t, res.Map)
}

func TestTransform_Exclude(t *testing.T) {
	t.Parallel()

	p, err := ondemand.New(ondemand.Config{
		Libraries: []ondemand.Library{library(libX, false, false, boolPtr(false))},
		Exclude:   []string{"**/*.stories.jsx"},
	}, ondemand.WithResolver(staticResolver{}))
	require.NoError(t, err)

	code := "import { Button } from 'lib-x'"

	res, err := p.Transform(context.Background(), code, "/src/Button.stories.jsx", ondemand.Env{})
	require.NoError(t, err)
	assert.Equal(t, code, res.Code)

	res, err = p.Transform(context.Background(), code, "/src/Button.jsx", ondemand.Env{})
	require.NoError(t, err)
	assert.NotEqual(t, code, res.Code)
}

func TestTransform_LibrariesInConfigOrder(t *testing.T) {
	t.Parallel()

	p := newPlugin(t, []ondemand.Library{
		library("lib-a", false, false, boolPtr(false)),
		library("lib-b", false, false, boolPtr(false)),
	})

	code := "import { B } from 'lib-b'\nimport { A } from 'lib-a'\n"

	res, err := p.Transform(context.Background(), code, "a.js", ondemand.Env{Command: ondemand.CommandServe})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Code, "import 'lib-a/styles/A.css';import 'lib-b/styles/B.css';"))
}

func TestNew_ValidatesConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  ondemand.Config
		want error
	}{
		{"empty name", ondemand.Config{Libraries: []ondemand.Library{library("", false, false, nil)}}, ondemand.ErrEmptyLibraryName},
		{"duplicate", ondemand.Config{Libraries: []ondemand.Library{
			library(libX, false, false, nil), library(libX, true, false, nil),
		}}, ondemand.ErrDuplicateLibrary},
		{"no transform", ondemand.Config{Libraries: []ondemand.Library{{Name: libX}}}, ondemand.ErrMissingStyleTransform},
		{"bad glob", ondemand.Config{Exclude: []string{"[unclosed"}}, ondemand.ErrInvalidExclude},
	}

	for _, tt := range tests {
		_, err := ondemand.New(tt.cfg, ondemand.WithResolver(staticResolver{}))
		assert.ErrorIs(t, err, tt.want, tt.name)
	}
}

func TestNew_DefaultsDirectory(t *testing.T) {
	t.Parallel()

	p := newPlugin(t, []ondemand.Library{library(libX, true, false, nil)})

	assert.Equal(t, ondemand.DefaultDirectory, p.Config().Libraries[0].Directory)
	assert.True(t, p.Config().Libraries[0].Style.VerifyExistence())
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	cmd, err := ondemand.ParseCommand("build")
	require.NoError(t, err)
	assert.Equal(t, ondemand.CommandBuild, cmd)

	_, err = ondemand.ParseCommand("preview")
	assert.ErrorIs(t, err, ondemand.ErrUnknownCommand)
}
