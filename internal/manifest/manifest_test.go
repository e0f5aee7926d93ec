package manifest

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"godotdts/internal/metadata"
)

func snapshot() *metadata.Snapshot {
	return &metadata.Snapshot{
		Version: metadata.EngineVersion{Major: 4, Minor: 3, Status: "stable", FullName: "Godot Engine v4.3.stable.official"},
		Classes: []metadata.ClassDescriptor{
			{Name: "Engine", Parent: "Object"},
			{Name: "Node", Parent: "Object"},
			{Name: "Object"},
			{Name: "Vector2", Kind: metadata.KindBuiltin},
			{Name: "int", Kind: metadata.KindBuiltin},
		},
		Singletons: []metadata.Singleton{{Name: "Engine", Type: "Engine"}},
	}
}

var files = []string{"Engine.d.ts", "GlobalScope.d.ts", "Node.d.ts", "Object.d.ts", "Vector2.d.ts", "index.d.ts"}

func TestBuild(t *testing.T) {
	src, err := Build("godottypes", snapshot(), "types/4.3", files)
	require.NoError(t, err)

	parsed, err := parser.ParseFile(token.NewFileSet(), "manifest.go", src, parser.ParseComments)
	require.NoError(t, err, string(src))
	assert.Equal(t, "godottypes", parsed.Name.Name)

	text := string(src)
	assert.Contains(t, text, "// Code generated by godotdts. DO NOT EDIT.")
	assert.Contains(t, text, `const EngineVersion = "Godot Engine v4.3.stable.official"`)
	assert.Contains(t, text, `const Dir = "types/4.3"`)
	assert.Contains(t, text, `"Vector2.d.ts"`)
	assert.Contains(t, text, `"GlobalScope.d.ts"`)
	assert.Contains(t, text, `"Engine": "Engine"`)
	assert.NotContains(t, text, `"int.d.ts"`)
}

func TestBuildIsDeterministic(t *testing.T) {
	first, err := Build("godottypes", snapshot(), "types/4.3", files)
	require.NoError(t, err)
	for range 3 {
		again, err := Build("godottypes", snapshot(), "types/4.3", files)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBuildRejectsPackageName(t *testing.T) {
	for _, pkg := range []string{"", "godot-types", "func", "1types"} {
		t.Run(pkg, func(t *testing.T) {
			_, err := Build(pkg, snapshot(), "types/4.3", files)
			assert.Error(t, err)
		})
	}
}

func TestWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := filepath.Join("gen", "godot-types", "manifest.go")

	written, err := Write(fs, Options{Path: path}, snapshot(), "types/4.3", files)
	require.NoError(t, err)
	assert.True(t, written)

	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "package godot_types")

	written, err = Write(fs, Options{Path: path}, snapshot(), "types/4.3", files)
	require.NoError(t, err)
	assert.False(t, written)

	written, err = Write(fs, Options{Path: path, Package: "types"}, snapshot(), "types/4.3", files)
	require.NoError(t, err)
	assert.True(t, written)
}
