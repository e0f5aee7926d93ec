package typemap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"godotdts/internal/errors"
	"godotdts/internal/metadata"
)

func newTestMapper(t *testing.T, opts Options) *Mapper {
	t.Helper()
	snap, err := metadata.Load(context.Background(), metadata.LoadOptions{
		APIPath: "../metadata/testdata/extension_api.json",
	})
	require.NoError(t, err)
	return New(metadata.NewIndex(snap, Excluded), opts)
}

func TestMap(t *testing.T) {
	mapper := newTestMapper(t, Options{})

	tests := []struct {
		name    string
		input   string
		pos     Position
		want    string
		imports []string
	}{
		{name: "bool", input: "bool", want: "boolean", imports: []string{}},
		{name: "int", input: "int", want: "int", imports: []string{"int"}},
		{name: "float", input: "float", want: "float", imports: []string{"float"}},
		{name: "string", input: "String", want: "string", imports: []string{}},
		{name: "variant", input: "Variant", want: "Variant", imports: []string{"Variant"}},
		{name: "untyped array", input: "Array", want: "Variant[]", imports: []string{"Variant"}},
		{name: "packed strings", input: "PackedStringArray", want: "string[]", imports: []string{}},
		{name: "packed bytes", input: "PackedByteArray", want: "int[]", imports: []string{"int"}},
		{name: "packed vectors", input: "PackedVector2Array", want: "Vector2[]", imports: []string{"Vector2"}},
		{name: "packed colors", input: "PackedColorArray", want: "Color[]", imports: []string{"Color"}},
		{name: "sized integer", input: "uint32_t", want: "int", imports: []string{"int"}},
		{name: "real", input: "real_t", want: "float", imports: []string{"float"}},
		{name: "class", input: "Node", want: "Node", imports: []string{"Node"}},
		{name: "builtin class", input: "StringName", want: "StringName", imports: []string{"StringName"}},
		{name: "typed array", input: "typedarray::Node", want: "Node[]", imports: []string{"Node"}},
		{name: "typed array with hint", input: "typedarray::24/17:Node", want: "Node[]", imports: []string{"Node"}},
		{
			name:    "typed dictionary",
			input:   "typeddictionary::StringName;Node",
			want:    "Dictionary<StringName, Node>",
			imports: []string{"Dictionary", "Node", "StringName"},
		},
		{name: "class enum", input: "enum::Node.ProcessMode", want: "Node.ProcessMode", imports: []string{"Node"}},
		{name: "builtin enum", input: "enum::Vector2.Axis", want: "Vector2.Axis", imports: []string{"Vector2"}},
		{name: "global enum", input: "enum::Error", want: "Error", imports: []string{"Error"}},
		{name: "global bitfield", input: "bitfield::KeyModifierMask", want: "KeyModifierMask", imports: []string{"KeyModifierMask"}},
		{name: "variant enum", input: "enum::Variant.Type", want: "Variant.Type", imports: []string{"Variant"}},
		{name: "pointer", input: "const void*", want: "NativePointer", imports: []string{"NativePointer"}},
		{name: "double pointer", input: "const uint8_t **", want: "NativePointer", imports: []string{"NativePointer"}},
		{name: "hint with exclusion", input: "ShaderMaterial,-Material", pos: Property, want: "ShaderMaterial", imports: []string{"ShaderMaterial"}},
		{name: "hint union", input: "Node,ShaderMaterial", pos: Property, want: "Node | ShaderMaterial", imports: []string{"Node", "ShaderMaterial"}},
		{name: "void return", input: "", pos: Return, want: "void", imports: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := mapper.Map(tt.input, tt.pos)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref.String())
			assert.Equal(t, tt.imports, ref.Imports())
		})
	}
}

func TestMapNullableObjects(t *testing.T) {
	mapper := newTestMapper(t, Options{NullableObjects: true})

	tests := []struct {
		input string
		pos   Position
		want  string
	}{
		{input: "Node", pos: Return, want: "Node | null"},
		{input: "Node", pos: Param, want: "Node"},
		{input: "Node", pos: Property, want: "Node"},
		{input: "Vector2", pos: Return, want: "Vector2"},
		{input: "typedarray::Node", pos: Return, want: "Node[]"},
		{input: "Node,Resource", pos: Return, want: "Node | Resource | null"},
		{input: "int", pos: Return, want: "int"},
	}

	for _, tt := range tests {
		t.Run(tt.input+"/"+tt.pos.String(), func(t *testing.T) {
			ref, err := mapper.Map(tt.input, tt.pos)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref.String())
		})
	}
}

func TestMapErrors(t *testing.T) {
	mapper := newTestMapper(t, Options{})

	tests := []struct {
		name     string
		input    string
		pos      Position
		sentinel error
	}{
		{name: "unknown class", input: "Missing", sentinel: errors.ErrMetadata},
		{name: "unknown enum", input: "enum::Node.Missing", sentinel: errors.ErrMetadata},
		{name: "unknown array element", input: "typedarray::Missing", sentinel: errors.ErrMetadata},
		{name: "malformed name", input: "weird type", sentinel: errors.ErrMapping},
		{name: "dictionary without value", input: "typeddictionary::int", sentinel: errors.ErrMapping},
		{name: "empty parameter", input: "", pos: Param, sentinel: errors.ErrMapping},
		{name: "only exclusions", input: "-Material,-Resource", pos: Property, sentinel: errors.ErrMapping},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mapper.Map(tt.input, tt.pos)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}

func TestMapOverrides(t *testing.T) {
	mapper := newTestMapper(t, Options{Overrides: map[string]string{
		"Vector2": "[x: number, y: number]",
		"Missing": "unknown",
	}})

	ref, err := mapper.Map("Vector2", Param)
	require.NoError(t, err)
	assert.Equal(t, "[x: number, y: number]", ref.String())
	assert.Empty(t, ref.Imports())

	ref, err = mapper.Map("typedarray::Missing", Return)
	require.NoError(t, err)
	assert.Equal(t, "unknown[]", ref.String())
}

func TestExcluded(t *testing.T) {
	for _, name := range []string{"int", "float", "bool", "String", "Array", "PackedStringArray", "Nil"} {
		assert.True(t, Excluded(name), name)
	}
	for _, name := range []string{"Node", "Vector2", "StringName", "Dictionary", "Signal"} {
		assert.False(t, Excluded(name), name)
	}
}

func TestTypeRefString(t *testing.T) {
	union := UnionOf(Named("A"), Named("B"))
	assert.Equal(t, "(A | B)[]", ArrayOf(union).String())

	nullable := Named("Node")
	nullable.Nullable = true
	assert.Equal(t, "(Node | null)[]", ArrayOf(nullable).String())

	assert.Equal(t, "Dictionary<int, Variant[]>", Generic("Dictionary", Named("int"), ArrayOf(Named("Variant"))).String())
	assert.Equal(t, "A", UnionOf(Named("A")).String())
	assert.True(t, Void.IsVoid())
	assert.Equal(t, "<K = Variant, V = Variant>", GenericParams("Dictionary"))
	assert.Empty(t, GenericParams("Node"))
}
