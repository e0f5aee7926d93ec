// Package typemap maps engine type strings to TypeScript type expressions.
//
// Resolution order: user overrides, pointers, structural forms
// (typedarray::, typeddictionary::, enum::, bitfield::, hint lists), the
// fixed table, then classes known to the metadata index. Nothing falls back
// to any: an unresolvable PascalCase name is a dangling metadata reference,
// anything else is a mapping error.
package typemap

import (
	"strings"
	"unicode"

	"godotdts/internal/errors"
	"godotdts/internal/metadata"
)

type Position int

const (
	Param Position = iota
	Return
	Property
	Constant
)

func (p Position) String() string {
	switch p {
	case Param:
		return "parameter"
	case Return:
		return "return"
	case Property:
		return "property"
	default:
		return "constant"
	}
}

// Prelude aliases declared in the barrel.
const (
	IntAlias     = "int"
	FloatAlias   = "float"
	VariantAlias = "Variant"
	PointerAlias = "NativePointer"
)

const (
	typedArrayPrefix      = "typedarray::"
	typedDictionaryPrefix = "typeddictionary::"
	enumPrefix            = "enum::"
	bitfieldPrefix        = "bitfield::"
)

var table = map[string]TypeRef{
	"bool":    Native("boolean"),
	"int":     Named(IntAlias),
	"float":   Named(FloatAlias),
	"String":  Native("string"),
	"Variant": Named(VariantAlias),
	"Array":   ArrayOf(Named(VariantAlias)),

	"PackedByteArray":    ArrayOf(Named(IntAlias)),
	"PackedInt32Array":   ArrayOf(Named(IntAlias)),
	"PackedInt64Array":   ArrayOf(Named(IntAlias)),
	"PackedFloat32Array": ArrayOf(Named(FloatAlias)),
	"PackedFloat64Array": ArrayOf(Named(FloatAlias)),
	"PackedStringArray":  ArrayOf(Native("string")),
	"PackedVector2Array": ArrayOf(Named("Vector2")),
	"PackedVector3Array": ArrayOf(Named("Vector3")),
	"PackedVector4Array": ArrayOf(Named("Vector4")),
	"PackedColorArray":   ArrayOf(Named("Color")),

	"int8_t":   Named(IntAlias),
	"int16_t":  Named(IntAlias),
	"int32_t":  Named(IntAlias),
	"int64_t":  Named(IntAlias),
	"uint8_t":  Named(IntAlias),
	"uint16_t": Named(IntAlias),
	"uint32_t": Named(IntAlias),
	"uint64_t": Named(IntAlias),
	"double":   Named(FloatAlias),
	"real_t":   Named(FloatAlias),
}

// generics lists the builtin classes declared with type parameters.
var generics = map[string]string{
	"Dictionary": "<K = Variant, V = Variant>",
	"Signal":     "<T extends Variant[] = Variant[]>",
}

// Excluded reports whether an engine class is expressed through the fixed
// table or the prelude and therefore gets no declaration file.
func Excluded(name string) bool {
	if name == "Nil" || name == VariantAlias {
		return true
	}
	_, ok := table[name]
	return ok
}

// GenericParams returns the type parameter list a builtin class is declared
// with, or "" when it is not generic.
func GenericParams(name string) string { return generics[name] }

type Options struct {
	// NullableObjects renders object class returns as "T | null".
	NullableObjects bool
	// Overrides maps engine type strings to TypeScript text. They take
	// precedence over every other rule.
	Overrides map[string]string
}

// Mapper is safe for concurrent use; it only reads its index and options.
type Mapper struct {
	index *metadata.Index
	opts  Options
}

func New(index *metadata.Index, opts Options) *Mapper {
	return &Mapper{index: index, opts: opts}
}

// Void is the return type of methods without a result.
var Void = Native("void")

// Map resolves an engine type string at the given position.
func (mapper *Mapper) Map(engineType string, pos Position) (TypeRef, error) {
	t := strings.TrimSpace(engineType)
	if t == "" {
		if pos == Return {
			return Void, nil
		}
		return TypeRef{}, errors.NewMappingError(engineType, pos.String())
	}

	return mapper.resolve(t, pos)
}

func (mapper *Mapper) resolve(t string, pos Position) (TypeRef, error) {
	if override, ok := mapper.opts.Overrides[t]; ok {
		return Native(override), nil
	}

	switch {
	case strings.HasSuffix(t, "*"):
		return Named(PointerAlias), nil

	case strings.HasPrefix(t, typedArrayPrefix):
		elem, err := mapper.resolve(stripHint(strings.TrimPrefix(t, typedArrayPrefix)), Param)
		if err != nil {
			return TypeRef{}, err
		}
		return ArrayOf(elem), nil

	case strings.HasPrefix(t, typedDictionaryPrefix):
		key, value, ok := strings.Cut(strings.TrimPrefix(t, typedDictionaryPrefix), ";")
		if !ok || key == "" || value == "" {
			return TypeRef{}, errors.NewMappingError(t, pos.String())
		}
		keyRef, err := mapper.resolve(stripHint(key), Param)
		if err != nil {
			return TypeRef{}, err
		}
		valueRef, err := mapper.resolve(stripHint(value), Param)
		if err != nil {
			return TypeRef{}, err
		}
		return Generic("Dictionary", keyRef, valueRef), nil

	case strings.HasPrefix(t, enumPrefix), strings.HasPrefix(t, bitfieldPrefix):
		_, name, _ := strings.Cut(t, "::")
		if _, ok := mapper.index.Enum(name); !ok {
			return TypeRef{}, errors.NewMetadataError("", name, "unknown enum")
		}
		return Named(name), nil

	case strings.Contains(t, ","):
		return mapper.resolveHintList(t, pos)
	}

	if ref, ok := table[t]; ok {
		return ref, nil
	}

	if entry, ok := mapper.index.Class(t); ok {
		ref := Named(entry.Name)
		if pos == Return && mapper.opts.NullableObjects && entry.Kind == metadata.KindClass {
			ref.Nullable = true
		}
		return ref, nil
	}

	if isTypeName(t) {
		return TypeRef{}, errors.NewMetadataError("", t, "unknown type")
	}
	return TypeRef{}, errors.NewMappingError(t, pos.String())
}

// resolveHintList maps "A,B,-C" property hints to "A | B". Entries with a
// leading '-' exclude a class and are dropped.
func (mapper *Mapper) resolveHintList(t string, pos Position) (TypeRef, error) {
	var members []TypeRef
	nullable := false
	for _, part := range strings.Split(t, ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.HasPrefix(part, "-") {
			continue
		}
		ref, err := mapper.resolve(part, pos)
		if err != nil {
			return TypeRef{}, err
		}
		nullable = nullable || ref.Nullable
		ref.Nullable = false
		members = append(members, ref)
	}
	if len(members) == 0 {
		return TypeRef{}, errors.NewMappingError(t, pos.String())
	}
	union := UnionOf(members...)
	union.Nullable = nullable
	return union, nil
}

// stripHint removes the "24/17:" hint prefix some typed collections carry.
func stripHint(t string) string {
	if i := strings.LastIndexByte(t, ':'); i >= 0 && !strings.Contains(t, "::") {
		return t[i+1:]
	}
	return t
}

func isTypeName(t string) bool {
	for i, r := range t {
		if i == 0 && !unicode.IsUpper(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return t != ""
}
