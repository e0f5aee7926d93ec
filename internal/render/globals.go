package render

import (
	"fmt"
	"strings"

	"godotdts/internal"
	"godotdts/internal/errors"
	"godotdts/internal/metadata"
	"godotdts/internal/naming"
	"godotdts/internal/typemap"
)

// GlobalScopeName names the file holding utility functions, global enum
// values and singletons.
const GlobalScopeName = "GlobalScope"

// GlobalScope renders the utility functions, the values of every global enum
// and the singleton table.
func (renderer *Renderer) GlobalScope(snap *metadata.Snapshot) (*Declaration, error) {
	cr := &classRenderer{
		Renderer: renderer,
		class:    &metadata.ClassDescriptor{Name: GlobalScopeName},
		refs:     map[string]struct{}{},
		names:    map[string]string{},
	}

	var sb strings.Builder
	for _, f := range snap.UtilityFunctions {
		sig, err := cr.signature(f)
		if err != nil {
			return nil, err
		}
		// Utility names such as typeof collide with reserved words.
		sig.name = naming.Param(f.Name)
		if err := cr.claim(sig.name, "function"); err != nil {
			return nil, err
		}
		if f.Doc.IsDeprecated() {
			cr.warn(sig.name, *f.Doc.Deprecated)
		}
		cr.memberDoc(sig.doc, sig.params).write(&sb, "")
		fmt.Fprintf(&sb, "export declare function %s(%s): %s;\n", sig.name, cr.paramList(sig), sig.ret.String())
	}

	for _, e := range snap.GlobalEnums {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		for _, v := range e.Values {
			if err := cr.claim(v.Name, "constant"); err != nil {
				return nil, err
			}
			if v.Doc.IsDeprecated() {
				cr.warn(v.Name, *v.Doc.Deprecated)
			}
			doc := newJSDoc(cr.converter())
			doc.text(v.Doc.Description)
			doc.notices(v.Doc)
			doc.write(&sb, "")
			fmt.Fprintf(&sb, "export declare const %s: %s;\n", v.Name, v.Value)
		}
	}

	if len(snap.Singletons) > 0 {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("/** Engine singletons by name. */\n")
		sb.WriteString("export interface Singletons {\n")
		for _, s := range snap.Singletons {
			if _, ok := renderer.index.Class(s.Type); !ok {
				return nil, errors.NewMetadataError(GlobalScopeName, s.Type, "singleton type not found")
			}
			cr.ref(s.Type)
			fmt.Fprintf(&sb, "%sreadonly %s: %s;\n", indent, propertyKey(s.Name), s.Type)
		}
		sb.WriteString("}\n\n")
		sb.WriteString("export declare const singletons: Singletons;\n")
	}

	return &Declaration{
		Name:     GlobalScopeName,
		Text:     sb.String(),
		Refs:     internal.SortedKeys(cr.refs),
		Warnings: cr.warnings,
	}, nil
}

// Prelude renders the aliases and global enums that open the barrel file.
func (renderer *Renderer) Prelude(snap *metadata.Snapshot) (string, error) {
	var sb strings.Builder
	sb.WriteString("/** Engine integer. Kept distinct from float for documentation. */\n")
	fmt.Fprintf(&sb, "export type %s = number;\n", typemap.IntAlias)
	sb.WriteString("/** Engine floating point number. */\n")
	fmt.Fprintf(&sb, "export type %s = number;\n", typemap.FloatAlias)
	sb.WriteString("/** Any engine value. */\n")
	fmt.Fprintf(&sb, "export type %s = any;\n", typemap.VariantAlias)
	sb.WriteString("/** Opaque pointer into engine memory. */\n")
	fmt.Fprintf(&sb, "export type %s = number;\n", typemap.PointerAlias)

	conv := &bbcode{index: renderer.index}
	nested := map[string][]metadata.EnumDescriptor{}
	for _, e := range snap.GlobalEnums {
		owner, name, dotted := strings.Cut(e.Name, ".")
		if dotted {
			e.Name = name
			nested[owner] = append(nested[owner], e)
			continue
		}
		sb.WriteByte('\n')
		enumDoc(conv, e).write(&sb, "")
		fmt.Fprintf(&sb, "export type %s = %s;\n", e.Name, enumType(e))
	}

	for _, owner := range internal.SortedKeys(nested) {
		if _, ok := renderer.index.Class(owner); ok {
			return "", errors.NewRenderError(owner, nested[owner][0].Name, "global enum nested in a class with its own file")
		}
		fmt.Fprintf(&sb, "\nexport declare namespace %s {\n", owner)
		for i, e := range nested[owner] {
			if i > 0 {
				sb.WriteByte('\n')
			}
			enumDoc(conv, e).write(&sb, indent)
			fmt.Fprintf(&sb, "%sexport type %s = %s;\n", indent, e.Name, enumType(e))
		}
		sb.WriteString("}\n")
	}
	return sb.String(), nil
}
