// Package render turns class descriptors into TypeScript declaration text.
//
// The renderer only reads the metadata index and the type mapper, so one
// Renderer can serve any number of goroutines.
package render

import (
	"fmt"
	"strings"

	"godotdts/internal"
	"godotdts/internal/errors"
	"godotdts/internal/metadata"
	"godotdts/internal/typemap"
)

const indent = "\t"

const (
	VisibilityProtected = "protected"
	VisibilityPrivate   = "private"
)

type Options struct {
	// VirtualVisibility is the modifier of virtual methods.
	VirtualVisibility string
}

// Declaration is the rendered body of one output file. Imports are not part
// of Text; Refs lists every barrel export the text uses.
type Declaration struct {
	Name     string
	Parent   string
	Text     string
	Refs     []string
	Warnings []string
}

type Renderer struct {
	mapper *typemap.Mapper
	index  *metadata.Index
	opts   Options
}

func New(mapper *typemap.Mapper, index *metadata.Index, opts Options) *Renderer {
	if opts.VirtualVisibility == "" {
		opts.VirtualVisibility = VisibilityProtected
	}
	return &Renderer{mapper: mapper, index: index, opts: opts}
}

// classRenderer holds the state of rendering one class.
type classRenderer struct {
	*Renderer
	class    *metadata.ClassDescriptor
	refs     map[string]struct{}
	warnings []string
	// names maps rendered member names to the member kind that claimed them.
	names map[string]string
}

// Class renders the declaration of c: the documented class with its
// constructors, properties, methods, signals and constants, followed by a
// namespace carrying its enums.
func (renderer *Renderer) Class(c *metadata.ClassDescriptor) (*Declaration, error) {
	cr := &classRenderer{
		Renderer: renderer,
		class:    c,
		refs:     map[string]struct{}{},
		names:    map[string]string{},
	}

	if c.Parent != "" {
		if _, ok := renderer.index.Class(c.Parent); !ok {
			return nil, errors.NewMetadataError(c.Name, c.Parent, "parent class not found")
		}
		cr.ref(c.Parent)
	}
	if c.Doc.IsDeprecated() {
		cr.warn(c.Name, *c.Doc.Deprecated)
	}

	var body []string
	sections := []func() ([]string, error){
		cr.constructors,
		cr.properties,
		cr.methods,
		cr.signals,
		cr.constants,
	}
	for _, section := range sections {
		lines, err := section()
		if err != nil {
			return nil, err
		}
		body = append(body, lines...)
	}
	for len(body) > 0 && body[0] == "" {
		body = body[1:]
	}

	var sb strings.Builder
	cr.classDoc().write(&sb, "")

	sb.WriteString("export class ")
	sb.WriteString(c.Name)
	if params := typemap.GenericParams(c.Name); params != "" {
		sb.WriteString(params)
		cr.ref(typemap.VariantAlias)
	}
	if c.Parent != "" {
		sb.WriteString(" extends ")
		sb.WriteString(c.Parent)
	}
	if len(body) == 0 {
		sb.WriteString(" {}\n")
	} else {
		sb.WriteString(" {\n")
		for _, line := range body {
			if line != "" {
				sb.WriteString(indent)
				sb.WriteString(line)
			}
			sb.WriteByte('\n')
		}
		sb.WriteString("}\n")
	}

	if ns := cr.enumNamespace(); ns != "" {
		sb.WriteByte('\n')
		sb.WriteString(ns)
	}

	return &Declaration{
		Name:     c.Name,
		Parent:   c.Parent,
		Text:     sb.String(),
		Refs:     internal.SortedKeys(cr.refs),
		Warnings: cr.warnings,
	}, nil
}

func (cr *classRenderer) ref(names ...string) {
	for _, name := range names {
		cr.refs[name] = struct{}{}
	}
}

func (cr *classRenderer) refType(t typemap.TypeRef) {
	cr.ref(t.Imports()...)
}

func (cr *classRenderer) mapType(member, engineType string, pos typemap.Position) (typemap.TypeRef, error) {
	t, err := cr.mapper.Map(engineType, pos)
	if err != nil {
		return typemap.TypeRef{}, errors.Wrapf(err, "%s.%s", cr.class.Name, member)
	}
	cr.refType(t)
	return t, nil
}

func (cr *classRenderer) warn(symbol, notice string) {
	msg := symbol + " is deprecated"
	if notice != "" {
		msg += ": " + notice
	}
	cr.warnings = append(cr.warnings, msg)
}

// claim registers a rendered member name; each name may be used once per
// class body.
func (cr *classRenderer) claim(name, kind string) error {
	if other, ok := cr.names[name]; ok {
		return errors.NewRenderError(cr.class.Name, name, fmt.Sprintf("%s conflicts with %s of the same name", kind, other))
	}
	cr.names[name] = kind
	return nil
}

func (cr *classRenderer) classDoc() *jsDoc {
	c := cr.class
	doc := newJSDoc(cr.converter())
	doc.text(c.Doc.Brief)
	doc.text(c.Doc.Description)
	if doc.empty() {
		if c.Kind == metadata.KindBuiltin {
			doc.line(fmt.Sprintf("The %s builtin type.", c.Name))
		} else {
			doc.line(fmt.Sprintf("The %s engine class.", c.Name))
		}
	}
	for _, link := range c.Doc.Tutorials {
		doc.see(link)
	}
	doc.notices(c.Doc)
	return doc
}

func (cr *classRenderer) converter() *bbcode {
	return &bbcode{index: cr.index, class: cr.class}
}

// enumNamespace renders the class enums as type aliases merged into the
// class through a namespace.
func (cr *classRenderer) enumNamespace() string {
	if len(cr.class.Enums) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("export declare namespace ")
	sb.WriteString(cr.class.Name)
	sb.WriteString(" {\n")
	for i, e := range cr.class.Enums {
		if i > 0 {
			sb.WriteByte('\n')
		}
		enumDoc(cr.converter(), e).write(&sb, indent)
		sb.WriteString(indent)
		sb.WriteString("export type ")
		sb.WriteString(e.Name)
		sb.WriteString(" = ")
		sb.WriteString(enumType(e))
		sb.WriteString(";\n")
		if e.Bitfield {
			cr.ref(typemap.IntAlias)
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// enumType is the literal union of the enum's values. Bitfields combine
// values freely and are plain integers.
func enumType(e metadata.EnumDescriptor) string {
	if e.Bitfield {
		return typemap.IntAlias
	}
	if len(e.Values) == 0 {
		return "never"
	}
	seen := make(map[string]bool, len(e.Values))
	literals := make([]string, 0, len(e.Values))
	for _, v := range e.Values {
		if seen[v.Value] {
			continue
		}
		seen[v.Value] = true
		literals = append(literals, v.Value)
	}
	return strings.Join(literals, " | ")
}

func enumDoc(conv *bbcode, e metadata.EnumDescriptor) *jsDoc {
	doc := newJSDoc(conv)
	doc.text(e.Doc.Description)
	for _, v := range e.Values {
		doc.line(fmt.Sprintf("- `%s` = %s", v.Name, v.Value))
	}
	doc.notices(e.Doc)
	return doc
}
