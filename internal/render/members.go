package render

import (
	"fmt"
	"strconv"
	"strings"

	"godotdts/internal/errors"
	"godotdts/internal/metadata"
	"godotdts/internal/naming"
	"godotdts/internal/typemap"
)

type param struct {
	name     string
	typ      typemap.TypeRef
	optional bool
	def      string
}

// signature is a method or constructor after type mapping.
type signature struct {
	native  string
	name    string
	params  []param
	ret     typemap.TypeRef
	static  bool
	virtual bool
	vararg  bool
	doc     metadata.Documentation
}

// section prefixes lines with a blank separator when it has content.
func section(lines []string) []string {
	if len(lines) == 0 {
		return nil
	}
	return append([]string{""}, lines...)
}

func (cr *classRenderer) constructors() ([]string, error) {
	c := cr.class
	var lines []string
	if c.Kind != metadata.KindBuiltin {
		switch {
		case !c.Instantiable:
			lines = append(lines, "protected constructor();")
		case cr.inheritsProtectedConstructor():
			// A class without its own constructor inherits the protected one.
			lines = append(lines, "constructor();")
		}
		return lines, nil
	}

	for _, ctor := range c.Constructors {
		sig, err := cr.signature(ctor)
		if err != nil {
			return nil, err
		}
		lines = append(lines, cr.memberDoc(sig.doc, sig.params).lines()...)
		lines = append(lines, "constructor("+cr.paramList(sig)+");")
	}
	return lines, nil
}

// inheritsProtectedConstructor reports whether an ancestor of the class is
// not instantiable and so declares a protected constructor.
func (cr *classRenderer) inheritsProtectedConstructor() bool {
	parent := cr.class.Parent
	for depth := 0; parent != "" && depth < cr.index.Len(); depth++ {
		entry, ok := cr.index.Class(parent)
		if !ok {
			return false
		}
		if !entry.Instantiable {
			return true
		}
		parent = entry.Parent
	}
	return false
}

func (cr *classRenderer) properties() ([]string, error) {
	var lines []string
	for _, m := range cr.class.Members {
		if m.Kind != metadata.MemberProperty {
			continue
		}
		name := naming.Member(m.Name)
		if err := cr.claim(name, "property"); err != nil {
			return nil, err
		}
		t, err := cr.mapType(m.Name, m.Type, typemap.Property)
		if err != nil {
			return nil, err
		}
		if m.Doc.IsDeprecated() {
			cr.warn(cr.class.Name+"."+name, *m.Doc.Deprecated)
		}

		doc := newJSDoc(cr.converter())
		doc.text(m.Doc.Description)
		if m.Doc.Default != "" {
			doc.tag("@defaultValue", "`"+m.Doc.Default+"`")
		}
		doc.notices(m.Doc)
		lines = append(lines, doc.lines()...)

		var sb strings.Builder
		if m.Setter == "" {
			sb.WriteString("readonly ")
		}
		sb.WriteString(propertyKey(name))
		sb.WriteString(": ")
		sb.WriteString(t.String())
		sb.WriteByte(';')
		lines = append(lines, sb.String())
	}
	return section(lines), nil
}

func (cr *classRenderer) methods() ([]string, error) {
	var order []string
	groups := map[string][]signature{}
	for _, m := range cr.class.Members {
		if m.Kind != metadata.MemberMethod {
			continue
		}
		sig, err := cr.signature(m)
		if err != nil {
			return nil, err
		}
		if _, ok := groups[sig.name]; !ok {
			order = append(order, sig.name)
		}
		groups[sig.name] = append(groups[sig.name], sig)
	}

	var lines []string
	for _, name := range order {
		sig, err := cr.merge(groups[name])
		if err != nil {
			return nil, err
		}
		if err := cr.claim(name, "method"); err != nil {
			return nil, err
		}
		if sig.doc.IsDeprecated() {
			cr.warn(cr.class.Name+"."+name, *sig.doc.Deprecated)
		}

		lines = append(lines, cr.memberDoc(sig.doc, sig.params).lines()...)

		var sb strings.Builder
		if sig.virtual {
			sb.WriteString(cr.opts.VirtualVisibility)
			sb.WriteByte(' ')
		}
		if sig.static {
			sb.WriteString("static ")
		}
		sb.WriteString(propertyKey(name))
		sb.WriteByte('(')
		sb.WriteString(cr.paramList(sig))
		sb.WriteString("): ")
		sb.WriteString(sig.ret.String())
		sb.WriteByte(';')
		lines = append(lines, sb.String())
	}
	return section(lines), nil
}

func (cr *classRenderer) signals() ([]string, error) {
	var lines []string
	for _, m := range cr.class.Members {
		if m.Kind != metadata.MemberSignal {
			continue
		}
		name := naming.Member(m.Name)
		if err := cr.claim(name, "signal"); err != nil {
			return nil, err
		}
		if m.Doc.IsDeprecated() {
			cr.warn(cr.class.Name+"."+name, *m.Doc.Deprecated)
		}

		args := make([]string, 0, len(m.Params))
		for _, p := range m.Params {
			t, err := cr.mapType(m.Name, p.Type, typemap.Param)
			if err != nil {
				return nil, err
			}
			args = append(args, naming.Param(p.Name)+": "+t.String())
		}
		cr.ref("Signal")

		doc := newJSDoc(cr.converter())
		doc.text(m.Doc.Description)
		doc.notices(m.Doc)
		lines = append(lines, doc.lines()...)
		lines = append(lines, fmt.Sprintf("readonly %s: Signal<[%s]>;", propertyKey(name), strings.Join(args, ", ")))
	}
	return section(lines), nil
}

// constants renders plain constants first, then every enum's values as one
// contiguous run.
func (cr *classRenderer) constants() ([]string, error) {
	var lines []string
	seen := map[string]bool{}

	emit := func(k metadata.ConstantDescriptor) error {
		if seen[k.Name] {
			return errors.NewRenderError(cr.class.Name, k.Name, "duplicate constant")
		}
		seen[k.Name] = true
		if k.Doc.IsDeprecated() {
			cr.warn(cr.class.Name+"."+k.Name, *k.Doc.Deprecated)
		}

		doc := newJSDoc(cr.converter())
		doc.text(k.Doc.Description)

		typ := k.Value
		if !isIntLiteral(k.Type, k.Value) {
			t, err := cr.mapType(k.Name, k.Type, typemap.Constant)
			if err != nil {
				return err
			}
			typ = t.String()
			doc.tag("@defaultValue", "`"+k.Value+"`")
		}
		doc.notices(k.Doc)
		lines = append(lines, doc.lines()...)
		lines = append(lines, fmt.Sprintf("static readonly %s: %s;", k.Name, typ))
		return nil
	}

	for _, k := range cr.class.Constants {
		if err := emit(k); err != nil {
			return nil, err
		}
	}
	for _, e := range cr.class.Enums {
		for _, v := range e.Values {
			if err := emit(v); err != nil {
				return nil, err
			}
		}
	}
	return section(lines), nil
}

func (cr *classRenderer) signature(m metadata.MemberDescriptor) (signature, error) {
	sig := signature{
		native:  m.Name,
		name:    naming.Member(m.Name),
		static:  m.Static,
		virtual: m.Virtual,
		vararg:  m.Vararg,
		doc:     m.Doc,
	}

	optional := false
	for _, p := range m.Params {
		if optional && !p.Optional {
			return signature{}, errors.NewRenderError(cr.class.Name, m.Name,
				fmt.Sprintf("required parameter %q follows an optional parameter", p.Name))
		}
		optional = p.Optional

		t, err := cr.mapType(m.Name, p.Type, typemap.Param)
		if err != nil {
			return signature{}, err
		}
		sig.params = append(sig.params, param{
			name:     naming.Param(p.Name),
			typ:      t,
			optional: p.Optional,
			def:      p.Default,
		})
	}

	if m.Name != "constructor" {
		ret, err := cr.mapType(m.Name, m.Return, typemap.Return)
		if err != nil {
			return signature{}, err
		}
		sig.ret = ret
	}
	if sig.vararg {
		cr.ref(typemap.VariantAlias)
	}
	return sig, nil
}

// merge folds members that render to the same name into one signature. Two
// signatures merge when one parameter list extends the other with optional
// parameters only and everything else matches.
func (cr *classRenderer) merge(sigs []signature) (signature, error) {
	merged := sigs[0]
	for _, next := range sigs[1:] {
		long, short := merged, next
		if len(short.params) > len(long.params) {
			long, short = short, long
		}

		reason := ""
		switch {
		case long.static != short.static || long.virtual != short.virtual || long.vararg != short.vararg:
			reason = "overloads differ in modifiers"
		case long.ret.String() != short.ret.String():
			reason = "overloads differ in return type"
		}
		for i := 0; reason == "" && i < len(long.params); i++ {
			if i < len(short.params) {
				if long.params[i].typ.String() != short.params[i].typ.String() {
					reason = fmt.Sprintf("overloads differ in the type of parameter %d", i+1)
				}
				continue
			}
			if !long.params[i].optional {
				reason = fmt.Sprintf("overload adds required parameter %q", long.params[i].name)
			}
		}
		if reason != "" {
			return signature{}, errors.NewRenderError(cr.class.Name, merged.name,
				fmt.Sprintf("%s (%s, %s)", reason, merged.native, next.native))
		}

		result := long
		result.params = append([]param(nil), long.params...)
		for i := range short.params {
			if short.params[i].optional && !result.params[i].optional {
				result.params[i].optional = true
				result.params[i].def = short.params[i].def
			}
		}
		if result.doc.Description == "" {
			result.doc = short.doc
		}
		merged = result
	}
	return merged, nil
}

func (cr *classRenderer) paramList(sig signature) string {
	parts := make([]string, 0, len(sig.params)+1)
	taken := map[string]bool{}
	for _, p := range sig.params {
		taken[p.name] = true
		sep := ": "
		if p.optional {
			sep = "?: "
		}
		parts = append(parts, p.name+sep+p.typ.String())
	}
	if sig.vararg {
		rest := "args"
		if taken[rest] {
			rest = "varargs"
		}
		parts = append(parts, "..."+rest+": "+typemap.VariantAlias+"[]")
	}
	return strings.Join(parts, ", ")
}

// memberDoc documents a method or constructor: its description, the default
// of every optional parameter and its notices.
func (cr *classRenderer) memberDoc(d metadata.Documentation, params []param) *jsDoc {
	doc := newJSDoc(cr.converter())
	doc.text(d.Description)
	for _, p := range params {
		if p.optional {
			doc.tag("@param", fmt.Sprintf("%s - Default: `%s`", p.name, p.def))
		}
	}
	doc.notices(d)
	return doc
}

func propertyKey(name string) string {
	if naming.IsIdentifier(name) {
		return name
	}
	return strconv.Quote(name)
}

func isIntLiteral(engineType, value string) bool {
	if engineType != "int" {
		return false
	}
	_, err := strconv.ParseInt(value, 10, 64)
	return err == nil
}
