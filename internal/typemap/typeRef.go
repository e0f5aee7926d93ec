package typemap

import (
	"sort"
	"strings"
)

// TypeRef is a TypeScript type expression. Exactly one of the shapes is set:
// a named type (optionally with generic arguments), an array, or a union.
type TypeRef struct {
	Name  string
	Args  []TypeRef
	Elem  *TypeRef
	Union []TypeRef
	// Nullable appends "| null".
	Nullable bool
	// Native marks names TypeScript provides itself, which are never imported.
	Native bool
}

// Named refers to a declaration exported from the barrel.
func Named(name string) TypeRef { return TypeRef{Name: name} }

// Native refers to a TypeScript built-in type such as boolean.
func Native(name string) TypeRef { return TypeRef{Name: name, Native: true} }

func ArrayOf(elem TypeRef) TypeRef { return TypeRef{Elem: &elem} }

func Generic(name string, args ...TypeRef) TypeRef { return TypeRef{Name: name, Args: args} }

func UnionOf(members ...TypeRef) TypeRef {
	if len(members) == 1 {
		return members[0]
	}
	return TypeRef{Union: members}
}

func (t TypeRef) String() string {
	var sb strings.Builder
	t.write(&sb)
	if t.Nullable {
		sb.WriteString(" | null")
	}
	return sb.String()
}

func (t TypeRef) write(sb *strings.Builder) {
	switch {
	case t.Elem != nil:
		if t.Elem.isCompound() {
			sb.WriteByte('(')
			sb.WriteString(t.Elem.String())
			sb.WriteByte(')')
		} else {
			t.Elem.write(sb)
		}
		sb.WriteString("[]")
	case len(t.Union) > 0:
		for i, m := range t.Union {
			if i > 0 {
				sb.WriteString(" | ")
			}
			sb.WriteString(m.String())
		}
	default:
		sb.WriteString(t.Name)
		if len(t.Args) > 0 {
			sb.WriteByte('<')
			for i, a := range t.Args {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(a.String())
			}
			sb.WriteByte('>')
		}
	}
}

func (t TypeRef) isCompound() bool { return len(t.Union) > 0 || t.Nullable }

// Imports lists the barrel exports the expression needs, sorted and without
// duplicates. Qualified enum names import their owner.
func (t TypeRef) Imports() []string {
	set := map[string]struct{}{}
	t.collect(set)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t TypeRef) collect(set map[string]struct{}) {
	if t.Elem != nil {
		t.Elem.collect(set)
	}
	for _, m := range t.Union {
		m.collect(set)
	}
	for _, a := range t.Args {
		a.collect(set)
	}
	if t.Name != "" && !t.Native {
		root, _, _ := strings.Cut(t.Name, ".")
		set[root] = struct{}{}
	}
}

// IsVoid reports whether the reference is the empty return type.
func (t TypeRef) IsVoid() bool {
	return t.Native && t.Name == "void"
}
