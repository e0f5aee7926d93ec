package metadata

import (
	"sort"
	"strings"
)

// Entry is the index view of one class that gets its own declaration file.
type Entry struct {
	Name         string
	Module       string
	Kind         ClassKind
	Parent       string
	Instantiable bool
	// Enums maps each enum name to whether it is a bitfield.
	Enums map[string]bool
}

// Index resolves class and enum names during rendering. It is built once
// from a Snapshot and never modified afterwards, so it is safe to share
// between rendering goroutines.
type Index struct {
	classes     map[string]Entry
	globalEnums map[string]bool
}

// NewIndex indexes every class of snap for which exclude returns false.
// A nil exclude keeps every class.
func NewIndex(snap *Snapshot, exclude func(string) bool) *Index {
	idx := &Index{
		classes:     make(map[string]Entry, len(snap.Classes)),
		globalEnums: make(map[string]bool, len(snap.GlobalEnums)),
	}
	for _, c := range snap.Classes {
		if exclude != nil && exclude(c.Name) {
			continue
		}
		entry := Entry{
			Name:         c.Name,
			Module:       "./" + c.Name,
			Kind:         c.Kind,
			Parent:       c.Parent,
			Instantiable: c.Instantiable,
			Enums:        make(map[string]bool, len(c.Enums)),
		}
		for _, e := range c.Enums {
			entry.Enums[e.Name] = e.Bitfield
		}
		idx.classes[c.Name] = entry
	}
	for _, e := range snap.GlobalEnums {
		idx.globalEnums[e.Name] = e.Bitfield
	}
	return idx
}

func (index *Index) Class(name string) (Entry, bool) {
	e, ok := index.classes[name]
	return e, ok
}

// Enum resolves "Owner.Name" or a global enum name. Dotted global enums such
// as "Variant.Type" are matched before class enums.
func (index *Index) Enum(qualified string) (bitfield bool, ok bool) {
	if b, ok := index.globalEnums[qualified]; ok {
		return b, true
	}
	owner, name, dotted := strings.Cut(qualified, ".")
	if !dotted {
		return false, false
	}
	entry, ok := index.classes[owner]
	if !ok {
		return false, false
	}
	b, ok := entry.Enums[name]
	return b, ok
}

func (index *Index) IsGlobalEnum(name string) bool {
	_, ok := index.globalEnums[name]
	return ok
}

// Names returns the indexed class names in sorted order.
func (index *Index) Names() []string {
	names := make([]string, 0, len(index.classes))
	for name := range index.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (index *Index) Len() int { return len(index.classes) }
