// Package metadata reads and describes the engine's reflection metadata.
package metadata

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strconv"

	"godotdts/internal/errors"
	"godotdts/internal/logger"
)

// Raw shape of extension_api.json. Only the sections the generator renders
// are decoded.
type apiDump struct {
	Header           apiHeader         `json:"header"`
	GlobalEnums      []apiEnum         `json:"global_enums"`
	UtilityFunctions []apiFunction     `json:"utility_functions"`
	BuiltinClasses   []apiBuiltinClass `json:"builtin_classes"`
	Classes          []apiClass        `json:"classes"`
	Singletons       []apiSingleton    `json:"singletons"`
}

type apiHeader struct {
	VersionMajor    int    `json:"version_major"`
	VersionMinor    int    `json:"version_minor"`
	VersionPatch    int    `json:"version_patch"`
	VersionStatus   string `json:"version_status"`
	VersionBuild    string `json:"version_build"`
	VersionFullName string `json:"version_full_name"`
}

type apiEnum struct {
	Name       string         `json:"name"`
	IsBitfield bool           `json:"is_bitfield"`
	Values     []apiEnumValue `json:"values"`
}

type apiEnumValue struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type apiArgument struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	DefaultValue *string `json:"default_value"`
}

type apiReturn struct {
	Type string `json:"type"`
}

type apiFunction struct {
	Name       string        `json:"name"`
	ReturnType string        `json:"return_type"`
	IsVararg   bool          `json:"is_vararg"`
	Arguments  []apiArgument `json:"arguments"`
}

type apiMethod struct {
	Name        string        `json:"name"`
	IsConst     bool          `json:"is_const"`
	IsStatic    bool          `json:"is_static"`
	IsVararg    bool          `json:"is_vararg"`
	IsVirtual   bool          `json:"is_virtual"`
	ReturnValue *apiReturn    `json:"return_value"`
	ReturnType  string        `json:"return_type"`
	Arguments   []apiArgument `json:"arguments"`
}

type apiProperty struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Setter string `json:"setter"`
	Getter string `json:"getter"`
	Index  *int   `json:"index"`
}

type apiSignal struct {
	Name      string        `json:"name"`
	Arguments []apiArgument `json:"arguments"`
}

type apiClassConstant struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type apiBuiltinConstant struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

type apiBuiltinMember struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type apiConstructor struct {
	Index     int           `json:"index"`
	Arguments []apiArgument `json:"arguments"`
}

type apiClass struct {
	Name           string             `json:"name"`
	Inherits       string             `json:"inherits"`
	IsInstantiable bool               `json:"is_instantiable"`
	APIType        string             `json:"api_type"`
	Constants      []apiClassConstant `json:"constants"`
	Enums          []apiEnum          `json:"enums"`
	Methods        []apiMethod        `json:"methods"`
	Signals        []apiSignal        `json:"signals"`
	Properties     []apiProperty      `json:"properties"`
}

type apiBuiltinClass struct {
	Name         string               `json:"name"`
	Members      []apiBuiltinMember   `json:"members"`
	Constants    []apiBuiltinConstant `json:"constants"`
	Enums        []apiEnum            `json:"enums"`
	Methods      []apiMethod          `json:"methods"`
	Constructors []apiConstructor     `json:"constructors"`
}

type apiSingleton struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// LoadOptions names the metadata inputs of a run.
type LoadOptions struct {
	// APIPath is the extension_api.json file.
	APIPath string
	// DocsPath is an optional directory of XML class reference files.
	DocsPath string
}

// Load reads the API dump, overlays the class reference when DocsPath is
// set, and returns the validated snapshot.
func Load(ctx context.Context, opts LoadOptions) (*Snapshot, error) {
	file, err := os.Open(opts.APIPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open metadata %s", opts.APIPath)
	}
	defer file.Close()

	snap, err := ReadAPI(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read metadata %s", opts.APIPath)
	}

	if opts.DocsPath != "" {
		if err := ApplyDocs(ctx, snap, opts.DocsPath); err != nil {
			return nil, err
		}
	}

	logger.Infow("Loaded engine metadata",
		"version", snap.Version.String(),
		"classes", len(snap.Classes),
		"global_enums", len(snap.GlobalEnums),
		"utility_functions", len(snap.UtilityFunctions))
	return snap, nil
}

// ReadAPI decodes an extension_api.json document into a validated snapshot.
// Classes are sorted by name; members keep their declared order.
func ReadAPI(r io.Reader) (*Snapshot, error) {
	var dump apiDump
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, errors.Wrap(err, "decode extension api")
	}

	snap := &Snapshot{
		Version: EngineVersion{
			Major:    dump.Header.VersionMajor,
			Minor:    dump.Header.VersionMinor,
			Patch:    dump.Header.VersionPatch,
			Status:   dump.Header.VersionStatus,
			Build:    dump.Header.VersionBuild,
			FullName: dump.Header.VersionFullName,
		},
	}

	for _, e := range dump.GlobalEnums {
		snap.GlobalEnums = append(snap.GlobalEnums, getEnum(e))
	}

	for _, f := range dump.UtilityFunctions {
		snap.UtilityFunctions = append(snap.UtilityFunctions, MemberDescriptor{
			Kind:   MemberMethod,
			Name:   f.Name,
			Params: getParams(f.Arguments),
			Return: normalizeReturn(f.ReturnType),
			Static: true,
			Vararg: f.IsVararg,
		})
	}
	sort.SliceStable(snap.UtilityFunctions, func(i, j int) bool {
		return snap.UtilityFunctions[i].Name < snap.UtilityFunctions[j].Name
	})

	for _, b := range dump.BuiltinClasses {
		snap.Classes = append(snap.Classes, getBuiltinClass(b))
	}
	for _, c := range dump.Classes {
		snap.Classes = append(snap.Classes, getClass(c))
	}
	sort.SliceStable(snap.Classes, func(i, j int) bool {
		return snap.Classes[i].Name < snap.Classes[j].Name
	})

	for _, s := range dump.Singletons {
		snap.Singletons = append(snap.Singletons, Singleton{Name: s.Name, Type: s.Type})
	}

	if err := Validate(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Validate checks the inheritance invariants: unique class names, parents
// that exist, and no inheritance cycles.
func Validate(snap *Snapshot) error {
	byName := make(map[string]*ClassDescriptor, len(snap.Classes))
	for i := range snap.Classes {
		c := &snap.Classes[i]
		if _, dup := byName[c.Name]; dup {
			return errors.NewMetadataError("", c.Name, "duplicate class")
		}
		byName[c.Name] = c
	}

	for i := range snap.Classes {
		c := &snap.Classes[i]
		if c.Parent == "" {
			continue
		}
		if _, ok := byName[c.Parent]; !ok {
			return errors.NewMetadataError(c.Name, c.Parent, "parent class not found")
		}
		seen := map[string]bool{c.Name: true}
		for p := c.Parent; p != ""; {
			if seen[p] {
				return errors.NewMetadataError(c.Name, p, "inheritance cycle through")
			}
			seen[p] = true
			parent, ok := byName[p]
			if !ok {
				return errors.NewMetadataError(c.Name, p, "ancestor class not found")
			}
			p = parent.Parent
		}
	}

	for _, s := range snap.Singletons {
		if _, ok := byName[s.Type]; !ok {
			return errors.NewMetadataError("", s.Type, "singleton type not found")
		}
	}
	return nil
}

func getClass(c apiClass) ClassDescriptor {
	class := ClassDescriptor{
		Name:         c.Name,
		Parent:       c.Inherits,
		Kind:         KindClass,
		APIType:      c.APIType,
		Instantiable: c.IsInstantiable,
	}

	for _, p := range c.Properties {
		class.Members = append(class.Members, MemberDescriptor{
			Kind:   MemberProperty,
			Name:   p.Name,
			Type:   p.Type,
			Setter: p.Setter,
			Getter: p.Getter,
			Index:  p.Index,
		})
	}
	for _, m := range c.Methods {
		class.Members = append(class.Members, getMethod(m))
	}
	for _, s := range c.Signals {
		class.Members = append(class.Members, MemberDescriptor{
			Kind:   MemberSignal,
			Name:   s.Name,
			Params: getParams(s.Arguments),
		})
	}

	for _, k := range c.Constants {
		class.Constants = append(class.Constants, ConstantDescriptor{
			Name:  k.Name,
			Type:  "int",
			Value: formatInt(k.Value),
		})
	}
	for _, e := range c.Enums {
		class.Enums = append(class.Enums, getEnum(e))
	}
	return class
}

func getBuiltinClass(b apiBuiltinClass) ClassDescriptor {
	class := ClassDescriptor{
		Name:         b.Name,
		Kind:         KindBuiltin,
		APIType:      "core",
		Instantiable: true,
	}

	for _, m := range b.Members {
		class.Members = append(class.Members, MemberDescriptor{
			Kind:   MemberProperty,
			Name:   m.Name,
			Type:   m.Type,
			Setter: "=",
			Getter: "=",
		})
	}
	for _, m := range b.Methods {
		class.Members = append(class.Members, getMethod(m))
	}

	ctors := append([]apiConstructor(nil), b.Constructors...)
	sort.SliceStable(ctors, func(i, j int) bool { return ctors[i].Index < ctors[j].Index })
	for _, ctor := range ctors {
		class.Constructors = append(class.Constructors, MemberDescriptor{
			Kind:   MemberMethod,
			Name:   "constructor",
			Params: getParams(ctor.Arguments),
		})
	}

	for _, k := range b.Constants {
		class.Constants = append(class.Constants, ConstantDescriptor{
			Name:  k.Name,
			Type:  k.Type,
			Value: k.Value,
		})
	}
	for _, e := range b.Enums {
		class.Enums = append(class.Enums, getEnum(e))
	}
	return class
}

func getMethod(m apiMethod) MemberDescriptor {
	ret := m.ReturnType
	if m.ReturnValue != nil {
		ret = m.ReturnValue.Type
	}
	return MemberDescriptor{
		Kind:    MemberMethod,
		Name:    m.Name,
		Params:  getParams(m.Arguments),
		Return:  normalizeReturn(ret),
		Virtual: m.IsVirtual,
		Static:  m.IsStatic,
		Const:   m.IsConst,
		Vararg:  m.IsVararg,
	}
}

func getParams(args []apiArgument) []Parameter {
	if len(args) == 0 {
		return nil
	}
	params := make([]Parameter, 0, len(args))
	for _, a := range args {
		p := Parameter{Name: a.Name, Type: a.Type}
		if a.DefaultValue != nil {
			p.Optional = true
			p.Default = *a.DefaultValue
		}
		params = append(params, p)
	}
	return params
}

func getEnum(e apiEnum) EnumDescriptor {
	enum := EnumDescriptor{Name: e.Name, Bitfield: e.IsBitfield}
	for _, v := range e.Values {
		enum.Values = append(enum.Values, ConstantDescriptor{
			Name:  v.Name,
			Type:  "int",
			Value: formatInt(v.Value),
			Enum:  e.Name,
		})
	}
	return enum
}

func normalizeReturn(t string) string {
	if t == "void" || t == "Nil" {
		return ""
	}
	return t
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
