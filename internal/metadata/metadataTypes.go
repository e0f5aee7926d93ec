package metadata

import (
	"fmt"

	"github.com/hashicorp/go-version"
)

// Snapshot is the complete, validated description of one engine version.
type Snapshot struct {
	Version          EngineVersion
	Classes          []ClassDescriptor
	GlobalEnums      []EnumDescriptor
	UtilityFunctions []MemberDescriptor
	Singletons       []Singleton
}

// Class returns the class with the given name.
func (s *Snapshot) Class(name string) (*ClassDescriptor, bool) {
	for i := range s.Classes {
		if s.Classes[i].Name == name {
			return &s.Classes[i], true
		}
	}
	return nil, false
}

type EngineVersion struct {
	Major    int
	Minor    int
	Patch    int
	Status   string
	Build    string
	FullName string
}

// SemVer returns the version as a comparable go-version value.
func (v EngineVersion) SemVer() (*version.Version, error) {
	raw := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Status != "" && v.Status != "stable" {
		raw += "-" + v.Status
	}
	return version.NewVersion(raw)
}

// Dir is the output directory name for the version: "4.3" or "4.2.2" for
// stable snapshots, "4.4-dev" for anything else.
func (v EngineVersion) Dir() string {
	sv, err := v.SemVer()
	if err != nil {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	segments := sv.Segments()
	dir := fmt.Sprintf("%d.%d", segments[0], segments[1])
	if segments[2] != 0 {
		dir = fmt.Sprintf("%s.%d", dir, segments[2])
	}
	if pre := sv.Prerelease(); pre != "" {
		dir += "-" + pre
	}
	return dir
}

func (v EngineVersion) String() string {
	if v.FullName != "" {
		return v.FullName
	}
	return v.Dir()
}

type ClassKind int

const (
	KindClass ClassKind = iota
	KindBuiltin
)

func (k ClassKind) String() string {
	if k == KindBuiltin {
		return "builtin"
	}
	return "class"
}

// ClassDescriptor is one engine class. It is built once by the reader and
// only read afterwards.
type ClassDescriptor struct {
	Name         string
	Parent       string
	Kind         ClassKind
	APIType      string
	Instantiable bool
	Doc          Documentation
	// Properties, then methods, then signals, each in declared order.
	Members      []MemberDescriptor
	Constructors []MemberDescriptor
	Constants    []ConstantDescriptor
	Enums        []EnumDescriptor
}

// Enum returns the class enum with the given name.
func (c *ClassDescriptor) Enum(name string) (*EnumDescriptor, bool) {
	for i := range c.Enums {
		if c.Enums[i].Name == name {
			return &c.Enums[i], true
		}
	}
	return nil, false
}

type MemberKind int

const (
	MemberProperty MemberKind = iota
	MemberMethod
	MemberSignal
)

func (k MemberKind) String() string {
	switch k {
	case MemberProperty:
		return "property"
	case MemberMethod:
		return "method"
	default:
		return "signal"
	}
}

type MemberDescriptor struct {
	Kind MemberKind
	Name string
	Doc  Documentation

	// Property fields. Type is the raw engine type string and may be a
	// comma separated hint list.
	Type   string
	Setter string
	Getter string
	Index  *int

	// Method and signal fields. Return is empty for void.
	Params  []Parameter
	Return  string
	Virtual bool
	Static  bool
	Const   bool
	Vararg  bool
}

type Parameter struct {
	Name     string
	Type     string
	Optional bool
	Default  string
}

type ConstantDescriptor struct {
	Name  string
	Type  string
	Value string
	Enum  string
	Doc   Documentation
}

type EnumDescriptor struct {
	Name     string
	Bitfield bool
	Values   []ConstantDescriptor
	Doc      Documentation
}

type Singleton struct {
	Name string
	Type string
}

type Documentation struct {
	Brief        string
	Description  string
	Deprecated   *string
	Experimental *string
	Tutorials    []Link
	// Default is the documented default value of a property.
	Default string
}

// IsDeprecated reports whether the symbol carries a deprecation notice.
func (d Documentation) IsDeprecated() bool { return d.Deprecated != nil }

type Link struct {
	Title string
	URL   string
}
