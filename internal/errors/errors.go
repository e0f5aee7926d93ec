// Package errors provides error handling for godotdts.
//
// It re-exports github.com/cockroachdb/errors and adds the three fatal error
// kinds of a generation run:
//
//   - MetadataError: the snapshot references a class or type it does not contain
//   - MappingError: an engine type has no TypeScript mapping
//   - RenderError: a member cannot be rendered as a single declaration
//
// Every kind matches its sentinel through errors.Is:
//
//	if errors.Is(err, errors.ErrMapping) {
//	    // extend the type table
//	}
package errors

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is            = crdb.Is
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapAll     = crdb.UnwrapAll
	GetAllHints   = crdb.GetAllHints
	FlattenHints  = crdb.FlattenHints
	GetAllDetails = crdb.GetAllDetails
)

// Sentinels for the fatal generation error kinds.
var (
	ErrMetadata = New("inconsistent metadata")
	ErrMapping  = New("unmapped engine type")
	ErrRender   = New("unrenderable member")
)

// MetadataError reports a class or type reference that the metadata snapshot
// does not contain.
type MetadataError struct {
	Class  string
	Ref    string
	Reason string
}

func (e *MetadataError) Error() string {
	if e.Class == "" {
		return fmt.Sprintf("metadata: %s %q", e.Reason, e.Ref)
	}
	return fmt.Sprintf("metadata: class %s: %s %q", e.Class, e.Reason, e.Ref)
}

func (e *MetadataError) Is(target error) bool { return target == ErrMetadata }

// MappingError reports an engine type string the type table cannot resolve.
type MappingError struct {
	Type    string
	Context string
}

func (e *MappingError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("mapping: no TypeScript type for %q", e.Type)
	}
	return fmt.Sprintf("mapping: %s: no TypeScript type for %q", e.Context, e.Type)
}

func (e *MappingError) Is(target error) bool { return target == ErrMapping }

// RenderError reports a member whose shape cannot become one declaration,
// such as conflicting overloads.
type RenderError struct {
	Class  string
	Member string
	Reason string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: %s.%s: %s", e.Class, e.Member, e.Reason)
}

func (e *RenderError) Is(target error) bool { return target == ErrRender }

const metadataHint = "the metadata snapshot is inconsistent; regenerate it with `godot --dump-extension-api`"

// NewMetadataError builds a MetadataError carrying a hint for the user.
func NewMetadataError(class, ref, reason string) error {
	return WithHint(
		WithStack(&MetadataError{Class: class, Ref: ref, Reason: reason}),
		metadataHint,
	)
}

// MarkMetadata wraps a decode failure of a metadata input. The cause stays
// reachable through errors.As and the result matches ErrMetadata.
func MarkMetadata(err error, format string, args ...interface{}) error {
	return WithHint(
		Mark(Wrapf(err, format, args...), ErrMetadata),
		metadataHint,
	)
}

// NewMappingError builds a MappingError carrying a hint for the user.
func NewMappingError(typ, context string) error {
	return WithHintf(
		WithStack(&MappingError{Type: typ, Context: context}),
		"add %q to type_overrides in godotdts.toml", typ,
	)
}

// NewRenderError builds a RenderError carrying a hint for the user.
func NewRenderError(class, member, reason string) error {
	return WithHint(
		WithStack(&RenderError{Class: class, Member: member, Reason: reason}),
		"disambiguate the member in the engine metadata before generating",
	)
}
