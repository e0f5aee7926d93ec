package metadata

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"godotdts/internal/errors"
)

func loadDocumentedFixture(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := Load(context.Background(), LoadOptions{APIPath: fixtureAPI, DocsPath: "testdata/doc"})
	require.NoError(t, err)
	return snap
}

func TestApplyDocsClass(t *testing.T) {
	snap := loadDocumentedFixture(t)

	node, ok := snap.Class("Node")
	require.True(t, ok)
	assert.Equal(t, "Base class for all scene objects.", node.Doc.Brief)
	assert.Contains(t, node.Doc.Description, "See [method add_child]")
	assert.Contains(t, node.Doc.Description, "[codeblock]\nfunc _ready():\n    print(\"ready\")\n[/codeblock]")
	require.Len(t, node.Doc.Tutorials, 1)
	assert.Equal(t, "Nodes and scenes", node.Doc.Tutorials[0].Title)
	assert.Equal(t, "$DOCS_URL/getting_started/step_by_step/nodes_and_scenes.html", node.Doc.Tutorials[0].URL)
	assert.Nil(t, node.Doc.Deprecated)
}

func TestApplyDocsMembers(t *testing.T) {
	snap := loadDocumentedFixture(t)
	node, _ := snap.Class("Node")

	byName := map[string]MemberDescriptor{}
	for _, m := range node.Members {
		byName[m.Kind.String()+":"+m.Name] = m
	}

	assert.Equal(t, "The name of the node.", byName["property:name"].Doc.Description)
	assert.Equal(t, "0", byName["property:process_mode"].Doc.Default)

	owner := byName["property:owner"]
	require.True(t, owner.Doc.IsDeprecated())
	assert.Equal(t, "Use scene ownership helpers instead.", *owner.Doc.Deprecated)

	assert.Equal(t, `Called when the node is "ready".`, byName["method:_ready"].Doc.Description)
	assert.Equal(t, "Emitted when the node is considered ready.", byName["signal:ready"].Doc.Description)
	assert.Empty(t, byName["method:get_child"].Doc.Description)

	assert.Equal(t, "Notification received when the node is ready.", node.Constants[0].Doc.Description)
	mode, _ := node.Enum("ProcessMode")
	assert.Contains(t, mode.Values[0].Doc.Description, "[member process_mode]")
	require.NotNil(t, mode.Values[1].Doc.Experimental)
	assert.Empty(t, *mode.Values[1].Doc.Experimental)
}

func TestApplyDocsBuiltin(t *testing.T) {
	snap := loadDocumentedFixture(t)
	vec, _ := snap.Class("Vector2")

	assert.Equal(t, "A 2D vector using floating-point coordinates.", vec.Doc.Brief)
	assert.Empty(t, vec.Doc.Tutorials)
	require.Len(t, vec.Constructors, 3)
	assert.Contains(t, vec.Constructors[2].Doc.Description, "[param x]")
	assert.Equal(t, "0.0", vec.Members[0].Doc.Default)
	assert.Contains(t, vec.Constants[0].Doc.Description, "Zero vector")

	axis, _ := vec.Enum("Axis")
	assert.Equal(t, "Enumerated value for the X axis.", axis.Values[0].Doc.Description)
}

func TestApplyDocsGlobalScope(t *testing.T) {
	snap := loadDocumentedFixture(t)

	for _, f := range snap.UtilityFunctions {
		if f.Name == "sin" {
			assert.Contains(t, f.Doc.Description, "[param angle_rad]")
		}
	}

	var failed ConstantDescriptor
	for _, e := range snap.GlobalEnums {
		for _, v := range e.Values {
			if v.Name == "FAILED" {
				failed = v
			}
		}
	}
	require.NotNil(t, failed.Doc.Deprecated, "legacy is_deprecated flag")
	assert.Empty(t, *failed.Doc.Deprecated)
}

func TestApplyDocsIgnoresUnknownClasses(t *testing.T) {
	snap := loadDocumentedFixture(t)
	_, ok := snap.Class("GDScript")
	assert.False(t, ok)
}

func TestApplyDocsMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Node.xml"), []byte(`<class name="Node"><brief_description>`), 0o644))

	snap := loadFixture(t)
	err := ApplyDocs(context.Background(), snap, dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMetadata))
	assert.Contains(t, err.Error(), "malformed class reference")

	var syntaxErr *xml.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr), err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestApplyDocsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ApplyDocs(ctx, loadFixture(t), "testdata/doc")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDedent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "blank", input: "\n\t\t\n\t", want: ""},
		{name: "tabs", input: "\n\t\tFirst.\n\t\tSecond.\n\t", want: "First.\nSecond."},
		{name: "nested", input: "\n\t\tfunc a():\n\t\t\tpass\n\t", want: "func a():\n\tpass"},
		{name: "crlf", input: "\r\n\tLine.\r\n", want: "Line."},
		{name: "mixed depth", input: "\t\tdeep\n\tshallow", want: "\tdeep\nshallow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dedent(tt.input))
		})
	}
}
