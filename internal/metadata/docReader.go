package metadata

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"godotdts/internal/errors"
	"godotdts/internal/logger"
)

const globalScopeDoc = "@GlobalScope"

type docClass struct {
	Name           string        `xml:"name,attr"`
	Deprecated     *string       `xml:"deprecated,attr"`
	IsDeprecated   bool          `xml:"is_deprecated,attr"`
	Experimental   *string       `xml:"experimental,attr"`
	IsExperimental bool          `xml:"is_experimental,attr"`
	Brief          string        `xml:"brief_description"`
	Description    string        `xml:"description"`
	Tutorials      []docLink     `xml:"tutorials>link"`
	Constructors   []docMethod   `xml:"constructors>constructor"`
	Methods        []docMethod   `xml:"methods>method"`
	Members        []docMember   `xml:"members>member"`
	Signals        []docMethod   `xml:"signals>signal"`
	Constants      []docConstant `xml:"constants>constant"`
}

type docLink struct {
	Title string `xml:"title,attr"`
	URL   string `xml:",chardata"`
}

type docMethod struct {
	Name           string  `xml:"name,attr"`
	Deprecated     *string `xml:"deprecated,attr"`
	IsDeprecated   bool    `xml:"is_deprecated,attr"`
	Experimental   *string `xml:"experimental,attr"`
	IsExperimental bool    `xml:"is_experimental,attr"`
	Description    string  `xml:"description"`
}

type docMember struct {
	Name           string  `xml:"name,attr"`
	Default        *string `xml:"default,attr"`
	Deprecated     *string `xml:"deprecated,attr"`
	IsDeprecated   bool    `xml:"is_deprecated,attr"`
	Experimental   *string `xml:"experimental,attr"`
	IsExperimental bool    `xml:"is_experimental,attr"`
	Text           string  `xml:",chardata"`
}

type docConstant struct {
	Name           string  `xml:"name,attr"`
	Enum           string  `xml:"enum,attr"`
	Deprecated     *string `xml:"deprecated,attr"`
	IsDeprecated   bool    `xml:"is_deprecated,attr"`
	Experimental   *string `xml:"experimental,attr"`
	IsExperimental bool    `xml:"is_experimental,attr"`
	Text           string  `xml:",chardata"`
}

// ApplyDocs overlays the XML class reference found in dir onto snap.
// Files for classes the API does not contain are skipped.
func ApplyDocs(ctx context.Context, snap *Snapshot, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "read docs directory %s", dir)
	}

	applied := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".xml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		doc, err := readDocFile(path)
		if err != nil {
			return err
		}

		if doc.Name == globalScopeDoc {
			applyGlobalScopeDoc(snap, doc)
			applied++
			continue
		}

		class, ok := snap.Class(doc.Name)
		if !ok {
			logger.Debugw("Skipping class reference without API entry", "class", doc.Name, "file", path)
			continue
		}
		applyClassDoc(class, doc)
		applied++
	}

	logger.Infow("Applied class reference", "dir", dir, "classes", applied)
	return nil
}

func readDocFile(path string) (*docClass, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var doc docClass
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.MarkMetadata(err, "malformed class reference %s", path)
	}
	return &doc, nil
}

func applyClassDoc(class *ClassDescriptor, doc *docClass) {
	class.Doc.Brief = dedent(doc.Brief)
	class.Doc.Description = dedent(doc.Description)
	class.Doc.Deprecated = notice(doc.Deprecated, doc.IsDeprecated)
	class.Doc.Experimental = notice(doc.Experimental, doc.IsExperimental)
	for _, link := range doc.Tutorials {
		class.Doc.Tutorials = append(class.Doc.Tutorials, Link{
			Title: strings.TrimSpace(link.Title),
			URL:   strings.TrimSpace(link.URL),
		})
	}

	methods := make(map[string]docMethod, len(doc.Methods))
	for _, m := range doc.Methods {
		methods[m.Name] = m
	}
	signals := make(map[string]docMethod, len(doc.Signals))
	for _, s := range doc.Signals {
		signals[s.Name] = s
	}
	members := make(map[string]docMember, len(doc.Members))
	for _, m := range doc.Members {
		members[m.Name] = m
	}

	for i := range class.Members {
		member := &class.Members[i]
		switch member.Kind {
		case MemberProperty:
			if m, ok := members[member.Name]; ok {
				member.Doc.Description = dedent(m.Text)
				member.Doc.Deprecated = notice(m.Deprecated, m.IsDeprecated)
				member.Doc.Experimental = notice(m.Experimental, m.IsExperimental)
				if m.Default != nil {
					member.Doc.Default = *m.Default
				}
			}
		case MemberMethod:
			if m, ok := methods[member.Name]; ok {
				member.Doc = methodDoc(m)
			}
		case MemberSignal:
			if s, ok := signals[member.Name]; ok {
				member.Doc = methodDoc(s)
			}
		}
	}

	// Constructors are documented in declaration order.
	for i := range class.Constructors {
		if i < len(doc.Constructors) {
			class.Constructors[i].Doc = methodDoc(doc.Constructors[i])
		}
	}

	constants := make(map[string]docConstant, len(doc.Constants))
	for _, c := range doc.Constants {
		constants[c.Name] = c
	}
	for i := range class.Constants {
		applyConstantDoc(&class.Constants[i], constants)
	}
	for i := range class.Enums {
		for j := range class.Enums[i].Values {
			applyConstantDoc(&class.Enums[i].Values[j], constants)
		}
	}
}

func applyGlobalScopeDoc(snap *Snapshot, doc *docClass) {
	methods := make(map[string]docMethod, len(doc.Methods))
	for _, m := range doc.Methods {
		methods[m.Name] = m
	}
	for i := range snap.UtilityFunctions {
		if m, ok := methods[snap.UtilityFunctions[i].Name]; ok {
			snap.UtilityFunctions[i].Doc = methodDoc(m)
		}
	}

	constants := make(map[string]docConstant, len(doc.Constants))
	for _, c := range doc.Constants {
		constants[c.Name] = c
	}
	for i := range snap.GlobalEnums {
		for j := range snap.GlobalEnums[i].Values {
			applyConstantDoc(&snap.GlobalEnums[i].Values[j], constants)
		}
	}
}

func applyConstantDoc(c *ConstantDescriptor, docs map[string]docConstant) {
	d, ok := docs[c.Name]
	if !ok {
		return
	}
	c.Doc.Description = dedent(d.Text)
	c.Doc.Deprecated = notice(d.Deprecated, d.IsDeprecated)
	c.Doc.Experimental = notice(d.Experimental, d.IsExperimental)
}

func methodDoc(m docMethod) Documentation {
	return Documentation{
		Description:  dedent(m.Description),
		Deprecated:   notice(m.Deprecated, m.IsDeprecated),
		Experimental: notice(m.Experimental, m.IsExperimental),
	}
}

// notice merges the 4.3+ message attribute with the older boolean flag.
func notice(message *string, flagged bool) *string {
	if message != nil {
		text := strings.TrimSpace(*message)
		return &text
	}
	if flagged {
		empty := ""
		return &empty
	}
	return nil
}

// dedent strips the common leading indentation of the class reference's
// tab-indented text blocks and trims surrounding blank lines.
func dedent(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	prefix := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			prefix = indent
			first = false
			continue
		}
		for !strings.HasPrefix(indent, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}

	for i, line := range lines {
		lines[i] = strings.TrimRight(strings.TrimPrefix(line, prefix), " \t")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
