package render

import (
	"strings"

	"godotdts/internal/metadata"
)

const docsURL = "https://docs.godotengine.org/en/stable"

// jsDoc accumulates one documentation comment.
type jsDoc struct {
	conv      *bbcode
	body      []string
	tags      []string
	lastPlain bool
}

func newJSDoc(conv *bbcode) *jsDoc {
	return &jsDoc{conv: conv}
}

func (d *jsDoc) empty() bool { return len(d.body) == 0 && len(d.tags) == 0 }

// text appends a class reference paragraph, converted to Markdown.
func (d *jsDoc) text(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if len(d.body) > 0 {
		d.body = append(d.body, "")
	}
	d.body = append(d.body, strings.Split(d.conv.convert(s), "\n")...)
	d.lastPlain = false
}

// line appends a literal line. Consecutive lines form one paragraph.
func (d *jsDoc) line(s string) {
	if len(d.body) > 0 && !d.lastPlain {
		d.body = append(d.body, "")
	}
	d.body = append(d.body, s)
	d.lastPlain = true
}

func (d *jsDoc) tag(name, text string) {
	d.tags = append(d.tags, strings.TrimSpace(name+" "+text))
}

func (d *jsDoc) see(link metadata.Link) {
	url := strings.ReplaceAll(link.URL, "$DOCS_URL", docsURL)
	if link.Title == "" {
		d.tag("@see", "{@link "+url+"}")
		return
	}
	d.tag("@see", "{@link "+url+" | "+link.Title+"}")
}

func (d *jsDoc) notices(doc metadata.Documentation) {
	if doc.Deprecated != nil {
		d.tag("@deprecated", d.conv.convert(*doc.Deprecated))
	}
	if doc.Experimental != nil {
		d.tag("@experimental", d.conv.convert(*doc.Experimental))
	}
}

// lines renders the comment, or nothing when it is empty.
func (d *jsDoc) lines() []string {
	if d.empty() {
		return nil
	}
	all := append([]string(nil), d.body...)
	if len(d.tags) > 0 && len(all) > 0 {
		all = append(all, "")
	}
	all = append(all, d.tags...)

	if len(all) == 1 && !strings.Contains(all[0], "```") {
		return []string{"/** " + escapeComment(all[0]) + " */"}
	}
	out := make([]string, 0, len(all)+2)
	out = append(out, "/**")
	for _, l := range all {
		if l == "" {
			out = append(out, " *")
			continue
		}
		out = append(out, " * "+escapeComment(l))
	}
	return append(out, " */")
}

func (d *jsDoc) write(sb *strings.Builder, prefix string) {
	for _, l := range d.lines() {
		sb.WriteString(prefix)
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
}

func escapeComment(s string) string {
	return strings.ReplaceAll(s, "*/", "*\\/")
}
