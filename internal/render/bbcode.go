package render

import (
	"strings"

	"godotdts/internal/metadata"
	"godotdts/internal/naming"
	"godotdts/internal/typemap"
)

// bbcode converts the class reference markup to Markdown with {@link} cross
// references. class is the documented class and may be nil for global scope.
type bbcode struct {
	index *metadata.Index
	class *metadata.ClassDescriptor
	urls  []string
}

var simpleTags = map[string]string{
	"b": "**", "/b": "**",
	"i": "*", "/i": "*",
	"s": "~~", "/s": "~~",
	"kbd": "`", "/kbd": "`",
	"u": "", "/u": "",
	"center": "", "/center": "",
	"/color": "", "/font": "", "/font_size": "",
	"br": "\n",
	"lb": "[", "rb": "]",
}

func (b *bbcode) convert(text string) string {
	b.urls = b.urls[:0]
	text = strings.ReplaceAll(text, "$DOCS_URL", docsURL)

	var out strings.Builder
	for i := 0; i < len(text); {
		if text[i] != '[' {
			out.WriteByte(text[i])
			i++
			continue
		}
		end := strings.IndexByte(text[i:], ']')
		if end < 0 {
			out.WriteString(text[i:])
			break
		}
		tag := text[i+1 : i+end]
		next := i + end + 1

		switch {
		case tag == "code":
			inner, after := until(text, next, "[/code]")
			out.WriteString("`" + inner + "`")
			i = after
			continue
		case tag == "codeblock" || strings.HasPrefix(tag, "codeblock "):
			inner, after := until(text, next, "[/codeblock]")
			out.WriteString(fence(codeLang(tag), inner))
			i = after
			continue
		case tag == "codeblocks":
			inner, after := until(text, next, "[/codeblocks]")
			if start := strings.Index(inner, "[gdscript]"); start >= 0 {
				sample, _ := until(inner, start+len("[gdscript]"), "[/gdscript]")
				out.WriteString(fence("gdscript", sample))
			}
			i = after
			continue
		}

		out.WriteString(b.inline(tag))
		i = next
	}
	return strings.TrimSpace(out.String())
}

// until returns the text between from and the closing marker, and the offset
// after the marker. A missing marker consumes the rest of the text.
func until(text string, from int, marker string) (string, int) {
	n := strings.Index(text[from:], marker)
	if n < 0 {
		return text[from:], len(text)
	}
	return text[from : from+n], from + n + len(marker)
}

func codeLang(tag string) string {
	if _, lang, ok := strings.Cut(tag, "lang="); ok {
		return strings.TrimSpace(lang)
	}
	return "gdscript"
}

func fence(lang, code string) string {
	code = strings.Trim(code, "\n")
	return "\n```" + lang + "\n" + code + "\n```\n"
}

func (b *bbcode) inline(tag string) string {
	if md, ok := simpleTags[tag]; ok {
		return md
	}

	switch {
	case strings.HasPrefix(tag, "color="), strings.HasPrefix(tag, "font="), strings.HasPrefix(tag, "font_size="):
		return ""
	case strings.HasPrefix(tag, "url="):
		b.urls = append(b.urls, strings.TrimPrefix(tag, "url="))
		return "["
	case tag == "url":
		b.urls = append(b.urls, "")
		return ""
	case tag == "/url":
		if len(b.urls) == 0 {
			return ""
		}
		url := b.urls[len(b.urls)-1]
		b.urls = b.urls[:len(b.urls)-1]
		if url == "" {
			return ""
		}
		return "](" + url + ")"
	}

	kind, target, ok := strings.Cut(tag, " ")
	if !ok {
		return b.typeLink(tag)
	}
	target = strings.TrimSpace(target)

	switch kind {
	case "param":
		return "`" + naming.Param(target) + "`"
	case "annotation", "theme_item", "operator":
		return "`" + target + "`"
	case "constructor":
		owner, _ := splitTarget(target)
		return "`" + owner + "`"
	case "method", "member", "signal":
		owner, name := splitTarget(target)
		return b.memberLink(owner, naming.Member(name))
	case "constant", "enum":
		owner, name := splitTarget(target)
		if owner == "" && b.class != nil && !b.ownsConstant(name) {
			return "`" + name + "`"
		}
		return b.memberLink(owner, name)
	}
	return "[" + tag + "]"
}

// typeLink links a bare [ClassName] reference. Table mapped types and
// unknown names are rendered as code.
func (b *bbcode) typeLink(name string) string {
	switch {
	case typemap.Excluded(name), strings.HasPrefix(name, "@"):
		return "`" + name + "`"
	case isPascal(name):
		if _, ok := b.index.Class(name); ok {
			return "{@link " + name + "}"
		}
		return "`" + name + "`"
	}
	return "[" + name + "]"
}

func (b *bbcode) memberLink(owner, name string) string {
	if owner == "" {
		if b.class == nil {
			return "`" + name + "`"
		}
		owner = b.class.Name
	}
	if _, ok := b.index.Class(owner); !ok {
		return "`" + owner + "." + name + "`"
	}
	return "{@link " + owner + "." + name + "}"
}

func (b *bbcode) ownsConstant(name string) bool {
	for _, k := range b.class.Constants {
		if k.Name == name {
			return true
		}
	}
	for _, e := range b.class.Enums {
		if e.Name == name {
			return true
		}
		for _, v := range e.Values {
			if v.Name == name {
				return true
			}
		}
	}
	return false
}

// splitTarget splits "Class.member" at the last dot. Global references such
// as "@GlobalScope.PI" have no owner class.
func splitTarget(target string) (owner, name string) {
	i := strings.LastIndexByte(target, '.')
	if i < 0 {
		return "", target
	}
	owner, name = target[:i], target[i+1:]
	if strings.HasPrefix(owner, "@") {
		return "", name
	}
	return owner, name
}

func isPascal(s string) bool {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	return naming.IsIdentifier(s)
}
