// Package naming converts engine identifiers to the TypeScript surface.
//
// Engine members are snake_case; the generated declarations use lowerCamelCase.
// The conversion is a pure function of the identifier and is reversible for
// every canonical snake_case identifier:
//
//	get_world_2d  -> getWorld_2d   (a segment starting with a digit keeps its underscore)
//	_process      -> _process      (leading underscores are preserved)
//	uv2_offset    -> uv2Offset
//
// ToSnake(ToCamel(s)) == s holds whenever IsSnake(s).
package naming

import (
	"strings"
	"unicode"
)

// IsSnake reports whether s is a canonical engine identifier: optional
// leading underscores, then lowercase letters, digits and single underscores,
// starting with a letter and not ending with an underscore.
func IsSnake(s string) bool {
	rest := strings.TrimLeft(s, "_")
	if rest == "" || !isLower(rune(rest[0])) {
		return false
	}
	if strings.HasSuffix(rest, "_") || strings.Contains(rest, "__") {
		return false
	}
	for _, r := range rest {
		if r != '_' && !isLower(r) && !isDigit(r) {
			return false
		}
	}
	return true
}

// ToCamel converts a canonical snake_case identifier to lowerCamelCase.
// Identifiers that are not canonical are returned unchanged.
func ToCamel(s string) string {
	if !IsSnake(s) {
		return s
	}
	rest := strings.TrimLeft(s, "_")
	prefix := s[:len(s)-len(rest)]

	segments := strings.Split(rest, "_")
	var sb strings.Builder
	sb.Grow(len(s))
	sb.WriteString(prefix)
	sb.WriteString(segments[0])
	for _, seg := range segments[1:] {
		if isDigit(rune(seg[0])) {
			sb.WriteByte('_')
			sb.WriteString(seg)
			continue
		}
		sb.WriteRune(unicode.ToUpper(rune(seg[0])))
		sb.WriteString(seg[1:])
	}
	return sb.String()
}

// ToSnake is the inverse of ToCamel.
func ToSnake(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			sb.WriteByte('_')
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Member converts a member name, which may be a slash separated property
// path such as "theme_override_colors/font_color", segment by segment.
func Member(native string) string {
	if !strings.Contains(native, "/") {
		return ToCamel(native)
	}
	parts := strings.Split(native, "/")
	for i, part := range parts {
		parts[i] = ToCamel(part)
	}
	return strings.Join(parts, "/")
}

// Native is the inverse of Member.
func Native(member string) string {
	if !strings.Contains(member, "/") {
		return ToSnake(member)
	}
	parts := strings.Split(member, "/")
	for i, part := range parts {
		parts[i] = ToSnake(part)
	}
	return strings.Join(parts, "/")
}

// Param converts a parameter name and escapes TypeScript reserved words.
func Param(native string) string {
	name := ToCamel(native)
	if reserved[name] {
		return name + "_"
	}
	return name
}

// IsIdentifier reports whether s can be used unquoted as a TypeScript
// property or method name.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// reserved words that cannot name a parameter in strict mode
var reserved = map[string]bool{
	"arguments": true, "break": true, "case": true, "catch": true, "class": true,
	"const": true, "continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "enum": true, "eval": true, "export": true,
	"extends": true, "false": true, "finally": true, "for": true, "function": true,
	"if": true, "implements": true, "import": true, "in": true, "instanceof": true,
	"interface": true, "let": true, "new": true, "null": true, "package": true,
	"private": true, "protected": true, "public": true, "return": true, "static": true,
	"super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true,
	"with": true, "yield": true,
}
