// Package pointer holds the RFC 6901 helpers shared by the generator, the
// coverage tracker and the loader. Schema locations are rendered as
// "#"-prefixed fragments ("#/properties/id"); instance locations as plain
// pointers ("/items/2"), with "" for the document root.
package pointer

import (
	"strconv"
	"strings"
)

// Root is the canonical pointer of a schema document root.
const Root = "#"

var (
	escaper   = strings.NewReplacer("~", "~0", "/", "~1")
	unescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// Escape escapes one reference token.
func Escape(token string) string { return escaper.Replace(token) }

// Unescape reverses Escape.
func Unescape(token string) string { return unescaper.Replace(token) }

// Join appends escaped tokens to base.
func Join(base string, tokens ...string) string {
	if len(tokens) == 0 {
		return base
	}
	var b strings.Builder
	b.WriteString(base)
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(Escape(t))
	}
	return b.String()
}

// Index appends an array index.
func Index(base string, i int) string { return base + "/" + strconv.Itoa(i) }

// Split returns the unescaped tokens of p, ignoring a leading "#".
func Split(p string) []string {
	p = strings.TrimPrefix(p, "#")
	if p == "" || p == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i := range parts {
		parts[i] = Unescape(parts[i])
	}
	return parts
}

// Parent drops the last token. The parent of a root is the root itself.
func Parent(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return p
	}
	return p[:i]
}

// Last returns the unescaped last token, or "" for a root.
func Last(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return ""
	}
	return Unescape(p[i+1:])
}

// HasPrefix reports whether p equals prefix or lies below it.
func HasPrefix(p, prefix string) bool {
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}

// Display renders an instance pointer for messages, using "/" for the root
// like the issue paths of the validation layer.
func Display(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
