// Package sanitize strips HTML markup from feed entry summaries and decodes
// a minimal entity set, the way feed descriptions need to be before they are
// stored or compared.
package sanitize

import (
	"strconv"
	"strings"
	"unicode"
)

var namedEntities = map[string]string{
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": "\"",
	"&apos;": "'",
}

// HTML removes <script> and <style> blocks (case-insensitive, dropping to
// the end of input if unterminated), strips remaining tags, decodes entities,
// collapses whitespace runs to a single space, and trims the result.
func HTML(input string) string {
	if input == "" {
		return ""
	}

	stripped := stripScriptAndStyle(input)
	stripped = stripTags(stripped)
	stripped = DecodeEntities(stripped)
	return collapseWhitespace(stripped)
}

// DecodeEntities decodes the named entities {&amp; &lt; &gt; &quot; &apos;}
// and numeric &#N; / &#xH; references. Used directly on titles, which are
// entity-decoded but not tag-stripped.
func DecodeEntities(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	for i := 0; i < len(input); {
		if input[i] != '&' {
			b.WriteByte(input[i])
			i++
			continue
		}

		end := strings.IndexByte(input[i:], ';')
		if end < 0 {
			b.WriteByte(input[i])
			i++
			continue
		}
		entity := input[i : i+end+1]

		if replacement, ok := namedEntities[entity]; ok {
			b.WriteString(replacement)
			i += len(entity)
			continue
		}

		if decoded, ok := decodeNumericEntity(entity); ok {
			b.WriteRune(decoded)
			i += len(entity)
			continue
		}

		b.WriteByte(input[i])
		i++
	}

	return b.String()
}

func decodeNumericEntity(entity string) (rune, bool) {
	body := strings.TrimSuffix(strings.TrimPrefix(entity, "&#"), ";")
	if body == entity {
		return 0, false
	}

	base := 10
	if strings.HasPrefix(body, "x") || strings.HasPrefix(body, "X") {
		base = 16
		body = body[1:]
	}
	if body == "" {
		return 0, false
	}

	code, err := strconv.ParseInt(body, base, 32)
	if err != nil || code < 0 || code > 0x10FFFF {
		return 0, false
	}
	return rune(code), true
}

func stripScriptAndStyle(input string) string {
	buf := input
	for _, tag := range []string{"script", "style"} {
		open := "<" + tag
		closeTag := "</" + tag + ">"
		for {
			lower := strings.ToLower(buf)
			start := strings.Index(lower, open)
			if start < 0 {
				break
			}
			if end := strings.Index(lower[start:], closeTag); end >= 0 {
				buf = buf[:start] + buf[start+end+len(closeTag):]
				continue
			}
			buf = buf[:start]
			break
		}
	}
	return buf
}

func stripTags(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	inTag := false
	for _, r := range input {
		switch r {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func collapseWhitespace(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	lastSpace := false
	for _, r := range input {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}
