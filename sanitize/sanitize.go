// Package sanitize repairs common real-world feed malformations so that
// a strict XML parser can accept the payload. It is a best-effort
// textual rewrite, not an XML-aware transform: applying it to valid XML
// must not change its meaning, and applying it twice must equal
// applying it once.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// Entity references the escape pass must leave alone. Anything else
	// after '&' (including unknown named entities like &nbsp;) gets the
	// ampersand escaped and survives as literal text.
	entityRef = regexp.MustCompile(`^&(amp|lt|gt|quot|apos|#[0-9]{1,7}|#x[0-9a-fA-F]{1,6});`)

	tagSpan   = regexp.MustCompile(`<[^<>]+>`)
	nsPrefix  = regexp.MustCompile(`(</?)[A-Za-z][\w.-]*:`)
	xmlnsAttr = regexp.MustCompile(`\s+xmlns(:[\w.-]+)?\s*=\s*("[^"]*"|'[^']*')`)
	bareValue = regexp.MustCompile(`^[^\s"'<>]+`)
)

// Sanitize applies the repair passes in order: strip illegal control
// characters, escape bare ampersands, quote unquoted attribute values,
// strip namespace prefixes from tag names and drop xmlns declarations.
// CDATA sections pass through verbatim; their content is opaque to the
// XML parser and rewriting it would alter valid documents.
func Sanitize(raw string) string {
	s := stripControlChars(raw)

	var b strings.Builder
	b.Grow(len(s))
	for {
		start := strings.Index(s, "<![CDATA[")
		if start < 0 {
			b.WriteString(repair(s))
			break
		}
		length := strings.Index(s[start:], "]]>")
		if length < 0 {
			b.WriteString(repair(s))
			break
		}
		end := start + length + len("]]>")
		b.WriteString(repair(s[:start]))
		b.WriteString(s[start:end])
		s = s[end:]
	}
	return b.String()
}

// repair runs the markup-level passes on a chunk that contains no CDATA.
func repair(s string) string {
	s = escapeBareAmpersands(s)
	s = tagSpan.ReplaceAllStringFunc(s, quoteAttrValues)
	s = xmlnsAttr.ReplaceAllString(s, "")
	s = nsPrefix.ReplaceAllString(s, "$1")
	return s
}

// stripControlChars drops characters that are illegal in XML 1.0 text
// content. Tab, LF and CR stay.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		case r == 0xfffe || r == 0xffff:
			return -1
		}
		return r
	}, s)
}

// escapeBareAmpersands rewrites '&' to '&amp;' unless it begins a
// recognized entity or numeric character reference.
func escapeBareAmpersands(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '&' {
			b.WriteByte(s[i])
			continue
		}
		if entityRef.MatchString(s[i:]) {
			b.WriteByte('&')
		} else {
			b.WriteString("&amp;")
		}
	}
	return b.String()
}

// quoteAttrValues rewrites attr=value to attr="value" inside a single
// tag span. Quoted values are skipped wholesale, so a value that
// happens to contain '=' or whitespace is never rewritten. A bare value
// cannot contain '>'; such input was unparseable before this pass too.
func quoteAttrValues(tag string) string {
	if strings.HasPrefix(tag, "<!") || strings.HasPrefix(tag, "<?") {
		return tag
	}
	var b strings.Builder
	b.Grow(len(tag) + 4)
	for i := 0; i < len(tag); {
		c := tag[i]
		if c == '"' || c == '\'' {
			end := strings.IndexByte(tag[i+1:], c)
			if end < 0 {
				b.WriteString(tag[i:])
				break
			}
			b.WriteString(tag[i : i+end+2])
			i += end + 2
			continue
		}
		if c != '=' {
			b.WriteByte(c)
			i++
			continue
		}
		b.WriteByte('=')
		i++
		// Skip whitespace between '=' and the value.
		for i < len(tag) && (tag[i] == ' ' || tag[i] == '\t') {
			i++
		}
		if i >= len(tag) || tag[i] == '"' || tag[i] == '\'' {
			continue
		}
		if val := bareValue.FindString(tag[i:]); val != "" {
			b.WriteByte('"')
			b.WriteString(val)
			b.WriteByte('"')
			i += len(val)
		}
	}
	return b.String()
}
