package sanitize

import (
	"html"
	"strings"

	kgsanitize "github.com/kennygrant/sanitize"
)

var allowedTags = []string{
	"h1", "h2", "h3", "h4", "h5", "h6",
	"p", "br", "hr", "div", "span",
	"b", "strong", "i", "em", "u",
	"ul", "ol", "li",
	"a", "blockquote", "pre", "code",
}

var allowedAttributes = []string{"href", "title", "rel"}

// Policy cleans HTML that came from outside the application before it is
// rendered unescaped. A disabled policy passes input through.
type Policy struct {
	enabled bool
}

func NewPolicy(enabled bool) Policy {
	return Policy{enabled: enabled}
}

func (p Policy) HTML(s string) string {
	if !p.enabled {
		return s
	}
	return HTML(s)
}

// HTML keeps formatting markup and drops scripts, styles, frames, event
// handlers and javascript: links. Input that cannot be tokenised is escaped.
func HTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	out, err := kgsanitize.HTMLAllowing(s, allowedTags, allowedAttributes)
	if err != nil {
		return html.EscapeString(s)
	}
	return out
}
