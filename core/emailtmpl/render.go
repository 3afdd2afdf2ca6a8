package emailtmpl

import (
	"html"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Substitute replaces every {{var}} placeholder in s with vars[var].
// Unknown placeholders render empty. Values are HTML-escaped when escape is set.
func Substitute(s string, vars map[string]string, escape bool) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		val := vars[name]
		if escape {
			return html.EscapeString(val)
		}
		return val
	})
}

// Render substitutes vars in the subject and bodies of t.
// Only the HTML body is escaped. Subjects are single lines, so line breaks in values are dropped there.
func Render(t Template, vars map[string]string) Rendered {
	subj := Substitute(t.Subject, vars, false)
	subj = strings.Join(strings.Fields(subj), " ")
	return Rendered{
		Subject:  subj,
		HTMLBody: Substitute(t.HTMLBody, vars, true),
		TextBody: Substitute(t.TextBody, vars, false),
	}
}

// Placeholders lists the distinct variable names used by t, in order of appearance.
func Placeholders(t Template) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, s := range []string{t.Subject, t.HTMLBody, t.TextBody} {
		for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				names = append(names, m[1])
			}
		}
	}
	return names
}
