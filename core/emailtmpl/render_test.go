package emailtmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	vars := map[string]string{"name": `<b>Tom & "Jerry"</b>`, "n": "3"}
	tests := []struct {
		name   string
		s      string
		escape bool
		want   string
	}{
		{name: "no placeholder", s: "plain text", want: "plain text"},
		{name: "raw", s: "Hi {{name}}!", want: `Hi <b>Tom & "Jerry"</b>!`},
		{name: "escaped", s: "Hi {{name}}!", escape: true, want: "Hi &lt;b&gt;Tom &amp; &#34;Jerry&#34;&lt;/b&gt;!"},
		{name: "inner spaces", s: "{{ n }} sets", want: "3 sets"},
		{name: "unknown renders empty", s: "[{{missing}}]", want: "[]"},
		{name: "unbalanced braces kept", s: "{{name", want: "{{name"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Substitute(tc.s, vars, tc.escape))
		})
	}
}

func TestRender(t *testing.T) {
	tmpl := Template{
		Subject:  "Hello {{name}}",
		HTMLBody: "<p>{{name}}</p>",
		TextBody: "{{name}}",
	}
	r := Render(tmpl, map[string]string{"name": "A<B>\nC"})
	assert.Equal(t, "Hello A<B> C", r.Subject)
	assert.Equal(t, "<p>A&lt;B&gt;\nC</p>", r.HTMLBody)
	assert.Equal(t, "A<B>\nC", r.TextBody)
}

func TestPlaceholders(t *testing.T) {
	tmpl, ok := Default(KeyMembershipActivated)
	assert.True(t, ok)
	assert.True(t, tmpl.IsDefault)
	assert.Equal(t, []string{"membership_name", "name", "starts_at", "ends_at", "price"}, Placeholders(tmpl))
	assert.Empty(t, Placeholders(Template{Subject: "static"}))
}
