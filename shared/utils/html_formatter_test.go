package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLFormatter_Format(t *testing.T) {
	f := NewHTMLFormatter()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "Plain text", in: "Привет, путник", want: "Привет, путник"},
		{name: "Ampersand", in: "Tom & Jerry", want: "Tom &amp; Jerry"},
		{name: "Allowed tags kept", in: "<b>жирный</b> и <i>курсив</i>", want: "<b>жирный</b> и <i>курсив</i>"},
		{name: "Upper case tag normalized", in: "<B>x</B>", want: "<b>x</b>"},
		{name: "Script escaped", in: "<script>alert(1)</script>", want: "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{name: "Quotes", in: `Tom's "q"`, want: "Tom&#39;s &#34;q&#34;"},
		{name: "Entity kept as text", in: "&amp;", want: "&amp;amp;"},
		{name: "Attributes are not formatting", in: `<b class="x">y</b>`, want: "&lt;b class=&#34;x&#34;&gt;y&lt;/b&gt;"},
		{name: "Unclosed tag closed", in: "<b>open", want: "<b>open</b>"},
		{name: "Stray closer escaped", in: "</i>stray", want: "&lt;/i&gt;stray"},
		{name: "Crossed tags nested", in: "<b><i>x</b>y</i>", want: "<b><i>x</i></b>y&lt;/i&gt;"},
		{name: "Inner tags closed at end", in: "<u><code>c", want: "<u><code>c</code></u>"},
		{name: "Empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Format(tt.in))
		})
	}
}

func TestHTMLFormatter_FormatAll(t *testing.T) {
	f := NewHTMLFormatter()
	got := f.FormatAll([]string{"a < b", "<u>u</u>"})
	assert.Equal(t, []string{"a &lt; b", "<u>u</u>"}, got)
}
