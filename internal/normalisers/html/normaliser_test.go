package html

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	n := New()
	assert.NotNil(t, n)
	assert.Equal(t, "html", n.Format())
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple paragraph",
			input:    "<p>Hello World</p>",
			expected: "Hello World",
		},
		{
			name:     "nested tags",
			input:    "<div><p><strong>Bold</strong> text</p></div>",
			expected: "Bold text",
		},
		{
			name:     "script removed",
			input:    "<p>Before</p><script>alert('evil');</script><p>After</p>",
			expected: "Before\nAfter",
		},
		{
			name:     "style removed",
			input:    "<style>.foo { color: red; }</style><p>Content</p>",
			expected: "Content",
		},
		{
			name:     "br to newline",
			input:    "Line 1<br>Line 2<br/>Line 3",
			expected: "Line 1\nLine 2\nLine 3",
		},
		{
			name:     "HTML entities decoded",
			input:    "<p>&lt;tag&gt; &amp; &quot;quotes&quot;</p>",
			expected: "<tag> & \"quotes\"",
		},
		{
			name:     "comments removed",
			input:    "<p>Before</p><!-- comment --><p>After</p>",
			expected: "Before\nAfter",
		},
		{
			name:     "list items",
			input:    "<ul><li>Item 1</li><li>Item 2</li></ul>",
			expected: "Item 1\nItem 2",
		},
		{
			name:     "links keep text",
			input:    `<a href="https://example.com">Click here</a>`,
			expected: "Click here",
		},
		{
			name:     "images removed",
			input:    `<p>See <img src="image.png" alt="Image"> here</p>`,
			expected: "See here",
		},
		{
			name:     "plain text collapsed",
			input:    "  decentralized   file systems\n\n\nlike IPFS ",
			expected: "decentralized file systems\nlike IPFS",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, New().Normalise(tc.input))
		})
	}
}

func TestNormalise_ForumPost(t *testing.T) {
	post := `<p>Has anyone benchmarked <code>ipfs add</code>?</p>
<blockquote><p>It was slow for me</p></blockquote>
<p>Thanks &amp; regards</p>`

	got := New().Normalise(post)

	assert.Equal(t, "Has anyone benchmarked ipfs add?\nIt was slow for me\nThanks & regards", got)
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = New()
}
