package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		contains    string
		notContains string
	}{
		{
			name:     "Bold status",
			input:    "rotation: **success**",
			contains: "<strong>success</strong>",
		},
		{
			name:     "Inline code",
			input:    "instance `web-1`",
			contains: "<code>web-1</code>",
		},
		{
			name:     "Fenced log",
			input:    "```\nGetting instance by name\n>>> DONE\n```",
			contains: "&gt;&gt;&gt; DONE",
		},
		{
			name:        "Script in snapshot name",
			input:       "<script>alert('xss')</script>",
			notContains: "<script>",
		},
		{
			name:     "Link",
			input:    "[issue](https://example.com/1)",
			contains: `<a href="https://example.com/1" rel="nofollow">issue</a>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(Render(tt.input))
			if tt.contains != "" {
				assert.Contains(t, got, tt.contains)
			}
			if tt.notContains != "" {
				assert.NotContains(t, got, tt.notContains)
			}
		})
	}
}

func TestDocument(t *testing.T) {
	out, err := Document("web-1 <rotation>", "**failure**")
	require.NoError(t, err)

	page := string(out)
	assert.Contains(t, page, "<!DOCTYPE html>")
	assert.Contains(t, page, "<title>web-1 &lt;rotation&gt;</title>")
	assert.Contains(t, page, "<strong>failure</strong>")
}
