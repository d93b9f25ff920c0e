package keep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComment(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantMatch  bool
		wantReason string
	}{
		{
			name:      "line directive",
			text:      "// treeshake:keep",
			wantMatch: true,
		},
		{
			name:       "line directive with reason",
			text:       "// treeshake:keep public api",
			wantMatch:  true,
			wantReason: "public api",
		},
		{
			name:      "block directive",
			text:      "/* treeshake:keep */",
			wantMatch: true,
		},
		{
			name:       "block directive with reason",
			text:       "/* treeshake:keep used by plugins */",
			wantMatch:  true,
			wantReason: "used by plugins",
		},
		{
			name:      "no leading space required",
			text:      "//treeshake:keep",
			wantMatch: true,
		},
		{
			name:      "ordinary comment",
			text:      "// compute the total",
			wantMatch: false,
		},
		{
			name:      "prefix of another word",
			text:      "// treeshake:keeper",
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			directive := ParseComment(7, tt.text)
			if !tt.wantMatch {
				require.Nil(t, directive)
				return
			}
			require.NotNil(t, directive)
			assert.Equal(t, 7, directive.Line)
			assert.Equal(t, tt.wantReason, directive.Reason)
		})
	}
}

func TestCheckerIsPinned(t *testing.T) {
	c := NewChecker()
	c.AddComment(4, "// treeshake:keep entry point")
	c.AddComment(10, "// unrelated")

	pinned, reason := c.IsPinned(5)
	assert.True(t, pinned, "directive on the line before")
	assert.Equal(t, "entry point", reason)

	pinned, reason = c.IsPinned(4)
	assert.True(t, pinned, "directive on the same line")
	assert.Equal(t, "entry point", reason)

	pinned, _ = c.IsPinned(6)
	assert.False(t, pinned)

	pinned, _ = c.IsPinned(11)
	assert.False(t, pinned, "non-directive comments are ignored")
}

func TestCheckerDefaultReason(t *testing.T) {
	c := NewChecker()
	c.AddComment(0, "/* treeshake:keep */")

	pinned, reason := c.IsPinned(1)
	require.True(t, pinned)
	assert.Equal(t, "pinned", reason)
}

func TestCheckerClear(t *testing.T) {
	c := NewChecker()
	c.AddComment(2, "// treeshake:keep")
	require.Len(t, c.allDirectives(), 1)

	c.Clear()
	assert.Empty(t, c.allDirectives())

	pinned, _ := c.IsPinned(3)
	assert.False(t, pinned)
}
