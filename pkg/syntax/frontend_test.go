package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceSuffix(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"./mod.ts", ".ts"},
		{"./mod.tsx", ".tsx"},
		{"./mod.js", ".js"},
		{"./mod.mjs", ".mjs"},
		{"./mod", ""},
		{"react", ""},
		{"./styles.css", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SourceSuffix(tt.name), "suffix of %q", tt.name)
	}
}

func TestNormalizeSpecifier(t *testing.T) {
	tests := []struct {
		name string
		spec string
		raw  string
		want string
	}{
		{"unchanged when equal", "./mod.ts", "./mod.ts", "./mod.ts"},
		{"reattaches stripped suffix", "./mod", "./mod.ts", "./mod.ts"},
		{"bare specifier untouched", "react", "react", "react"},
		{"no suffix to reattach", "./a", "./b", "./a"},
		{"existing suffix wins", "./mod.js", "./mod.ts", "./mod.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSpecifier(tt.spec, tt.raw))
		})
	}
}
