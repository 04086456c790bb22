package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/layoutkit/internal/registry/domain"
)

func TestParseMetadata(t *testing.T) {
	fsys := memFS(map[string]string{
		"full.yaml": `
name: Hero Banner
category: headers
icon: dashicons-star-filled
preview: hero.png
description: Full-width banner
settings:
  - id: title
    type: text
`,
		"json.yaml":    `{"name": "From JSON", "category": "content"}`,
		"scalar.yaml":  "just a string",
		"list.yaml":    "- a\n- b\n",
		"broken.yaml":  "name: [unclosed",
		"empty.yaml":   "",
		"numeric.yaml": "name: 404\ncategory: true\nicon: [a, b]\n",
	})
	p := NewSchemaParser(fsys)

	tests := []struct {
		name string
		path string
		want domain.Metadata
	}{
		{
			name: "missing file",
			path: "missing.yaml",
			want: domain.Metadata{},
		},
		{
			name: "empty path",
			path: "",
			want: domain.Metadata{},
		},
		{
			name: "scalar document",
			path: "scalar.yaml",
			want: domain.Metadata{},
		},
		{
			name: "sequence document",
			path: "list.yaml",
			want: domain.Metadata{},
		},
		{
			name: "syntax error",
			path: "broken.yaml",
			want: domain.Metadata{},
		},
		{
			name: "empty document",
			path: "empty.yaml",
			want: domain.Metadata{},
		},
		{
			name: "json document",
			path: "json.yaml",
			want: domain.Metadata{Name: "From JSON", Category: "content"},
		},
		{
			name: "scalars are stringified and lists ignored",
			path: "numeric.yaml",
			want: domain.Metadata{Name: "404", Category: "true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, p.ParseMetadata(tt.path))
		})
	}

	full := p.ParseMetadata("full.yaml")
	require.Equal(t, "Hero Banner", full.Name)
	require.Equal(t, "headers", full.Category)
	require.Equal(t, "dashicons-star-filled", full.Icon)
	require.Equal(t, "hero.png", full.Preview)
	require.Equal(t, "Full-width banner", full.Description)
	require.Contains(t, full.Extra, "settings")
}
