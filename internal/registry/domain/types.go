package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind identifies the type of layout resource held in the index.
type Kind string

const (
	// KindSection is a page section: a metadata file paired with a content file.
	KindSection Kind = "section"
	// KindTemplate is a page template (a JSON document listing sections).
	KindTemplate Kind = "template"
	// KindSnippet is a reusable content fragment.
	KindSnippet Kind = "snippet"
)

// Kinds returns every resource kind in index order.
func Kinds() []Kind {
	return []Kind{KindSection, KindTemplate, KindSnippet}
}

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSection, KindTemplate, KindSnippet:
		return true
	default:
		return false
	}
}

// ParseKind accepts the singular or plural kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "section", "sections":
		return KindSection, nil
	case "template", "templates":
		return KindTemplate, nil
	case "snippet", "snippets":
		return KindSnippet, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Well-known source tags. Any other tag is an extension id.
const (
	SourceTheme = "theme"
	SourceCore  = "core"
)

// Presentation defaults applied to sections when metadata omits them.
const (
	DefaultCategory = "general"
	DefaultIcon     = "dashicons-layout"
)

// Source describes where a resource came from.
type Source struct {
	Tag   string // "theme", an extension id, or "core"
	Label string // human-readable source name
}

// Metadata is the declarative data read from a section's schema file.
// Empty strings mean "not declared".
type Metadata struct {
	Name        string
	Category    string
	Icon        string
	Preview     string
	Description string
	Extra       map[string]any // unrecognized keys, kept for forward compatibility
}

// Resource is a single indexed section, template or snippet.
type Resource struct {
	ID             string `json:"id"`
	Kind           Kind   `json:"kind"`
	DisplayName    string `json:"name"`
	DefinitionPath string `json:"schema_file,omitempty"`
	ContentPath    string `json:"content_file"`
	Source         string `json:"source"`
	SourceLabel    string `json:"source_name"`
	Category       string `json:"category,omitempty"`
	Icon           string `json:"icon,omitempty"`
	Preview        string `json:"preview,omitempty"`
	Description    string `json:"description,omitempty"`
}

// NewSection builds a section record, filling presentation defaults.
func NewSection(id, definitionPath, contentPath string, src Source, meta Metadata) Resource {
	return Resource{
		ID:             id,
		Kind:           KindSection,
		DisplayName:    orDefault(meta.Name, Humanize(id)),
		DefinitionPath: definitionPath,
		ContentPath:    contentPath,
		Source:         src.Tag,
		SourceLabel:    orDefault(src.Label, src.Tag),
		Category:       orDefault(meta.Category, DefaultCategory),
		Icon:           orDefault(meta.Icon, DefaultIcon),
		Preview:        meta.Preview,
		Description:    meta.Description,
	}
}

// NewTemplate builds a template record.
func NewTemplate(id, contentPath string, src Source) Resource {
	return newFlat(KindTemplate, id, contentPath, src)
}

// NewSnippet builds a snippet record.
func NewSnippet(id, contentPath string, src Source) Resource {
	return newFlat(KindSnippet, id, contentPath, src)
}

func newFlat(kind Kind, id, contentPath string, src Source) Resource {
	return Resource{
		ID:          id,
		Kind:        kind,
		DisplayName: Humanize(id),
		ContentPath: contentPath,
		Source:      src.Tag,
		SourceLabel: orDefault(src.Label, src.Tag),
	}
}

// EffectiveCategory returns the declared category, or DefaultCategory.
func (r Resource) EffectiveCategory() string {
	return orDefault(r.Category, DefaultCategory)
}

// Humanize turns an identifier into a display label:
// "hero-banner" -> "Hero banner".
func Humanize(id string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(id)
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
