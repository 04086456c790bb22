package domain

import (
	"fmt"
	"strings"
)

// SchemaLocation selects the directory convention an extension uses for sections.
type SchemaLocation string

const (
	// SchemaSeparate keeps schemas and section views in two directories,
	// joined by base name (the theme convention).
	SchemaSeparate SchemaLocation = "separate"
	// SchemaConsolidated keeps each section in its own folder holding both
	// schema.<ext> and <name>.<ext>.
	SchemaConsolidated SchemaLocation = "consolidated"
)

// ParseSchemaLocation maps a configured value to a SchemaLocation.
// Anything other than "separate" selects the consolidated layout, which is
// also the default ("inside_sections" is accepted as a legacy spelling).
func ParseSchemaLocation(s string) SchemaLocation {
	if strings.EqualFold(strings.TrimSpace(s), string(SchemaSeparate)) {
		return SchemaSeparate
	}
	return SchemaConsolidated
}

// ExtensionPaths maps each directory role of an extension to a path.
// Empty roles opt the extension out of that resource kind.
type ExtensionPaths struct {
	SchemasDir   string `json:"schemas_dir,omitempty"`
	SectionsDir  string `json:"sections_dir,omitempty"`
	TemplatesDir string `json:"templates_dir,omitempty"`
	SnippetsDir  string `json:"snippets_dir,omitempty"`
}

// ExtensionConfig is the declared configuration of a registered extension.
type ExtensionConfig struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Paths          ExtensionPaths `json:"paths"`
	SchemaLocation SchemaLocation `json:"schema_location,omitempty"`
}

// Layout returns the effective schema location (consolidated unless separate).
func (c ExtensionConfig) Layout() SchemaLocation {
	return ParseSchemaLocation(string(c.SchemaLocation))
}

// Source returns the source descriptor used for resources of this extension.
func (c ExtensionConfig) Source() Source {
	return Source{Tag: c.ID, Label: orDefault(c.Name, c.ID)}
}

// Normalize returns a copy with the id reduced to a key and the layout resolved.
func (c ExtensionConfig) Normalize() ExtensionConfig {
	c.ID = NormalizeKey(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	c.SchemaLocation = c.Layout()
	return c
}

// Validate checks the minimum registration requirements.
// The id must survive normalization and must not collide with a reserved tier.
func (c ExtensionConfig) Validate() error {
	id := NormalizeKey(c.ID)
	switch {
	case id == "":
		return fmt.Errorf("%w: id is required", ErrInvalidExtension)
	case strings.TrimSpace(c.Name) == "":
		return fmt.Errorf("%w: name is required for %q", ErrInvalidExtension, id)
	case id == SourceTheme || id == SourceCore:
		return fmt.Errorf("%w: id %q is reserved", ErrInvalidExtension, id)
	}
	return nil
}

// NormalizeKey lowercases s and drops every character outside [a-z0-9_-].
func NormalizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
