package presentation

import (
	"sort"

	appreg "github.com/zjrosen/layoutkit/internal/registry/application"
	"github.com/zjrosen/layoutkit/internal/registry/domain"
)

// Resolver is the part of the registry needed to annotate template sections.
type Resolver interface {
	Resolve(kind domain.Kind, id string) (domain.Resource, bool)
}

// ResourceDTO represents an indexed resource for presentation
type ResourceDTO struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Source      string `json:"source"`
	SourceName  string `json:"source_name"`
	Category    string `json:"category,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Preview     string `json:"preview,omitempty"`
	Description string `json:"description,omitempty"`
	SchemaFile  string `json:"schema_file,omitempty"`
	ContentFile string `json:"content_file"`
}

// ExtensionDTO represents a registered extension
type ExtensionDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SchemaLocation string `json:"schema_location"`
	SchemasDir     string `json:"schemas_dir,omitempty"`
	SectionsDir    string `json:"sections_dir,omitempty"`
	TemplatesDir   string `json:"templates_dir,omitempty"`
	SnippetsDir    string `json:"snippets_dir,omitempty"`
}

// BuildDTO summarizes a registry build.
type BuildDTO struct {
	ID         string              `json:"id"`
	StartedAt  string              `json:"started_at"`
	DurationMS int64               `json:"duration_ms"`
	Counts     map[string]int      `json:"counts"`
	Sources    map[string][]string `json:"sources"`
	Extensions int                 `json:"extensions"`
	Total      int                 `json:"total"`
	FromCache  bool                `json:"from_cache"`
}

// PlacedSectionDTO is a section instance inside a template, with the
// definition it resolves to.
type PlacedSectionDTO struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Source      string `json:"source,omitempty"`
	ContentFile string `json:"content_file,omitempty"`
	Missing     bool   `json:"missing"`
}

// TemplateDTO represents a decoded template with its sections in render order.
type TemplateDTO struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Source      string             `json:"source"`
	Path        string             `json:"path"`
	PageType    bool               `json:"page_template"`
	Sections    []PlacedSectionDTO `json:"sections"`
}

// TemplateSummaryDTO is a catalog entry
type TemplateSummaryDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Path        string `json:"path"`
	Source      string `json:"source"`
}

// DebugDTO is the full dump printed by the debug command.
type DebugDTO struct {
	Generation string         `json:"generation"`
	FromCache  bool           `json:"from_cache"`
	Extensions []ExtensionDTO `json:"extensions"`
	Sections   []ResourceDTO  `json:"sections"`
	Templates  []ResourceDTO  `json:"templates"`
	Snippets   []ResourceDTO  `json:"snippets"`
}

// FromResource converts a domain resource to a DTO
func FromResource(r domain.Resource) ResourceDTO {
	return ResourceDTO{
		ID:          r.ID,
		Kind:        string(r.Kind),
		Name:        r.DisplayName,
		Source:      r.Source,
		SourceName:  r.SourceLabel,
		Category:    r.Category,
		Icon:        r.Icon,
		Preview:     r.Preview,
		Description: r.Description,
		SchemaFile:  r.DefinitionPath,
		ContentFile: r.ContentPath,
	}
}

// FromResources converts a slice of resources, keeping order.
func FromResources(rs []domain.Resource) []ResourceDTO {
	dtos := make([]ResourceDTO, len(rs))
	for i, r := range rs {
		dtos[i] = FromResource(r)
	}
	return dtos
}

// FromExtension converts an extension config to a DTO
func FromExtension(cfg domain.ExtensionConfig) ExtensionDTO {
	return ExtensionDTO{
		ID:             cfg.ID,
		Name:           cfg.Name,
		SchemaLocation: string(cfg.Layout()),
		SchemasDir:     cfg.Paths.SchemasDir,
		SectionsDir:    cfg.Paths.SectionsDir,
		TemplatesDir:   cfg.Paths.TemplatesDir,
		SnippetsDir:    cfg.Paths.SnippetsDir,
	}
}

// FromExtensions converts extension configs in registration order.
func FromExtensions(cfgs []domain.ExtensionConfig) []ExtensionDTO {
	dtos := make([]ExtensionDTO, len(cfgs))
	for i, cfg := range cfgs {
		dtos[i] = FromExtension(cfg)
	}
	return dtos
}

// FromBuildSummary converts a build summary. Map keys become kind names.
func FromBuildSummary(s appreg.BuildSummary, fromCache bool) BuildDTO {
	dto := BuildDTO{
		ID:         s.ID,
		DurationMS: s.Duration.Milliseconds(),
		Counts:     make(map[string]int, len(s.Counts)),
		Sources:    make(map[string][]string, len(s.Sources)),
		Extensions: s.Extensions,
		Total:      s.Total(),
		FromCache:  fromCache,
	}
	if !s.StartedAt.IsZero() {
		dto.StartedAt = s.StartedAt.UTC().Format("2006-01-02T15:04:05Z")
	}
	for k, n := range s.Counts {
		dto.Counts[string(k)] = n
	}
	for k, srcs := range s.Sources {
		dto.Sources[string(k)] = append([]string(nil), srcs...)
	}
	return dto
}

// FromTemplateDocument converts a loaded template, resolving each placed
// section through r. Sections that no tier defines are flagged Missing.
func FromTemplateDocument(doc appreg.TemplateDocument, r Resolver) TemplateDTO {
	ordered := doc.OrderedSections()
	sections := make([]PlacedSectionDTO, 0, len(ordered))
	for _, inst := range ordered {
		placed := PlacedSectionDTO{ID: inst.ID, Type: inst.SectionType()}
		if res, ok := r.Resolve(domain.KindSection, placed.Type); ok {
			placed.Source = res.Source
			placed.ContentFile = res.ContentPath
		} else {
			placed.Missing = true
		}
		sections = append(sections, placed)
	}
	return TemplateDTO{
		ID:          doc.ID,
		Name:        doc.Name,
		Description: doc.Description,
		Source:      doc.Source,
		Path:        doc.Path,
		PageType:    doc.IsPageTemplate(),
		Sections:    sections,
	}
}

// FromTemplateSummaries converts the template catalog, sorted by id.
func FromTemplateSummaries(summaries []appreg.TemplateSummary) []TemplateSummaryDTO {
	dtos := make([]TemplateSummaryDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = TemplateSummaryDTO(s)
	}
	sort.Slice(dtos, func(a, b int) bool { return dtos[a].ID < dtos[b].ID })
	return dtos
}
