package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/layoutkit/internal/cachemanager"
	"github.com/zjrosen/layoutkit/internal/log"
	"github.com/zjrosen/layoutkit/internal/registry/domain"
	"github.com/zjrosen/layoutkit/internal/tracing"
)

// ErrTemplateNotFound is returned when no source provides a template.
var ErrTemplateNotFound = errors.New("template not found")

// SectionInstance is one placed section inside a template document.
type SectionInstance struct {
	ID        string         `json:"id"`
	SectionID string         `json:"section_id,omitempty"`
	Type      string         `json:"type,omitempty"`
	Settings  map[string]any `json:"settings,omitempty"`
	Blocks    any            `json:"blocks,omitempty"`
}

// SectionType returns the section id to resolve for this instance.
func (s SectionInstance) SectionType() string {
	if s.SectionID != "" {
		return s.SectionID
	}
	return s.Type
}

// TemplateDocument is a decoded JSON template.
type TemplateDocument struct {
	ID          string                     `json:"id"`
	Source      string                     `json:"source"`
	Path        string                     `json:"path"`
	Name        string                     `json:"name"`
	Description string                     `json:"description,omitempty"`
	Template    json.RawMessage            `json:"template,omitempty"`
	Sections    map[string]SectionInstance `json:"sections"`
	Order       []string                   `json:"order,omitempty"`

	keys []string // section ids in document order
}

// IsPageTemplate reports whether the document declares a "template" key,
// which makes it selectable as a page template.
func (d TemplateDocument) IsPageTemplate() bool {
	return len(d.Template) > 0 && !bytes.Equal(d.Template, []byte("null"))
}

// OrderedSections returns the placed sections in render order: "order" when
// present, otherwise document order. Ids in "order" with no matching
// section are skipped.
func (d TemplateDocument) OrderedSections() []SectionInstance {
	order := d.Order
	if order == nil {
		order = d.keys
	}
	if order == nil {
		order = make([]string, 0, len(d.Sections))
		for id := range d.Sections {
			order = append(order, id)
		}
		sort.Strings(order)
	}

	out := make([]SectionInstance, 0, len(order))
	for _, id := range order {
		section, ok := d.Sections[id]
		if !ok {
			continue
		}
		section.ID = id
		out = append(out, section)
	}
	return out
}

// TemplateSummary is a catalog entry for a selectable page template.
type TemplateSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Path        string `json:"path"`
	Source      string `json:"source"`
}

// TemplateLoader reads JSON templates resolved through a Registry.
// Decoded documents are cached per index generation.
type TemplateLoader struct {
	reg  *Registry
	docs *cachemanager.ReadThroughCache[string, TemplateDocument, domain.Resource]
	ttl  time.Duration
}

// NewTemplateLoader creates a loader over reg.
func NewTemplateLoader(reg *Registry) *TemplateLoader {
	l := &TemplateLoader{reg: reg, ttl: reg.cacheTTL}
	store := cachemanager.NewInMemoryCacheManager[string, TemplateDocument]("template-documents", reg.cacheTTL, cachemanager.DefaultCleanupInterval)
	l.docs = cachemanager.NewReadThroughCache[string, TemplateDocument, domain.Resource](store, l.decode, false)
	return l
}

// LoadTemplate resolves id with priority and decodes its JSON document.
func (l *TemplateLoader) LoadTemplate(ctx context.Context, id string) (TemplateDocument, error) {
	ctx, span := tracing.StartSpan(ctx, l.reg.tracer, tracing.SpanTemplateLoad,
		attribute.String(tracing.AttrTemplateID, id))
	defer span.End()

	res, ok := l.reg.Resolve(domain.KindTemplate, id)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
		tracing.RecordError(span, err)
		return TemplateDocument{}, err
	}
	span.SetAttributes(attribute.String(tracing.AttrSource, res.Source))

	key := l.reg.Generation() + "|" + res.Source + "|" + res.ContentPath
	doc, err := l.docs.Get(ctx, key, res, l.ttl)
	if err != nil {
		tracing.RecordError(span, err)
		return TemplateDocument{}, err
	}
	return doc, nil
}

// Reset drops every decoded document.
func (l *TemplateLoader) Reset(ctx context.Context) error {
	stats := l.docs.Stats()
	log.Debug(log.CatRegistry, "Resetting template documents", "hits", stats.Hits, "misses", stats.Misses)
	return l.docs.Reset(ctx)
}

// AvailableTemplates lists the winning definition of every template id that
// declares a "template" key, sorted by id. Unreadable templates are skipped.
func (l *TemplateLoader) AvailableTemplates(ctx context.Context) []TemplateSummary {
	out := []TemplateSummary{}
	for _, candidate := range l.reg.ListAll(domain.KindTemplate) {
		doc, err := l.LoadTemplate(ctx, candidate.ID)
		if err != nil {
			log.WarnErr(log.CatRegistry, "Skipping unreadable template", err, "id", candidate.ID)
			continue
		}
		if !doc.IsPageTemplate() {
			continue
		}
		out = append(out, TemplateSummary{
			ID:          doc.ID,
			Name:        doc.Name,
			Description: doc.Description,
			Path:        doc.Path,
			Source:      doc.Source,
		})
	}
	return out
}

// templateFile is the on-disk JSON shape.
type templateFile struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Template    json.RawMessage `json:"template"`
	Sections    json.RawMessage `json:"sections"`
	Order       []string        `json:"order"`
}

func (l *TemplateLoader) decode(_ context.Context, res domain.Resource) (TemplateDocument, error) {
	data, err := l.reg.fs.ReadFile(res.ContentPath)
	if err != nil {
		return TemplateDocument{}, fmt.Errorf("read template %s: %w", res.ID, ErrTemplateNotFound)
	}
	doc, err := ParseTemplateDocument(res.ID, data)
	if err != nil {
		return TemplateDocument{}, err
	}
	doc.Source = res.Source
	doc.Path = res.ContentPath
	log.Debug(log.CatRegistry, "Decoded template", "id", res.ID, "source", res.Source, "sections", len(doc.Sections))
	return doc, nil
}

// ParseTemplateDocument decodes a JSON template. The display name defaults
// to the humanized id.
func ParseTemplateDocument(id string, data []byte) (TemplateDocument, error) {
	var file templateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return TemplateDocument{}, fmt.Errorf("decode template %s: %w", id, err)
	}

	doc := TemplateDocument{
		ID:          id,
		Name:        file.Name,
		Description: file.Description,
		Template:    file.Template,
		Sections:    map[string]SectionInstance{},
		Order:       file.Order,
	}
	if doc.Name == "" {
		doc.Name = domain.Humanize(id)
	}

	if len(file.Sections) == 0 || bytes.Equal(file.Sections, []byte("null")) {
		return doc, nil
	}
	if err := json.Unmarshal(file.Sections, &doc.Sections); err != nil {
		return TemplateDocument{}, fmt.Errorf("decode template %s sections: %w", id, err)
	}
	keys, err := objectKeys(file.Sections)
	if err != nil {
		return TemplateDocument{}, fmt.Errorf("decode template %s sections: %w", id, err)
	}
	doc.keys = keys
	return doc, nil
}

// objectKeys returns the keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		if !seen[key] {
			keys = append(keys, key)
			seen[key] = true
		}
	}
	return keys, nil
}
