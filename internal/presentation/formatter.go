package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/layoutkit/internal/registry/domain"
)

// Output formats accepted by NewFormatter.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Text styles. Colors degrade to plain text when the writer is not a terminal.
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#54A0FF"))
	themeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#73F59F"))
	extStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FECA57"))
	coreStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#BBBBBB"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8787"))
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
	format string
}

// NewFormatter creates a new formatter. Unknown formats fall back to JSON.
func NewFormatter(writer io.Writer, format string) *Formatter {
	if format != FormatText {
		format = FormatJSON
	}
	return &Formatter{
		writer: writer,
		format: format,
	}
}

// ParseFormat validates a --format value.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or text)", s)
	}
}

func (f *Formatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (f *Formatter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(f.writer, format, args...)
}

func sourceStyle(source string) lipgloss.Style {
	switch source {
	case domain.SourceTheme:
		return themeStyle
	case domain.SourceCore:
		return coreStyle
	default:
		return extStyle
	}
}

// FormatResource formats a single resolved resource
func (f *Formatter) FormatResource(r ResourceDTO) error {
	if f.format == FormatJSON {
		return f.encode(r)
	}
	f.printf("%s %s\n", headerStyle.Render(r.Name), mutedStyle.Render("("+r.Kind+" "+r.ID+")"))
	f.printf("  source:  %s\n", sourceStyle(r.Source).Render(r.SourceName+" ["+r.Source+"]"))
	if r.Category != "" {
		f.printf("  category: %s\n", r.Category)
	}
	if r.SchemaFile != "" {
		f.printf("  schema:  %s\n", r.SchemaFile)
	}
	f.printf("  content: %s\n", r.ContentFile)
	if r.Description != "" {
		f.printf("  %s\n", mutedStyle.Render(r.Description))
	}
	return nil
}

// FormatResources formats a list of resources
func (f *Formatter) FormatResources(rs []ResourceDTO) error {
	if f.format == FormatJSON {
		return f.encode(rs)
	}
	if len(rs) == 0 {
		f.printf("%s\n", mutedStyle.Render("no resources"))
		return nil
	}
	width := 0
	for _, r := range rs {
		width = max(width, len(r.ID))
	}
	for _, r := range rs {
		f.printf("%-*s  %s  %s\n", width, r.ID,
			sourceStyle(r.Source).Render(r.Source),
			mutedStyle.Render(r.Name))
	}
	return nil
}

// FormatExtensions formats registered extensions in registration order
func (f *Formatter) FormatExtensions(exts []ExtensionDTO) error {
	if f.format == FormatJSON {
		return f.encode(exts)
	}
	if len(exts) == 0 {
		f.printf("%s\n", mutedStyle.Render("no extensions registered"))
		return nil
	}
	for i, e := range exts {
		f.printf("%d. %s %s\n", i+1, extStyle.Render(e.ID), headerStyle.Render(e.Name))
		f.printf("   layout: %s\n", e.SchemaLocation)
		for _, dir := range []struct{ role, path string }{
			{"schemas", e.SchemasDir},
			{"sections", e.SectionsDir},
			{"templates", e.TemplatesDir},
			{"snippets", e.SnippetsDir},
		} {
			if dir.path != "" {
				f.printf("   %s: %s\n", dir.role, dir.path)
			}
		}
	}
	return nil
}

// FormatBuild formats a build summary
func (f *Formatter) FormatBuild(b BuildDTO) error {
	if f.format == FormatJSON {
		return f.encode(b)
	}
	origin := "scanned"
	if b.FromCache {
		origin = "from cache"
	}
	f.printf("%s %s\n", headerStyle.Render("Registry built"), mutedStyle.Render(b.ID+" ("+origin+")"))
	kinds := make([]string, 0, len(b.Counts))
	for k := range b.Counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		f.printf("  %-9s %4d  %s\n", k, b.Counts[k], mutedStyle.Render(strings.Join(b.Sources[k], ", ")))
	}
	f.printf("  %-9s %4d  %s\n", "total", b.Total, mutedStyle.Render(fmt.Sprintf("%d extensions, %dms", b.Extensions, b.DurationMS)))
	return nil
}

// FormatTemplate formats a template with its ordered sections
func (f *Formatter) FormatTemplate(t TemplateDTO) error {
	if f.format == FormatJSON {
		return f.encode(t)
	}
	f.printf("%s %s\n", headerStyle.Render(t.Name), mutedStyle.Render("("+t.ID+" from "+t.Source+")"))
	if t.Description != "" {
		f.printf("  %s\n", mutedStyle.Render(t.Description))
	}
	for i, s := range t.Sections {
		if s.Missing {
			f.printf("  %2d. %s %s\n", i+1, s.ID, missingStyle.Render(s.Type+" (missing)"))
			continue
		}
		f.printf("  %2d. %s %s %s\n", i+1, s.ID, s.Type, sourceStyle(s.Source).Render("["+s.Source+"]"))
	}
	return nil
}

// FormatTemplateCatalog formats the selectable page templates
func (f *Formatter) FormatTemplateCatalog(ts []TemplateSummaryDTO) error {
	if f.format == FormatJSON {
		return f.encode(ts)
	}
	if len(ts) == 0 {
		f.printf("%s\n", mutedStyle.Render("no page templates"))
		return nil
	}
	for _, t := range ts {
		line := fmt.Sprintf("%s  %s  %s", t.ID, headerStyle.Render(t.Name), sourceStyle(t.Source).Render(t.Source))
		if t.Description != "" {
			line += "  " + mutedStyle.Render(t.Description)
		}
		f.printf("%s\n", line)
	}
	return nil
}

// FormatDebug formats the full registry dump
func (f *Formatter) FormatDebug(d DebugDTO) error {
	if f.format == FormatJSON {
		return f.encode(d)
	}
	origin := "scanned"
	if d.FromCache {
		origin = "from cache"
	}
	f.printf("%s %s\n\n", headerStyle.Render("Generation"), mutedStyle.Render(d.Generation+" ("+origin+")"))
	f.printf("%s\n", headerStyle.Render("Extensions"))
	if err := f.FormatExtensions(d.Extensions); err != nil {
		return err
	}
	for _, group := range []struct {
		title string
		items []ResourceDTO
	}{
		{"Sections", d.Sections},
		{"Templates", d.Templates},
		{"Snippets", d.Snippets},
	} {
		f.printf("\n%s\n", headerStyle.Render(group.title))
		if err := f.FormatResources(group.items); err != nil {
			return err
		}
	}
	return nil
}

// FormatResult formats an arbitrary result as JSON
func (f *Formatter) FormatResult(result any) error {
	return f.encode(result)
}
