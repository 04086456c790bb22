package registry

import (
	"path/filepath"

	"github.com/zjrosen/layoutkit/internal/log"
	"github.com/zjrosen/layoutkit/internal/registry/domain"
)

// Default labels for the fixed tiers.
const (
	DefaultThemeLabel = "Active Theme"
	DefaultCoreLabel  = "Core"
)

// ThemeLayout describes where the active theme keeps its resources.
// Relative directories are resolved against Root.
type ThemeLayout struct {
	Root           string
	SchemasDir     string
	SectionsDir    string
	TemplatesDir   string
	SnippetsDir    string
	SchemaLocation domain.SchemaLocation
	Label          string
}

// DefaultThemeLayout returns the conventional theme layout rooted at root:
// schemas/, views/sections/, templates/ and views/snippets/.
func DefaultThemeLayout(root string) ThemeLayout {
	return ThemeLayout{
		Root:           root,
		SchemasDir:     "schemas",
		SectionsDir:    filepath.Join("views", "sections"),
		TemplatesDir:   "templates",
		SnippetsDir:    filepath.Join("views", "snippets"),
		SchemaLocation: domain.SchemaSeparate,
		Label:          DefaultThemeLabel,
	}
}

// Source returns the theme source descriptor.
func (l ThemeLayout) Source() domain.Source {
	label := l.Label
	if label == "" {
		label = DefaultThemeLabel
	}
	return domain.Source{Tag: domain.SourceTheme, Label: label}
}

// CoreLayout describes the built-in fallback sections.
type CoreLayout struct {
	SectionsDir string
	Label       string
}

// Source returns the core source descriptor.
func (l CoreLayout) Source() domain.Source {
	label := l.Label
	if label == "" {
		label = DefaultCoreLabel
	}
	return domain.Source{Tag: domain.SourceCore, Label: label}
}

// Walker feeds one source tier at a time into an index.
type Walker struct {
	fs      FileSystem
	scanner *Scanner
	parser  *SchemaParser
}

// NewWalker creates a walker over fsys using formats.
func NewWalker(fsys FileSystem, formats Formats) *Walker {
	return &Walker{
		fs:      fsys,
		scanner: NewScanner(fsys, formats),
		parser:  NewSchemaParser(fsys),
	}
}

// Scanner returns the walker's scanner.
func (w *Walker) Scanner() *Scanner {
	return w.scanner
}

// WalkTheme scans the theme's sections, templates and snippets.
// It returns the number of records added.
func (w *Walker) WalkTheme(idx *domain.Index, layout ThemeLayout) int {
	if layout.SchemasDir == "" && layout.SectionsDir == "" && layout.TemplatesDir == "" && layout.SnippetsDir == "" {
		log.Debug(log.CatScan, "No theme configured")
		return 0
	}
	resolve := func(dir string) string { return w.resolve(layout.Root, dir) }
	src := layout.Source()

	n := w.sections(idx, src, layout.SchemaLocation, resolve(layout.SchemasDir), resolve(layout.SectionsDir))
	n += w.flat(idx, src, domain.KindTemplate, resolve(layout.TemplatesDir))
	n += w.flat(idx, src, domain.KindSnippet, resolve(layout.SnippetsDir))
	log.Debug(log.CatScan, "Scanned theme", "root", layout.Root, "records", n)
	return n
}

// WalkExtension scans one registered extension using its declared layout.
func (w *Walker) WalkExtension(idx *domain.Index, cfg domain.ExtensionConfig) int {
	src := cfg.Source()
	n := w.sections(idx, src, cfg.Layout(), cfg.Paths.SchemasDir, cfg.Paths.SectionsDir)
	n += w.flat(idx, src, domain.KindTemplate, cfg.Paths.TemplatesDir)
	n += w.flat(idx, src, domain.KindSnippet, cfg.Paths.SnippetsDir)
	log.Debug(log.CatScan, "Scanned extension", "extension", cfg.ID, "layout", cfg.Layout(), "records", n)
	return n
}

// WalkCore scans the built-in sections. Core never contributes templates or
// snippets; a missing directory is a no-op.
func (w *Walker) WalkCore(idx *domain.Index, layout CoreLayout) int {
	n := w.sections(idx, layout.Source(), domain.SchemaConsolidated, "", layout.SectionsDir)
	log.Debug(log.CatScan, "Scanned core", "dir", layout.SectionsDir, "records", n)
	return n
}

func (w *Walker) sections(idx *domain.Index, src domain.Source, location domain.SchemaLocation, schemasDir, sectionsDir string) int {
	var candidates []Candidate
	if location == domain.SchemaSeparate {
		candidates = w.scanner.ScanSeparate(schemasDir, sectionsDir)
	} else {
		candidates = w.scanner.ScanConsolidated(sectionsDir)
	}

	n := 0
	for _, c := range candidates {
		meta := w.parser.ParseMetadata(c.DefinitionPath)
		if w.add(idx, domain.NewSection(c.ID, c.DefinitionPath, c.ContentPath, src, meta)) {
			n++
		}
	}
	return n
}

func (w *Walker) flat(idx *domain.Index, src domain.Source, kind domain.Kind, dir string) int {
	if dir == "" {
		return 0
	}
	ext := w.scanner.formats.TemplateExt
	if kind == domain.KindSnippet {
		ext = w.scanner.formats.SnippetExt
	}

	n := 0
	for _, r := range w.scanner.ScanFlat(dir, ext, kind, src) {
		if w.add(idx, r) {
			n++
		}
	}
	return n
}

func (w *Walker) add(idx *domain.Index, r domain.Resource) bool {
	if err := idx.Add(r); err != nil {
		log.ErrorErr(log.CatRegistry, "Failed to index resource", err, "id", r.ID, "source", r.Source)
		return false
	}
	return true
}

// resolve joins a relative directory onto root. Empty dirs stay empty so a
// tier can opt out of a resource kind.
func (w *Walker) resolve(root, dir string) string {
	if dir == "" {
		return ""
	}
	if root == "" || filepath.IsAbs(dir) {
		return dir
	}
	return w.fs.Join(root, dir)
}
