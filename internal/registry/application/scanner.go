package registry

import (
	"sort"
	"strings"

	"github.com/zjrosen/layoutkit/internal/log"
	"github.com/zjrosen/layoutkit/internal/registry/domain"
)

// Formats holds the file extensions (without the dot) the scanner looks for.
type Formats struct {
	SchemaExt   string `json:"schema_ext"`
	ContentExt  string `json:"content_ext"`
	TemplateExt string `json:"template_ext"`
	SnippetExt  string `json:"snippet_ext"`
}

// DefaultFormats returns yaml schemas, twig section/snippet content and json templates.
func DefaultFormats() Formats {
	return Formats{
		SchemaExt:   "yaml",
		ContentExt:  "twig",
		TemplateExt: "json",
		SnippetExt:  "twig",
	}
}

// withDefaults fills empty extensions from DefaultFormats and strips leading dots.
func (f Formats) withDefaults() Formats {
	d := DefaultFormats()
	pick := func(v, def string) string {
		v = strings.TrimPrefix(strings.TrimSpace(v), ".")
		if v == "" {
			return def
		}
		return v
	}
	return Formats{
		SchemaExt:   pick(f.SchemaExt, d.SchemaExt),
		ContentExt:  pick(f.ContentExt, d.ContentExt),
		TemplateExt: pick(f.TemplateExt, d.TemplateExt),
		SnippetExt:  pick(f.SnippetExt, d.SnippetExt),
	}
}

// SchemaFile is the metadata file name inside a consolidated section folder.
func (f Formats) SchemaFile() string {
	return "schema." + f.withDefaults().SchemaExt
}

// Candidate is a section whose metadata and content files were both found.
type Candidate struct {
	ID             string
	DefinitionPath string
	ContentPath    string
}

// Scanner enumerates resource files. It never recurses deeper than one level
// and treats missing directories as empty.
type Scanner struct {
	fs      FileSystem
	formats Formats
}

// NewScanner creates a scanner over fsys.
func NewScanner(fsys FileSystem, formats Formats) *Scanner {
	return &Scanner{fs: fsys, formats: formats.withDefaults()}
}

// Formats returns the effective file extensions.
func (s *Scanner) Formats() Formats {
	return s.formats
}

// ScanDirectory maps the base name of every direct child file of dir with the
// given extension to its path. A missing dir, or a path that is not a
// directory, yields an empty map.
func (s *Scanner) ScanDirectory(dir, ext string) map[string]string {
	found := make(map[string]string)
	if dir == "" || !s.fs.IsDir(dir) {
		return found
	}

	suffix := "." + strings.TrimPrefix(ext, ".")
	names, err := s.fs.ListDir(dir, "*"+suffix)
	if err != nil {
		log.WarnErr(log.CatScan, "Failed to list directory", err, "dir", dir)
		return found
	}

	for _, name := range names {
		path := s.fs.Join(dir, name)
		if s.fs.IsDir(path) {
			continue
		}
		base := strings.TrimSuffix(name, suffix)
		if base == "" {
			continue
		}
		found[base] = path
	}
	log.Debug(log.CatScan, "Scanned directory", "dir", dir, "ext", ext, "files", len(found))
	return found
}

// ScanSeparate joins a schemas directory with a content directory on base
// name. Files without a counterpart are dropped. Results are sorted by id.
func (s *Scanner) ScanSeparate(schemasDir, sectionsDir string) []Candidate {
	schemas := s.ScanDirectory(schemasDir, s.formats.SchemaExt)
	views := s.ScanDirectory(sectionsDir, s.formats.ContentExt)

	candidates := make([]Candidate, 0, len(schemas))
	for name, schemaPath := range schemas {
		viewPath, ok := views[name]
		if !ok {
			log.Debug(log.CatScan, "Schema has no content file", "id", name, "schema", schemaPath)
			continue
		}
		candidates = append(candidates, Candidate{ID: name, DefinitionPath: schemaPath, ContentPath: viewPath})
	}
	sortCandidates(candidates)
	return candidates
}

// ScanConsolidated walks each immediate subdirectory name of root and keeps
// it when both name/schema.<schema-ext> and name/name.<content-ext> exist.
// Results are sorted by id.
func (s *Scanner) ScanConsolidated(root string) []Candidate {
	candidates := []Candidate{}
	if root == "" || !s.fs.IsDir(root) {
		return candidates
	}

	names, err := s.fs.ListDir(root, "*")
	if err != nil {
		log.WarnErr(log.CatScan, "Failed to list section folders", err, "dir", root)
		return candidates
	}

	schemaFile := s.formats.SchemaFile()
	for _, name := range names {
		folder := s.fs.Join(root, name)
		if !s.fs.IsDir(folder) {
			continue
		}
		schemaPath := s.fs.Join(folder, schemaFile)
		contentPath := s.fs.Join(folder, name+"."+s.formats.ContentExt)
		if !s.fs.Exists(schemaPath) || !s.fs.Exists(contentPath) {
			log.Debug(log.CatScan, "Incomplete section folder", "folder", folder)
			continue
		}
		candidates = append(candidates, Candidate{ID: name, DefinitionPath: schemaPath, ContentPath: contentPath})
	}
	sortCandidates(candidates)
	log.Debug(log.CatScan, "Scanned consolidated folders", "dir", root, "sections", len(candidates))
	return candidates
}

// ScanFlat turns every file in dir with the given extension into a record of
// kind tagged with src. Used for templates and snippets.
func (s *Scanner) ScanFlat(dir, ext string, kind domain.Kind, src domain.Source) []domain.Resource {
	files := s.ScanDirectory(dir, ext)
	ids := make([]string, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]domain.Resource, 0, len(ids))
	for _, id := range ids {
		switch kind {
		case domain.KindTemplate:
			out = append(out, domain.NewTemplate(id, files[id], src))
		case domain.KindSnippet:
			out = append(out, domain.NewSnippet(id, files[id], src))
		default:
			log.Warn(log.CatScan, "Flat scan does not support kind", "kind", kind, "dir", dir)
			return out
		}
	}
	return out
}

func sortCandidates(c []Candidate) {
	sort.Slice(c, func(i, j int) bool { return c[i].ID < c[j].ID })
}
