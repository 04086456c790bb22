// Package config provides configuration types, defaults, and persistence for layoutkit.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/layoutkit/internal/log"
	appreg "github.com/zjrosen/layoutkit/internal/registry/application"
	"github.com/zjrosen/layoutkit/internal/registry/domain"
	"github.com/zjrosen/layoutkit/internal/tracing"
)

// Cache backends accepted in CacheConfig.Backend.
const (
	CacheBackendMemory = "memory"
	CacheBackendSQLite = "sqlite"
)

// Config holds all layoutkit configuration.
type Config struct {
	Theme      ThemeConfig       `mapstructure:"theme"`
	Core       CoreConfig        `mapstructure:"core"`
	Formats    FormatsConfig     `mapstructure:"formats"`
	Cache      CacheConfig       `mapstructure:"cache"`
	Extensions []ExtensionConfig `mapstructure:"extensions"`
	Tracing    tracing.Config    `mapstructure:"tracing"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`

	// Debug enables logging (also enabled by LAYOUTKIT_DEBUG).
	Debug bool `mapstructure:"debug"`
	// LogFile is where debug logs go. Empty means layoutkit.log in the cache dir.
	LogFile string `mapstructure:"log_file"`
}

// ThemeConfig locates the active theme. Relative directories resolve against Root.
type ThemeConfig struct {
	Root           string `mapstructure:"root"`
	SchemasDir     string `mapstructure:"schemas_dir"`
	SectionsDir    string `mapstructure:"sections_dir"`
	TemplatesDir   string `mapstructure:"templates_dir"`
	SnippetsDir    string `mapstructure:"snippets_dir"`
	SchemaLocation string `mapstructure:"schema_location"` // separate (default) or consolidated
	Label          string `mapstructure:"label"`
}

// CoreConfig locates the built-in fallback sections.
type CoreConfig struct {
	SectionsDir string `mapstructure:"sections_dir"`
	Label       string `mapstructure:"label"`
}

// FormatsConfig sets the file extensions scanned for each file role.
type FormatsConfig struct {
	Schema   string `mapstructure:"schema"`
	Content  string `mapstructure:"content"`
	Template string `mapstructure:"template"`
	Snippet  string `mapstructure:"snippet"`
}

// CacheConfig selects where the built index is cached.
type CacheConfig struct {
	Backend string        `mapstructure:"backend"` // memory or sqlite
	Path    string        `mapstructure:"path"`    // sqlite file, defaults under the user cache dir
	TTL     time.Duration `mapstructure:"ttl"`
}

// ExtensionConfig declares an extension registered before the first build.
type ExtensionConfig struct {
	ID             string `mapstructure:"id"`
	Name           string `mapstructure:"name"`
	SchemasDir     string `mapstructure:"schemas_dir"`
	SectionsDir    string `mapstructure:"sections_dir"`
	TemplatesDir   string `mapstructure:"templates_dir"`
	SnippetsDir    string `mapstructure:"snippets_dir"`
	SchemaLocation string `mapstructure:"schema_location"`
}

// MetricsConfig controls the Prometheus textfile written after each command.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Textfile  string `mapstructure:"textfile"`
}

// Domain converts the declaration to a registry extension config.
func (e ExtensionConfig) Domain() domain.ExtensionConfig {
	return domain.ExtensionConfig{
		ID:   e.ID,
		Name: e.Name,
		Paths: domain.ExtensionPaths{
			SchemasDir:   e.SchemasDir,
			SectionsDir:  e.SectionsDir,
			TemplatesDir: e.TemplatesDir,
			SnippetsDir:  e.SnippetsDir,
		},
		SchemaLocation: domain.SchemaLocation(e.SchemaLocation),
	}
}

// DomainExtensions returns every declared extension as registry configs, in file order.
func (c Config) DomainExtensions() []domain.ExtensionConfig {
	out := make([]domain.ExtensionConfig, 0, len(c.Extensions))
	for _, e := range c.Extensions {
		out = append(out, e.Domain())
	}
	return out
}

// ThemeLayout returns the registry layout for the theme. Unset directories
// keep the conventional defaults.
func (c Config) ThemeLayout() appreg.ThemeLayout {
	layout := appreg.DefaultThemeLayout(c.Theme.Root)
	if c.Theme.SchemasDir != "" {
		layout.SchemasDir = c.Theme.SchemasDir
	}
	if c.Theme.SectionsDir != "" {
		layout.SectionsDir = c.Theme.SectionsDir
	}
	if c.Theme.TemplatesDir != "" {
		layout.TemplatesDir = c.Theme.TemplatesDir
	}
	if c.Theme.SnippetsDir != "" {
		layout.SnippetsDir = c.Theme.SnippetsDir
	}
	if c.Theme.SchemaLocation != "" {
		layout.SchemaLocation = domain.ParseSchemaLocation(c.Theme.SchemaLocation)
	}
	if c.Theme.Label != "" {
		layout.Label = c.Theme.Label
	}
	return layout
}

// CoreLayout returns the registry layout for core sections.
func (c Config) CoreLayout() appreg.CoreLayout {
	return appreg.CoreLayout{SectionsDir: c.Core.SectionsDir, Label: c.Core.Label}
}

// RegistryFormats returns the scanner formats. Blank entries fall back to defaults.
func (c Config) RegistryFormats() appreg.Formats {
	return appreg.Formats{
		SchemaExt:   c.Formats.Schema,
		ContentExt:  c.Formats.Content,
		TemplateExt: c.Formats.Template,
		SnippetExt:  c.Formats.Snippet,
	}
}

// CachePath returns the SQLite cache file, defaulting under the user cache dir.
func (c Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(DefaultCacheDir(), "registry.db")
}

// LogPath returns the debug log path.
func (c Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(DefaultCacheDir(), "layoutkit.log")
}

// DefaultCacheDir returns ~/.cache/layoutkit (or the platform equivalent).
// Falls back to .layoutkit/cache when no user cache dir is available.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		return filepath.Join(".layoutkit", "cache")
	}
	return filepath.Join(dir, "layoutkit")
}

// Validate checks the whole configuration.
func Validate(c Config) error {
	if err := ValidateTheme(c.Theme); err != nil {
		return err
	}
	if err := ValidateFormats(c.Formats); err != nil {
		return err
	}
	if err := ValidateCache(c.Cache); err != nil {
		return err
	}
	if err := ValidateExtensions(c.Extensions); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// ValidateSchemaLocation accepts "", separate or consolidated.
func ValidateSchemaLocation(field, value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(domain.SchemaSeparate), string(domain.SchemaConsolidated):
		return nil
	default:
		return fmt.Errorf("%s must be \"separate\" or \"consolidated\", got %q", field, value)
	}
}

// ValidateTheme checks theme configuration for errors.
// An empty root is valid: the theme tier then contributes nothing.
func ValidateTheme(theme ThemeConfig) error {
	return ValidateSchemaLocation("theme.schema_location", theme.SchemaLocation)
}

// ValidateFormats rejects extensions that contain path separators or wildcards.
func ValidateFormats(formats FormatsConfig) error {
	fields := []struct{ name, value string }{
		{"formats.schema", formats.Schema},
		{"formats.content", formats.Content},
		{"formats.template", formats.Template},
		{"formats.snippet", formats.Snippet},
	}
	for _, f := range fields {
		if strings.ContainsAny(f.value, `/\*?[`) {
			return fmt.Errorf("%s must be a bare file extension, got %q", f.name, f.value)
		}
	}
	return nil
}

// ValidateCache checks cache configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateCache(cache CacheConfig) error {
	switch cache.Backend {
	case "", CacheBackendMemory, CacheBackendSQLite:
	default:
		return fmt.Errorf("cache.backend must be \"memory\" or \"sqlite\", got %q", cache.Backend)
	}
	if cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %v", cache.TTL)
	}
	return nil
}

// ValidateExtensions checks declared extensions for errors. Ids are compared
// after normalization, so "Acme" and "acme" collide.
func ValidateExtensions(exts []ExtensionConfig) error {
	seen := make(map[string]bool, len(exts))
	for i, e := range exts {
		if err := e.Domain().Validate(); err != nil {
			return fmt.Errorf("extension %d: %w", i, err)
		}
		if err := ValidateSchemaLocation(fmt.Sprintf("extension %d: schema_location", i), e.SchemaLocation); err != nil {
			return err
		}
		id := domain.NormalizeKey(e.ID)
		if seen[id] {
			return fmt.Errorf("extension %d: duplicate id %q: %w", i, id, domain.ErrDuplicateExtension)
		}
		seen[id] = true
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(cfg tracing.Config) error {
	if cfg.SampleRate < 0.0 || cfg.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", cfg.SampleRate)
	}

	if cfg.Exporter != "" {
		switch cfg.Exporter {
		case tracing.ExporterNone, tracing.ExporterFile, tracing.ExporterStdout, tracing.ExporterOTLP:
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", cfg.Exporter)
		}
	}

	// Path requirements only matter when tracing is on
	if cfg.Enabled {
		if cfg.Exporter == tracing.ExporterFile && cfg.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if cfg.Exporter == tracing.ExporterOTLP && cfg.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	formats := appreg.DefaultFormats()
	return Config{
		Theme: ThemeConfig{
			Root:           ".",
			SchemasDir:     "schemas",
			SectionsDir:    filepath.Join("views", "sections"),
			TemplatesDir:   "templates",
			SnippetsDir:    filepath.Join("views", "snippets"),
			SchemaLocation: string(domain.SchemaSeparate),
			Label:          appreg.DefaultThemeLabel,
		},
		Core: CoreConfig{
			Label: appreg.DefaultCoreLabel,
		},
		Formats: FormatsConfig{
			Schema:   formats.SchemaExt,
			Content:  formats.ContentExt,
			Template: formats.TemplateExt,
			Snippet:  formats.SnippetExt,
		},
		Cache: CacheConfig{
			Backend: CacheBackendMemory,
			TTL:     appreg.CacheDuration,
		},
		Tracing: tracing.DefaultConfig(),
		Metrics: MetricsConfig{
			Namespace: "layoutkit",
		},
	}
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# layoutkit configuration

# Active theme (highest priority tier)
theme:
  root: .                       # Theme root; relative dirs below resolve against it
  schemas_dir: schemas          # Section metadata (separate layout)
  sections_dir: views/sections  # Section content files
  templates_dir: templates      # Page templates (*.json)
  snippets_dir: views/snippets  # Reusable fragments
  schema_location: separate     # separate (default) or consolidated
  label: Active Theme

# Built-in fallback sections (lowest priority tier, consolidated layout)
core:
  # sections_dir: /usr/share/layoutkit/sections
  label: Core

# File extensions per role
formats:
  schema: yaml     # JSON documents are valid YAML and are accepted too
  content: twig
  template: json
  snippet: twig

# Index cache
cache:
  backend: memory  # memory (per process) or sqlite (shared between processes)
  # path: ~/.cache/layoutkit/registry.db
  ttl: 1h

# Extensions, consulted in the order listed (the first one defining an id wins)
# extensions:
#   - id: acme-blocks
#     name: Acme Blocks
#     sections_dir: /srv/plugins/acme/sections
#     templates_dir: /srv/plugins/acme/templates
#     snippets_dir: /srv/plugins/acme/snippets
#     schema_location: consolidated   # consolidated (default) or separate
#
#   - id: legacy
#     name: Legacy Pack
#     schemas_dir: /srv/plugins/legacy/schemas
#     sections_dir: /srv/plugins/legacy/views/sections
#     schema_location: separate

# Distributed tracing of registry builds
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # none, file, stdout, otlp (default: file)
#   file_path: ~/.cache/layoutkit/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # 0.0-1.0 (default: 1.0)

# Prometheus metrics written as a node_exporter textfile after each command
# metrics:
#   enabled: true
#   namespace: layoutkit
#   textfile: /var/lib/node_exporter/textfile/layoutkit.prom

# debug: false
# log_file: ~/.cache/layoutkit/layoutkit.log
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
