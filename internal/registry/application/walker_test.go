package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/layoutkit/internal/registry/domain"
)

func TestDefaultThemeLayout(t *testing.T) {
	l := DefaultThemeLayout("/srv/theme")
	require.Equal(t, "schemas", l.SchemasDir)
	require.Equal(t, "views/sections", l.SectionsDir)
	require.Equal(t, "templates", l.TemplatesDir)
	require.Equal(t, "views/snippets", l.SnippetsDir)
	require.Equal(t, domain.SchemaSeparate, l.SchemaLocation)
	require.Equal(t, domain.Source{Tag: "theme", Label: "Active Theme"}, l.Source())
	require.Equal(t, domain.Source{Tag: "theme", Label: "Active Theme"}, ThemeLayout{}.Source())
	require.Equal(t, domain.Source{Tag: "core", Label: "Core"}, CoreLayout{}.Source())
}

func TestWalkTheme_SeparateLayout(t *testing.T) {
	fsys := memFS(map[string]string{
		"theme/schemas/hero.yaml":          "name: Hero\ncategory: headers",
		"theme/schemas/about.yaml":         "",
		"theme/schemas/orphan.yaml":        "name: Orphan",
		"theme/views/sections/hero.twig":   "",
		"theme/views/sections/about.twig":  "",
		"theme/views/sections/stray.twig":  "",
		"theme/templates/landing.json":     "{}",
		"theme/views/snippets/button.twig": "",
	})
	w := NewWalker(fsys, DefaultFormats())
	idx := domain.NewIndex()

	n := w.WalkTheme(idx, DefaultThemeLayout("theme"))
	require.Equal(t, 4, n)

	sections := idx.ListBySource(domain.KindSection, domain.SourceTheme)
	require.Len(t, sections, 2)
	require.Equal(t, "about", sections[0].ID)
	require.Equal(t, "About", sections[0].DisplayName)
	require.Equal(t, domain.DefaultCategory, sections[0].Category)
	require.Equal(t, domain.DefaultIcon, sections[0].Icon)
	require.Equal(t, "hero", sections[1].ID)
	require.Equal(t, "Hero", sections[1].DisplayName)
	require.Equal(t, "headers", sections[1].Category)
	require.Equal(t, "theme/schemas/hero.yaml", sections[1].DefinitionPath)
	require.Equal(t, "theme/views/sections/hero.twig", sections[1].ContentPath)
	require.Equal(t, "Active Theme", sections[1].SourceLabel)

	_, ok := idx.Resolve(domain.KindTemplate, "landing")
	require.True(t, ok)
	_, ok = idx.Resolve(domain.KindSnippet, "button")
	require.True(t, ok)
}

func TestWalkTheme_ConsolidatedLayout(t *testing.T) {
	fsys := memFS(map[string]string{
		"theme/sections/hero/schema.yaml": "name: Hero",
		"theme/sections/hero/hero.twig":   "",
	})
	w := NewWalker(fsys, DefaultFormats())
	idx := domain.NewIndex()

	n := w.WalkTheme(idx, ThemeLayout{
		Root:           "theme",
		SectionsDir:    "sections",
		SchemaLocation: domain.SchemaConsolidated,
	})
	require.Equal(t, 1, n)

	hero, ok := idx.Resolve(domain.KindSection, "hero")
	require.True(t, ok)
	require.Equal(t, "theme/sections/hero/schema.yaml", hero.DefinitionPath)
}

func TestWalkTheme_Unconfigured(t *testing.T) {
	w := NewWalker(memFS(nil), DefaultFormats())
	require.Zero(t, w.WalkTheme(domain.NewIndex(), ThemeLayout{}))
}

func TestWalkTheme_MissingDirectories(t *testing.T) {
	w := NewWalker(memFS(map[string]string{"other/file": ""}), DefaultFormats())
	idx := domain.NewIndex()
	require.Zero(t, w.WalkTheme(idx, DefaultThemeLayout("theme")))
	require.Empty(t, idx.Sources(domain.KindSection))
}

func TestWalkExtension(t *testing.T) {
	fsys := memFS(map[string]string{
		"acme/sections/cta/schema.yaml": "name: Acme CTA",
		"acme/sections/cta/cta.twig":    "",
		"acme/templates/promo.json":     "{}",
		"acme/snippets/badge.twig":      "",
		"sep/schemas/faq.yaml":          "name: FAQ",
		"sep/views/faq.twig":            "",
	})
	w := NewWalker(fsys, DefaultFormats())
	idx := domain.NewIndex()

	acme := domain.ExtensionConfig{
		ID:   "acme",
		Name: "Acme Blocks",
		Paths: domain.ExtensionPaths{
			SectionsDir:  "acme/sections",
			TemplatesDir: "acme/templates",
			SnippetsDir:  "acme/snippets",
		},
	}
	sep := domain.ExtensionConfig{
		ID:             "sep",
		Name:           "Separate",
		SchemaLocation: domain.SchemaSeparate,
		Paths: domain.ExtensionPaths{
			SchemasDir:  "sep/schemas",
			SectionsDir: "sep/views",
		},
	}

	require.Equal(t, 3, w.WalkExtension(idx, acme))
	require.Equal(t, 1, w.WalkExtension(idx, sep))

	cta, ok := idx.Resolve(domain.KindSection, "cta")
	require.True(t, ok)
	require.Equal(t, "acme", cta.Source)
	require.Equal(t, "Acme Blocks", cta.SourceLabel)
	require.Equal(t, "Acme CTA", cta.DisplayName)

	promo, ok := idx.Resolve(domain.KindTemplate, "promo")
	require.True(t, ok)
	require.Equal(t, "acme", promo.Source)

	faq, ok := idx.Resolve(domain.KindSection, "faq")
	require.True(t, ok)
	require.Equal(t, "sep", faq.Source)
	require.Equal(t, "FAQ", faq.DisplayName)
}

func TestWalkExtension_ConsolidatedWithoutSectionsDir(t *testing.T) {
	w := NewWalker(memFS(nil), DefaultFormats())
	cfg := domain.ExtensionConfig{ID: "empty", Name: "Empty"}
	require.Zero(t, w.WalkExtension(domain.NewIndex(), cfg))
}

func TestWalkCore(t *testing.T) {
	fsys := memFS(map[string]string{
		"core/sections/footer/schema.yaml": "name: Core Footer",
		"core/sections/footer/footer.twig": "",
		"core/templates/ignored.json":      "{}",
	})
	w := NewWalker(fsys, DefaultFormats())
	idx := domain.NewIndex()

	require.Equal(t, 1, w.WalkCore(idx, CoreLayout{SectionsDir: "core/sections"}))
	footer, ok := idx.Resolve(domain.KindSection, "footer")
	require.True(t, ok)
	require.Equal(t, domain.SourceCore, footer.Source)
	require.Equal(t, "Core", footer.SourceLabel)
	require.Zero(t, idx.Count(domain.KindTemplate))

	require.Zero(t, w.WalkCore(domain.NewIndex(), CoreLayout{SectionsDir: "missing"}))
	require.Zero(t, w.WalkCore(domain.NewIndex(), CoreLayout{}))
}
