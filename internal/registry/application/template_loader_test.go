package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/layoutkit/internal/registry/domain"
)

const landingJSON = `{
	"name": "Landing Page",
	"description": "Marketing landing",
	"template": "page",
	"sections": {
		"main-hero": {"section_id": "hero", "settings": {"title": "Welcome"}},
		"features": {"type": "feature-grid", "blocks": [{"type": "item"}]},
		"footer-cta": {"section_id": "cta"}
	},
	"order": ["footer-cta", "ghost", "main-hero"]
}`

func newLoaderFixture(t *testing.T, files map[string]string) (*Registry, *TemplateLoader, *IOFileSystem) {
	t.Helper()
	fsys := memFS(files)
	reg := newTestRegistry(t, fsys)
	reg.Build(context.Background())
	return reg, NewTemplateLoader(reg), fsys
}

func TestParseTemplateDocument(t *testing.T) {
	doc, err := ParseTemplateDocument("landing", []byte(landingJSON))
	require.NoError(t, err)

	require.Equal(t, "Landing Page", doc.Name)
	require.Equal(t, "Marketing landing", doc.Description)
	require.True(t, doc.IsPageTemplate())
	require.Len(t, doc.Sections, 3)
	require.Equal(t, "hero", doc.Sections["main-hero"].SectionType())
	require.Equal(t, "feature-grid", doc.Sections["features"].SectionType())
	require.Equal(t, "Welcome", doc.Sections["main-hero"].Settings["title"])

	ordered := doc.OrderedSections()
	require.Len(t, ordered, 2)
	require.Equal(t, "footer-cta", ordered[0].ID)
	require.Equal(t, "main-hero", ordered[1].ID)
}

func TestParseTemplateDocument_DocumentOrderWithoutOrderKey(t *testing.T) {
	doc, err := ParseTemplateDocument("about-us", []byte(`{
		"sections": {"zeta": {"section_id": "z"}, "alpha": {"section_id": "a"}, "mid": {"section_id": "m"}}
	}`))
	require.NoError(t, err)

	require.Equal(t, "About us", doc.Name)
	require.False(t, doc.IsPageTemplate())

	var ids []string
	for _, s := range doc.OrderedSections() {
		ids = append(ids, s.ID)
	}
	require.Equal(t, []string{"zeta", "alpha", "mid"}, ids)
}

func TestParseTemplateDocument_Errors(t *testing.T) {
	_, err := ParseTemplateDocument("bad", []byte(`{"sections": `))
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode template bad")

	_, err = ParseTemplateDocument("bad", []byte(`{"sections": ["a", "b"]}`))
	require.Error(t, err)

	doc, err := ParseTemplateDocument("empty", []byte(`{"sections": null, "template": null}`))
	require.NoError(t, err)
	require.Empty(t, doc.OrderedSections())
	require.False(t, doc.IsPageTemplate())
}

func TestTemplateDocument_OrderedSectionsWithoutKeys(t *testing.T) {
	doc := TemplateDocument{Sections: map[string]SectionInstance{
		"b": {SectionID: "b"},
		"a": {SectionID: "a"},
	}}
	ordered := doc.OrderedSections()
	require.Equal(t, "a", ordered[0].ID)
	require.Equal(t, "b", ordered[1].ID)
}

func TestTemplateLoader_LoadTemplateUsesPriority(t *testing.T) {
	_, loader, _ := newLoaderFixture(t, map[string]string{
		"theme/templates/landing.json":      landingJSON,
		"core-sections/ignored/schema.yaml": "",
	})

	doc, err := loader.LoadTemplate(context.Background(), "landing")
	require.NoError(t, err)
	require.Equal(t, domain.SourceTheme, doc.Source)
	require.Equal(t, "theme/templates/landing.json", doc.Path)
	require.Equal(t, "landing", doc.ID)
}

func TestTemplateLoader_NotFound(t *testing.T) {
	_, loader, _ := newLoaderFixture(t, nil)

	_, err := loader.LoadTemplate(context.Background(), "missing")
	require.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestTemplateLoader_FileRemovedAfterBuild(t *testing.T) {
	_, loader, fsys := newLoaderFixture(t, map[string]string{
		"theme/templates/gone.json": `{}`,
	})
	removeFile(fsys, "theme/templates/gone.json")

	_, err := loader.LoadTemplate(context.Background(), "gone")
	require.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestTemplateLoader_CachesPerGeneration(t *testing.T) {
	reg, loader, fsys := newLoaderFixture(t, map[string]string{
		"theme/templates/landing.json": `{"name": "First"}`,
	})
	ctx := context.Background()

	doc, err := loader.LoadTemplate(ctx, "landing")
	require.NoError(t, err)
	require.Equal(t, "First", doc.Name)

	addFile(fsys, "theme/templates/landing.json", `{"name": "Second"}`)
	doc, err = loader.LoadTemplate(ctx, "landing")
	require.NoError(t, err)
	require.Equal(t, "First", doc.Name, "same generation is served from cache")

	reg.Build(ctx)
	doc, err = loader.LoadTemplate(ctx, "landing")
	require.NoError(t, err)
	require.Equal(t, "Second", doc.Name)

	addFile(fsys, "theme/templates/landing.json", `{"name": "Third"}`)
	require.NoError(t, loader.Reset(ctx))
	doc, err = loader.LoadTemplate(ctx, "landing")
	require.NoError(t, err)
	require.Equal(t, "Third", doc.Name)
}

func TestTemplateLoader_AvailableTemplates(t *testing.T) {
	reg, loader, _ := newLoaderFixture(t, map[string]string{
		"theme/templates/landing.json": landingJSON,
		"theme/templates/partial.json": `{"sections": {}}`,
		"theme/templates/broken.json":  `{"template":`,
		"theme/templates/contact.json": `{"template": "page"}`,
		"e2/templates/landing.json":    `{"template": "page", "name": "E2 Landing"}`,
	})
	require.True(t, reg.RegisterExtension(context.Background(), domain.ExtensionConfig{
		ID: "e2", Name: "E2", Paths: domain.ExtensionPaths{TemplatesDir: "e2/templates"},
	}))
	reg.Build(context.Background())

	got := loader.AvailableTemplates(context.Background())
	require.Len(t, got, 2)
	require.Equal(t, TemplateSummary{
		ID:     "contact",
		Name:   "Contact",
		Path:   "theme/templates/contact.json",
		Source: domain.SourceTheme,
	}, got[0])
	require.Equal(t, "landing", got[1].ID)
	require.Equal(t, "Landing Page", got[1].Name)
	require.Equal(t, domain.SourceTheme, got[1].Source)
}

// TestProperty_OrderedSectionsRespectsOrder checks that OrderedSections is
// exactly the "order" list filtered to known ids.
func TestProperty_OrderedSectionsRespectsOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		known := rapid.SliceOfDistinct(rapid.StringMatching(`[a-e]`), func(s string) string { return s }).Draw(t, "known")
		order := rapid.SliceOf(rapid.StringMatching(`[a-g]`)).Draw(t, "order")

		doc := TemplateDocument{Sections: map[string]SectionInstance{}, Order: order}
		for _, id := range known {
			doc.Sections[id] = SectionInstance{SectionID: "s-" + id}
		}

		var want []string
		for _, id := range order {
			if _, ok := doc.Sections[id]; ok {
				want = append(want, id)
			}
		}

		got := doc.OrderedSections()
		if len(got) != len(want) {
			t.Fatalf("got %d sections, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i].ID != want[i] || got[i].SectionID != "s-"+want[i] {
				t.Fatalf("position %d: got %+v, want %s", i, got[i], want[i])
			}
		}
	})
}
