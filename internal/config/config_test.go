package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	appreg "github.com/zjrosen/layoutkit/internal/registry/application"
	"github.com/zjrosen/layoutkit/internal/registry/domain"
	"github.com/zjrosen/layoutkit/internal/tracing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Validate(cfg))
	require.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	require.Equal(t, time.Hour, cfg.Cache.TTL)
	require.Equal(t, "separate", cfg.Theme.SchemaLocation)
	require.Equal(t, "yaml", cfg.Formats.Schema)
	require.False(t, cfg.Tracing.Enabled)
	require.Empty(t, cfg.Extensions)
}

func TestConfig_ThemeLayout_DefaultsFillGaps(t *testing.T) {
	cfg := Config{Theme: ThemeConfig{Root: "/srv/theme", SectionsDir: "parts"}}

	layout := cfg.ThemeLayout()
	want := appreg.DefaultThemeLayout("/srv/theme")
	want.SectionsDir = "parts"
	require.Equal(t, want, layout)
}

func TestConfig_ThemeLayout_Consolidated(t *testing.T) {
	cfg := Config{Theme: ThemeConfig{Root: "theme", SchemaLocation: "Consolidated", Label: "Storefront"}}

	layout := cfg.ThemeLayout()
	require.Equal(t, domain.SchemaConsolidated, layout.SchemaLocation)
	require.Equal(t, "Storefront", layout.Source().Label)
}

func TestConfig_CoreLayoutAndFormats(t *testing.T) {
	cfg := Config{
		Core:    CoreConfig{SectionsDir: "/usr/share/layoutkit/sections"},
		Formats: FormatsConfig{Schema: "json", Content: "html"},
	}

	require.Equal(t, appreg.CoreLayout{SectionsDir: "/usr/share/layoutkit/sections"}, cfg.CoreLayout())
	f := cfg.RegistryFormats()
	require.Equal(t, "json", f.SchemaExt)
	require.Equal(t, "html", f.ContentExt)
	require.Empty(t, f.TemplateExt, "blank formats are defaulted by the scanner")
}

func TestConfig_DomainExtensions_KeepsOrder(t *testing.T) {
	cfg := Config{Extensions: []ExtensionConfig{
		{ID: "zeta", Name: "Zeta", SectionsDir: "/z"},
		{ID: "alpha", Name: "Alpha", SchemasDir: "/a/s", SectionsDir: "/a/v", SchemaLocation: "separate"},
	}}

	exts := cfg.DomainExtensions()
	require.Len(t, exts, 2)
	require.Equal(t, "zeta", exts[0].ID)
	require.Equal(t, "/z", exts[0].Paths.SectionsDir)
	require.Equal(t, domain.SchemaSeparate, exts[1].Layout())
	require.Equal(t, "/a/s", exts[1].Paths.SchemasDir)
}

func TestConfig_Paths(t *testing.T) {
	cfg := Config{Cache: CacheConfig{Path: "/tmp/reg.db"}, LogFile: "/tmp/lk.log"}
	require.Equal(t, "/tmp/reg.db", cfg.CachePath())
	require.Equal(t, "/tmp/lk.log", cfg.LogPath())

	var empty Config
	require.Equal(t, filepath.Join(DefaultCacheDir(), "registry.db"), empty.CachePath())
	require.Equal(t, filepath.Join(DefaultCacheDir(), "layoutkit.log"), empty.LogPath())
}

func TestValidateTheme(t *testing.T) {
	require.NoError(t, ValidateTheme(ThemeConfig{}))
	require.NoError(t, ValidateTheme(ThemeConfig{SchemaLocation: "consolidated"}))

	err := ValidateTheme(ThemeConfig{SchemaLocation: "inline"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "theme.schema_location")
}

func TestValidateFormats(t *testing.T) {
	require.NoError(t, ValidateFormats(FormatsConfig{}))
	require.NoError(t, ValidateFormats(FormatsConfig{Schema: ".yml", Content: "liquid"}))

	err := ValidateFormats(FormatsConfig{Template: "*.json"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "formats.template")

	require.Error(t, ValidateFormats(FormatsConfig{Snippet: "views/twig"}))
}

func TestValidateCache(t *testing.T) {
	tests := []struct {
		name    string
		cache   CacheConfig
		wantErr string
	}{
		{name: "empty", cache: CacheConfig{}},
		{name: "memory", cache: CacheConfig{Backend: "memory", TTL: time.Minute}},
		{name: "sqlite", cache: CacheConfig{Backend: "sqlite", Path: "/tmp/x.db"}},
		{name: "unknown backend", cache: CacheConfig{Backend: "redis"}, wantErr: "cache.backend"},
		{name: "negative ttl", cache: CacheConfig{TTL: -time.Second}, wantErr: "cache.ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCache(tt.cache)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateExtensions(t *testing.T) {
	tests := []struct {
		name    string
		exts    []ExtensionConfig
		wantErr string
	}{
		{name: "none"},
		{name: "valid", exts: []ExtensionConfig{{ID: "acme", Name: "Acme"}, {ID: "beta", Name: "Beta"}}},
		{name: "missing id", exts: []ExtensionConfig{{Name: "Acme"}}, wantErr: "extension 0"},
		{name: "missing name", exts: []ExtensionConfig{{ID: "ok", Name: "Ok"}, {ID: "acme"}}, wantErr: "extension 1"},
		{name: "reserved id", exts: []ExtensionConfig{{ID: "Theme", Name: "Sneaky"}}, wantErr: "reserved"},
		{name: "duplicate after normalization", exts: []ExtensionConfig{{ID: "acme", Name: "A"}, {ID: "ACME", Name: "B"}}, wantErr: "duplicate id"},
		{name: "bad layout", exts: []ExtensionConfig{{ID: "acme", Name: "A", SchemaLocation: "nested"}}, wantErr: "schema_location"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExtensions(tt.exts)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateExtensions_WrapsDomainError(t *testing.T) {
	err := ValidateExtensions([]ExtensionConfig{{ID: "acme"}})
	require.ErrorIs(t, err, domain.ErrInvalidExtension)
}

func TestValidateTracing(t *testing.T) {
	tests := []struct {
		name    string
		cfg     tracing.Config
		wantErr string
	}{
		{name: "defaults", cfg: tracing.DefaultConfig()},
		{name: "sample rate low", cfg: tracing.Config{SampleRate: -0.1}, wantErr: "sample_rate"},
		{name: "sample rate high", cfg: tracing.Config{SampleRate: 1.5}, wantErr: "sample_rate"},
		{name: "unknown exporter", cfg: tracing.Config{Exporter: "jaeger"}, wantErr: "tracing.exporter"},
		{name: "file without path disabled", cfg: tracing.Config{Exporter: "file"}},
		{name: "file without path enabled", cfg: tracing.Config{Enabled: true, Exporter: "file"}, wantErr: "file_path"},
		{name: "otlp without endpoint", cfg: tracing.Config{Enabled: true, Exporter: "otlp"}, wantErr: "otlp_endpoint"},
		{name: "stdout", cfg: tracing.Config{Enabled: true, Exporter: "stdout", SampleRate: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTracing(tt.cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultConfigTemplate_LoadsAndValidates(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600))

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())

	cfg := Defaults()
	require.NoError(t, v.Unmarshal(&cfg))
	require.NoError(t, Validate(cfg))
	require.Equal(t, ".", cfg.Theme.Root)
	require.Equal(t, "views/sections", cfg.Theme.SectionsDir)
	require.Equal(t, time.Hour, cfg.Cache.TTL)
	require.Equal(t, "twig", cfg.Formats.Snippet)
}

func TestWriteDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".layoutkit", "config.yaml")

	require.NoError(t, WriteDefaultConfig(configPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

// TestProperty_ValidateExtensionsMatchesRegistration checks that config
// validation accepts a list exactly when every entry would be accepted by
// the registry in order.
func TestProperty_ValidateExtensionsMatchesRegistration(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		exts := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) ExtensionConfig {
			return ExtensionConfig{
				ID:   rapid.SampledFrom([]string{"", "acme", "Acme", "beta", "core", "theme", "!!"}).Draw(t, "id"),
				Name: rapid.SampledFrom([]string{"", "Name", " "}).Draw(t, "name"),
			}
		}), 0, 5).Draw(t, "exts")

		accepted := true
		seen := map[string]bool{}
		for _, e := range exts {
			d := e.Domain()
			if d.Validate() != nil || seen[domain.NormalizeKey(d.ID)] {
				accepted = false
				break
			}
			seen[domain.NormalizeKey(d.ID)] = true
		}

		err := ValidateExtensions(exts)
		if accepted && err != nil {
			t.Fatalf("expected %v to validate, got %v", exts, err)
		}
		if !accepted && err == nil {
			t.Fatalf("expected %v to be rejected", exts)
		}
	})
}
