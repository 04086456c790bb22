package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/layoutkit/internal/config"
	"github.com/zjrosen/layoutkit/internal/presentation"
	appreg "github.com/zjrosen/layoutkit/internal/registry/application"
	"github.com/zjrosen/layoutkit/internal/registry/domain"
)

var newExtension config.ExtensionConfig

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "List registered extensions in registration order",
	Long: `List registered extensions in registration order. Earlier extensions win
when several define the same id.

Extensions come from the config file and from the cached index.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd.Context(), func(rt *runtime) error {
			return newFormatter(cmd).FormatExtensions(presentation.FromExtensions(rt.reg.Extensions()))
		})
	},
}

var extensionsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Declare an extension in the config file and rebuild",
	Long: `Append an extension to the config file, register it and rebuild the index.

The id is normalized to lowercase [a-z0-9_-]. Registration is rejected when
the id is empty, reserved (theme, core) or already declared.

Examples:
  layoutkit extensions add --id acme --name "Acme Blocks" --sections-dir /srv/acme/sections
  layoutkit extensions add --id legacy --name Legacy --schema-location separate \
    --schemas-dir /srv/legacy/schemas --sections-dir /srv/legacy/views/sections`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		exts, err := config.AppendExtension(cfg.Extensions, newExtension)
		if err != nil {
			return fmt.Errorf("invalid extension: %w", err)
		}
		path := configPath()
		if err := config.SaveExtensions(path, exts); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		cfg.Extensions = exts

		ctx := cmd.Context()
		return withRuntime(ctx, func(rt *runtime) error {
			id := domain.NormalizeKey(newExtension.ID)
			if _, ok := rt.reg.Extension(id); !ok {
				return fmt.Errorf("extension %q was not registered", id)
			}
			if _, err := rt.reg.HandleEvent(ctx, appreg.EventExtensionRegistered); err != nil {
				return err
			}
			ext, _ := rt.reg.Extension(id)
			return newFormatter(cmd).FormatExtensions([]presentation.ExtensionDTO{presentation.FromExtension(ext)})
		})
	},
}

func init() {
	f := extensionsAddCmd.Flags()
	f.StringVar(&newExtension.ID, "id", "", "Extension id (required)")
	f.StringVar(&newExtension.Name, "name", "", "Display name (required)")
	f.StringVar(&newExtension.SchemasDir, "schemas-dir", "", "Schema directory (separate layout)")
	f.StringVar(&newExtension.SectionsDir, "sections-dir", "", "Sections directory")
	f.StringVar(&newExtension.TemplatesDir, "templates-dir", "", "Templates directory")
	f.StringVar(&newExtension.SnippetsDir, "snippets-dir", "", "Snippets directory")
	f.StringVar(&newExtension.SchemaLocation, "schema-location", "", "consolidated (default) or separate")
	_ = extensionsAddCmd.MarkFlagRequired("id")
	_ = extensionsAddCmd.MarkFlagRequired("name")

	extensionsCmd.AddCommand(extensionsAddCmd)
	rootCmd.AddCommand(extensionsCmd)
}
