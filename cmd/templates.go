package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/layoutkit/internal/presentation"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List selectable page templates",
	Long: `List the winning definition of every JSON template that declares a
"template" key, with its name and description.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		return withRuntime(ctx, func(rt *runtime) error {
			rt.ensureBuilt(ctx)
			catalog := rt.loader.AvailableTemplates(ctx)
			return newFormatter(cmd).FormatTemplateCatalog(presentation.FromTemplateSummaries(catalog))
		})
	},
}

var templateCmd = &cobra.Command{
	Use:   "template <id>",
	Short: "Show a template's sections in render order",
	Long: `Load the winning definition of a JSON template and print its placed
sections in render order ("order" when present, otherwise document order),
each with the source its section type resolves to.

Examples:
  layoutkit template landing
  layoutkit template landing --format text`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withRuntime(ctx, func(rt *runtime) error {
			rt.ensureBuilt(ctx)
			doc, err := rt.loader.LoadTemplate(ctx, args[0])
			if err != nil {
				return err
			}
			return newFormatter(cmd).FormatTemplate(presentation.FromTemplateDocument(doc, rt.reg))
		})
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(templateCmd)
}
