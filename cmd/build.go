package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/layoutkit/internal/presentation"
	appreg "github.com/zjrosen/layoutkit/internal/registry/application"
)

var invalidateEvent string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Scan every source and rebuild the index",
	Long: `Scan the theme, each registered extension (in registration order) and core,
replace the index and write it to the cache.

Examples:
  layoutkit build
  layoutkit build --format text`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd.Context(), func(rt *runtime) error {
			summary := rt.reg.Build(cmd.Context())
			return newFormatter(cmd).FormatBuild(presentation.FromBuildSummary(summary, false))
		})
	},
}

var invalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Clear the cached index",
	Long: `Delete the cached index. The next command rescans.

With --event the cache is cleared and the index rebuilt immediately, the
way an environment change (plugin activated or deactivated, theme switched,
package upgraded, extension registered) is handled.

Examples:
  layoutkit invalidate
  layoutkit invalidate --event theme-switched`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		var event appreg.InvalidationEvent
		if invalidateEvent != "" {
			parsed, err := appreg.ParseInvalidationEvent(invalidateEvent)
			if err != nil {
				return err
			}
			event = parsed
		}

		return withRuntime(ctx, func(rt *runtime) error {
			f := newFormatter(cmd)
			if event == "" {
				if err := rt.reg.InvalidateCache(ctx); err != nil {
					return err
				}
				return f.FormatResult(map[string]any{"invalidated": true, "key": appreg.CacheKey})
			}
			summary, err := rt.reg.HandleEvent(ctx, event)
			if err != nil {
				return err
			}
			return f.FormatBuild(presentation.FromBuildSummary(summary, false))
		})
	},
}

func init() {
	invalidateCmd.Flags().StringVarP(&invalidateEvent, "event", "e", "",
		"invalidation event: plugin-activated, plugin-deactivated, theme-switched, package-upgraded, extension-registered")
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(invalidateCmd)
}
