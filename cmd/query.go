package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/layoutkit/internal/presentation"
	"github.com/zjrosen/layoutkit/internal/registry/domain"
)

var (
	listSource   string
	listCategory string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <kind> <id>",
	Short: "Show the winning definition of a resource",
	Long: `Resolve an id with tier priority: theme, then extensions in registration
order, then core.

Kinds: section, template, snippet (plural forms accepted).

Examples:
  layoutkit resolve section hero
  layoutkit resolve template landing | jq -r .content_file`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := domain.ParseKind(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		return withRuntime(ctx, func(rt *runtime) error {
			rt.ensureBuilt(ctx)
			res, ok := rt.reg.Resolve(kind, args[1])
			if !ok {
				return fmt.Errorf("%s %q not found in any source", kind, args[1])
			}
			return newFormatter(cmd).FormatResource(presentation.FromResource(res))
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list <kind>",
	Short: "List indexed resources",
	Long: `List resources of one kind.

Without filters every id appears once. The listing flattens sources in
insertion order, so when several sources define an id the LAST one (often
core) is shown; use resolve for the definition that actually wins.

Use --source to list what one source contributed.
Use --category to filter sections by category (missing means "general").

Examples:
  layoutkit list sections
  layoutkit list sections --source theme
  layoutkit list sections --category headers --format text`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := domain.ParseKind(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		return withRuntime(ctx, func(rt *runtime) error {
			rt.ensureBuilt(ctx)

			var resources []domain.Resource
			hasSource := cmd.Flags().Changed("source")
			hasCategory := cmd.Flags().Changed("category")

			switch {
			case hasSource && hasCategory:
				// Source first, then category
				resources = filterByCategory(rt.reg.ListBySource(kind, listSource), listCategory)
			case hasSource:
				resources = rt.reg.ListBySource(kind, listSource)
			case hasCategory:
				resources = rt.reg.ListByCategory(kind, listCategory)
			default:
				resources = rt.reg.ListAll(kind)
			}
			return newFormatter(cmd).FormatResources(presentation.FromResources(resources))
		})
	},
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dump every indexed resource with its source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		return withRuntime(ctx, func(rt *runtime) error {
			_, scanned := rt.ensureBuilt(ctx)
			dump := presentation.DebugDTO{
				Generation: rt.reg.Generation(),
				FromCache:  !scanned,
				Extensions: presentation.FromExtensions(rt.reg.Extensions()),
				Sections:   presentation.FromResources(allBySource(rt, domain.KindSection)),
				Templates:  presentation.FromResources(allBySource(rt, domain.KindTemplate)),
				Snippets:   presentation.FromResources(allBySource(rt, domain.KindSnippet)),
			}
			return newFormatter(cmd).FormatDebug(dump)
		})
	},
}

func init() {
	listCmd.Flags().StringVarP(&listSource, "source", "s", "", "Filter by source (theme, core, or an extension id)")
	listCmd.Flags().StringVar(&listCategory, "category", "", "Filter by category")
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(debugCmd)
}

// filterByCategory keeps resources whose effective category matches
func filterByCategory(rs []domain.Resource, category string) []domain.Resource {
	out := make([]domain.Resource, 0, len(rs))
	for _, r := range rs {
		if r.EffectiveCategory() == category {
			out = append(out, r)
		}
	}
	return out
}

// allBySource lists every record of kind, grouped by source in index order,
// including definitions shadowed by a higher tier.
func allBySource(rt *runtime, kind domain.Kind) []domain.Resource {
	var out []domain.Resource
	for _, src := range rt.reg.Sources(kind) {
		out = append(out, rt.reg.ListBySource(kind, src)...)
	}
	return out
}
