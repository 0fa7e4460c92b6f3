package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/retarget/internal/cli/ui"
	"github.com/conduit-lang/retarget/internal/orm/schema"
)

func newResolveCommand(opts *globalOptions) *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "resolve [files...]",
		Short: "Show how relationship targets resolve",
		Long: `Load the mapping files with the configured resolve_targets and list every
relationship whose abstract target was replaced by a concrete resource.

Files default to mapping.paths from the config file. Directories are expanded
to the .yml and .yaml files they contain.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := newWorkspace(opts)
			if err != nil {
				return err
			}
			defer ws.close()

			resources, err := ws.load(cmd.Context(), args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			table := ui.NewTable(out, []string{"Resource", "Field", "Kind", "Declared", "Resolved", "Join columns"},
				&ui.TableOptions{NoColor: opts.noColor})
			for _, r := range resources {
				for _, rel := range r.Relationships.Snapshot() {
					declared := ws.originalTarget(r, rel)
					if _, ok := ws.targets.Lookup(declared); !ok && !showAll {
						continue
					}
					table.AddRow(r.Name, rel.FieldName, rel.Type.String(), declared, rel.TargetResource, joinColumnsSummary(rel))
				}
			}

			if table.Len() == 0 {
				color.New(color.FgYellow).Fprintln(out, "No relationships target a configured abstract type")
			} else {
				table.Render()
			}

			fmt.Fprintln(out)
			stats := ws.session.Registry().GetStats()
			summary := ui.NewKeyValueTable(out, opts.noColor)
			summary.AddRow("Resources", fmt.Sprintf("%d", stats.TotalResources))
			summary.AddRow("Relationships", fmt.Sprintf("%d", stats.TotalRelationships))
			summary.AddRow("Resolve targets", fmt.Sprintf("%d", ws.targets.Len()))
			summary.AddRow("Unresolved", fmt.Sprintf("%d", stats.UnresolvedRelationships))
			summary.Render()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "list every relationship, not only resolved ones")
	return cmd
}

// joinColumnsSummary renders "local->referenced" pairs, or the join table of
// a many-to-many relationship
func joinColumnsSummary(rel *schema.Relationship) string {
	if rel.JoinTable != nil {
		return "table " + rel.JoinTable.Name
	}
	pairs := make([]string, len(rel.JoinColumns))
	for i, jc := range rel.JoinColumns {
		pairs[i] = jc.Name + "->" + jc.ReferencedColumnName
	}
	return strings.Join(pairs, ", ")
}
