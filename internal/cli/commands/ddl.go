package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/retarget/internal/orm/codegen"
)

func newDDLCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ddl [files...]",
		Short: "Print the DDL for the resolved metadata",
		Long: `Load the mapping files, resolve abstract relationship targets, and print the
CREATE TABLE statements for every resource, referenced tables first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := newWorkspace(opts)
			if err != nil {
				return err
			}
			defer ws.close()

			statements, err := ws.generateDDL(cmd, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(statements, "\n\n"))
			return nil
		},
	}
}

func (w *workspace) generateDDL(cmd *cobra.Command, args []string) ([]string, error) {
	if _, err := w.load(cmd.Context(), args); err != nil {
		return nil, err
	}
	registry := w.session.Registry()
	if err := registry.ValidateAll(); err != nil {
		return nil, err
	}
	return codegen.NewDDLGenerator(registry).GenerateSchema(registry)
}
