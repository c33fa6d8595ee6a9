package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgecomply/forgecomply360/internal/catalog"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/service"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage control catalogs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Upsert a framework and its controls from a YAML catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}

			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			svc := service.NewCatalogService(repository.NewControlRepository(rt.db.Handle()), rt.logger, nil)
			result, err := svc.Import(cmd.Context(), doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d controls into %s %s (%s)\n",
				result.Controls, doc.Framework.Name, doc.Framework.Version, result.FrameworkID)
			return nil
		},
	})
	return cmd
}
