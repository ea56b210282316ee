package root

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ironquest/database"
	"ironquest/models"
)

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert or refresh the achievement catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := database.DefaultCatalog()
			if file != "" {
				var err error
				if catalog, err = database.LoadCatalogFile(file); err != nil {
					return err
				}
			}

			e, cleanup, err := openEnv()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := database.SeedCatalog(e.db, catalog); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d achievements\n", len(catalog))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON catalog file (defaults to the built-in catalog)")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect achievement catalog files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "lint <file>...",
		Short: "Validate catalog files without touching the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return lintCatalogs(cmd, args)
		},
	})
	return cmd
}

func lintCatalogs(cmd *cobra.Command, files []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, f := range files {
		catalog, err := database.LoadCatalogFile(f)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", f, err)
			failed++
			continue
		}
		problems := database.ValidateCatalog(catalog)
		for _, p := range problems {
			fmt.Fprintf(out, "%s: %s\n", f, p)
		}
		if len(problems) > 0 {
			failed++
			continue
		}
		fmt.Fprintf(out, "%s: OK (%s)\n", f, summarize(catalog))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d catalog files invalid", failed, len(files))
	}
	return nil
}

func summarize(catalog []models.Achievement) string {
	counts := map[models.GoalType]int{}
	for _, a := range catalog {
		counts[a.GoalType]++
	}
	parts := make([]string, 0, len(models.AllGoalTypes))
	for _, g := range models.AllGoalTypes {
		if n := counts[g]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", g, n))
		}
	}
	return strings.Join(parts, " ")
}
