package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"godotdts/internal/errors"
	"godotdts/internal/generation"
	"godotdts/internal/metadata"
)

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that generated declarations are up to date",
		Long: `Render the declarations in memory and compare them with the tree on disk.

Exits with status 1 and lists the changed, missing and stale files when the
tree is out of date. Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			snap, err := metadata.Load(ctx, metadata.LoadOptions{APIPath: a.cfg.API, DocsPath: a.cfg.Docs})
			if err != nil {
				return err
			}
			gen := generation.NewGenerator(a.fs, generatorOptions(a.cfg))
			files, err := gen.Render(ctx, snap)
			if err != nil {
				return err
			}

			dir := gen.Dir(snap)
			diff, err := generation.Compare(a.fs, dir, files)
			if err != nil {
				return err
			}
			if diff.Empty() {
				fmt.Fprintf(out, "✓ Declarations in %s are up to date\n", dir)
				return nil
			}

			fmt.Fprintf(out, "✗ Declarations in %s are out of date.\n", dir)
			for _, group := range []struct {
				label string
				files []string
			}{
				{"changed", diff.Changed},
				{"missing", diff.Missing},
				{"stale", diff.Stale},
			} {
				for _, name := range group.files {
					fmt.Fprintf(out, "  %-8s %s\n", group.label, name)
				}
			}
			return errors.WithHint(
				errors.Newf("%d declaration files are out of date", len(diff.Changed)+len(diff.Missing)+len(diff.Stale)),
				"run `godotdts generate --clean` to update them",
			)
		},
	}

	addInputFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}
