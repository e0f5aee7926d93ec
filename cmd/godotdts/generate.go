package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"godotdts/internal/config"
	"godotdts/internal/generation"
	"godotdts/internal/logger"
	"godotdts/internal/manifest"
	"godotdts/internal/metadata"
	"godotdts/internal/render"
	"godotdts/internal/typemap"
	"godotdts/internal/watch"
)

func newGenerateCmd(a *app) *cobra.Command {
	var watchInputs bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate TypeScript declarations",
		Long: `Load extension_api.json (and the class reference when --docs is set), render
every class and write the declaration tree.

Nothing is written when any class fails to render. Files whose content did
not change are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			err := a.generate(ctx, cmd.OutOrStdout())
			if !watchInputs {
				return err
			}
			if err != nil {
				logger.Errorw("Generation failed", "error", err)
			}
			return a.watch(ctx, cmd.OutOrStdout())
		},
	}

	addInputFlags(cmd)
	addOutputFlags(cmd)
	flags := cmd.Flags()
	flags.Bool("clean", false, "Remove stale .d.ts files from the version directory")
	flags.String("go-manifest", "", "Also write a Go manifest of the generated files to this path")
	flags.String("go-package", "", "Package name of the Go manifest (default: its directory name)")
	flags.BoolVarP(&watchInputs, "watch", "w", false, "Regenerate whenever the metadata inputs change")
	flags.Duration("debounce", watch.DefaultDebounce, "Quiet period before a watched change triggers a run")
	return cmd
}

func (a *app) generate(ctx context.Context, out io.Writer) error {
	cfg := a.cfg
	snap, err := metadata.Load(ctx, metadata.LoadOptions{APIPath: cfg.API, DocsPath: cfg.Docs})
	if err != nil {
		return err
	}

	gen := generation.NewGenerator(a.fs, generatorOptions(cfg))
	result, err := gen.Generate(ctx, snap)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Generated %d files in %s (%d written, %d unchanged, %d removed, %d deprecation warnings)\n",
		len(result.Files), result.Dir, len(result.Written), len(result.Unchanged), len(result.Removed), len(result.Warnings))

	if cfg.GoManifest != "" {
		written, err := manifest.Write(a.fs, manifest.Options{Path: cfg.GoManifest, Package: cfg.GoPackage}, snap, result.Dir, result.Files)
		if err != nil {
			return err
		}
		if written {
			fmt.Fprintf(out, "✓ Wrote Go manifest %s\n", cfg.GoManifest)
		}
	}
	return nil
}

func (a *app) watch(ctx context.Context, out io.Writer) error {
	paths := []string{a.cfg.API}
	if a.cfg.Docs != "" {
		paths = append(paths, a.cfg.Docs)
	}
	w, err := watch.New(watch.Options{Paths: paths, Debounce: a.cfg.Watch.Debounce})
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Fprintln(out, "Watching for changes, press Ctrl+C to stop.")
	return w.Run(ctx, func(ctx context.Context) error {
		return a.generate(ctx, out)
	})
}

func generatorOptions(cfg *config.Config) generation.Options {
	return generation.Options{
		OutputDir:  cfg.Output,
		VersionDir: cfg.VersionDir,
		Workers:    cfg.Workers,
		Clean:      cfg.Clean,
		Render:     render.Options{VirtualVisibility: cfg.VirtualVisibility},
		Types: typemap.Options{
			NullableObjects: cfg.NullableObjects,
			Overrides:       cfg.Overrides(),
		},
	}
}
