package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"godotdts/internal/metadata"
)

func newFetchCmd(a *app) *cobra.Command {
	var apiURL, rawURL string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download extension_api.json",
		Long: `Download extension_api.json from the godot-cpp repository into the path
configured by --api.

Without --ref the newest godot-X.Y[.Z]-stable tag is used.

Examples:
  godotdts fetch                          # Newest stable release
  godotdts fetch --ref godot-4.2.2-stable # A specific release
  godotdts fetch --api godot/api.json     # Custom destination`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := metadata.NewDownloader(metadata.FetchOptions{
				Repository: a.cfg.Fetch.Repository,
				Ref:        a.cfg.Fetch.Ref,
				Timeout:    a.cfg.Fetch.Timeout,
				APIBaseURL: apiURL,
				RawBaseURL: rawURL,
			})
			result, err := d.Download(cmd.Context(), a.cfg.API)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Fetched %s (%s) into %s\n", result.Ref, result.Version, result.Path)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("api", "extension_api.json", "Destination of extension_api.json")
	flags.String("repository", metadata.DefaultRepository, "GitHub repository publishing extension_api.json")
	flags.String("ref", "", "Tag or branch to download (default: newest stable tag)")
	flags.Duration("timeout", time.Minute, "Timeout of each HTTP request")
	flags.StringVar(&apiURL, "api-url", metadata.DefaultAPIBaseURL, "GitHub API base URL")
	flags.StringVar(&rawURL, "raw-url", metadata.DefaultRawBaseURL, "Raw content base URL")
	return cmd
}
