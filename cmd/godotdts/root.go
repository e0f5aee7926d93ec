package main

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"godotdts/internal"
	"godotdts/internal/config"
	"godotdts/internal/errors"
	"godotdts/internal/logger"
)

// flagKeys maps config keys to the flag that overrides them. A command binds
// only the flags it declares.
var flagKeys = map[string]string{
	"api":                "api",
	"docs":               "docs",
	"output":             "output",
	"version_dir":        "version-dir",
	"workers":            "workers",
	"virtual_visibility": "virtual-visibility",
	"nullable_objects":   "nullable-objects",
	"clean":              "clean",
	"go_manifest":        "go-manifest",
	"go_package":         "go-package",
	"log.json":           "log-json",
	"log.level":          "log-level",
	"fetch.repository":   "repository",
	"fetch.ref":          "ref",
	"fetch.timeout":      "timeout",
	"watch.debounce":     "debounce",
}

// app carries the state shared by all commands of one invocation.
type app struct {
	v          *viper.Viper
	fs         afero.Fs
	configPath string
	cfg        *config.Config
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{v: config.New(), fs: fs}

	root := &cobra.Command{
		Use:   "godotdts",
		Short: "Generate TypeScript declarations for the Godot engine API",
		Long: `Generate TypeScript declaration files from Godot's extension_api.json.

Every engine class becomes one .d.ts file under <output>/<version>/, next to
an index.d.ts barrel and a GlobalScope.d.ts holding utility functions, global
enum values and singletons.

Settings are read from godotdts.toml (searched upwards from the working
directory), GODOTDTS_* environment variables and flags, in increasing
precedence.

Examples:
  godotdts fetch                        # Download the newest stable extension_api.json
  godotdts generate                     # Write declarations to types/<version>/
  godotdts generate --watch             # Regenerate when the metadata changes
  godotdts check                        # Fail when declarations are out of date`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Cleanup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default: godotdts.toml in the working directory or a parent)")
	flags.Bool("log-json", false, "Log JSON lines instead of console output")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(
		newGenerateCmd(a),
		newCheckCmd(a),
		newFetchCmd(a),
		newVersionCmd(),
	)
	return root
}

// load binds the flags of cmd, reads the config file and initializes the
// logger.
func (a *app) load(cmd *cobra.Command) error {
	for key, name := range flagKeys {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			internal.PanicOnError(a.v.BindPFlag(key, flag))
		}
	}

	if err := config.ReadFile(a.v, a.configPath); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := logger.Initialize(logger.Options{JSON: cfg.Log.JSON, Level: cfg.Log.Level, Output: cmd.ErrOrStderr()}); err != nil {
		return errors.Wrap(err, "initialize logger")
	}
	if cfg.File != "" {
		logger.Debugw("Loaded config", "file", cfg.File)
	}
	return nil
}

// addInputFlags declares the flags that select metadata inputs.
func addInputFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("api", "extension_api.json", "Path to extension_api.json")
	flags.String("docs", "", "Directory of XML class reference files (doc/classes)")
}

// addOutputFlags declares the flags that shape the generated tree.
func addOutputFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("output", "o", "types", "Output root directory")
	flags.String("version-dir", "", "Version directory name (default: derived from the engine version)")
	flags.Int("workers", 0, "Render and write concurrency (default: GOMAXPROCS)")
	flags.String("virtual-visibility", "protected", "Modifier of virtual methods: protected or private")
	flags.Bool("nullable-objects", false, "Type object return values as T | null")
}

// printError writes err and every hint attached to it.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}
