package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryan-cox/giskard/internal/config"
	"github.com/bryan-cox/giskard/internal/model"
	"github.com/bryan-cox/giskard/internal/taskfile"
)

// Global settings, resolved flag > GISKARD_* environment > default.
const (
	keyConfig        = "config"
	keyTaskFile      = "taskfile"
	keyLogLevel      = "log-level"
	keyLogFormat     = "log-format"
	keySkipMalformed = "skip-malformed"
)

// clock returns the date stamped on added and finished tasks.
var clock = model.Today

// app carries what the commands share.
type app struct {
	settings *viper.Viper
	today    func() model.Date
}

// --- Cobra Command Definitions ---

func newRootCmd() *cobra.Command {
	a := &app{settings: viper.New(), today: clock}

	rootCmd := &cobra.Command{
		Use:   "giskard",
		Short: "The todo.txt butler.",
		Long: `giskard manages todo.txt task lists. Each profile in the configuration file names
a task file and where its finished tasks go: a separate done file, the end of the
task file itself, or nowhere.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), a.settings.GetString(keyLogLevel), a.settings.GetString(keyLogFormat))
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP(keyConfig, "c", "", fmt.Sprintf("Path of the config file to use [%s].", config.DefaultPath()))
	flags.StringP(keyTaskFile, "t", "", "Taskfile to operate on if several are defined [defaults to using the first].")
	flags.String(keyLogLevel, "info", "Log level: debug, info, warn or error.")
	flags.String(keyLogFormat, "text", "Log format: text, json or logfmt.")
	flags.Bool(keySkipMalformed, false, "Set malformed records aside instead of failing; they are written back unchanged.")

	a.settings.SetEnvPrefix("GISKARD")
	a.settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.settings.AutomaticEnv()
	for _, key := range []string{keyConfig, keyTaskFile, keyLogLevel, keyLogFormat, keySkipMalformed} {
		if err := a.settings.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(fmt.Sprintf("BUG: could not bind flag %q: %v", key, err))
		}
	}

	rootCmd.AddCommand(
		a.newLsCmd(),
		a.newAddCmd(),
		a.newRmCmd(),
		a.newDoCmd(),
		a.newArchiveCmd(),
		a.newReportCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// --- Main Application Entry Point ---

func main() {
	// Until flags are parsed, log errors as structured text on stderr.
	logger, _ := newLogger(os.Stderr, "info", "text")
	slog.SetDefault(logger)
	Execute()
}

// --- Helper Functions ---

// openStore loads the configuration, selects the profile and opens its task
// file. With createMissing, a task file that does not exist yet is created empty.
func (a *app) openStore(createMissing bool) (*taskfile.Store, error) {
	cfg, err := config.Load(a.settings.GetString(keyConfig))
	if err != nil {
		return nil, err
	}

	profile, err := cfg.Select(a.settings.GetString(keyTaskFile))
	if err != nil {
		return nil, err
	}

	path, opts, err := profile.StoreOptions()
	if err != nil {
		return nil, err
	}
	if a.settings.GetBool(keySkipMalformed) {
		opts.Malformed = taskfile.MalformedSkip
	}
	if createMissing {
		if err := touch(path); err != nil {
			return nil, err
		}
	}

	store, err := taskfile.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open task file '%s': %w", path, err)
	}
	for _, r := range store.Rejected() {
		slog.Warn("skipping malformed record", "path", path, "line", r.Line, "error", r.Err)
	}
	slog.Debug("opened task file", "profile", profile.Name, "path", path, "archive", opts.ArchivePath, "tasks", store.Len())
	return store, nil
}

// flush writes the store back and logs where finished tasks went.
func flush(store *taskfile.Store) error {
	pending := len(store.Archive())
	if err := store.Flush(); err != nil {
		return err
	}
	if pending > 0 {
		slog.Debug("flushed finished tasks", "count", pending, "archive", store.ArchivePath())
	}
	return nil
}

// touch creates path if it does not exist, leaving existing content alone.
func touch(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("could not create task file '%s': %w", path, err)
	}
	return file.Close()
}
