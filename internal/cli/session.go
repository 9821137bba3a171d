package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/abz/internal/config"
	"github.com/roach88/abz/internal/extractor"
	"github.com/roach88/abz/internal/ledger"
	"github.com/roach88/abz/internal/pipeline"
	"github.com/roach88/abz/internal/submit"
)

// envFile is read for ABZ_* overrides when present in the working directory.
const envFile = ".env"

// loadSettings layers defaults, the settings file, the environment and the
// global flags, then validates the result.
func loadSettings(opts *RootOptions) (*config.Settings, error) {
	path := opts.ConfigPath
	required := path != ""
	if path == "" {
		path = config.DefaultConfigPath()
	}

	settings, err := config.Load(path, required)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load settings", err)
	}
	if err := settings.ApplyEnv(envFile); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load settings", err)
	}
	if opts.Host != "" {
		settings.Host = opts.Host
	}
	if opts.Database != "" {
		settings.Database = opts.Database
	}
	if err := settings.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid settings", err)
	}
	return settings, nil
}

// session holds the resources shared by the submit and dataset commands.
type session struct {
	settings  *config.Settings
	ledger    *ledger.Ledger
	profiles  *extractor.ProfileSet
	processor *pipeline.Processor
}

// openSession opens the ledger, prepares extractor profiles and builds the
// processor. Close must be called when done.
func openSession(opts *RootOptions, runIDs ledger.RunIDGenerator, reporter pipeline.Reporter) (*session, error) {
	settings, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}

	var ledgerOpts []ledger.Option
	if runIDs != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithRunIDGenerator(runIDs))
	}
	slog.Debug("opening ledger", "path", settings.Database)
	l, err := ledger.Open(settings.Database, ledgerOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}

	profiles, err := extractor.PrepareProfiles(map[extractor.ProfileKind]string{
		extractor.ProfileRecordings: settings.Profiles.Recordings,
		extractor.ProfileDatasets:   settings.Profiles.Datasets,
	}, Version)
	if err != nil {
		l.Close()
		return nil, WrapExitError(ExitCommandError, "failed to prepare extractor profiles", err)
	}

	runner := extractor.NewInvoker(settings.Extractor, profiles.Paths)
	proc := pipeline.New(runner, l, submit.NewClient(settings.Host),
		pipeline.WithReporter(reporter),
		pipeline.WithFilter(settings.Allowed),
	)

	slog.Debug("session ready",
		"run_id", l.RunID(),
		"host", settings.Host,
		"extractor", settings.Extractor)
	return &session{settings: settings, ledger: l, profiles: profiles, processor: proc}, nil
}

func (s *session) Close() {
	if err := s.profiles.Close(); err != nil {
		slog.Error("error removing rendered profiles", "error", err)
	}
	if err := s.ledger.Close(); err != nil {
		slog.Error("error closing ledger", "error", err)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, derived
// from the command's context when one is set (tests).
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
