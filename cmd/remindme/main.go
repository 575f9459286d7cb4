package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tartampluch/remindme/internal/account"
	"github.com/tartampluch/remindme/internal/app"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/engine"
	"github.com/tartampluch/remindme/internal/i18n"
	"github.com/tartampluch/remindme/internal/notify"
	"github.com/tartampluch/remindme/internal/server"
	"github.com/tartampluch/remindme/internal/store"
	"github.com/tartampluch/remindme/internal/worker"
	"golang.org/x/sync/errgroup"
)

// main delegates to runMain so deferred calls (closing the log file) run
// before os.Exit.
func main() {
	os.Exit(runMain())
}

// runMain parses the command line and maps the outcome to an exit code.
func runMain() int {
	if err := newRootCmd().Execute(); err != nil {
		return config.ExitCodeError
	}
	return config.ExitCodeSuccess
}

func newRootCmd() *cobra.Command {
	var (
		debugMode  bool
		configPath string
	)

	root := &cobra.Command{
		Use:           config.CmdRoot,
		Short:         config.CmdDescRoot,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&debugMode, config.FlagDebug, false, config.FlagDescDebug)
	root.PersistentFlags().StringVar(&configPath, config.FlagConfig, "", config.FlagDescConfig)

	serve := &cobra.Command{
		Use:   config.CmdServe,
		Short: config.CmdDescServe,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logCloser := setupLogging(debugMode)
			if logCloser != nil {
				defer func() { _ = logCloser.Close() }()
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			logStartupInfo()

			if err := run(ctx, configPath); err != nil {
				slog.Error(config.ErrAppFailed,
					config.LogKeyComponent, config.CompMain,
					config.LogKeyError, err,
				)
				return err
			}
			slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
			return nil
		},
	}

	version := &cobra.Command{
		Use:   config.CmdVersion,
		Short: config.CmdDescVersion,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}

	root.AddCommand(serve, version)
	return root
}

// run wires the components and blocks until ctx is cancelled or one of them
// fails.
func run(ctx context.Context, configPath string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	backend, err := store.Open(ctx, settings.Store)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()
	slog.Info(config.MsgStoreOpened,
		config.LogKeyComponent, config.CompMain,
		config.LogKeyBackend, settings.Store.Backend)

	clock := engine.RealClock{}
	accounts := account.NewService(backend)

	state := app.New(backend, accounts, clock)
	if _, err := state.Restore(ctx); err != nil {
		return err
	}

	catalog, err := i18n.Load()
	if err != nil {
		return err
	}

	secret, err := account.SessionSecret(settings.Session.Secret)
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher(backend, newNotifier(settings.Notify), catalog.Translator(settings.Locale), clock)

	srv := server.New(settings.Server, server.Deps{
		State:      state,
		Accounts:   accounts,
		Remembered: account.NewRemembered(backend),
		Dispatcher: dispatcher,
		Importer:   &engine.Importer{Clock: clock, Fetcher: engine.NewHTTPFetcher()},
		Catalog:    catalog,
		Clock:      clock,
		Sessions:   server.NewSessionStore(secret, settings.Session.MaxAge),
		Locale:     settings.Locale,
	})

	w := &worker.Worker{
		State:            state,
		Dispatcher:       dispatcher,
		Clock:            clock,
		FlushInterval:    settings.Worker.FlushInterval,
		ReminderInterval: settings.Worker.ReminderInterval,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return srv.Start(egCtx) })
	eg.Go(func() error { return w.Run(egCtx) })
	eg.Go(func() error { return state.Watch(egCtx) })

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newNotifier(s config.NotifySettings) notify.Notifier {
	if s.WebhookURL != "" {
		return notify.NewWebhookNotifier(s.WebhookURL)
	}
	return notify.LogNotifier{}
}

func printVersion(out io.Writer) {
	_, _ = fmt.Fprintf(out, config.MsgVersionOutput,
		config.AppName,
		config.Version,
		config.Commit,
		config.Date,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging installs a JSON slog logger writing to stdout and, when the
// cache directory is usable, to a log file truncated on every start.
func setupLogging(debugMode bool) io.Closer {
	writers := []io.Writer{os.Stdout}
	var logFile *os.File

	if logPath, err := getLogFilePath(); err == nil {
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	return filepath.Join(appDir, config.LogFileName), nil
}
