package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/migrate/internal/config"
	"github.com/bamsammich/migrate/internal/copier"
	"github.com/bamsammich/migrate/internal/engine"
	"github.com/bamsammich/migrate/internal/event"
	"github.com/bamsammich/migrate/internal/stats"
	"github.com/bamsammich/migrate/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdin, stdout, stderr)
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			if exitErr.err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", exitErr.err)
			}
			return exitErr.code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// options holds the parsed command line.
type options struct {
	hash        engine.HashAlgorithm
	copierKind  string
	copyCmd     string
	workers     int
	bwLimitStr  string
	logDir      string
	logFile     string
	resume      bool
	yes         bool
	verbose     bool
	quiet       bool
	showVersion bool
}

// hashFlag is a pflag.Value that only accepts known digest algorithms.
type hashFlag struct {
	alg *engine.HashAlgorithm
}

var _ pflag.Value = hashFlag{}

func (f hashFlag) String() string {
	if f.alg == nil {
		return ""
	}
	return f.alg.String()
}

func (hashFlag) Type() string { return "algorithm" }

func (f hashFlag) Set(val string) error {
	a, err := engine.ParseHashAlgorithm(val)
	if err != nil {
		return err
	}
	*f.alg = a
	return nil
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	o := options{hash: engine.BLAKE3}

	rootCmd := &cobra.Command{
		Use:   "migrate [flags] <source-directory> <target-directory>",
		Short: "Copy a directory tree and verify every file by checksum",
		Long: `migrate copies every directory and regular file under <source-directory>
to the same relative path under <target-directory>. Each copied file is
verified by comparing source and target checksums.

The discovered directories and the resolved source -> target pairs are
shown before anything is written, and each must be confirmed. Every line
of output is also written to a migrate_<timestamp>.log file.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if o.showVersion || len(args) == 2 {
				return nil
			}
			_ = cmd.Usage()
			return &exitError{code: 2, err: fmt.Errorf("expected 2 arguments, got %d", len(args))}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.showVersion {
				fmt.Fprintf(stdout, "migrate %s\n", version)
				return nil
			}
			return migrate(cmd, &o, args[0], args[1], stdin, stdout, stderr)
		},
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.Flags()
	flags.BoolVar(&o.showVersion, "version", false, "print version and exit")
	flags.Var(hashFlag{alg: &o.hash}, "hash", "checksum algorithm: blake3, sha256 or md5")
	flags.StringVar(&o.copierKind, "copier", string(copier.KindExec),
		"copy primitive: exec (external command) or native (in-process)")
	flags.StringVar(&o.copyCmd, "copy-cmd", "",
		fmt.Sprintf("command run as CMD <src> <dst> by the exec copier (default %q)", strings.Join(copier.DefaultCommand(), " ")))
	flags.IntVarP(&o.workers, "workers", "n", 1, "files copied in parallel within one directory")
	flags.StringVar(&o.bwLimitStr, "bwlimit", "", "bandwidth limit for the native copier (e.g. 100M, 1G)")
	flags.StringVar(&o.logDir, "log-dir", ".", "directory for the per-run log file")
	flags.StringVar(&o.logFile, "log", "", "write structured JSON log to FILE")
	flags.BoolVar(&o.resume, "resume", false, "checkpoint progress and skip work finished by an earlier run")
	flags.BoolVarP(&o.yes, "yes", "y", false, "accept both confirmations without asking")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&o.quiet, "quiet", "q", false, "only report failures and totals")

	rootCmd.AddCommand(newDocsCmd())

	return rootCmd
}

//nolint:gocyclo // command entry point wires every collaborator
func migrate(
	cmd *cobra.Command,
	o *options,
	src, dst string,
	stdin io.Reader,
	stdout, stderr io.Writer,
) error {
	// Load optional config file.
	cfg, err := config.Load()
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	if err := applyConfigDefaults(cmd, cfg.Defaults, o); err != nil {
		return &exitError{code: 2, err: err}
	}
	if o.workers < 1 {
		return &exitError{code: 2, err: fmt.Errorf("--workers must be at least 1, got %d", o.workers)}
	}

	var bwLimit int64
	if o.bwLimitStr != "" {
		bwLimit, err = config.ParseSize(o.bwLimitStr)
		if err != nil {
			return &exitError{code: 2, err: fmt.Errorf("invalid --bwlimit: %w", err)}
		}
	}

	// Configure logging.
	logLevel := slog.LevelWarn
	if o.verbose {
		logLevel = slog.LevelDebug
	} else if !o.quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel})
	var logHandler slog.Handler = textHandler
	eventLogger := slog.New(textHandler)
	if o.logFile != "" {
		lf, lfErr := os.Create(o.logFile)
		if lfErr != nil {
			return &exitError{code: 2, err: fmt.Errorf("open log file: %w", lfErr)}
		}
		defer lf.Close()
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
		eventLogger = slog.New(jsonHandler)
	}
	slog.SetDefault(slog.New(logHandler))

	cp, closeCopier, err := copier.New(copier.Options{
		Kind:    copier.Kind(o.copierKind),
		Command: copier.ParseCommand(o.copyCmd),
		BWLimit: bwLimit,
	})
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	defer func() {
		if err := closeCopier(); err != nil {
			slog.Warn("copier cleanup failed", "error", err)
		}
	}()

	now := time.Now()
	runLog, err := ui.OpenRunLog(o.logDir, now, stdout)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	defer func() {
		if err := runLog.Close(); err != nil {
			slog.Warn("closing run log failed", "path", runLog.Path(), "error", err)
		}
	}()
	slog.Info("run log", "path", runLog.Path())

	// Set up context with signal handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	reporter := ui.NewReporter(ui.Config{Writer: runLog, Stats: collector, Quiet: o.quiet})
	reporter.Start(version, now)

	var events event.Sink = reporter
	if o.logFile != "" {
		events = event.Tee(reporter, ui.EventLogger(eventLogger))
	}

	slog.Debug("starting migration",
		"src", src,
		"dst", dst,
		"hash", o.hash,
		"copier", cp.Name(),
		"workers", o.workers,
		"resume", o.resume,
	)

	result := engine.Run(ctx, engine.Config{
		Copier:  cp,
		Confirm: confirmerFor(o.yes, stdin, stdout),
		Events:  events,
		Stats:   collector,
		Src:     src,
		Dst:     dst,
		Hash:    o.hash,
		Workers: o.workers,
		Resume:  o.resume,
	})

	switch {
	case result.Err != nil:
		slog.Error("migration failed", "state", result.State, "error", result.Err)
		fmt.Fprintf(runLog, "Stopped: %v\n", result.Err)
		return &exitError{code: 2}
	case result.State == engine.StateAborted:
		runLog.Println("Aborted by operator. Nothing was copied.")
		return nil
	case result.Totals.Errors > 0:
		return &exitError{code: 1}
	}
	return nil
}

// confirmerFor picks how the two gates are answered: not at all with
// --yes, an interactive prompt on a terminal, plain lines otherwise.
//
//nolint:ireturn // selects one of several Confirmer implementations
func confirmerFor(yes bool, stdin io.Reader, stdout io.Writer) engine.Confirmer {
	if yes {
		return engine.AcceptAll
	}
	if f, ok := stdin.(*os.File); ok && ui.IsTTY(f.Fd()) {
		return ui.TerminalConfirmer{}
	}
	return ui.NewLineConfirmer(stdin, stdout)
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, o *options) error {
	flags := cmd.Flags()
	if !flags.Changed("hash") && defaults.Hash != nil {
		a, err := engine.ParseHashAlgorithm(*defaults.Hash)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		o.hash = a
	}
	if !flags.Changed("workers") && defaults.Workers != nil {
		o.workers = *defaults.Workers
	}
	if !flags.Changed("copier") && defaults.Copier != nil {
		o.copierKind = *defaults.Copier
	}
	if !flags.Changed("copy-cmd") && defaults.CopyCmd != nil {
		o.copyCmd = *defaults.CopyCmd
	}
	if !flags.Changed("log-dir") && defaults.LogDir != nil {
		o.logDir = *defaults.LogDir
	}
	if !flags.Changed("bwlimit") && defaults.BWLimit != nil {
		o.bwLimitStr = *defaults.BWLimit
	}
	if !flags.Changed("resume") && defaults.Resume != nil {
		o.resume = *defaults.Resume
	}
	return nil
}

type exitError struct {
	err  error // printed before exiting when set
	code int
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitError) Unwrap() error { return e.err }
