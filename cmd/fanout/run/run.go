// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run contains the run subcommand, which processes items with a shell command
// either in this process or across worker processes.
package run

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/fanout/internal/ctxlog"
	"github.com/matt-FFFFFF/fanout/internal/errhandler"
	"github.com/matt-FFFFFF/fanout/internal/executor"
	"github.com/matt-FFFFFF/fanout/internal/logger"
	"github.com/matt-FFFFFF/fanout/internal/progress"
	"github.com/matt-FFFFFF/fanout/internal/runconfig"
	"github.com/matt-FFFFFF/fanout/internal/shellpolicy"
	"github.com/matt-FFFFFF/fanout/internal/tui"
	"github.com/urfave/cli/v3"
)

const (
	configArg           = "config"
	workersFlag         = "workers"
	batchSizeFlag       = "batch-size"
	segmentSizeFlag     = "segment-size"
	childFlag           = "child"
	itemFlag            = "item"
	execFlag            = "exec"
	sourceFlag          = "source"
	progressSymbolFlag  = "progress-symbol"
	workingDirFlag      = "working-directory"
	beforeFirstFlag     = "before-first"
	afterLastFlag       = "after-last"
	beforeBatchFlag     = "before-batch"
	afterBatchFlag      = "after-batch"
	failFastFlag        = "fail-fast"
	failOnItemErrorFlag = "fail-on-item-error"
	tuiFlag             = "tui"
	metricsFileFlag     = "metrics-file"
	jsonLogFlag         = "json-log"
	cliExitStr          = ""

	// RunIDEnvVar carries the run id from the orchestrator to its workers.
	RunIDEnvVar = "FANOUT_RUN_ID"

	debugEventBuffer = 256
)

var (
	// ErrLoadConfig is returned when the run definition cannot be loaded.
	ErrLoadConfig = errors.New("failed to load run definition")
	// ErrExecutable is returned when the path of the running binary cannot be found.
	ErrExecutable = errors.New("failed to find the fanout executable")
)

// osExecutable is replaced in tests.
var osExecutable = os.Executable

// NewRunCmd returns the run command.
func NewRunCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a command for every item",
		Description: `Run a shell command once for every item, with the item in the ITEM environment variable.

Items are read from stdin, one per line, unless a source is given in the run definition or with --source.
When there are more items than fit in a segment, they are streamed to worker processes,
each of which is this binary started again with --child.

The optional CONFIG argument is a YAML (.yaml, .yml) or HCL (.hcl) run definition. Flags override it.
CONFIG may also be a go-getter URL, such as https://example.com/run.yaml or
git::https://github.com/org/repo//defs/run.yaml?ref=main. It is fetched once, before any worker starts.`,
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      configArg,
				UsageText: "[CONFIG]",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    workersFlag,
				Aliases: []string{"p"},
				Usage:   "Number of worker processes. Defaults to the number of CPU cores, capped by the number of segments.",
				Sources: cli.EnvVars("FANOUT_WORKERS"),
			},
			&cli.IntFlag{
				Name:  batchSizeFlag,
				Usage: "Number of items between the batch hooks",
			},
			&cli.IntFlag{
				Name:  segmentSizeFlag,
				Usage: "Number of items streamed to a single worker",
			},
			&cli.BoolFlag{
				Name:   childFlag,
				Usage:  "Run as a worker, reading items from stdin and writing a progress symbol per item",
				Hidden: true,
			},
			&cli.StringFlag{
				Name:  itemFlag,
				Usage: "Process only this item",
			},
			&cli.StringFlag{
				Name:    execFlag,
				Aliases: []string{"e"},
				Usage:   "Shell command to run for every item",
			},
			&cli.StringFlag{
				Name:  sourceFlag,
				Usage: "Where items come from: lines:PATH (- for stdin), files:GLOB, dirs:ROOT or split:DELIMITER:VALUE",
			},
			&cli.StringFlag{
				Name:  progressSymbolFlag,
				Usage: "Symbol a worker writes for every item",
			},
			&cli.StringFlag{
				Name:    workingDirFlag,
				Aliases: []string{"C"},
				Usage:   "Directory the commands run in, relative to the current directory",
			},
			&cli.StringFlag{
				Name:  beforeFirstFlag,
				Usage: "Shell command to run before the first item",
			},
			&cli.StringFlag{
				Name:  afterLastFlag,
				Usage: "Shell command to run after the last item",
			},
			&cli.StringFlag{
				Name:  beforeBatchFlag,
				Usage: "Shell command to run before every batch, with the items in BATCH_ITEMS",
			},
			&cli.StringFlag{
				Name:  afterBatchFlag,
				Usage: "Shell command to run after every batch, with the items in BATCH_ITEMS",
			},
			&cli.BoolFlag{
				Name:  failFastFlag,
				Usage: "Stop at the first item that fails",
			},
			&cli.BoolFlag{
				Name:  failOnItemErrorFlag,
				Usage: "Exit with a non-zero code when any item failed",
			},
			&cli.BoolFlag{
				Name:    tuiFlag,
				Aliases: []string{"t"},
				Usage:   "Show progress in an interactive terminal interface",
			},
			&cli.StringFlag{
				Name:      metricsFileFlag,
				Usage:     "Write run metrics to this file in the Prometheus text format",
				TakesFile: true,
			},
			&cli.BoolFlag{
				Name:  jsonLogFlag,
				Usage: "Write log records as JSON",
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool(jsonLogFlag) {
		ctx = ctxlog.New(ctx, ctxlog.JSONLogger)
	}

	child := cmd.Bool(childFlag)

	runID := os.Getenv(RunIDEnvVar)
	if runID == "" {
		runID = uuid.NewString()
	}

	ctx = ctxlog.WithAttrs(ctx, "runId", runID)
	ctxlog.Debug(ctx, "running run command", "child", child)

	configPath, cleanup, err := fetchDefinition(ctx, cmd.StringArg(configArg))
	if err != nil {
		ctxlog.Error(ctx, "could not fetch run definition", "error", err)
		return cli.Exit(err.Error(), 1)
	}

	defer cleanup()

	def, err := resolve(cmd, configPath)
	if err != nil {
		ctxlog.Error(ctx, "invalid run definition", "error", err)
		return cli.Exit(err.Error(), 1)
	}

	code, err := execute(ctx, cmd, def, configPath, runID)
	if err != nil {
		ctxlog.Error(ctx, "run aborted", "error", err)
		return cli.Exit(cliExitStr, 1)
	}

	if code != 0 {
		return cli.Exit(cliExitStr, code)
	}

	return nil
}

// resolve loads the run definition at configPath, if any, applies the flags and validates the result.
// The working directory is made absolute, so workers started in it resolve the same directory.
func resolve(cmd *cli.Command, configPath string) (*runconfig.Definition, error) {
	def := runconfig.Default()

	if configPath != "" {
		var err error

		def, err = runconfig.Load(configPath)
		if err != nil {
			return nil, err
		}
	}

	if cmd.IsSet(workersFlag) {
		def.Workers = ptr(cmd.Int(workersFlag))
	}

	if cmd.IsSet(batchSizeFlag) {
		def.BatchSize = ptr(cmd.Int(batchSizeFlag))
	}

	if cmd.IsSet(segmentSizeFlag) {
		def.SegmentSize = ptr(cmd.Int(segmentSizeFlag))
	}

	overrideString(cmd, execFlag, &def.Command)
	overrideString(cmd, progressSymbolFlag, &def.ProgressSymbol)
	overrideString(cmd, workingDirFlag, &def.WorkingDirectory)
	overrideString(cmd, beforeFirstFlag, &def.BeforeFirst)
	overrideString(cmd, afterLastFlag, &def.AfterLast)
	overrideString(cmd, beforeBatchFlag, &def.BeforeBatch)
	overrideString(cmd, afterBatchFlag, &def.AfterBatch)

	if cmd.IsSet(failFastFlag) {
		def.FailFast = cmd.Bool(failFastFlag)
	}

	if cmd.IsSet(failOnItemErrorFlag) {
		def.FailOnItemError = cmd.Bool(failOnItemErrorFlag)
	}

	if cmd.IsSet(sourceFlag) {
		src, err := runconfig.ParseSource(cmd.String(sourceFlag))
		if err != nil {
			return nil, err
		}

		def.Source = src
	}

	if def.WorkingDirectory != "" {
		abs, err := filepath.Abs(def.WorkingDirectory)
		if err != nil {
			return nil, errors.Join(ErrLoadConfig, err)
		}

		def.WorkingDirectory = abs
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	return def, nil
}

func overrideString(cmd *cli.Command, name string, target *string) {
	if cmd.IsSet(name) {
		*target = cmd.String(name)
	}
}

// execute builds the executor for def and runs it.
func execute(ctx context.Context, cmd *cli.Command, def *runconfig.Definition, configPath, runID string) (int, error) {
	child := cmd.Bool(childFlag)
	stdout := cmd.Root().Writer
	useTUI := cmd.Bool(tuiFlag) && !child

	var tuiLog bytes.Buffer
	if useTUI {
		ctx = ctxlog.NewForTUI(ctx, &tuiLog)
		defer tuiLog.WriteTo(cmd.Root().ErrWriter) //nolint:errcheck
	}

	var itemOutput io.Writer = os.Stderr
	if useTUI {
		itemOutput = &tuiLog
	}

	policy, err := shellpolicy.New(def.Command,
		shellpolicy.WithHooks(shellpolicy.Hooks{
			BeforeFirst: def.BeforeFirst,
			AfterLast:   def.AfterLast,
			BeforeBatch: def.BeforeBatch,
			AfterBatch:  def.AfterBatch,
		}),
		shellpolicy.WithEnv(def.Env),
		shellpolicy.WithWorkingDirectory(def.WorkingDirectory),
		shellpolicy.WithOutput(itemOutput),
	)
	if err != nil {
		return 1, err
	}

	var (
		tuiRunner *tui.Runner
		metrics   *logger.Metrics
		l         logger.Logger
	)

	switch {
	case child:
		l = logger.NewConsole(ctx, cmd.Root().ErrWriter, logger.WithInteractive(false))
	case useTUI:
		tuiRunner = tui.NewRunner()
		l = logger.NewReporting(tuiRunner.Reporter())
	default:
		l = logger.NewConsole(ctx, stdout)
	}

	if !child && ctxlog.Logger(ctx).Enabled(ctx, slog.LevelDebug) {
		events := progress.NewChannelReporter(ctx, debugEventBuffer)
		events.Listen(progress.ListenerFunc(func(e progress.Event) {
			ctxlog.Debug(ctx, "run event", "type", e.Type.String(), "message", e.Message)
		}))

		defer events.Close()

		l = logger.Multi{l, logger.NewReporting(events)}
	}

	if path := cmd.String(metricsFileFlag); path != "" {
		metrics = logger.NewMetrics(l)
		l = metrics
	}

	opts := []executor.Option{
		executor.WithBatchSize(*def.BatchSize),
		executor.WithSegmentSize(*def.SegmentSize),
		executor.WithProgressSymbol(def.ProgressSymbol),
		executor.WithItemNoun(executor.Nouns(def.ItemNoun, def.ItemNounPlural)),
		executor.WithSource(def.Provider()),
		executor.WithOutput(stdout),
		executor.WithErrorHandler(errorHandler(def)),
		executor.WithLogger(l),
		executor.WithEnv(workerEnv(def.Env, runID)),
		executor.WithExitPolicy(exitPolicy(def)),
	}

	if def.WorkingDirectory != "" {
		opts = append(opts, executor.WithWorkingDirectory(def.WorkingDirectory))
	}

	if !child {
		exe, err := osExecutable()
		if err != nil {
			return 1, errors.Join(ErrExecutable, err)
		}

		opts = append(opts, executor.WithWorkerCommand(childArgs(exe, configPath, def)...))
	}

	ex, err := executor.New(policy, opts...)
	if err != nil {
		return 1, err
	}

	cfg := executor.RunConfiguration{
		Child:   child,
		Item:    cmd.String(itemFlag),
		HasItem: cmd.IsSet(itemFlag),
	}

	if def.Workers != nil {
		cfg.NumberOfWorkers = *def.Workers
		cfg.NumberOfWorkersDefined = true
	}

	var code int

	if tuiRunner != nil {
		code, err = tuiRunner.Run(ctx, func(ctx context.Context) (int, error) {
			return ex.Execute(ctx, cfg)
		})
	} else {
		code, err = ex.Execute(ctx, cfg)
	}

	if metrics != nil {
		if werr := metrics.WriteTextfile(cmd.String(metricsFileFlag)); werr != nil {
			ctxlog.Warn(ctx, "could not write metrics", "error", werr)
		}
	}

	return code, err
}

// childArgs is the command line of a worker: this binary with the resolved definition and --child.
// Only what a worker uses is passed on.
func childArgs(exe, configPath string, def *runconfig.Definition) []string {
	args := []string{
		exe, "run",
		"--" + childFlag,
		"--" + execFlag, def.Command,
		"--" + batchSizeFlag, strconv.Itoa(*def.BatchSize),
		"--" + progressSymbolFlag, def.ProgressSymbol,
	}

	if def.WorkingDirectory != "" {
		args = append(args, "--"+workingDirFlag, def.WorkingDirectory)
	}

	if def.BeforeBatch != "" {
		args = append(args, "--"+beforeBatchFlag, def.BeforeBatch)
	}

	if def.AfterBatch != "" {
		args = append(args, "--"+afterBatchFlag, def.AfterBatch)
	}

	if def.FailFast {
		args = append(args, "--"+failFastFlag)
	}

	if def.FailOnItemError {
		args = append(args, "--"+failOnItemErrorFlag)
	}

	if configPath != "" {
		args = append(args, configPath)
	}

	return args
}

func errorHandler(def *runconfig.Definition) errhandler.Handler {
	if def.FailFast {
		return errhandler.Logging(errhandler.FailFast)
	}

	return errhandler.Logging(errhandler.Suppress)
}

func exitPolicy(def *runconfig.Definition) executor.ExitPolicy {
	if def.FailOnItemError {
		return executor.ExitFailOnItemError
	}

	return executor.ExitAlwaysSucceed
}

func workerEnv(env map[string]string, runID string) map[string]string {
	out := make(map[string]string, len(env)+1)
	maps.Copy(out, env)
	out[RunIDEnvVar] = runID

	return out
}

func ptr[T any](v T) *T {
	return &v
}
