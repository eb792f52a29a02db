// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/matt-FFFFFF/fanout/internal/ctxlog"
)

const waitDelay = 5 * time.Second // How long to wait for output pipes to close after the process is killed

var (
	// ErrCouldNotStartProcess is returned when the worker process could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrFailedToCreatePipe is returned when a pipe to the worker process could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
)

var _ Spawner = OSSpawner{}

// OSSpawner starts workers as operating system processes.
// Workers are killed when the context passed to Start is cancelled.
type OSSpawner struct{}

// Start implements Spawner.
func (OSSpawner) Start(ctx context.Context, opts StartOptions) (Worker, error) {
	if len(opts.Command) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrCouldNotStartProcess)
	}

	logger := ctxlog.Logger(ctx).With("command", opts.Command[0])

	cmd := exec.CommandContext(ctx, opts.Command[0], opts.Command[1:]...) //nolint:gosec
	cmd.Dir = opts.WorkingDirectory
	cmd.Env = MergeEnv(os.Environ(), opts.Env)
	cmd.WaitDelay = waitDelay

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Join(ErrFailedToCreatePipe, err)
	}

	output := opts.Output
	if output == nil {
		output = func(Stream, string) {}
	}

	stdout := &chunkWriter{stream: Stdout, output: output, symbol: opts.ProgressSymbol}
	stderr := &chunkWriter{stream: Stderr, output: output}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.Join(ErrCouldNotStartProcess, err)
	}

	logger.Debug("process started", "pid", cmd.Process.Pid, "cwd", opts.WorkingDirectory)

	w := &osWorker{
		stdin:       stdin,
		done:        make(chan struct{}),
		commandLine: QuoteCommandLine(opts.Command),
	}

	go func() {
		defer close(w.done)

		w.err = cmd.Wait()

		stdout.flush()
		stderr.flush()

		logger.Debug("process finished", "pid", cmd.Process.Pid, "exitCode", cmd.ProcessState.ExitCode())
	}()

	return w, nil
}

type osWorker struct {
	stdin       io.WriteCloser
	done        chan struct{}
	err         error
	commandLine string
}

func (w *osWorker) Stdin() io.WriteCloser { return w.stdin }

func (w *osWorker) Done() <-chan struct{} { return w.done }

func (w *osWorker) CommandLine() string { return w.commandLine }

func (w *osWorker) Running() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

func (w *osWorker) Err() error {
	select {
	case <-w.done:
		return w.err
	default:
		return nil
	}
}

// chunkWriter forwards writes to an OutputFunc, never splitting a UTF-8 sequence across two chunks.
// When symbol is set, a trailing fragment of it is held back too, so a multi-rune symbol
// such as a flag emoji always arrives in one chunk.
// os/exec calls Write from a single goroutine per stream.
type chunkWriter struct {
	stream  Stream
	output  OutputFunc
	symbol  string
	pending []byte
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	data := append(w.pending, p...)

	cut := completeRunes(data)
	cut -= partialSymbol(data[:cut], w.symbol)

	if cut > 0 {
		w.output(w.stream, string(data[:cut]))
	}

	w.pending = append([]byte(nil), data[cut:]...)

	return len(p), nil
}

// flush delivers a trailing partial sequence once the stream has ended.
func (w *chunkWriter) flush() {
	if len(w.pending) > 0 {
		w.output(w.stream, string(w.pending))
		w.pending = nil
	}
}

// completeRunes returns the length of the longest prefix of b that does not end in a partial rune.
func completeRunes(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}

		if utf8.FullRune(b[i:]) {
			return len(b)
		}

		return i
	}

	return len(b)
}

// partialSymbol returns the length of the longest suffix of b, after its last complete symbol,
// that is a proper prefix of symbol.
func partialSymbol(b []byte, symbol string) int {
	if symbol == "" {
		return 0
	}

	if i := bytes.LastIndex(b, []byte(symbol)); i >= 0 {
		b = b[i+len(symbol):]
	}

	for n := min(len(b), len(symbol)-1); n > 0; n-- {
		if bytes.HasSuffix(b, []byte(symbol[:n])) {
			return n
		}
	}

	return 0
}

// MergeEnv overlays extra on base, in key order.
func MergeEnv(base []string, extra map[string]string) []string {
	env := make([]string, 0, len(base)+len(extra))
	env = append(env, base...)

	for _, k := range slices.Sorted(maps.Keys(extra)) {
		env = append(env, fmt.Sprintf("%s=%s", k, extra[k]))
	}

	return env
}

// QuoteCommandLine renders argv with every argument single quoted for a POSIX shell.
func QuoteCommandLine(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}

	return strings.Join(quoted, " ")
}
