// Package runner executes the JS bundler as a child process and streams its
// output back to the terminal. The child runs in the current working
// directory, which is the project root for every CLI invocation.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	consolestream "github.com/wolfeidau/console-stream"
)

// ErrBundlerFailed indicates the bundler process exited with a non zero
// code. The Result alongside it carries the code.
var ErrBundlerFailed = errors.New("bundler failed")

const defaultFlushInterval = 250 * time.Millisecond

// Options tunes how the bundler process is launched.
type Options struct {
	// Env is added to the child environment.
	Env map[string]string
	// PTY runs the child on a pseudo terminal so tools keep their
	// progress output and colors.
	PTY bool
	// FlushInterval batches output writes. Defaults to 250ms.
	FlushInterval time.Duration
}

// Result describes a finished bundler run.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Runner launches bundler processes and copies their output to out.
type Runner struct {
	out io.Writer
}

// New returns a runner writing process output to out, or stdout when out is
// nil.
func New(out io.Writer) *Runner {
	if out == nil {
		out = os.Stdout
	}

	return &Runner{out: out}
}

// Run executes the command and streams its output until it exits. A non
// zero exit returns both the result and ErrBundlerFailed.
func (r *Runner) Run(ctx context.Context, command string, args []string, opts Options) (*Result, error) {
	flush := opts.FlushInterval
	if flush <= 0 {
		flush = defaultFlushInterval
	}

	popts := []consolestream.ProcessOption{
		consolestream.WithFlushInterval(flush),
	}

	if len(opts.Env) > 0 {
		popts = append(popts, consolestream.WithEnvMap(opts.Env))
	}

	if opts.PTY {
		popts = append(popts, consolestream.WithPTYMode())
	} else {
		popts = append(popts, consolestream.WithPipeMode())
	}

	process := consolestream.NewProcess(command, args, popts...)

	log.Debug().Str("command", command).Strs("args", args).Msg("starting bundler")

	var result *Result

	for event, err := range process.ExecuteAndStream(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to run %s: %w", command, err)
		}

		switch e := event.Event.(type) {
		case *consolestream.ProcessStart:
			log.Debug().Int("pid", e.PID).Msg("bundler started")

		case *consolestream.OutputData:
			if _, err := r.out.Write(e.Data); err != nil {
				return nil, fmt.Errorf("failed to write output: %w", err)
			}

		case *consolestream.ProcessEnd:
			result = &Result{ExitCode: e.ExitCode, Duration: e.Duration}
		}
	}

	if result == nil {
		return nil, fmt.Errorf("process %s ended without an exit event", command)
	}

	if result.ExitCode != 0 {
		return result, fmt.Errorf("%w: %s exited with code %d", ErrBundlerFailed, command, result.ExitCode)
	}

	log.Debug().Dur("duration", result.Duration).Msg("bundler finished")

	return result, nil
}
