package spawn

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const readChunkSize = 32 * 1024

type RunnerConfig struct {
	// Stdout and Stderr receive pass-through output of non-quiet runs.
	// They default to the host process streams.
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.SugaredLogger
}

// Runner starts child processes and reports their outcome asynchronously.
// It keeps no state about runs in flight; concurrent runs only share the
// pass-through writers.
type Runner struct {
	stdout io.Writer
	stderr io.Writer
	logger *zap.SugaredLogger

	execCommand func(name string, args ...string) *exec.Cmd
	start       func(cmd *exec.Cmd) error
}

func New(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	return &Runner{
		stdout:      &lockedWriter{w: stdout},
		stderr:      &lockedWriter{w: stderr},
		logger:      logger,
		execCommand: exec.Command,
		start:       func(cmd *exec.Cmd) error { return cmd.Start() },
	}
}

var (
	defaultRunner     *Runner
	defaultRunnerOnce sync.Once
)

// Run starts path on a Runner bound to the host stdout and stderr.
func Run(path string, opts Options) (*Pending, error) {
	defaultRunnerOnce.Do(func() {
		defaultRunner = New(RunnerConfig{})
	})
	return defaultRunner.Run(path, opts)
}

// Run validates the request, starts path with the resolved arguments and
// returns immediately. The outcome is delivered exactly once on the
// returned Pending. Validation failures are returned directly and no
// process is created.
//
// Once started, a process runs to completion; Run offers no way to stop it.
func (r *Runner) Run(path string, opts Options) (*Pending, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &ValidationError{Field: "path", Reason: "must not be empty"}
	}
	if strings.IndexByte(path, 0) >= 0 {
		return nil, &ValidationError{Field: "path", Reason: "contains a NUL byte"}
	}

	req, err := Normalize(opts)
	if err != nil {
		return nil, err
	}

	p := newPending(uuid.NewString())
	go r.execute(p, path, req)

	return p, nil
}

func (r *Runner) execute(p *Pending, path string, req Request) {
	runID := p.RunID
	startedAt := time.Now()
	cmd := r.execCommand(path, req.Args...)

	var (
		spawnErr error
		state    *os.ProcessState
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		spawnErr = err
	}
	var stderr io.ReadCloser
	if spawnErr == nil {
		stderr, err = cmd.StderrPipe()
		if err != nil {
			_ = stdout.Close()
			spawnErr = err
		}
	}

	if spawnErr == nil {
		if err := r.start(cmd); err != nil {
			spawnErr = err
		}
	}

	if spawnErr == nil {
		r.logger.Infow("process_started",
			"run_id", runID,
			"path", path,
			"args", req.Args,
			"pid", cmd.Process.Pid,
			"quiet", req.Quiet,
		)

		var g errgroup.Group
		g.Go(func() error {
			return pump(stdout, r.passThrough(r.stdout, req.Quiet), req.Stdout)
		})
		g.Go(func() error {
			return pump(stderr, r.passThrough(r.stderr, req.Quiet), req.Stderr)
		})
		streamErr := g.Wait()

		waitErr := cmd.Wait()
		state = cmd.ProcessState

		var exitErr *exec.ExitError
		switch {
		case streamErr != nil:
			spawnErr = streamErr
		case waitErr != nil && !errors.As(waitErr, &exitErr):
			spawnErr = waitErr
		}
	}

	res := settle(path, spawnErr, state)
	res.RunID = runID
	res.Path = path
	res.Args = req.Args
	res.Duration = time.Since(startedAt)

	if res.Err != nil {
		r.logger.Infow("process_failed",
			"run_id", runID,
			"path", path,
			"kind", res.Kind.String(),
			"exit_code", res.ExitCode,
			"signal", res.Signal,
			"duration", res.Duration,
			"err", res.Err,
		)
	} else {
		r.logger.Infow("process_finished",
			"run_id", runID,
			"path", path,
			"duration", res.Duration,
		)
	}

	p.finish(res)
}

func (r *Runner) passThrough(w io.Writer, quiet bool) io.Writer {
	if quiet {
		return nil
	}
	return w
}

// pump reads src until EOF, handing each chunk to the pass-through writer
// and then to the sink. Write errors on the pass-through are ignored.
func pump(src io.Reader, w io.Writer, sink Sink) error {
	buf := make([]byte, readChunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if w != nil {
				_, _ = w.Write(chunk)
			}
			if sink != nil {
				sink(chunk)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			_, _ = io.Copy(io.Discard, src)
			return err
		}
	}
}

// settle maps how a run ended onto a Result. A remembered spawn or stream
// error wins over any exit status.
func settle(path string, spawnErr error, state *os.ProcessState) Result {
	if spawnErr != nil {
		code := -1
		if state != nil {
			code = state.ExitCode()
		}
		return Result{
			Kind:     SpawnFailure,
			ExitCode: &code,
			Err:      &ProcessError{Kind: SpawnFailure, Path: path, ExitCode: &code, Err: spawnErr},
		}
	}

	if state.ExitCode() == 0 {
		code := 0
		return Result{Kind: Succeeded, ExitCode: &code}
	}

	if sig := signalName(state); sig != "" {
		return Result{
			Kind:   AbnormalTermination,
			Signal: sig,
			Err:    &ProcessError{Kind: AbnormalTermination, Path: path, Signal: sig},
		}
	}

	code := state.ExitCode()
	return Result{
		Kind:     NonZeroExit,
		ExitCode: &code,
		Err:      &ProcessError{Kind: NonZeroExit, Path: path, ExitCode: &code},
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
