package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/san-kum/circuitsim/internal/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NetlistPlaceholder in Args is replaced by the netlist path. Without it
// the path is appended.
const NetlistPlaceholder = "{netlist}"

const (
	waitDelay    = 2 * time.Second
	maxOutputLen = 4096
)

type Pool struct {
	Executable     string
	Args           []string
	Concurrency    int
	Timeout        time.Duration
	LaunchInterval time.Duration

	logger *zap.Logger
}

func NewPool(cfg config.SimulatorConfig, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		Executable:     cfg.Executable,
		Args:           append([]string(nil), cfg.Args...),
		Concurrency:    cfg.Concurrency,
		Timeout:        cfg.Timeout,
		LaunchInterval: cfg.LaunchInterval,
		logger:         logger,
	}
}

func (p *Pool) concurrency() int {
	if p.Concurrency > 0 {
		return p.Concurrency
	}
	return runtime.NumCPU()
}

// CommandLine returns the argv used for job. Relative paths are made
// absolute because the simulator runs in the netlist's directory.
func (p *Pool) CommandLine(job Job) []string {
	exe := p.Executable
	if strings.ContainsRune(exe, filepath.Separator) && !filepath.IsAbs(exe) {
		if abs, err := filepath.Abs(exe); err == nil {
			exe = abs
		}
	}
	netlist := job.Netlist
	if abs, err := filepath.Abs(netlist); err == nil {
		netlist = abs
	}

	argv := []string{exe}
	substituted := false
	for _, a := range p.Args {
		if strings.Contains(a, NetlistPlaceholder) {
			a = strings.ReplaceAll(a, NetlistPlaceholder, netlist)
			substituted = true
		}
		argv = append(argv, a)
	}
	if !substituted {
		argv = append(argv, netlist)
	}
	return argv
}

// Estimate is an upper bound on the wall time for n jobs.
func (p *Pool) Estimate(n int) time.Duration {
	if n == 0 {
		return 0
	}
	waves := (n + p.concurrency() - 1) / p.concurrency()
	return time.Duration(n)*p.LaunchInterval + time.Duration(waves)*p.Timeout
}

// Run executes jobs and blocks until all have finished. Canceling ctx stops
// new launches and kills running simulators; jobs that never started are
// reported as Canceled.
func (p *Pool) Run(ctx context.Context, jobs []Job, obs Observer) Report {
	if obs == nil {
		obs = nopObserver{}
	}
	start := time.Now()
	outcomes := make([]Outcome, len(jobs))
	launched := make([]bool, len(jobs))

	var g errgroup.Group
	g.SetLimit(p.concurrency())

	for i, job := range jobs {
		if i > 0 && p.LaunchInterval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(p.LaunchInterval):
			}
		}
		if ctx.Err() != nil {
			break
		}

		idx := i
		launched[idx] = true
		g.Go(func() error {
			obs.JobStarted(job, idx, len(jobs))
			outcomes[idx] = p.runOne(ctx, job)
			obs.JobFinished(outcomes[idx], idx, len(jobs))
			return nil
		})
	}
	g.Wait()

	var report Report
	for i, job := range jobs {
		if !launched[i] {
			outcomes[i] = Outcome{Job: job, Status: Canceled, Err: ctx.Err()}
		}
		report.add(outcomes[i])
	}
	report.Elapsed = time.Since(start)
	return report
}

func (p *Pool) runOne(ctx context.Context, job Job) Outcome {
	out := Outcome{Job: job}
	if p.Executable == "" {
		out.Status, out.Err = Failed, ErrNoExecutable
		return out
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if p.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, p.Timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	argv := p.CommandLine(job)
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = filepath.Dir(job.Netlist)
	cmd.WaitDelay = waitDelay
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	p.logger.Debug("launching simulator", zap.Strings("argv", argv))
	began := time.Now()
	err := cmd.Run()
	out.Duration = time.Since(began)

	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	out.Killed = timedOut

	switch {
	case ctx.Err() != nil:
		out.Status, out.Err = Canceled, ctx.Err()
	case timedOut && job.Done():
		out.Status = Completed
	case timedOut:
		out.Status = TimedOut
		out.Err = &RunError{Job: job, Wrapped: fmt.Errorf("%w after %s", ErrTimeout, p.Timeout)}
	case err != nil:
		out.Status = Failed
		out.Err = &RunError{Job: job, Output: trimOutput(output.String()), Wrapped: err}
	case !job.Done():
		out.Status = Failed
		out.Err = &RunError{Job: job, Output: trimOutput(output.String()), Wrapped: ErrNoOutput}
	default:
		out.Status = Completed
	}
	return out
}

func trimOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxOutputLen {
		s = s[len(s)-maxOutputLen:]
	}
	return s
}

// LogObserver reports job events through zap.
type LogObserver struct {
	Logger *zap.Logger
}

func (l LogObserver) JobStarted(job Job, index, total int) {
	l.Logger.Info("running simulator",
		zap.String("netlist", filepath.Base(job.Netlist)),
		zap.Int("index", index+1), zap.Int("total", total))
}

func (l LogObserver) JobFinished(o Outcome, index, total int) {
	fields := []zap.Field{
		zap.String("netlist", filepath.Base(o.Job.Netlist)),
		zap.Stringer("status", o.Status),
		zap.Duration("duration", o.Duration),
	}
	if o.Status == Completed {
		l.Logger.Debug("simulation finished", append(fields, zap.Bool("killed", o.Killed))...)
		return
	}
	l.Logger.Warn("simulation unsuccessful", append(fields, zap.Error(o.Err))...)
}
