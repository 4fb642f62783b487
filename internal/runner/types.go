package runner

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Job struct {
	Netlist string
	Raw     string
}

// NewJob derives the expected .raw path from a .cir path.
func NewJob(netlist string) Job {
	return Job{
		Netlist: netlist,
		Raw:     strings.TrimSuffix(netlist, filepath.Ext(netlist)) + ".raw",
	}
}

func (j Job) Done() bool {
	info, err := os.Stat(j.Raw)
	return err == nil && info.Size() > 0
}

type Status int

const (
	Completed Status = iota
	TimedOut
	Failed
	Canceled
)

func (s Status) String() string {
	switch s {
	case Completed:
		return "completed"
	case TimedOut:
		return "timed out"
	case Failed:
		return "failed"
	case Canceled:
		return "canceled"
	}
	return "unknown"
}

type Outcome struct {
	Job      Job
	Status   Status
	Duration time.Duration
	// Killed is set when the process was stopped by the timeout, even if
	// its output was complete.
	Killed bool
	Err    error
}

type Report struct {
	Outcomes  []Outcome
	Completed int
	TimedOut  int
	Failed    int
	Canceled  int
	Elapsed   time.Duration
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case Completed:
		r.Completed++
	case TimedOut:
		r.TimedOut++
	case Failed:
		r.Failed++
	case Canceled:
		r.Canceled++
	}
}

// Err summarises unsuccessful outcomes; nil when every job completed.
func (r *Report) Err() error {
	for _, o := range r.Outcomes {
		if o.Status != Completed {
			return o.Err
		}
	}
	return nil
}

// Observer receives lifecycle events for each job. index is the job's
// position in the submitted slice.
type Observer interface {
	JobStarted(job Job, index, total int)
	JobFinished(o Outcome, index, total int)
}

type Observers []Observer

func (obs Observers) JobStarted(job Job, index, total int) {
	for _, o := range obs {
		o.JobStarted(job, index, total)
	}
}

func (obs Observers) JobFinished(out Outcome, index, total int) {
	for _, o := range obs {
		o.JobFinished(out, index, total)
	}
}

type nopObserver struct{}

func (nopObserver) JobStarted(Job, int, int)      {}
func (nopObserver) JobFinished(Outcome, int, int) {}
