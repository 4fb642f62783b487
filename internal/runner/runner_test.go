package runner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/circuitsim/internal/config"
	"github.com/san-kum/circuitsim/internal/runner"
)

// fakeSimulator behaves according to the netlist name and writes the .raw
// file next to it the way LTspice does.
const fakeSimulator = `#!/bin/sh
for last; do :; done
echo "$@" > "${last%.cir}.args"
case "$(basename "$last")" in
  *fail*) echo "simulator exploded" >&2; exit 3 ;;
  *noout*) exit 0 ;;
  *hang*) exec sleep 10 ;;
  *linger*) printf 'raw' > "${last%.cir}.raw"; exec sleep 10 ;;
  *slow*) sleep 0.3 ;;
esac
printf 'raw' > "${last%.cir}.raw"
`

func tempDir() string {
	dir, err := os.MkdirTemp("", "runner-test-")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(os.RemoveAll, dir)
	return dir
}

func touch(path, content string) {
	Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
}

type recorder struct {
	mu       sync.Mutex
	active   int
	peak     int
	started  int
	finished []runner.Outcome
}

func (r *recorder) JobStarted(runner.Job, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
	r.active++
	if r.active > r.peak {
		r.peak = r.active
	}
}

func (r *recorder) JobFinished(o runner.Outcome, _, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active--
	r.finished = append(r.finished, o)
}

var _ = Describe("Scan", func() {
	It("finds netlists without results in allowed directories", func() {
		out := tempDir()
		base := filepath.Join(out, "800-200", "Temp27")
		touch(filepath.Join(base, "2x4", "2x4_0_Shading.cir"), "*")
		touch(filepath.Join(base, "2x4", "2x4_1_Shading.cir"), "*")
		touch(filepath.Join(base, "2x4", "2x4_1_Shading.raw"), "data")
		touch(filepath.Join(base, "2x4", "cell_2.lib"), "*")
		touch(filepath.Join(base, "9x9", "9x9_0_Shading.cir"), "*")
		touch(filepath.Join(out, "999-1", "Temp27", "2x4", "2x4_0_Shading.cir"), "*")

		res, err := runner.Scan(out, []string{"800-200", "1000-500"}, []string{"2x4"})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Jobs).To(HaveLen(1))
		Expect(res.Jobs[0].Netlist).To(Equal(filepath.Join(base, "2x4", "2x4_0_Shading.cir")))
		Expect(res.Jobs[0].Raw).To(Equal(filepath.Join(base, "2x4", "2x4_0_Shading.raw")))
		Expect(res.Skipped).To(HaveLen(1))
	})

	It("orders jobs by netlist path across datasets", func() {
		out := tempDir()
		late := filepath.Join(out, "800-200", "Temp27", "2x4", "2x4_0_Shading.cir")
		early := filepath.Join(out, "1000-500", "Temp27", "2x4", "2x4_0_Shading.cir")
		touch(late, "*")
		touch(early, "*")

		res, err := runner.Scan(out, []string{"800-200", "1000-500"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Jobs).To(HaveLen(2))
		Expect(res.Jobs[0].Netlist).To(Equal(early))
		Expect(res.Jobs[1].Netlist).To(Equal(late))
	})

	It("treats an empty .raw file as pending", func() {
		out := tempDir()
		dir := filepath.Join(out, "800-200", "Temp30", "3x3")
		touch(filepath.Join(dir, "3x3_0_Shading.cir"), "*")
		touch(filepath.Join(dir, "3x3_0_Shading.raw"), "")

		res, err := runner.Scan(out, []string{"800-200"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Jobs).To(HaveLen(1))
		Expect(res.Skipped).To(BeEmpty())
	})
})

var _ = Describe("Pool", func() {
	var (
		dir  string
		pool *runner.Pool
		rec  *recorder
	)

	BeforeEach(func() {
		if runtime.GOOS == "windows" {
			Skip("fake simulator is a shell script")
		}
		dir = tempDir()
		script := filepath.Join(dir, "fake-ltspice")
		Expect(os.WriteFile(script, []byte(fakeSimulator), 0755)).To(Succeed())

		cfg := config.DefaultConfig().Simulator
		cfg.Executable = script
		cfg.Args = []string{"-b"}
		cfg.Timeout = 2 * time.Second
		cfg.LaunchInterval = 0
		cfg.Concurrency = 2
		pool = runner.NewPool(cfg, nil)
		rec = &recorder{}
	})

	job := func(name string) runner.Job {
		path := filepath.Join(dir, "sims", name)
		touch(path, "* netlist\n")
		return runner.NewJob(path)
	}

	It("runs every job and reports completion", func() {
		jobs := []runner.Job{job("a.cir"), job("b.cir"), job("c.cir")}

		report := pool.Run(context.Background(), jobs, rec)

		Expect(report.Completed).To(Equal(3))
		Expect(report.Err()).NotTo(HaveOccurred())
		Expect(rec.started).To(Equal(3))
		for _, j := range jobs {
			Expect(j.Done()).To(BeTrue())
		}

		args, err := os.ReadFile(filepath.Join(dir, "sims", "a.args"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(args)).To(Equal("-b " + jobs[0].Netlist + "\n"))
	})

	It("never exceeds the concurrency limit", func() {
		jobs := []runner.Job{job("slow1.cir"), job("slow2.cir"), job("slow3.cir"), job("slow4.cir"), job("slow5.cir")}

		report := pool.Run(context.Background(), jobs, rec)

		Expect(report.Completed).To(Equal(5))
		Expect(rec.peak).To(BeNumerically("<=", 2))
		Expect(rec.peak).To(BeNumerically(">=", 1))
	})

	It("reports failures with the simulator output", func() {
		report := pool.Run(context.Background(), []runner.Job{job("fail.cir"), job("noout.cir")}, nil)

		Expect(report.Failed).To(Equal(2))
		var runErr *runner.RunError
		Expect(errors.As(report.Outcomes[0].Err, &runErr)).To(BeTrue())
		Expect(runErr.Output).To(ContainSubstring("simulator exploded"))
		Expect(report.Outcomes[1].Err).To(MatchError(runner.ErrNoOutput))
		Expect(report.Err()).To(HaveOccurred())
	})

	It("kills runs that exceed the timeout", func() {
		pool.Timeout = 200 * time.Millisecond

		report := pool.Run(context.Background(), []runner.Job{job("hang.cir"), job("linger.cir")}, nil)

		Expect(report.Outcomes[0].Status).To(Equal(runner.TimedOut))
		Expect(report.Outcomes[0].Err).To(MatchError(runner.ErrTimeout))
		Expect(report.Outcomes[1].Status).To(Equal(runner.Completed))
		Expect(report.Outcomes[1].Killed).To(BeTrue())
		Expect(report.Outcomes[0].Duration).To(BeNumerically("<", 5*time.Second))
	})

	It("stops launching when the context is canceled", func() {
		pool.Concurrency = 1
		pool.LaunchInterval = 50 * time.Millisecond
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(100*time.Millisecond, cancel)

		jobs := []runner.Job{job("hang1.cir"), job("hang2.cir"), job("hang3.cir")}
		report := pool.Run(ctx, jobs, nil)

		Expect(report.Canceled).To(Equal(3))
		Expect(report.Elapsed).To(BeNumerically("<", 5*time.Second))
	})

	It("fails every job without an executable", func() {
		pool.Executable = ""
		report := pool.Run(context.Background(), []runner.Job{job("a.cir")}, nil)
		Expect(report.Failed).To(Equal(1))
		Expect(report.Outcomes[0].Err).To(MatchError(runner.ErrNoExecutable))
	})
})

var _ = Describe("CommandLine", func() {
	It("appends the absolute netlist path", func() {
		p := &runner.Pool{Executable: "wine", Args: []string{"XVIIx64.exe", "-b"}}
		argv := p.CommandLine(runner.NewJob("Output/a.cir"))
		abs, _ := filepath.Abs("Output/a.cir")
		Expect(argv).To(Equal([]string{"wine", "XVIIx64.exe", "-b", abs}))
	})

	It("substitutes the placeholder", func() {
		p := &runner.Pool{Executable: "/opt/ltspice", Args: []string{"-b", "-ascii", "{netlist}", "-fast"}}
		argv := p.CommandLine(runner.NewJob("/tmp/x.cir"))
		Expect(argv).To(Equal([]string{"/opt/ltspice", "-b", "-ascii", "/tmp/x.cir", "-fast"}))
	})
})

var _ = Describe("Estimate", func() {
	It("adds launch stagger to one timeout per wave", func() {
		p := &runner.Pool{Concurrency: 2, Timeout: 8 * time.Second, LaunchInterval: 300 * time.Millisecond}
		Expect(p.Estimate(0)).To(BeZero())
		Expect(p.Estimate(4)).To(Equal(1200*time.Millisecond + 16*time.Second))
		Expect(p.Estimate(5)).To(Equal(1500*time.Millisecond + 24*time.Second))
	})
})

var _ = Describe("Status", func() {
	DescribeTable("String",
		func(s runner.Status, want string) { Expect(s.String()).To(Equal(want)) },
		Entry("completed", runner.Completed, "completed"),
		Entry("timed out", runner.TimedOut, "timed out"),
		Entry("failed", runner.Failed, "failed"),
		Entry("canceled", runner.Canceled, "canceled"),
		Entry("unknown", runner.Status(42), "unknown"),
	)
})
