package runner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanResult lists pending jobs sorted by netlist path.
type ScanResult struct {
	Jobs    []Job
	Skipped []Job
}

// Scan walks {outputDir}/{dataset}/{temp}/{arrangement}/ for netlists.
// Only the named dataset directories and, when non-empty, the allowed
// arrangement directories are visited. Netlists that already have a .raw
// result go to Skipped. Missing dataset directories are ignored.
func Scan(outputDir string, datasets, arrangements []string) (ScanResult, error) {
	allowed := make(map[string]bool, len(arrangements))
	for _, a := range arrangements {
		allowed[a] = true
	}

	var res ScanResult
	for _, ds := range datasets {
		tempDirs, err := subdirs(filepath.Join(outputDir, ds))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return res, err
		}

		for _, temp := range tempDirs {
			arrDirs, err := subdirs(temp)
			if err != nil {
				return res, err
			}
			for _, dir := range arrDirs {
				if len(allowed) > 0 && !allowed[filepath.Base(dir)] {
					continue
				}
				if err := scanDir(dir, &res); err != nil {
					return res, err
				}
			}
		}
	}
	sortJobs(res.Jobs)
	sortJobs(res.Skipped)
	return res, nil
}

func sortJobs(jobs []Job) {
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Netlist < jobs[j].Netlist })
}

func scanDir(dir string, res *ScanResult) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".cir") {
			continue
		}
		job := NewJob(filepath.Join(dir, e.Name()))
		if job.Done() {
			res.Skipped = append(res.Skipped, job)
			continue
		}
		res.Jobs = append(res.Jobs, job)
	}
	return nil
}

// subdirs returns the child directories of dir, sorted by name.
func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(dir, e.Name()))
		}
	}
	return dirs, nil
}
