package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"
)

type step struct {
	name string
	tool string
	args []string
}

// Runner builds, tests and benchmarks the project for each matrix entry and
// writes one report per entry.
type Runner struct {
	Settings Settings
	Exec     Executor
	// Summary tables are written to Out.
	Out io.Writer
	// Fast skips the workspace reset and every external command, and only
	// harvests artifacts left by a previous run.
	Fast bool
}

func (r *Runner) entryDir(entry MatrixEntry) string {
	return filepath.Join(r.Settings.Workspace, entry.Dir)
}

// steps returns the commands run for entry, in order.
func (r *Runner) steps(entry MatrixEntry) []step {
	s := &r.Settings
	dir := r.entryDir(entry)

	configure := []string{"-G" + s.Generator}
	configure = append(configure, s.ConfigureArgs...)
	configure = append(configure, "-DCMAKE_CXX_COMPILER="+entry.Compiler)
	configure = append(configure, entry.CMakeArgs...)
	configure = append(configure, s.ProjectRoot)

	return []step{
		{name: "configure", tool: s.CMake, args: configure},
		{name: "build benchmark", tool: s.CMake, args: []string{"--build", dir, "--target", s.BenchmarkTarget}},
		{name: "build", tool: s.CMake, args: []string{"--build", dir}},
		{name: "test", tool: s.CTest, args: append([]string{}, s.TestArgs...)},
		{name: "build timing", tool: s.CMake, args: []string{"--build", dir, "--target", s.TimingTarget}},
	}
}

// Run processes entries one after the other. The first error aborts the run;
// no report is written for the entries that were not reached.
func (r *Runner) Run(ctx context.Context, entries []MatrixEntry) error {
	if !r.Fast {
		if err := checkRequirements(ctx, r.Exec, r.Settings.ProjectRoot, r.Settings.Requirements); err != nil {
			return err
		}
		if err := r.prepareWorkspace(); err != nil {
			return err
		}
	}

	rev, err := projectRevision(r.Settings.ProjectRoot)
	if err != nil {
		klog.Warningf("Reports will not record the project revision: %v", err)
	}

	for _, entry := range entries {
		if err := r.runEntry(ctx, entry, rev); err != nil {
			return fmt.Errorf("matrix entry '%s' failed: %w", entry.Dir, err)
		}
	}
	return nil
}

func isWithin(path, parent string) bool {
	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// prepareWorkspace deletes and recreates the top-level build workspace.
func (r *Runner) prepareWorkspace() error {
	ws := r.Settings.Workspace
	if isWithin(r.Settings.ProjectRoot, ws) {
		return fmt.Errorf("refusing to delete workspace '%s': it contains the project root", ws)
	}
	klog.Infof("Recreating workspace %s", ws)
	if err := os.RemoveAll(ws); err != nil {
		return fmt.Errorf("unable to clean workspace '%s': %w", ws, err)
	}
	if err := os.MkdirAll(ws, 0755); err != nil {
		return fmt.Errorf("unable to create workspace '%s': %w", ws, err)
	}
	return nil
}

func (r *Runner) runEntry(ctx context.Context, entry MatrixEntry, rev *Revision) error {
	dir := r.entryDir(entry)

	if r.Fast {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("fast mode needs a previous build: %w", err)
		}
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		for _, s := range r.steps(entry) {
			klog.Infof("[%s] %s", entry.Dir, s.name)
			if err := r.Exec.Run(ctx, dir, s.tool, s.args...); err != nil {
				return fmt.Errorf("%s step: %w", s.name, err)
			}
		}
	}

	klog.Infof("[%s] harvest", entry.Dir)
	report, err := r.harvest(dir)
	if err != nil {
		return err
	}
	report.Revision = rev

	path := reportPath(r.Settings.ResultsDir, entry.Dir, r.Settings.BenchmarkResults)
	if err := writeReport(path, report); err != nil {
		return err
	}
	klog.Infof("[%s] wrote %s", entry.Dir, path)

	if r.Out != nil {
		showBuildTable(r.Out, entry.Dir, report)
	}
	return nil
}

func (r *Runner) harvest(dir string) (*Report, error) {
	report, records, err := loadBenchmarkResults(filepath.Join(dir, r.Settings.BenchmarkResults))
	if err != nil {
		return nil, err
	}

	artifacts := filepath.Join(dir, r.Settings.ArtifactDir)
	if report.BuildTimes, err = HarvestTimes(artifacts); err != nil {
		return nil, err
	}
	if report.BuildSize, err = HarvestSizes(artifacts); err != nil {
		return nil, err
	}
	if report.EvalTimes, err = DeriveEvalTimes(records); err != nil {
		return nil, err
	}
	return report, nil
}
