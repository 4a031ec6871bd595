package main

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

var defaultSettings = Settings{
	ProjectRoot:      "..",
	ResultsDir:       "benchmark",
	Generator:        "Ninja",
	ConfigureArgs:    Args{"-DGPM_FORMAT_GENERATED_FILES=ON"},
	BenchmarkTarget:  "run_tree_benchmark",
	TimingTarget:     "time_build_tree_benchmark_all",
	ArtifactDir:      "examples/ant",
	BenchmarkResults: "examples/ant/tree_benchmark.json",
	CMake:            "cmake",
	CTest:            "ctest",
	TestArgs:         Args{"--output-on-failure", "-VV"},
}

const defaultWorkspaceName = "build-benchmarks"

func parseMatrix(data []byte) (*MatrixFile, error) {
	m := &MatrixFile{}
	if err := yaml.UnmarshalStrict(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// loadMatrix reads the matrix file at path. Non-empty fields of overrides take
// precedence over the file, which takes precedence over the built-in defaults.
// Relative paths in the file are resolved against the file's directory.
func loadMatrix(path string, overrides *Settings) (*MatrixFile, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := parseMatrix(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse matrix file '%s': %w", path, err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(absPath)

	s := *overrides
	s.applyDefaults(&m.Settings).applyDefaults(&defaultSettings)
	s.ProjectRoot = resolvePath(base, s.ProjectRoot)
	if s.Workspace == "" {
		s.Workspace = filepath.Join(s.ProjectRoot, defaultWorkspaceName)
	}
	s.Workspace = resolvePath(base, s.Workspace)
	s.ResultsDir = resolvePath(base, s.ResultsDir)
	m.Settings = s

	for idx := range m.Entries {
		entry := &m.Entries[idx]
		if entry.Dir == "" {
			entry.Dir = entry.Compiler
		}
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid matrix file '%s': %w", path, err)
	}
	return m, nil
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func (s *Settings) applyDefaults(d *Settings) *Settings {
	if s.ProjectRoot == "" {
		s.ProjectRoot = d.ProjectRoot
	}
	if s.Workspace == "" {
		s.Workspace = d.Workspace
	}
	if s.ResultsDir == "" {
		s.ResultsDir = d.ResultsDir
	}
	if s.Generator == "" {
		s.Generator = d.Generator
	}
	if s.ConfigureArgs == nil {
		s.ConfigureArgs = d.ConfigureArgs
	}
	if s.BenchmarkTarget == "" {
		s.BenchmarkTarget = d.BenchmarkTarget
	}
	if s.TimingTarget == "" {
		s.TimingTarget = d.TimingTarget
	}
	if s.ArtifactDir == "" {
		s.ArtifactDir = d.ArtifactDir
	}
	if s.BenchmarkResults == "" {
		s.BenchmarkResults = d.BenchmarkResults
	}
	if s.CMake == "" {
		s.CMake = d.CMake
	}
	if s.CTest == "" {
		s.CTest = d.CTest
	}
	if s.TestArgs == nil {
		s.TestArgs = d.TestArgs
	}
	if s.Requirements == nil {
		s.Requirements = d.Requirements
	}
	return s
}

func (m *MatrixFile) validate() error {
	if len(m.Entries) == 0 {
		return fmt.Errorf("no matrix entries")
	}
	seen := make(map[string]bool)
	for i, entry := range m.Entries {
		if entry.Compiler == "" {
			return fmt.Errorf("entry %d has no compiler", i)
		}
		if entry.Dir == "." || entry.Dir == ".." || strings.ContainsAny(entry.Dir, `/\`) {
			return fmt.Errorf("entry dir '%s' must be a single path element", entry.Dir)
		}
		if seen[entry.Dir] {
			return fmt.Errorf("more than one entry with dir '%s'", entry.Dir)
		}
		seen[entry.Dir] = true
	}
	return nil
}

// selectEntries returns the entries whose dir is listed in names, in matrix
// order. An empty names list selects every entry.
func (m *MatrixFile) selectEntries(names []string) ([]MatrixEntry, error) {
	if len(names) == 0 {
		return m.Entries, nil
	}
	wanted := make(map[string]bool)
	for _, name := range names {
		wanted[name] = true
	}
	var entries []MatrixEntry
	for _, entry := range m.Entries {
		if wanted[entry.Dir] {
			entries = append(entries, entry)
			delete(wanted, entry.Dir)
		}
	}
	for name := range wanted {
		return nil, fmt.Errorf("unknown matrix entry '%s'", name)
	}
	return entries, nil
}
