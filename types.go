package main

import (
	"fmt"

	"github.com/kballard/go-shellquote"
)

// Args is an ordered list of command-line arguments. In YAML it may be
// written either as a sequence or as a single shell-quoted string.
type Args []string

func (a *Args) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var list []string
	if err := unmarshal(&list); err == nil {
		*a = list
		return nil
	}
	var s string
	if err := unmarshal(&s); err != nil {
		return fmt.Errorf("arguments must be a list or a string")
	}
	words, err := shellquote.Split(s)
	if err != nil {
		return fmt.Errorf("unable to split arguments %q: %w", s, err)
	}
	*a = words
	return nil
}

type Settings struct {
	ProjectRoot      string            `yaml:"projectRoot"`
	Workspace        string            `yaml:"workspace"`
	ResultsDir       string            `yaml:"resultsDir"`
	Generator        string            `yaml:"generator"`
	ConfigureArgs    Args              `yaml:"configureArgs,omitempty"`
	BenchmarkTarget  string            `yaml:"benchmarkTarget"`
	TimingTarget     string            `yaml:"timingTarget"`
	ArtifactDir      string            `yaml:"artifactDir"`
	BenchmarkResults string            `yaml:"benchmarkResults"`
	CMake            string            `yaml:"cmake"`
	CTest            string            `yaml:"ctest"`
	TestArgs         Args              `yaml:"testArgs,omitempty"`
	Requirements     map[string]string `yaml:"requirements,omitempty"`
}

// MatrixEntry is one toolchain/flags/output-directory combination.
type MatrixEntry struct {
	Compiler  string `yaml:"compiler"`
	Dir       string `yaml:"dir"`
	CMakeArgs Args   `yaml:"cmakeArgs,omitempty"`
}

type MatrixFile struct {
	Settings `yaml:",inline"`
	Entries  []MatrixEntry `yaml:"entries"`
}
