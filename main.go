// Command matrixbench configures, builds, tests and benchmarks a CMake project
// for every entry of a toolchain matrix, and collects build times, binary
// sizes and benchmark results into one JSON report per entry.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

type runOptions struct {
	configPath string
	fast       bool
	entries    []string
	overrides  Settings
}

func main() {
	err := newRootCmd(os.Stdout).Execute()
	klog.Flush()
	if err != nil {
		klog.Fatal(err)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "matrixbench",
		Short:         "Build and benchmark a CMake project across a toolchain matrix",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	goflags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(goflags)
	root.PersistentFlags().AddGoFlagSet(goflags)

	root.AddCommand(newRunCmd(out), newValidateCmd(out), newShowCmd(out))
	return root
}

func addConfigFlags(flags *pflag.FlagSet, o *runOptions) {
	flags.StringVar(&o.configPath, "config", "", "matrix file")
	flags.StringVar(&o.overrides.Workspace, "workspace", "", "build workspace (default <project-root>/build-benchmarks)")
	flags.StringVar(&o.overrides.ResultsDir, "results-dir", "", "report directory (default <config dir>/benchmark)")
	flags.StringVar(&o.overrides.ProjectRoot, "project-root", "", "project source directory")
	flags.StringSliceVar(&o.entries, "entry", nil, "only process the matrix entries with these dirs")
}

func (o *runOptions) load() (*MatrixFile, []MatrixEntry, error) {
	if o.configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	// Paths given on the command line are relative to the working directory.
	for _, p := range []*string{&o.overrides.Workspace, &o.overrides.ResultsDir, &o.overrides.ProjectRoot} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return nil, nil, err
		}
		*p = abs
	}
	m, err := loadMatrix(o.configPath, &o.overrides)
	if err != nil {
		return nil, nil, err
	}
	entries, err := m.selectEntries(o.entries)
	if err != nil {
		return nil, nil, err
	}
	return m, entries, nil
}

func newRunCmd(out io.Writer) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build, test and benchmark every matrix entry and write the reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, entries, err := o.load()
			if err != nil {
				return err
			}
			r := &Runner{
				Settings: m.Settings,
				Exec:     newCommandExecutor(),
				Out:      out,
				Fast:     o.fast,
			}
			return r.Run(cmd.Context(), entries)
		},
	}
	addConfigFlags(cmd.Flags(), o)
	cmd.Flags().BoolVar(&o.fast, "fast", false, "skip the builds and only harvest existing artifacts")
	return cmd
}

func newValidateCmd(out io.Writer) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a matrix file and print the commands a run would execute",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, entries, err := o.load()
			if err != nil {
				return err
			}
			r := &Runner{Settings: m.Settings}
			fmt.Fprintf(out, "workspace: %s\n", m.Workspace)
			for _, entry := range entries {
				fmt.Fprintf(out, "\n%s (%s)\n", entry.Dir, r.entryDir(entry))
				for _, s := range r.steps(entry) {
					fmt.Fprintf(out, "  %-16s %s\n", s.name+":", commandLine(s.tool, s.args))
				}
				fmt.Fprintf(out, "  %-16s %s\n", "report:", reportPath(m.ResultsDir, entry.Dir, m.BenchmarkResults))
			}
			return nil
		},
	}
	addConfigFlags(cmd.Flags(), o)
	return cmd
}

func newShowCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "show REPORT...",
		Short: "Print the build and evaluation times of existing reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			for _, path := range args {
				r, err := readReport(path)
				if err != nil {
					return err
				}
				showBuildTable(out, filepath.Base(path), r)
				showEvalTable(out, r)
			}
			return nil
		},
	}
}
