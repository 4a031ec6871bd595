package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/kballard/go-shellquote"
	"k8s.io/klog/v2"
)

// Executor runs external tools. Every invocation names its working directory
// explicitly; the process working directory is never changed.
type Executor interface {
	Run(ctx context.Context, dir string, name string, args ...string) error
	Output(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

type commandExecutor struct {
	stdout io.Writer
	stderr io.Writer
}

func newCommandExecutor() *commandExecutor {
	// Tool output goes to stderr so that stdout only carries the result tables.
	return &commandExecutor{stdout: os.Stderr, stderr: os.Stderr}
}

func commandLine(name string, args []string) string {
	return shellquote.Join(append([]string{name}, args...)...)
}

func (e *commandExecutor) Run(ctx context.Context, dir string, name string, args ...string) error {
	klog.V(2).Infof("Running '%s' in %s", commandLine(name, args), dir)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run '%s' command: %w", commandLine(name, args), err)
	}
	return nil
}

func (e *commandExecutor) Output(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	klog.V(2).Infof("Running '%s' in %s", commandLine(name, args), dir)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		klog.Warning(stderr.String())
		return nil, fmt.Errorf("failed to run '%s' command: %w", commandLine(name, args), err)
	}
	return out, nil
}
