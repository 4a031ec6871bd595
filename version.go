package main

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/blang/semver/v4"
	"k8s.io/klog/v2"
)

var (
	toolVersionPattern  = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)
	rangeVersionPattern = regexp.MustCompile(`v?\d+(?:\.\d+){0,2}`)
)

// normalizeRange drops "v" prefixes and pads versions in a range expression
// to three components, so that ">=3.13" reads as ">=3.13.0".
func normalizeRange(requirement string) string {
	return rangeVersionPattern.ReplaceAllStringFunc(requirement, func(v string) string {
		v = strings.TrimPrefix(v, "v")
		for strings.Count(v, ".") < 2 {
			v += ".0"
		}
		return v
	})
}

// versionRequired reports whether version satisfies requirement. An empty
// requirement is always satisfied and a bare version means equality.
func versionRequired(requirement string, version string) bool {
	if requirement == "" {
		return true
	}
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return false
	}
	r, err := semver.ParseRange(normalizeRange(requirement))
	if err != nil {
		return false
	}
	return r(v)
}

// parseToolVersion extracts the first version number from the output of
// "<tool> --version".
func parseToolVersion(output string) (string, error) {
	v := toolVersionPattern.FindString(output)
	if v == "" {
		return "", fmt.Errorf("no version number in %q", strings.TrimSpace(output))
	}
	return v, nil
}

// checkRequirements probes every tool named in requirements and fails on the
// first one whose version is out of range.
func checkRequirements(ctx context.Context, exe Executor, dir string, requirements map[string]string) error {
	tools := make([]string, 0, len(requirements))
	for tool := range requirements {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	for _, tool := range tools {
		out, err := exe.Output(ctx, dir, tool, "--version")
		if err != nil {
			return fmt.Errorf("unable to get the version of '%s': %w", tool, err)
		}
		version, err := parseToolVersion(string(out))
		if err != nil {
			return fmt.Errorf("unable to get the version of '%s': %w", tool, err)
		}
		if !versionRequired(requirements[tool], version) {
			return fmt.Errorf("'%s' version %s does not satisfy '%s'", tool, version, requirements[tool])
		}
		klog.Infof("Found %s %s", tool, version)
	}
	return nil
}
