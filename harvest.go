package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	timingPrefix = "buildtime_"
	sizePrefix   = "bin_size_"
	artifactExt  = ".txt"
)

// ErrNoWallClock is returned when a timing artifact has no GNU time
// wall clock line.
var ErrNoWallClock = errors.New("no wall clock time found")

// Matches both "m:ss.ss" and "h:mm:ss" as printed by GNU time -v.
var wallClockPattern = regexp.MustCompile(`Elapsed \(wall clock\) time \(h:mm:ss or m:ss\): (\d+):(\d\d(?:\.\d+)?)(?::(\d\d(?:\.\d+)?))?`)

// ParseWallClock returns the elapsed wall clock time in seconds.
func ParseWallClock(text string) (float64, error) {
	m := wallClockPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, ErrNoWallClock
	}
	first, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, err
	}
	if m[3] == "" {
		secs, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, err
		}
		return float64(first)*60 + secs, nil
	}
	mins, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, fmt.Errorf("malformed minutes in '%s': %w", m[0], err)
	}
	secs, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, err
	}
	return float64(first)*3600 + float64(mins)*60 + secs, nil
}

// ParseSize parses the content of a binary size artifact.
func ParseSize(text string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(text), 10, 64)
}

func artifactLabel(path, prefix string) (string, error) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, artifactExt) {
		return "", fmt.Errorf("'%s' is not named %s<label>%s", name, prefix, artifactExt)
	}
	label := strings.TrimSuffix(strings.TrimPrefix(name, prefix), artifactExt)
	if label == "" {
		return "", fmt.Errorf("'%s' has an empty label", name)
	}
	return label, nil
}

// TimingLabel extracts <label> from a path ending in buildtime_<label>.txt.
func TimingLabel(path string) (string, error) {
	return artifactLabel(path, timingPrefix)
}

// SizeLabel extracts <label> from a path ending in bin_size_<label>.txt.
func SizeLabel(path string) (string, error) {
	return artifactLabel(path, sizePrefix)
}

// globArtifacts returns the files in dir named <prefix>*.txt, sorted.
func globArtifacts(dir, prefix string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, prefix+"*"+artifactExt))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// HarvestTimes reads every timing artifact in dir and returns the build time
// in seconds keyed by label.
func HarvestTimes(dir string) (map[string]float64, error) {
	files, err := globArtifacts(dir, timingPrefix)
	if err != nil {
		return nil, err
	}
	times := make(map[string]float64)
	for _, file := range files {
		label, err := TimingLabel(file)
		if err != nil {
			return nil, err
		}
		if _, ok := times[label]; ok {
			return nil, fmt.Errorf("more than one timing artifact with label '%s'", label)
		}
		data, err := ioutil.ReadFile(file)
		if err != nil {
			return nil, err
		}
		secs, err := ParseWallClock(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse '%s': %w", file, err)
		}
		times[label] = secs
	}
	return times, nil
}

// HarvestSizes reads every size artifact in dir and returns the binary size
// in bytes keyed by label.
func HarvestSizes(dir string) (map[string]int64, error) {
	files, err := globArtifacts(dir, sizePrefix)
	if err != nil {
		return nil, err
	}
	sizes := make(map[string]int64)
	for _, file := range files {
		label, err := SizeLabel(file)
		if err != nil {
			return nil, err
		}
		if _, ok := sizes[label]; ok {
			return nil, fmt.Errorf("more than one size artifact with label '%s'", label)
		}
		data, err := ioutil.ReadFile(file)
		if err != nil {
			return nil, err
		}
		size, err := ParseSize(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse '%s': %w", file, err)
		}
		sizes[label] = size
	}
	return sizes, nil
}

const (
	fullMedian       = "Full_median"
	createOnlyMedian = "CreateOnly_median"
	evalMedian       = "Eval_median"
)

var medianNamePattern = regexp.MustCompile(`^(.*?)_?(` + createOnlyMedian + `|` + fullMedian + `)$`)

// BenchmarkRecord is one entry of the "benchmarks" array. All fields are
// kept so they survive into the report.
type BenchmarkRecord map[string]interface{}

func (b BenchmarkRecord) Name() string {
	name, _ := b["name"].(string)
	return name
}

func (b BenchmarkRecord) CPUTime() (float64, error) {
	switch v := b["cpu_time"].(type) {
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("benchmark '%s' has no numeric cpu_time", b.Name())
	}
}

// EvalTimes groups the median records by base name and holds the derived
// evaluation cost.
type EvalTimes map[string]map[string]BenchmarkRecord

// DeriveEvalTimes computes Eval_median = Full_median - CreateOnly_median for
// every base name that has both records.
func DeriveEvalTimes(records []BenchmarkRecord) (EvalTimes, error) {
	eval := EvalTimes{
		fullMedian:       {},
		createOnlyMedian: {},
		evalMedian:       {},
	}
	for _, b := range records {
		m := medianNamePattern.FindStringSubmatch(b.Name())
		if m == nil {
			continue
		}
		eval[m[2]][m[1]] = b
	}
	for base, full := range eval[fullMedian] {
		createOnly, ok := eval[createOnlyMedian][base]
		if !ok {
			continue
		}
		fullTime, err := full.CPUTime()
		if err != nil {
			return nil, err
		}
		createTime, err := createOnly.CPUTime()
		if err != nil {
			return nil, err
		}
		eval[evalMedian][base] = BenchmarkRecord{"cpu_time": fullTime - createTime}
	}
	return eval, nil
}
